// Package paypal implements webhook verification and event parsing for
// PayPal billing agreements. Verification is delegated to PayPal's
// verify-webhook-signature API: only the provider can assert that a
// notification it generated is genuine.
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hookbill/hookbill/internal/gateway/domain"
)

const (
	liveAPIBase    = "https://api-m.paypal.com"
	sandboxAPIBase = "https://api-m.sandbox.paypal.com"

	eventTypeSaleCompleted = "PAYMENT.SALE.COMPLETED"
)

type Factory struct {
	client *http.Client
}

// NewFactory builds PayPal adapters sharing one HTTP client. The client
// timeout bounds each outbound verification call.
func NewFactory(timeout time.Duration) *Factory {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Factory{
		client: &http.Client{Timeout: timeout},
	}
}

func (f *Factory) Provider() string {
	return "paypal"
}

type settings struct {
	ClientID  string `json:"client_id"`
	Secret    string `json:"secret"`
	WebhookID string `json:"webhook_id"`
	Sandbox   bool   `json:"sandbox"`
	// APIBase overrides the PayPal endpoint; tests point it at a local server.
	APIBase string `json:"api_base"`
}

func (f *Factory) NewAdapter(method domain.PaymentMethod) (domain.Adapter, error) {
	var cfg settings
	if err := json.Unmarshal(method.Settings, &cfg); err != nil {
		return nil, domain.ErrInvalidConfig
	}
	cfg.ClientID = strings.TrimSpace(cfg.ClientID)
	cfg.Secret = strings.TrimSpace(cfg.Secret)
	cfg.WebhookID = strings.TrimSpace(cfg.WebhookID)
	if cfg.ClientID == "" || cfg.Secret == "" || cfg.WebhookID == "" {
		return nil, domain.ErrInvalidConfig
	}

	apiBase := strings.TrimRight(strings.TrimSpace(cfg.APIBase), "/")
	if apiBase == "" {
		if cfg.Sandbox {
			apiBase = sandboxAPIBase
		} else {
			apiBase = liveAPIBase
		}
	}

	return &Adapter{
		methodID:  method.ID,
		clientID:  cfg.ClientID,
		secret:    cfg.Secret,
		webhookID: cfg.WebhookID,
		apiBase:   apiBase,
		client:    f.client,
	}, nil
}

type Adapter struct {
	methodID  snowflake.ID
	clientID  string
	secret    string
	webhookID string
	apiBase   string
	client    *http.Client
}

type verifyRequest struct {
	AuthAlgo         string          `json:"auth_algo"`
	CertURL          string          `json:"cert_url"`
	TransmissionID   string          `json:"transmission_id"`
	TransmissionSig  string          `json:"transmission_sig"`
	TransmissionTime string          `json:"transmission_time"`
	WebhookID        string          `json:"webhook_id"`
	WebhookEvent     json.RawMessage `json:"webhook_event"`
}

type verifyResponse struct {
	VerificationStatus string `json:"verification_status"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// Verify asks PayPal whether the delivery was signed for this method's
// configured webhook.
func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	authAlgo := strings.TrimSpace(headers.Get("Paypal-Auth-Algo"))
	certURL := strings.TrimSpace(headers.Get("Paypal-Cert-Url"))
	transmissionID := strings.TrimSpace(headers.Get("Paypal-Transmission-Id"))
	transmissionSig := strings.TrimSpace(headers.Get("Paypal-Transmission-Sig"))
	transmissionTime := strings.TrimSpace(headers.Get("Paypal-Transmission-Time"))
	if authAlgo == "" || certURL == "" || transmissionID == "" || transmissionSig == "" || transmissionTime == "" {
		return domain.ErrInvalidSignature
	}
	if !json.Valid(payload) {
		return domain.ErrInvalidPayload
	}

	token, err := a.accessToken(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(verifyRequest{
		AuthAlgo:         authAlgo,
		CertURL:          certURL,
		TransmissionID:   transmissionID,
		TransmissionSig:  transmissionSig,
		TransmissionTime: transmissionTime,
		WebhookID:        a.webhookID,
		WebhookEvent:     json.RawMessage(payload),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiBase+"/v1/notifications/verify-webhook-signature", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("verify-webhook-signature returned status %d", resp.StatusCode)
	}

	var result verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return err
	}
	if result.VerificationStatus != "SUCCESS" {
		return domain.ErrInvalidSignature
	}
	return nil
}

func (a *Adapter) accessToken(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiBase+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(a.clientID, a.secret)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("oauth2/token returned status %d", resp.StatusCode)
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", err
	}
	if strings.TrimSpace(token.AccessToken) == "" {
		return "", fmt.Errorf("oauth2/token returned empty token")
	}
	return token.AccessToken, nil
}

type webhookEvent struct {
	ID        string        `json:"id"`
	EventType string        `json:"event_type"`
	Resource  eventResource `json:"resource"`
}

type eventResource struct {
	ID                 string         `json:"id"`
	BillingAgreementID string         `json:"billing_agreement_id"`
	Amount             resourceAmount `json:"amount"`
	CreateTime         string         `json:"create_time"`
}

type resourceAmount struct {
	Total    string `json:"total"`
	Currency string `json:"currency"`
}

// Parse normalizes a verified delivery. Only completed billing-agreement
// sales produce an Event; other declared types are a deliberate no-op
// (one-off captures run through a separate checkout flow).
func (a *Adapter) Parse(ctx context.Context, payload []byte) (*domain.Event, error) {
	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, domain.ErrInvalidHookData
	}
	if strings.TrimSpace(event.EventType) == "" {
		return nil, domain.ErrInvalidHookData
	}

	if event.EventType != eventTypeSaleCompleted {
		return nil, domain.ErrEventUnneeded
	}
	if strings.TrimSpace(event.Resource.ID) == "" || strings.TrimSpace(event.Resource.BillingAgreementID) == "" {
		return nil, domain.ErrNotBillingAgreement
	}

	currency := strings.ToUpper(strings.TrimSpace(event.Resource.Amount.Currency))
	amount, err := minorUnits(event.Resource.Amount.Total, currency)
	if err != nil {
		return nil, domain.ErrInvalidHookData
	}

	occurredAt := time.Now().UTC()
	if t, err := time.Parse(time.RFC3339, event.Resource.CreateTime); err == nil {
		occurredAt = t.UTC()
	}

	return &domain.Event{
		EventID:     event.ID,
		EventType:   event.EventType,
		ResourceID:  event.Resource.ID,
		AgreementID: event.Resource.BillingAgreementID,
		Amount:      amount,
		Currency:    currency,
		OccurredAt:  occurredAt,
	}, nil
}

// zeroDecimalCurrencies are the currencies PayPal reports without a
// fractional part.
var zeroDecimalCurrencies = map[string]bool{
	"HUF": true,
	"JPY": true,
	"TWD": true,
}

// minorUnits converts PayPal's decimal string amount into minor units.
// The sign comes from the string, not the parsed whole part, so amounts
// between -1 and 0 keep their sign.
func minorUnits(total, currency string) (int64, error) {
	total = strings.TrimSpace(total)
	if total == "" {
		return 0, fmt.Errorf("empty amount")
	}

	negative := strings.HasPrefix(total, "-")
	if negative {
		total = total[1:]
	}

	if zeroDecimalCurrencies[currency] {
		whole, err := strconv.ParseInt(strings.SplitN(total, ".", 2)[0], 10, 64)
		if err != nil {
			return 0, err
		}
		if negative {
			whole = -whole
		}
		return whole, nil
	}

	parts := strings.SplitN(total, ".", 2)
	whole, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, err
	}
	var cents int64
	if len(parts) == 2 {
		frac := parts[1]
		if len(frac) > 2 {
			frac = frac[:2]
		}
		for len(frac) < 2 {
			frac += "0"
		}
		cents, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, err
		}
	}
	units := whole*100 + cents
	if negative {
		units = -units
	}
	return units, nil
}
