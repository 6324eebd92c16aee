package paypal_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hookbill/hookbill/internal/gateway/adapters/paypal"
	"github.com/hookbill/hookbill/internal/gateway/domain"
)

func newAdapter(t *testing.T, apiBase string) domain.Adapter {
	t.Helper()

	factory := paypal.NewFactory(5 * time.Second)
	adapter, err := factory.NewAdapter(domain.PaymentMethod{
		ID:       1,
		Provider: "paypal",
		Name:     "PayPal",
		Settings: []byte(fmt.Sprintf(`{"client_id":"cid","secret":"sec","webhook_id":"wh-1","api_base":%q}`, apiBase)),
	})
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	return adapter
}

func verificationServer(t *testing.T, status string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "cid" || pass != "sec" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"access_token":"tok"}`)
	})
	mux.HandleFunc("/v1/notifications/verify-webhook-signature", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"verification_status":%q}`, status)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func signatureHeaders() http.Header {
	h := http.Header{}
	h.Set("Paypal-Auth-Algo", "SHA256withRSA")
	h.Set("Paypal-Cert-Url", "https://api.paypal.com/cert")
	h.Set("Paypal-Transmission-Id", "tx-1")
	h.Set("Paypal-Transmission-Sig", "sig")
	h.Set("Paypal-Transmission-Time", "2026-01-02T03:04:05Z")
	return h
}

func TestVerifySuccess(t *testing.T) {
	server := verificationServer(t, "SUCCESS")
	adapter := newAdapter(t, server.URL)

	if err := adapter.Verify(context.Background(), []byte(`{"id":"WH-1"}`), signatureHeaders()); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestVerifyFailureStatus(t *testing.T) {
	server := verificationServer(t, "FAILURE")
	adapter := newAdapter(t, server.URL)

	err := adapter.Verify(context.Background(), []byte(`{"id":"WH-1"}`), signatureHeaders())
	if !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyMissingHeaders(t *testing.T) {
	server := verificationServer(t, "SUCCESS")
	adapter := newAdapter(t, server.URL)

	err := adapter.Verify(context.Background(), []byte(`{"id":"WH-1"}`), http.Header{})
	if !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestNewAdapterRejectsIncompleteSettings(t *testing.T) {
	factory := paypal.NewFactory(5 * time.Second)
	_, err := factory.NewAdapter(domain.PaymentMethod{
		ID:       1,
		Provider: "paypal",
		Settings: []byte(`{"client_id":"cid"}`),
	})
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestParseClassification(t *testing.T) {
	adapter := newAdapter(t, "https://example.invalid")
	ctx := context.Background()

	if _, err := adapter.Parse(ctx, []byte(`{"id":"WH-1"}`)); !errors.Is(err, domain.ErrInvalidHookData) {
		t.Fatalf("missing event_type: expected ErrInvalidHookData, got %v", err)
	}

	if _, err := adapter.Parse(ctx, []byte(`{"id":"WH-1","event_type":"BILLING.SUBSCRIPTION.CREATED"}`)); !errors.Is(err, domain.ErrEventUnneeded) {
		t.Fatalf("other type: expected ErrEventUnneeded, got %v", err)
	}

	payload := []byte(`{"id":"WH-1","event_type":"PAYMENT.SALE.COMPLETED","resource":{"id":"SALE-1","amount":{"total":"5.00","currency":"USD"}}}`)
	if _, err := adapter.Parse(ctx, payload); !errors.Is(err, domain.ErrNotBillingAgreement) {
		t.Fatalf("no agreement: expected ErrNotBillingAgreement, got %v", err)
	}
}

func TestParseCompletedSale(t *testing.T) {
	adapter := newAdapter(t, "https://example.invalid")

	payload := []byte(`{
		"id": "WH-1",
		"event_type": "PAYMENT.SALE.COMPLETED",
		"resource": {
			"id": "SALE-1",
			"billing_agreement_id": "BA-1",
			"create_time": "2026-01-02T03:04:05Z",
			"amount": {"total": "12.34", "currency": "usd"}
		}
	}`)

	event, err := adapter.Parse(context.Background(), payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if event.ResourceID != "SALE-1" || event.AgreementID != "BA-1" {
		t.Fatalf("unexpected ids: %+v", event)
	}
	if event.Amount != 1234 {
		t.Fatalf("expected amount 1234, got %d", event.Amount)
	}
	if event.Currency != "USD" {
		t.Fatalf("expected currency USD, got %s", event.Currency)
	}
	if !event.OccurredAt.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Fatalf("unexpected occurred_at: %v", event.OccurredAt)
	}
}

func TestParseNegativeAmountKeepsSign(t *testing.T) {
	adapter := newAdapter(t, "https://example.invalid")

	for _, tc := range []struct {
		total string
		want  int64
	}{
		{"-0.50", -50},
		{"-2.25", -225},
		{"-12", -1200},
	} {
		payload := []byte(fmt.Sprintf(`{
			"id": "WH-3",
			"event_type": "PAYMENT.SALE.COMPLETED",
			"resource": {
				"id": "SALE-3",
				"billing_agreement_id": "BA-1",
				"amount": {"total": %q, "currency": "USD"}
			}
		}`, tc.total))

		event, err := adapter.Parse(context.Background(), payload)
		if err != nil {
			t.Fatalf("parse %s: %v", tc.total, err)
		}
		if event.Amount != tc.want {
			t.Fatalf("total %s: expected amount %d, got %d", tc.total, tc.want, event.Amount)
		}
	}
}

func TestParseZeroDecimalCurrency(t *testing.T) {
	adapter := newAdapter(t, "https://example.invalid")

	payload := []byte(`{
		"id": "WH-2",
		"event_type": "PAYMENT.SALE.COMPLETED",
		"resource": {
			"id": "SALE-2",
			"billing_agreement_id": "BA-1",
			"amount": {"total": "1200", "currency": "JPY"}
		}
	}`)

	event, err := adapter.Parse(context.Background(), payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if event.Amount != 1200 {
		t.Fatalf("expected amount 1200, got %d", event.Amount)
	}
}
