package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/hookbill/hookbill/internal/billing/domain"
	"github.com/hookbill/hookbill/internal/config"
	gatewaydomain "github.com/hookbill/hookbill/internal/gateway/domain"
	"go.uber.org/zap"
)

type stubBillingService struct {
	outcome billingdomain.Outcome
	err     error
}

func (s stubBillingService) HandleWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) (billingdomain.Outcome, error) {
	return s.outcome, s.err
}

func newTestServer(t *testing.T, svc billingdomain.Service) *Server {
	t.Helper()

	gin.SetMode(gin.TestMode)
	s := NewServer(ServerParams{
		Gin:        gin.New(),
		Cfg:        config.Config{},
		Log:        zap.NewNop(),
		BillingSvc: svc,
	})
	s.RegisterRoutes()
	return s
}

func postWebhook(s *Server, provider, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/interface/gateways/"+provider, strings.NewReader(body))
	s.Engine().ServeHTTP(rec, req)
	return rec
}

func TestHandleGatewayWebhookOutcome(t *testing.T) {
	s := newTestServer(t, stubBillingService{outcome: billingdomain.OutcomeRecurring})

	rec := postWebhook(s, "paypal", `{"id":"WH-1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := rec.Body.String(); body != "OK-RECURRING" {
		t.Fatalf("expected OK-RECURRING, got %q", body)
	}
}

func TestHandleGatewayWebhookErrorTokens(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		token string
	}{
		{"not authenticated", gatewaydomain.ErrNotAuthenticated, "COULD_NOT_VALIDATE"},
		{"unknown provider", gatewaydomain.ErrProviderNotFound, "COULD_NOT_VALIDATE"},
		{"invalid hook data", gatewaydomain.ErrInvalidHookData, "INVALID_HOOK_DATA"},
		{"unknown agreement", billingdomain.ErrUnknownBillingAgreement, "UNKNOWN_BILLING_AGREEMENT"},
		{"unexpected", context.DeadlineExceeded, "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t, stubBillingService{err: tc.err})

			rec := postWebhook(s, "paypal", `{"id":"WH-1"}`)
			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("expected 500, got %d", rec.Code)
			}
			if body := rec.Body.String(); body != tc.token {
				t.Fatalf("expected %s, got %q", tc.token, body)
			}
		})
	}
}

func TestHandleGatewayWebhookAlreadyProcessed(t *testing.T) {
	s := newTestServer(t, stubBillingService{outcome: billingdomain.OutcomeAlreadyProcessed})

	rec := postWebhook(s, "paypal", `{"id":"WH-1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := rec.Body.String(); body != "ALREADY_PROCESSED" {
		t.Fatalf("expected ALREADY_PROCESSED, got %q", body)
	}
}
