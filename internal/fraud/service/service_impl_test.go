package service_test

import (
	"context"
	"testing"

	billingdomain "github.com/hookbill/hookbill/internal/billing/domain"
	"github.com/hookbill/hookbill/internal/config"
	frauddomain "github.com/hookbill/hookbill/internal/fraud/domain"
	fraudservice "github.com/hookbill/hookbill/internal/fraud/service"
	"go.uber.org/zap"
)

func newService(rules ...config.FraudRule) frauddomain.Service {
	return fraudservice.NewService(fraudservice.Params{
		Log:   zap.NewNop(),
		Rules: config.NewStaticFraudConfigHolder(config.FraudConfig{Rules: rules}),
	})
}

func TestEvaluateStoredActionWins(t *testing.T) {
	svc := newService(config.FraudRule{Label: "big", MaxAmount: 100, Action: "refuse"})

	stored := "hold"
	action := svc.Evaluate(context.Background(), &billingdomain.Transaction{
		Amount:       5000,
		Currency:     "USD",
		FraudBlocked: &stored,
	})
	if action != billingdomain.FraudActionHold {
		t.Fatalf("expected hold, got %s", action)
	}
}

func TestEvaluateMatchesFirstRule(t *testing.T) {
	svc := newService(
		config.FraudRule{Label: "eur-only", Currency: "EUR", MaxAmount: 100, Action: "refuse"},
		config.FraudRule{Label: "usd-large", Currency: "USD", MaxAmount: 1000, Action: "hold"},
	)

	action := svc.Evaluate(context.Background(), &billingdomain.Transaction{
		Amount:   2000,
		Currency: "USD",
	})
	if action != billingdomain.FraudActionHold {
		t.Fatalf("expected hold, got %s", action)
	}
}

func TestEvaluateBelowThreshold(t *testing.T) {
	svc := newService(config.FraudRule{Label: "usd-large", Currency: "USD", MaxAmount: 10000, Action: "hold"})

	action := svc.Evaluate(context.Background(), &billingdomain.Transaction{
		Amount:   500,
		Currency: "USD",
	})
	if action != "" {
		t.Fatalf("expected no action, got %s", action)
	}
}
