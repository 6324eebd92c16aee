package service

import (
	"context"
	"strings"

	billingdomain "github.com/hookbill/hookbill/internal/billing/domain"
	"github.com/hookbill/hookbill/internal/config"
	frauddomain "github.com/hookbill/hookbill/internal/fraud/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	Rules *config.FraudConfigHolder
}

type Service struct {
	log   *zap.Logger
	rules *config.FraudConfigHolder
}

func NewService(p Params) frauddomain.Service {
	return &Service{
		log:   p.Log.Named("fraud.service"),
		rules: p.Rules,
	}
}

func (s *Service) Evaluate(ctx context.Context, txn *billingdomain.Transaction) billingdomain.FraudAction {
	if txn == nil {
		return ""
	}

	// A prior check's stored action always wins.
	if txn.FraudBlocked != nil {
		if action := billingdomain.FraudAction(strings.TrimSpace(*txn.FraudBlocked)); action != "" {
			return action
		}
	}

	if s.rules == nil {
		return ""
	}
	for _, rule := range s.rules.Get().Rules {
		if rule.Currency != "" && !strings.EqualFold(rule.Currency, txn.Currency) {
			continue
		}
		if txn.Amount >= rule.MaxAmount {
			s.log.Info("transaction tripped fraud rule",
				zap.Int64("transaction_id", int64(txn.ID)),
				zap.String("rule", rule.Label),
				zap.String("action", rule.Action))
			return billingdomain.FraudAction(rule.Action)
		}
	}
	return ""
}
