package service

import (
	"context"

	billingdomain "github.com/hookbill/hookbill/internal/billing/domain"
	notifydomain "github.com/hookbill/hookbill/internal/notify/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log *zap.Logger
}

// Service records notification dispatch points. Wiring an actual mail or
// push channel replaces this implementation behind the same interface.
type Service struct {
	log *zap.Logger
}

func NewService(p Params) notifydomain.Service {
	return &Service{log: p.Log.Named("notify.service")}
}

func (s *Service) TransactionCompleted(ctx context.Context, txn *billingdomain.Transaction) {
	if txn == nil {
		return
	}
	s.log.Info("transaction notification dispatched",
		zap.Int64("transaction_id", int64(txn.ID)),
		zap.Int64("member_id", int64(txn.MemberID)),
		zap.String("status", string(txn.Status)))
}

func (s *Service) InvoiceIssued(ctx context.Context, invoice *billingdomain.Invoice) {
	if invoice == nil {
		return
	}
	s.log.Info("invoice notification dispatched",
		zap.Int64("invoice_id", int64(invoice.ID)),
		zap.Int64("member_id", int64(invoice.MemberID)),
		zap.String("status", string(invoice.Status)))
}
