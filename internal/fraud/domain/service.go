package domain

import (
	"context"

	billingdomain "github.com/hookbill/hookbill/internal/billing/domain"
)

// Service decides whether a transaction may be treated as settled.
type Service interface {
	// Evaluate returns the blocking action for a transaction: the stored
	// action from a prior fraud check when present, otherwise the first
	// configured rule the transaction trips. Empty means no block.
	Evaluate(ctx context.Context, txn *billingdomain.Transaction) billingdomain.FraudAction
}
