package domain

import (
	"context"

	billingdomain "github.com/hookbill/hookbill/internal/billing/domain"
)

// Service dispatches customer-facing notifications. Delivery itself is an
// external collaborator; implementations here only hand events off.
type Service interface {
	TransactionCompleted(ctx context.Context, txn *billingdomain.Transaction)
	InvoiceIssued(ctx context.Context, invoice *billingdomain.Invoice)
}
