package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository is the persistence contract for reconciliation. Lookups return
// (nil, nil) when no row matches; absence is a branch condition here, never
// an error.
type Repository interface {
	FindTransactionByGatewayID(ctx context.Context, db *gorm.DB, methodID snowflake.ID, gatewayID string) (*Transaction, error)
	FindPendingTransaction(ctx context.Context, db *gorm.DB, agreementID, methodID snowflake.ID) (*Transaction, error)
	InsertTransaction(ctx context.Context, db *gorm.DB, txn *Transaction) error
	UpdateTransaction(ctx context.Context, db *gorm.DB, txn *Transaction) error
	// ClaimTransactionGatewayID attaches the gateway id to a placeholder that
	// has none yet. It reports false when another delivery claimed the row
	// first; only the claimant may proceed to approval.
	ClaimTransactionGatewayID(ctx context.Context, db *gorm.DB, txnID snowflake.ID, gatewayID string, updatedAt time.Time) (bool, error)

	FindAgreementByGatewayID(ctx context.Context, db *gorm.DB, methodID snowflake.ID, gatewayAgreementID string) (*BillingAgreement, error)
	UpdateAgreementNextCycle(ctx context.Context, db *gorm.DB, agreementID snowflake.ID, nextCycle *time.Time, updatedAt time.Time) error

	FindMember(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Member, error)
	ListPurchasesByAgreement(ctx context.Context, db *gorm.DB, agreementID snowflake.ID) ([]Purchase, error)
	SetPurchasesPendingInvoice(ctx context.Context, db *gorm.DB, purchaseIDs []snowflake.ID, invoiceID snowflake.ID, updatedAt time.Time) error

	InsertInvoice(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	InsertInvoiceItems(ctx context.Context, db *gorm.DB, items []InvoiceItem) error
	UpdateInvoiceStatus(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID, status InvoiceStatus, updatedAt time.Time) error
}
