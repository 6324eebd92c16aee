package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hookbill/hookbill/internal/billing/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindTransactionByGatewayID(ctx context.Context, db *gorm.DB, methodID snowflake.ID, gatewayID string) (*domain.Transaction, error) {
	var item domain.Transaction
	err := db.WithContext(ctx).Raw(
		`SELECT id, member_id, method_id, amount, currency, gw_id, status,
			billing_agreement_id, invoice_id, fraud_blocked, extra, created_at, updated_at
		 FROM transactions
		 WHERE method_id = ? AND gw_id = ?
		 LIMIT 1`,
		methodID,
		gatewayID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindPendingTransaction(ctx context.Context, db *gorm.DB, agreementID, methodID snowflake.ID) (*domain.Transaction, error) {
	var item domain.Transaction
	err := db.WithContext(ctx).Raw(
		`SELECT id, member_id, method_id, amount, currency, gw_id, status,
			billing_agreement_id, invoice_id, fraud_blocked, extra, created_at, updated_at
		 FROM transactions
		 WHERE billing_agreement_id = ? AND method_id = ? AND status = ?
		 LIMIT 1`,
		agreementID,
		methodID,
		domain.TransactionStatusGatewayPending,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) InsertTransaction(ctx context.Context, db *gorm.DB, txn *domain.Transaction) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO transactions (
			id, member_id, method_id, amount, currency, gw_id, status,
			billing_agreement_id, invoice_id, fraud_blocked, extra, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID,
		txn.MemberID,
		txn.MethodID,
		txn.Amount,
		txn.Currency,
		txn.GatewayID,
		txn.Status,
		txn.BillingAgreementID,
		txn.InvoiceID,
		txn.FraudBlocked,
		txn.Extra,
		txn.CreatedAt,
		txn.UpdatedAt,
	).Error
}

func (r *repo) UpdateTransaction(ctx context.Context, db *gorm.DB, txn *domain.Transaction) error {
	return db.WithContext(ctx).Exec(
		`UPDATE transactions
		 SET gw_id = ?, status = ?, invoice_id = ?, fraud_blocked = ?, updated_at = ?
		 WHERE id = ?`,
		txn.GatewayID,
		txn.Status,
		txn.InvoiceID,
		txn.FraudBlocked,
		txn.UpdatedAt,
		txn.ID,
	).Error
}

func (r *repo) ClaimTransactionGatewayID(ctx context.Context, db *gorm.DB, txnID snowflake.ID, gatewayID string, updatedAt time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE transactions
		 SET gw_id = ?, updated_at = ?
		 WHERE id = ? AND gw_id IS NULL`,
		gatewayID,
		updatedAt,
		txnID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindAgreementByGatewayID(ctx context.Context, db *gorm.DB, methodID snowflake.ID, gatewayAgreementID string) (*domain.BillingAgreement, error) {
	var item domain.BillingAgreement
	err := db.WithContext(ctx).Raw(
		`SELECT id, member_id, method_id, gw_agreement_id, term_days, next_cycle, created_at, updated_at
		 FROM billing_agreements
		 WHERE gw_agreement_id = ? AND method_id = ?
		 LIMIT 1`,
		gatewayAgreementID,
		methodID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) UpdateAgreementNextCycle(ctx context.Context, db *gorm.DB, agreementID snowflake.ID, nextCycle *time.Time, updatedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE billing_agreements
		 SET next_cycle = ?, updated_at = ?
		 WHERE id = ?`,
		nextCycle,
		updatedAt,
		agreementID,
	).Error
}

func (r *repo) FindMember(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Member, error) {
	var item domain.Member
	err := db.WithContext(ctx).Raw(
		`SELECT id, email, name, billing_address, created_at
		 FROM members
		 WHERE id = ?
		 LIMIT 1`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) ListPurchasesByAgreement(ctx context.Context, db *gorm.DB, agreementID snowflake.ID) ([]domain.Purchase, error) {
	var items []domain.Purchase
	err := db.WithContext(ctx).Raw(
		`SELECT id, member_id, name, billing_agreement_id, renewal_price, renewal_currency,
			expire_at, pending_invoice_id, active, created_at, updated_at
		 FROM purchases
		 WHERE billing_agreement_id = ? AND active = ?
		 ORDER BY id`,
		agreementID,
		true,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) SetPurchasesPendingInvoice(ctx context.Context, db *gorm.DB, purchaseIDs []snowflake.ID, invoiceID snowflake.ID, updatedAt time.Time) error {
	if len(purchaseIDs) == 0 {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`UPDATE purchases
		 SET pending_invoice_id = ?, updated_at = ?
		 WHERE id IN ?`,
		invoiceID,
		updatedAt,
		purchaseIDs,
	).Error
}

func (r *repo) InsertInvoice(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO invoices (
			id, member_id, title, currency, status, system, billing_address,
			total_amount, issued_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		invoice.ID,
		invoice.MemberID,
		invoice.Title,
		invoice.Currency,
		invoice.Status,
		invoice.System,
		invoice.BillingAddress,
		invoice.TotalAmount,
		invoice.IssuedAt,
		invoice.CreatedAt,
		invoice.UpdatedAt,
	).Error
}

func (r *repo) InsertInvoiceItems(ctx context.Context, db *gorm.DB, items []domain.InvoiceItem) error {
	for i := range items {
		item := items[i]
		err := db.WithContext(ctx).Exec(
			`INSERT INTO invoice_items (
				id, invoice_id, purchase_id, item_type, description, amount, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			item.ID,
			item.InvoiceID,
			item.PurchaseID,
			item.ItemType,
			item.Description,
			item.Amount,
			item.CreatedAt,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) UpdateInvoiceStatus(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID, status domain.InvoiceStatus, updatedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET status = ?, updated_at = ?
		 WHERE id = ?`,
		status,
		updatedAt,
		invoiceID,
	).Error
}
