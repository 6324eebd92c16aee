// Package domain contains persistence models for billing-agreement
// reconciliation.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// TransactionStatus is the charge-attempt state machine. GATEWAY_PENDING is
// the only non-initial state a webhook may find a transaction in; PAID and
// REFUSED are terminal, HELD awaits manual resolution.
type TransactionStatus string

const (
	TransactionStatusGatewayPending TransactionStatus = "GATEWAY_PENDING"
	TransactionStatusPaid           TransactionStatus = "PAID"
	TransactionStatusRefused        TransactionStatus = "REFUSED"
	TransactionStatusHeld           TransactionStatus = "HELD"
)

// FraudAction is a stored blocking action from a fraud rule.
type FraudAction string

const (
	FraudActionHold   FraudAction = "hold"
	FraudActionRefuse FraudAction = "refuse"
	FraudActionPaid   FraudAction = "paid"
)

// StatusForFraudAction maps an executed fraud action to the transaction
// status it leaves behind.
func StatusForFraudAction(action FraudAction) TransactionStatus {
	switch action {
	case FraudActionHold:
		return TransactionStatusHeld
	case FraudActionRefuse:
		return TransactionStatusRefused
	case FraudActionPaid:
		return TransactionStatusPaid
	default:
		return TransactionStatusGatewayPending
	}
}

// InvoiceStatus represents invoice settlement states.
type InvoiceStatus string

const (
	InvoiceStatusUnpaid  InvoiceStatus = "UNPAID"
	InvoiceStatusPartial InvoiceStatus = "PARTIAL"
	InvoiceStatusPaid    InvoiceStatus = "PAID"
)

// Member owns agreements, purchases and invoices.
type Member struct {
	ID             snowflake.ID      `gorm:"primaryKey"`
	Email          string            `gorm:"type:text;not null"`
	Name           string            `gorm:"type:text;not null"`
	BillingAddress datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt      time.Time         `gorm:"not null"`
}

func (Member) TableName() string { return "members" }

// BillingAgreement is a standing authorization for recurring charges.
// NextCycle is null exactly when the last renewal failed or awaits manual
// resolution; only the reconciliation path writes it. TermDays is the
// renewal interval snapshotted at setup.
type BillingAgreement struct {
	ID                 snowflake.ID `gorm:"primaryKey"`
	MemberID           snowflake.ID `gorm:"not null;index"`
	MethodID           snowflake.ID `gorm:"not null;index"`
	GatewayAgreementID string       `gorm:"column:gw_agreement_id;type:text;not null"`
	TermDays           int          `gorm:"not null"`
	NextCycle          *time.Time   `gorm:""`
	CreatedAt          time.Time    `gorm:"not null"`
	UpdatedAt          time.Time    `gorm:"not null"`
}

func (BillingAgreement) TableName() string { return "billing_agreements" }

// Transaction is one charge attempt. (MethodID, GatewayID) is unique once
// GatewayID is set; that pair is the webhook idempotency key. A transaction
// is an immutable financial record once it reaches a terminal status.
type Transaction struct {
	ID                 snowflake.ID      `gorm:"primaryKey"`
	MemberID           snowflake.ID      `gorm:"not null;index"`
	MethodID           snowflake.ID      `gorm:"not null;index"`
	Amount             int64             `gorm:"not null"`
	Currency           string            `gorm:"type:text;not null"`
	GatewayID          *string           `gorm:"column:gw_id;type:text"`
	Status             TransactionStatus `gorm:"type:text;not null"`
	BillingAgreementID *snowflake.ID     `gorm:"index"`
	InvoiceID          *snowflake.ID     `gorm:"index"`
	FraudBlocked       *string           `gorm:"type:text"`
	Extra              datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt          time.Time         `gorm:"not null"`
	UpdatedAt          time.Time         `gorm:"not null"`
}

func (Transaction) TableName() string { return "transactions" }

// Invoice is a billable document. A renewal invoice is system-generated and
// carries one renewal line per purchase funded by the triggering agreement.
type Invoice struct {
	ID             snowflake.ID      `gorm:"primaryKey"`
	MemberID       snowflake.ID      `gorm:"not null;index"`
	Title          string            `gorm:"type:text;not null"`
	Currency       string            `gorm:"type:text;not null"`
	Status         InvoiceStatus     `gorm:"type:text;not null;default:'UNPAID'"`
	System         bool              `gorm:"not null;default:false"`
	BillingAddress datatypes.JSONMap `gorm:"type:jsonb"`
	TotalAmount    int64             `gorm:"not null;default:0"`
	IssuedAt       time.Time         `gorm:"not null"`
	CreatedAt      time.Time         `gorm:"not null"`
	UpdatedAt      time.Time         `gorm:"not null"`
}

func (Invoice) TableName() string { return "invoices" }

// InvoiceItem is a line on an invoice.
type InvoiceItem struct {
	ID          snowflake.ID  `gorm:"primaryKey"`
	InvoiceID   snowflake.ID  `gorm:"not null;index"`
	PurchaseID  *snowflake.ID `gorm:"index"`
	ItemType    string        `gorm:"type:text;not null"`
	Description string        `gorm:"type:text"`
	Amount      int64         `gorm:"not null"`
	CreatedAt   time.Time     `gorm:"not null"`
}

func (InvoiceItem) TableName() string { return "invoice_items" }

// Purchase is a subscription instance kept alive by successful recurring
// charges. PendingInvoiceID marks a renewal at risk; only the recurring
// reconciliation path writes it.
type Purchase struct {
	ID                 snowflake.ID  `gorm:"primaryKey"`
	MemberID           snowflake.ID  `gorm:"not null;index"`
	Name               string        `gorm:"type:text;not null"`
	BillingAgreementID *snowflake.ID `gorm:"index"`
	RenewalPrice       int64         `gorm:"not null"`
	RenewalCurrency    string        `gorm:"type:text;not null"`
	ExpireAt           *time.Time    `gorm:""`
	PendingInvoiceID   *snowflake.ID `gorm:""`
	Active             bool          `gorm:"not null;default:true"`
	CreatedAt          time.Time     `gorm:"not null"`
	UpdatedAt          time.Time     `gorm:"not null"`
}

func (Purchase) TableName() string { return "purchases" }
