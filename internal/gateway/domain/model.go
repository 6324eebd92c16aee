// Package domain contains payment-method models and the gateway adapter contracts.
package domain

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// PaymentMethod is a configured gateway account. One merchant may hold
// several methods for the same provider; each carries its own settings.
type PaymentMethod struct {
	ID        snowflake.ID   `gorm:"primaryKey"`
	Provider  string         `gorm:"type:text;not null;index"`
	Name      string         `gorm:"type:text;not null"`
	Settings  datatypes.JSON `gorm:"type:jsonb;not null"`
	IsActive  bool           `gorm:"not null;default:true"`
	CreatedAt time.Time      `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"not null"`
}

func (PaymentMethod) TableName() string { return "payment_methods" }

// Event is the normalized billing-agreement sale notification produced by an
// adapter's Parse. ResourceID is the gateway transaction id used as the
// idempotency key together with the method id.
type Event struct {
	EventID     string
	EventType   string
	ResourceID  string
	AgreementID string
	Amount      int64
	Currency    string
	OccurredAt  time.Time
}

// Adapter authenticates and parses webhook deliveries for one payment method.
type Adapter interface {
	// Verify authenticates the raw delivery against the provider. It returns
	// ErrInvalidSignature when the provider rejects it; any other error is a
	// transport or configuration failure.
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	// Parse normalizes the delivery into an Event. Classification errors
	// (ErrEventUnneeded, ErrNotBillingAgreement, ErrInvalidHookData) are
	// returned as-is so the caller can map them to outcomes.
	Parse(ctx context.Context, payload []byte) (*Event, error)
}

// Factory builds adapters for a provider from stored method settings.
type Factory interface {
	Provider() string
	NewAdapter(method PaymentMethod) (Adapter, error)
}

var (
	ErrNotAuthenticated    = errors.New("could_not_validate")
	ErrInvalidSignature    = errors.New("invalid_signature")
	ErrInvalidConfig       = errors.New("invalid_method_config")
	ErrProviderNotFound    = errors.New("provider_not_found")
	ErrInvalidPayload      = errors.New("invalid_payload")
	ErrInvalidHookData     = errors.New("invalid_hook_data")
	ErrEventUnneeded       = errors.New("event_unneeded")
	ErrNotBillingAgreement = errors.New("not_billing_agreement")
)
