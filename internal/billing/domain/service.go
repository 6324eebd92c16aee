package domain

import (
	"context"
	"errors"
	"net/http"
)

// Outcome is the plain-text token reported back to the gateway for a
// recognized delivery.
type Outcome string

const (
	OutcomeAlreadyProcessed    Outcome = "ALREADY_PROCESSED"
	OutcomeNotBillingAgreement Outcome = "NOT_BILLING_AGREEMENT"
	OutcomeUnneededType        Outcome = "UNNEEDED_TYPE"
	OutcomeInitial             Outcome = "OK-INITIAL"
	OutcomeRecurring           Outcome = "OK-RECURRING"
)

// Service reconciles verified webhook deliveries against billing state.
type Service interface {
	// HandleWebhook authenticates, classifies and reconciles one delivery.
	// Recognized deliveries return an Outcome; fatal conditions return an
	// error from the taxonomy below (or the gateway domain's).
	HandleWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) (Outcome, error)
}

var (
	// ErrUnknownBillingAgreement means the referenced agreement has no local
	// record. Deliberately fatal: it signals data inconsistency an operator
	// should investigate, not a skippable delivery.
	ErrUnknownBillingAgreement = errors.New("unknown_billing_agreement")
)
