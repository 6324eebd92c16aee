package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/hookbill/hookbill/internal/audit/domain"
	billingdomain "github.com/hookbill/hookbill/internal/billing/domain"
	"github.com/hookbill/hookbill/internal/clock"
	frauddomain "github.com/hookbill/hookbill/internal/fraud/domain"
	gatewaydomain "github.com/hookbill/hookbill/internal/gateway/domain"
	"github.com/hookbill/hookbill/internal/gateway/verifier"
	notifydomain "github.com/hookbill/hookbill/internal/notify/domain"
	"github.com/hookbill/hookbill/internal/ratelimit"
	"github.com/hookbill/hookbill/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// deliveryLockTTL bounds how long one reconciliation may hold the
// per-resource-id lock before a crashed worker stops blocking redelivery.
const deliveryLockTTL = 30 * time.Second

// defaultTermDays is used when an agreement predates term snapshotting.
const defaultTermDays = 30

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Verifier  *verifier.Verifier
	Repo      billingdomain.Repository
	FraudSvc  frauddomain.Service
	NotifySvc notifydomain.Service
	AuditSvc  auditdomain.Service
	Locker    *ratelimit.Locker `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	verifier  *verifier.Verifier
	repo      billingdomain.Repository
	fraudSvc  frauddomain.Service
	notifySvc notifydomain.Service
	auditSvc  auditdomain.Service
	locker    *ratelimit.Locker
}

func NewService(p Params) billingdomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("billing.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		verifier:  p.Verifier,
		repo:      p.Repo,
		fraudSvc:  p.FraudSvc,
		notifySvc: p.NotifySvc,
		auditSvc:  p.AuditSvc,
		locker:    p.Locker,
	}
}

// effects are side effects deferred until the reconciliation transaction
// commits: notifications and the member audit entry must not fire for a
// rolled-back delivery.
type effects struct {
	txn     *billingdomain.Transaction
	invoice *billingdomain.Invoice
}

// HandleWebhook authenticates, classifies and reconciles one delivery.
func (s *Service) HandleWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) (billingdomain.Outcome, error) {
	payload = bytes.TrimSpace(payload)

	method, adapter, err := s.verifier.Verify(ctx, provider, payload, headers)
	if err != nil {
		return "", err
	}

	event, err := adapter.Parse(ctx, payload)
	if err != nil {
		switch {
		case errors.Is(err, gatewaydomain.ErrEventUnneeded):
			return billingdomain.OutcomeUnneededType, nil
		case errors.Is(err, gatewaydomain.ErrNotBillingAgreement):
			return billingdomain.OutcomeNotBillingAgreement, nil
		default:
			return "", err
		}
	}

	if release, outcome, done := s.acquireDeliveryLock(ctx, method.ID, event.ResourceID); done {
		return outcome, nil
	} else if release != nil {
		defer release()
	}

	var (
		outcome billingdomain.Outcome
		post    *effects
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		outcome, post, txErr = s.reconcile(ctx, tx, method, event)
		return txErr
	})
	if err != nil {
		// A concurrent delivery of the same resource id won the insert race;
		// the constraint makes the loser indistinguishable from a redelivery.
		if db.IsDuplicateKeyErr(err) {
			return billingdomain.OutcomeAlreadyProcessed, nil
		}
		return "", err
	}

	s.applyEffects(ctx, outcome, post)
	return outcome, nil
}

// acquireDeliveryLock serializes reconciliation per (method, resource id).
// When the lock is already held, an existing transaction means the delivery
// was processed; otherwise reconciliation proceeds and the database
// arbitrates, via the uniqueness constraint on inserts and the conditional
// placeholder claim on the initial path. Lock errors never fail the
// delivery.
func (s *Service) acquireDeliveryLock(ctx context.Context, methodID snowflake.ID, resourceID string) (func(), billingdomain.Outcome, bool) {
	if s.locker == nil {
		return nil, "", false
	}

	key := fmt.Sprintf("hookbill:delivery:%d:%s", methodID, resourceID)
	token, ok, err := s.locker.TryLock(ctx, key, deliveryLockTTL)
	if err != nil {
		s.log.Warn("delivery lock unavailable", zap.String("key", key), zap.Error(err))
		return nil, "", false
	}
	if ok {
		return func() {
			if err := s.locker.Release(ctx, key, token); err != nil {
				s.log.Warn("delivery lock release failed", zap.String("key", key), zap.Error(err))
			}
		}, "", false
	}

	existing, err := s.repo.FindTransactionByGatewayID(ctx, s.db, methodID, resourceID)
	if err == nil && existing != nil {
		return nil, billingdomain.OutcomeAlreadyProcessed, true
	}
	return nil, "", false
}

func (s *Service) reconcile(ctx context.Context, tx *gorm.DB, method *gatewaydomain.PaymentMethod, event *gatewaydomain.Event) (billingdomain.Outcome, *effects, error) {
	// Dedupe before any mutation: (method, gw_id) is the idempotency key.
	existing, err := s.repo.FindTransactionByGatewayID(ctx, tx, method.ID, event.ResourceID)
	if err != nil {
		return "", nil, err
	}
	if existing != nil {
		return billingdomain.OutcomeAlreadyProcessed, nil, nil
	}

	agreement, err := s.repo.FindAgreementByGatewayID(ctx, tx, method.ID, event.AgreementID)
	if err != nil {
		return "", nil, err
	}
	if agreement == nil {
		return "", nil, billingdomain.ErrUnknownBillingAgreement
	}

	// The first charge under a new agreement was pre-created pending when
	// the agreement was authorized; renewals have no placeholder.
	pending, err := s.repo.FindPendingTransaction(ctx, tx, agreement.ID, method.ID)
	if err != nil {
		return "", nil, err
	}
	if pending != nil {
		return s.reconcileInitial(ctx, tx, pending, event)
	}
	return s.reconcileRecurring(ctx, tx, method, agreement, event)
}

// reconcileInitial confirms the placeholder transaction created at agreement
// setup. Any stored fraud action is executed first; approval happens only
// when there is no block or the block's terminal effect is itself paid.
func (s *Service) reconcileInitial(ctx context.Context, tx *gorm.DB, txn *billingdomain.Transaction, event *gatewaydomain.Event) (billingdomain.Outcome, *effects, error) {
	resourceID := event.ResourceID
	now := s.clock.Now()

	// Two deliveries racing on the same placeholder both pass the dedupe
	// read; only the one that attaches the gateway id may approve. The
	// claim is conditional on gw_id still being unset, so the loser sees
	// zero rows and reports the redelivery outcome.
	claimed, err := s.repo.ClaimTransactionGatewayID(ctx, tx, txn.ID, resourceID, now)
	if err != nil {
		return "", nil, err
	}
	if !claimed {
		return billingdomain.OutcomeAlreadyProcessed, nil, nil
	}
	txn.GatewayID = &resourceID

	action := s.fraudSvc.Evaluate(ctx, txn)
	if action != "" {
		stored := string(action)
		txn.FraudBlocked = &stored
		txn.Status = billingdomain.StatusForFraudAction(action)
	}
	if action == "" || action == billingdomain.FraudActionPaid {
		txn.Status = billingdomain.TransactionStatusPaid
	}
	txn.UpdatedAt = now

	if err := s.repo.UpdateTransaction(ctx, tx, txn); err != nil {
		return "", nil, err
	}

	return billingdomain.OutcomeInitial, &effects{txn: txn}, nil
}

// reconcileRecurring synthesizes the renewal transaction and its invoice.
// The agreement itself was vetted at setup, so approval here skips the
// fraud re-check.
func (s *Service) reconcileRecurring(ctx context.Context, tx *gorm.DB, method *gatewaydomain.PaymentMethod, agreement *billingdomain.BillingAgreement, event *gatewaydomain.Event) (billingdomain.Outcome, *effects, error) {
	now := s.clock.Now()
	resourceID := event.ResourceID
	agreementID := agreement.ID

	txn := &billingdomain.Transaction{
		ID:                 s.genID.Generate(),
		MemberID:           agreement.MemberID,
		MethodID:           method.ID,
		Amount:             event.Amount,
		Currency:           event.Currency,
		GatewayID:          &resourceID,
		Status:             billingdomain.TransactionStatusGatewayPending,
		BillingAgreementID: &agreementID,
		Extra:              datatypes.JSONMap{"automatic": true},
		CreatedAt:          event.OccurredAt,
		UpdatedAt:          now,
	}
	if err := s.repo.InsertTransaction(ctx, tx, txn); err != nil {
		return "", nil, err
	}

	purchases, err := s.repo.ListPurchasesByAgreement(ctx, tx, agreement.ID)
	if err != nil {
		return "", nil, err
	}

	member, err := s.repo.FindMember(ctx, tx, agreement.MemberID)
	if err != nil {
		return "", nil, err
	}

	invoice, items := s.buildRenewalInvoice(agreement, member, purchases, event, now)
	if err := s.repo.InsertInvoice(ctx, tx, invoice); err != nil {
		return "", nil, err
	}
	if err := s.repo.InsertInvoiceItems(ctx, tx, items); err != nil {
		return "", nil, err
	}

	invoiceID := invoice.ID
	txn.InvoiceID = &invoiceID
	txn.Status = billingdomain.TransactionStatusPaid
	txn.UpdatedAt = now
	if err := s.repo.UpdateTransaction(ctx, tx, txn); err != nil {
		return "", nil, err
	}

	// The invoice mirrors what the approved transaction actually covered.
	invoice.Status = settlementStatus(txn, invoice.TotalAmount)
	if err := s.repo.UpdateInvoiceStatus(ctx, tx, invoice.ID, invoice.Status, now); err != nil {
		return "", nil, err
	}

	// A renewal that did not settle leaves every funded purchase pointing at
	// the open invoice; extension of settled purchases happens elsewhere.
	if invoice.Status != billingdomain.InvoiceStatusPaid {
		ids := make([]snowflake.ID, 0, len(purchases))
		for _, purchase := range purchases {
			ids = append(ids, purchase.ID)
		}
		if err := s.repo.SetPurchasesPendingInvoice(ctx, tx, ids, invoice.ID, now); err != nil {
			return "", nil, err
		}
	}

	var nextCycle *time.Time
	if invoice.Status == billingdomain.InvoiceStatusPaid {
		next := nextPaymentDate(agreement, event.OccurredAt)
		nextCycle = &next
	}
	if err := s.repo.UpdateAgreementNextCycle(ctx, tx, agreement.ID, nextCycle, now); err != nil {
		return "", nil, err
	}

	return billingdomain.OutcomeRecurring, &effects{txn: txn, invoice: invoice}, nil
}

func (s *Service) buildRenewalInvoice(agreement *billingdomain.BillingAgreement, member *billingdomain.Member, purchases []billingdomain.Purchase, event *gatewaydomain.Event, now time.Time) (*billingdomain.Invoice, []billingdomain.InvoiceItem) {
	invoice := &billingdomain.Invoice{
		ID:        s.genID.Generate(),
		MemberID:  agreement.MemberID,
		Title:     fmt.Sprintf("Renewal invoice %s", event.OccurredAt.Format("2006-01-02")),
		Currency:  event.Currency,
		Status:    billingdomain.InvoiceStatusUnpaid,
		System:    true,
		IssuedAt:  event.OccurredAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if member != nil {
		invoice.BillingAddress = member.BillingAddress
	}

	items := make([]billingdomain.InvoiceItem, 0, len(purchases))
	var total int64
	for i := range purchases {
		purchase := purchases[i]
		purchaseID := purchase.ID
		items = append(items, billingdomain.InvoiceItem{
			ID:          s.genID.Generate(),
			InvoiceID:   invoice.ID,
			PurchaseID:  &purchaseID,
			ItemType:    "renewal",
			Description: fmt.Sprintf("Renewal: %s", purchase.Name),
			Amount:      purchase.RenewalPrice,
			CreatedAt:   now,
		})
		total += purchase.RenewalPrice
	}
	invoice.TotalAmount = total
	return invoice, items
}

// settlementStatus mirrors the transaction outcome onto the invoice.
func settlementStatus(txn *billingdomain.Transaction, total int64) billingdomain.InvoiceStatus {
	if txn.Status != billingdomain.TransactionStatusPaid {
		return billingdomain.InvoiceStatusUnpaid
	}
	if txn.Amount >= total {
		return billingdomain.InvoiceStatusPaid
	}
	if txn.Amount > 0 {
		return billingdomain.InvoiceStatusPartial
	}
	return billingdomain.InvoiceStatusUnpaid
}

// nextPaymentDate computes the next scheduled charge from the term
// snapshotted on the agreement at setup.
func nextPaymentDate(agreement *billingdomain.BillingAgreement, from time.Time) time.Time {
	term := agreement.TermDays
	if term <= 0 {
		term = defaultTermDays
	}
	return from.UTC().AddDate(0, 0, term)
}

// applyEffects runs post-commit side effects: notifications and the member
// audit entry. Both are best effort; the financial records already committed.
func (s *Service) applyEffects(ctx context.Context, outcome billingdomain.Outcome, post *effects) {
	if post == nil {
		return
	}

	switch outcome {
	case billingdomain.OutcomeInitial:
		s.notifySvc.TransactionCompleted(ctx, post.txn)
	case billingdomain.OutcomeRecurring:
		if post.txn != nil && post.invoice != nil {
			memberID := post.txn.MemberID
			targetID := post.txn.ID.String()
			metadata := map[string]any{
				"type":           "paid",
				"status":         string(post.txn.Status),
				"transaction_id": post.txn.ID.String(),
				"invoice_id":     post.invoice.ID.String(),
				"invoice_title":  post.invoice.Title,
				"automatic":      true,
			}
			if err := s.auditSvc.AuditLog(ctx, &memberID, "transaction", "transaction", &targetID, metadata); err != nil {
				s.log.Warn("failed to record renewal audit entry",
					zap.Int64("transaction_id", int64(post.txn.ID)),
					zap.Error(err))
			}
		}
		s.notifySvc.InvoiceIssued(ctx, post.invoice)
	}
}
