// Package verifier selects the payment method that authenticates an inbound
// webhook delivery.
package verifier

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/hookbill/hookbill/internal/config"
	"github.com/hookbill/hookbill/internal/gateway/adapters"
	"github.com/hookbill/hookbill/internal/gateway/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Registry *adapters.Registry
	Cfg      config.Config
}

// Verifier tries every active payment method of a provider family until one
// authenticates the delivery.
type Verifier struct {
	db       *gorm.DB
	log      *zap.Logger
	registry *adapters.Registry
	timeout  time.Duration
}

func New(p Params) *Verifier {
	timeout := time.Duration(p.Cfg.VerifyTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Verifier{
		db:       p.DB,
		log:      p.Log.Named("gateway.verifier"),
		registry: p.Registry,
		timeout:  timeout,
	}
}

// Verify returns the first method whose adapter authenticates the payload.
// Methods are tried in id order so selection is stable when several could
// validate. Per-method failures are logged and skipped; only the aggregate
// "no method succeeded" surfaces, even when zero methods are registered.
func (v *Verifier) Verify(ctx context.Context, provider string, payload []byte, headers http.Header) (*domain.PaymentMethod, domain.Adapter, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" || !v.registry.ProviderExists(provider) {
		return nil, nil, domain.ErrProviderNotFound
	}

	methods, err := v.listActiveMethods(ctx, provider)
	if err != nil {
		return nil, nil, err
	}

	for i := range methods {
		method := methods[i]
		adapter, err := v.registry.NewAdapter(method)
		if err != nil {
			v.log.Warn("skipping misconfigured payment method",
				zap.Int64("method_id", int64(method.ID)),
				zap.Error(err))
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, v.timeout)
		err = adapter.Verify(callCtx, payload, headers)
		cancel()
		if err == nil {
			return &method, adapter, nil
		}
		if errors.Is(err, domain.ErrInvalidSignature) {
			continue
		}
		// Transport errors and timeouts count as a failed attempt for this
		// method only; the next one still gets a chance.
		v.log.Warn("payment method verification call failed",
			zap.Int64("method_id", int64(method.ID)),
			zap.Error(err))
	}

	return nil, nil, domain.ErrNotAuthenticated
}

func (v *Verifier) listActiveMethods(ctx context.Context, provider string) ([]domain.PaymentMethod, error) {
	var methods []domain.PaymentMethod
	err := v.db.WithContext(ctx).Raw(
		`SELECT id, provider, name, settings, is_active, created_at, updated_at
		 FROM payment_methods
		 WHERE provider = ? AND is_active = ?
		 ORDER BY id`,
		provider,
		true,
	).Scan(&methods).Error
	if err != nil {
		return nil, err
	}
	return methods, nil
}
