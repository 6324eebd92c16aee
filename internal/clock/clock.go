// Package clock injects the time source so reconciliation can stamp
// transactions, invoices and cycle advances from one consistent instant.
package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock yields the current instant. Implementations must return UTC;
// next_cycle arithmetic and invoice timestamps assume it.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// NewSystemClock returns the wall clock used outside of tests.
func NewSystemClock() Clock { return systemClock{} }

var Module = fx.Module("clock",
	fx.Provide(NewSystemClock),
)
