// Package payment wraps the external payment processor.  Handlers talk to
// the Processor interface so tests can substitute a fake; the only real
// implementation drives Stripe payment intents, which is what the frontend
// consumes via the returned client secret.
package payment

import (
	"context"
	"errors"
)

// Intent is the subset of a processor payment intent the service cares
// about.  Reference is the processor-side id and doubles as the purchase
// payment_ref; ClientSecret is handed to the browser to complete payment.
type Intent struct {
	Reference    string
	ClientSecret string
}

// ErrProcessor wraps any failure talking to the external processor.
// Handlers surface it as 502 and must not write local state.
var ErrProcessor = errors.New("payment processor error")

// IntentStatus is the processor's view of a referenced intent: whether it
// settled, the amount it charged, and the (film, user) pair it was opened
// for, read back from the intent metadata.
type IntentStatus struct {
	Succeeded   bool
	AmountCents int64
	FilmID      uint64
	UserID      uint64
}

// Processor creates and verifies payment intents.
type Processor interface {
	// CreateIntent opens a payment for amountCents in the given currency.
	// filmID and userID travel as metadata and come back via VerifyIntent.
	CreateIntent(ctx context.Context, amountCents int64, currency string, filmID, userID uint64) (Intent, error)
	// VerifyIntent retrieves the referenced intent.  Succeeded alone is
	// not proof of entitlement: callers must also check that FilmID,
	// UserID and AmountCents match the purchase being confirmed.
	VerifyIntent(ctx context.Context, reference string) (IntentStatus, error)
}
