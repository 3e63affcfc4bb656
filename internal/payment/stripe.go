package payment

import (
	"context"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// StripeProcessor implements Processor over the Stripe API.  Each handler
// call maps to a single Stripe round trip; no state is kept locally.
type StripeProcessor struct {
	api *client.API
}

// NewStripeProcessor builds a processor bound to the given secret key.
func NewStripeProcessor(secretKey string) *StripeProcessor {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeProcessor{api: api}
}

// CreateIntent opens a Stripe payment intent for the film's price.  The
// amount is already in the processor's minor unit (cents).
func (p *StripeProcessor) CreateIntent(ctx context.Context, amountCents int64, currency string, filmID, userID uint64) (Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(currency),
	}
	params.Context = ctx
	params.AddMetadata("film_id", strconv.FormatUint(filmID, 10))
	params.AddMetadata("user_id", strconv.FormatUint(userID, 10))

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return Intent{}, fmt.Errorf("%w: create intent: %v", ErrProcessor, err)
	}
	return Intent{Reference: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// VerifyIntent retrieves the intent and reports its status together with
// the amount and the film/user metadata written at creation time.
func (p *StripeProcessor) VerifyIntent(ctx context.Context, reference string) (IntentStatus, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := p.api.PaymentIntents.Get(reference, params)
	if err != nil {
		return IntentStatus{}, fmt.Errorf("%w: get intent: %v", ErrProcessor, err)
	}
	st := IntentStatus{
		Succeeded:   pi.Status == stripe.PaymentIntentStatusSucceeded,
		AmountCents: pi.Amount,
	}
	// Metadata written by CreateIntent; a foreign intent parses to zero
	// and fails the caller's match.
	st.FilmID, _ = strconv.ParseUint(pi.Metadata["film_id"], 10, 64)
	st.UserID, _ = strconv.ParseUint(pi.Metadata["user_id"], 10, 64)
	return st, nil
}
