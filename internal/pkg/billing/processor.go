package billing

import (
	"context"

	"github.com/hasib1010/Happylife-sub003/app/models"
)

// Processor is the payment processor adapter boundary. All calls cross the
// network and happen before any local mutation is attempted; implementations
// must wrap transport failures in ErrProcessorUnavailable.
type Processor interface {
	// CreateCustomer registers the account with the processor and returns
	// the opaque customer ref. Called lazily on first subscribe attempt;
	// the ref is immutable afterwards.
	CreateCustomer(ctx context.Context, user *models.User) (string, error)

	// CreateSubscriptionCheckout requests a hosted checkout for the plan.
	// The user id is attached to the session as the client reference so the
	// completed-checkout notification can be routed back to the account.
	CreateSubscriptionCheckout(ctx context.Context, userID uint, customerRef, planID string) (*CheckoutSession, error)

	// CreateOneTimeCheckout requests a hosted checkout for a listing
	// feature boost.
	CreateOneTimeCheckout(ctx context.Context, in OneTimeCheckoutInput) (*CheckoutSession, error)

	// CancelSubscription cancels now or flags cancel-at-period-end.
	CancelSubscription(ctx context.Context, subscriptionRef string, atPeriodEnd bool) error

	// SetAutoRenew toggles renewal; disabling is equivalent to
	// cancel-at-period-end on the processor side.
	SetAutoRenew(ctx context.Context, subscriptionRef string, enabled bool) error

	// FetchSubscription reads the authoritative subscription state by
	// subscription ref or customer ref. Returns (nil, nil) when the
	// processor has no subscription for the ref.
	FetchSubscription(ctx context.Context, customerOrSubscriptionRef string) (*ProcessorEvent, error)
}
