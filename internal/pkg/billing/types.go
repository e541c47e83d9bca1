package billing

import "time"

// ProcessorEvent is the provider-agnostic shape consumed when syncing
// external subscription state into the local record. Events are monotonic in
// CurrentPeriodEnd; older events are rejected as stale.
type ProcessorEvent struct {
	SubscriptionRef    string
	PlanRef            string
	Status             string
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	CancelAtPeriodEnd  bool
}

// CheckoutSession is the opaque redirect handle returned when a checkout is
// initiated with the payment processor.
type CheckoutSession struct {
	SessionRef  string `json:"session_ref"`
	RedirectURL string `json:"redirect_url"`
}

// OneTimeCheckoutInput describes a one-time feature boost purchase.
type OneTimeCheckoutInput struct {
	UserID       uint
	ListingID    uint
	ListingKind  string
	AmountCents  int64
	Currency     string
	DurationDays int
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}

// ReconcileResult reports whether reconciliation corrected local drift.
type ReconcileResult struct {
	Corrected      bool   `json:"corrected"`
	PreviousStatus string `json:"previous_status"`
	CurrentStatus  string `json:"current_status"`
}
