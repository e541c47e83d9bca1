package billing

import "errors"

var (
	// ErrRoleNotEligible is returned when an account's role does not require
	// (or allow) a paid subscription.
	ErrRoleNotEligible = errors.New("role is not eligible for subscriptions")

	// ErrProcessorUnavailable wraps adapter transport failures and timeouts.
	// Transient: the caller retries explicitly, the engine never retries
	// inline.
	ErrProcessorUnavailable = errors.New("payment processor unavailable")

	// ErrRecordNotFound is returned when no subscription record exists for
	// the requested operation.
	ErrRecordNotFound = errors.New("record not found")

	// ErrStaleEvent marks a processor event older than the stored state.
	// Absorbed and logged at the webhook boundary, never user-facing.
	ErrStaleEvent = errors.New("stale processor event")

	// ErrAlreadyCanceled is returned for operations forbidden once a
	// subscription reached the canceled state.
	ErrAlreadyCanceled = errors.New("subscription already canceled")
)
