package models

import "time"

// Subscription status values. These mirror the payment processor's
// vocabulary; the local record is never the source of truth for status,
// only for intent (CancelAtPeriodEnd).
const (
	SubscriptionStatusNone              = "none"
	SubscriptionStatusIncomplete        = "incomplete"
	SubscriptionStatusTrialing          = "trialing"
	SubscriptionStatusActive            = "active"
	SubscriptionStatusPastDue           = "past_due"
	SubscriptionStatusCanceled          = "canceled"
	SubscriptionStatusUnpaid            = "unpaid"
	SubscriptionStatusIncompleteExpired = "incomplete_expired"
)

// Subscription is the per-account entitlement record. One current record per
// user; canceled records are retained as history and a re-subscribe creates a
// fresh row rather than resurrecting an old one.
type Subscription struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	UserID               uint       `gorm:"not null;index" json:"user_id"`
	PlanID               string     `gorm:"type:varchar(100);not null;default:''" json:"plan_id"`
	StripeCustomerID     string     `gorm:"type:varchar(191);index" json:"stripe_customer_id"`
	StripeSubscriptionID *string    `gorm:"type:varchar(191);index:ux_subscriptions_stripe_sub,unique" json:"stripe_subscription_id,omitempty"`
	Status               string     `gorm:"type:varchar(32);not null;default:'none';index" json:"status"`
	CurrentPeriodStart   *time.Time `gorm:"type:timestamp;default:null" json:"current_period_start,omitempty"`
	CurrentPeriodEnd     *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	CancelAtPeriodEnd    bool       `gorm:"default:false" json:"cancel_at_period_end"`
	CanceledAt           *time.Time `gorm:"type:timestamp;default:null" json:"canceled_at,omitempty"`
	CreatedAt            time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminal reports whether the status can never transition again.
func (s *Subscription) IsTerminal() bool {
	return s.Status == SubscriptionStatusCanceled || s.Status == SubscriptionStatusIncompleteExpired
}

// SubscriptionRef returns the external subscription ref or "" when unset.
func (s *Subscription) SubscriptionRef() string {
	if s.StripeSubscriptionID == nil {
		return ""
	}
	return *s.StripeSubscriptionID
}
