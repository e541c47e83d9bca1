package models

import "time"

const (
	PaymentKindSubscription   = "subscription"
	PaymentKindListingFeature = "listing_feature"
)

const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

// Payment is an append-only ledger row. Created as pending when a checkout is
// initiated, moved to completed/failed on processor confirmation. Terminal
// rows are never mutated again except to refunded.
type Payment struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	UserID             uint       `gorm:"not null;index" json:"user_id"`
	ListingID          uint       `gorm:"default:0;index" json:"listing_id,omitempty"`
	ListingKind        string     `gorm:"type:varchar(20);default:''" json:"listing_kind,omitempty"`
	AmountCents        int64      `gorm:"not null;default:0" json:"amount_cents"`
	Currency           string     `gorm:"type:varchar(3);not null;default:'usd'" json:"currency"`
	Kind               string     `gorm:"type:varchar(32);not null;index" json:"kind"`
	Status             string     `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	ExternalPaymentRef string     `gorm:"type:varchar(191);not null;index:ux_payments_external_ref,unique" json:"external_payment_ref"`
	MetadataJSON       string     `gorm:"type:text" json:"metadata_json"`
	ExpiresAt          *time.Time `gorm:"type:timestamp;default:null" json:"expires_at,omitempty"`
	CreatedAt          time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
