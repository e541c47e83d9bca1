package models

import "time"

// Listing kinds sharing the feature record shape.
const (
	ListingKindProduct = "product"
	ListingKindService = "service"
)

// FeatureState is the time-bound promotion window embedded in every listing.
// IsFeatured is only meaningful together with FeatureExpiration: a grant sets
// both, the sweeper clears IsFeatured and leaves FeatureExpiration as
// historical evidence.
type FeatureState struct {
	IsFeatured        bool       `gorm:"default:false;index" json:"is_featured"`
	FeatureExpiration *time.Time `gorm:"type:timestamp;default:null" json:"feature_expiration,omitempty"`
}

// FeaturedUntil reports whether the listing is featured and unexpired at now.
func (f *FeatureState) FeaturedUntil(now time.Time) bool {
	return f.IsFeatured && f.FeatureExpiration != nil && f.FeatureExpiration.After(now)
}

// Featurable is implemented by both listing variants so the feature grant
// manager and the expiration sweeper operate on the interface, not on
// concrete types.
type Featurable interface {
	GetFeatureState() *FeatureState
	ListingKind() string
	OwnerID() uint
}
