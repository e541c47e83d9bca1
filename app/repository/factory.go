package repository

import (
	"gorm.io/gorm"
)

// Repositories bundles all repository instances built from one DB handle.
type Repositories struct {
	User    UserRepository
	Listing ListingRepository
	Payment PaymentRepository
}

// NewRepositories creates all repositories from an injected DB handle. The
// handle is opened in main and closed at shutdown; no package-level cached
// connection is consulted here.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:    NewUserRepository(db),
		Listing: NewListingRepository(db),
		Payment: NewPaymentRepository(db),
	}
}
