package repository

import (
	"github.com/hasib1010/Happylife-sub003/app/models"
)

// UserRepository maintains the local account mirror fed by the upstream
// authenticator. Reads on the entitlement path go through the billing and
// feature repositories instead.
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
}

// ListingRepository defines the interface for listing-related database
// operations. Products and service listings share the feature record shape,
// so lookups by kind return the Featurable interface where possible.
type ListingRepository interface {
	CreateProduct(product *models.Product) error
	CreateService(service *models.ServiceListing) error
	GetProductByID(id uint) (*models.Product, error)
	GetServiceByID(id uint) (*models.ServiceListing, error)
	GetFeaturable(kind string, id uint) (models.Featurable, error)
	UpdateProduct(product *models.Product) error
	UpdateService(service *models.ServiceListing) error
	SetStatus(kind string, id uint, status string) error
	ListPublishedProducts(offset, limit int) ([]models.Product, error)
	ListPublishedServices(offset, limit int) ([]models.ServiceListing, error)
	CountByUserID(kind string, userID uint) (int64, error)
}

// PaymentRepository defines read access to the append-only payment ledger.
// Writes happen through the billing and feature services, which own the
// idempotent state transitions.
type PaymentRepository interface {
	GetByID(id uint) (*models.Payment, error)
	GetByExternalRef(ref string) (*models.Payment, error)
	ListByUserID(userID uint, offset, limit int) ([]models.Payment, error)
	MarkRefunded(ref string) error
}
