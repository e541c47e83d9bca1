package repository

import (
	"fmt"

	"github.com/hasib1010/Happylife-sub003/app/models"
	"gorm.io/gorm"
)

// listingRepository implements the ListingRepository interface for both
// listing kinds.
type listingRepository struct {
	db *gorm.DB
}

// NewListingRepository creates a new listing repository instance
func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepository{db: db}
}

func (r *listingRepository) CreateProduct(product *models.Product) error {
	return r.db.Create(product).Error
}

func (r *listingRepository) CreateService(service *models.ServiceListing) error {
	return r.db.Create(service).Error
}

func (r *listingRepository) GetProductByID(id uint) (*models.Product, error) {
	var product models.Product
	err := r.db.First(&product, id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *listingRepository) GetServiceByID(id uint) (*models.ServiceListing, error) {
	var service models.ServiceListing
	err := r.db.First(&service, id).Error
	if err != nil {
		return nil, err
	}
	return &service, nil
}

// GetFeaturable resolves a (kind, id) pair to the shared feature interface.
func (r *listingRepository) GetFeaturable(kind string, id uint) (models.Featurable, error) {
	switch kind {
	case models.ListingKindProduct:
		return r.GetProductByID(id)
	case models.ListingKindService:
		return r.GetServiceByID(id)
	default:
		return nil, fmt.Errorf("unknown listing kind: %s", kind)
	}
}

func (r *listingRepository) UpdateProduct(product *models.Product) error {
	return r.db.Save(product).Error
}

func (r *listingRepository) UpdateService(service *models.ServiceListing) error {
	return r.db.Save(service).Error
}

func (r *listingRepository) SetStatus(kind string, id uint, status string) error {
	switch kind {
	case models.ListingKindProduct:
		return r.db.Model(&models.Product{}).Where("id = ?", id).Update("status", status).Error
	case models.ListingKindService:
		return r.db.Model(&models.ServiceListing{}).Where("id = ?", id).Update("status", status).Error
	default:
		return fmt.Errorf("unknown listing kind: %s", kind)
	}
}

func (r *listingRepository) ListPublishedProducts(offset, limit int) ([]models.Product, error) {
	var products []models.Product
	err := r.db.Where("status = ?", models.ListingStatusPublished).
		Order("is_featured DESC, created_at DESC").
		Offset(offset).Limit(limit).Find(&products).Error
	return products, err
}

func (r *listingRepository) ListPublishedServices(offset, limit int) ([]models.ServiceListing, error) {
	var services []models.ServiceListing
	err := r.db.Where("status = ?", models.ListingStatusPublished).
		Order("is_featured DESC, created_at DESC").
		Offset(offset).Limit(limit).Find(&services).Error
	return services, err
}

func (r *listingRepository) CountByUserID(kind string, userID uint) (int64, error) {
	var count int64
	var err error
	switch kind {
	case models.ListingKindProduct:
		err = r.db.Model(&models.Product{}).Where("user_id = ?", userID).Count(&count).Error
	case models.ListingKindService:
		err = r.db.Model(&models.ServiceListing{}).Where("user_id = ?", userID).Count(&count).Error
	default:
		err = fmt.Errorf("unknown listing kind: %s", kind)
	}
	return count, err
}
