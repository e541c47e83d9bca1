package feature

import (
	"fmt"
	"time"

	"github.com/hasib1010/Happylife-sub003/app/models"
	"gorm.io/gorm"
)

// Repository provides DB operations used by the feature grant manager and
// the expiration sweeper.
type Repository interface {
	GetUserByID(id uint) (*models.User, error)
	GetFeaturable(kind string, id uint) (models.Featurable, error)
	SetFeature(kind string, id uint, featured bool, expiration *time.Time) error
	CreatePayment(payment *models.Payment) error
	CompletePaymentIfPending(externalRef string) (bool, *models.Payment, error)
	SweepExpired(kind string, now time.Time) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a feature repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func listingModel(kind string) (interface{}, error) {
	switch kind {
	case models.ListingKindProduct:
		return &models.Product{}, nil
	case models.ListingKindService:
		return &models.ServiceListing{}, nil
	default:
		return nil, fmt.Errorf("unknown listing kind: %s", kind)
	}
}

func (r *gormRepository) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormRepository) GetFeaturable(kind string, id uint) (models.Featurable, error) {
	switch kind {
	case models.ListingKindProduct:
		var product models.Product
		if err := r.db.First(&product, id).Error; err != nil {
			return nil, err
		}
		return &product, nil
	case models.ListingKindService:
		var service models.ServiceListing
		if err := r.db.First(&service, id).Error; err != nil {
			return nil, err
		}
		return &service, nil
	default:
		return nil, fmt.Errorf("unknown listing kind: %s", kind)
	}
}

func (r *gormRepository) SetFeature(kind string, id uint, featured bool, expiration *time.Time) error {
	model, err := listingModel(kind)
	if err != nil {
		return err
	}
	res := r.db.Model(model).Where("id = ?", id).Updates(map[string]interface{}{
		"is_featured":        featured,
		"feature_expiration": expiration,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *gormRepository) CreatePayment(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

func (r *gormRepository) CompletePaymentIfPending(externalRef string) (bool, *models.Payment, error) {
	res := r.db.Model(&models.Payment{}).
		Where("external_payment_ref = ? AND status = ?", externalRef, models.PaymentStatusPending).
		Update("status", models.PaymentStatusCompleted)
	if res.Error != nil {
		return false, nil, res.Error
	}

	var payment models.Payment
	if err := r.db.Where("external_payment_ref = ?", externalRef).First(&payment).Error; err != nil {
		return false, nil, err
	}
	return res.RowsAffected > 0, &payment, nil
}

// SweepExpired demotes listings whose grant lapsed. The predicate is part of
// the UPDATE itself, so a grant committed between selection and write keeps
// the listing featured: only rows still expired at write time are demoted.
// FeatureExpiration is left behind as historical evidence.
func (r *gormRepository) SweepExpired(kind string, now time.Time) (int64, error) {
	model, err := listingModel(kind)
	if err != nil {
		return 0, err
	}
	res := r.db.Model(model).
		Where("is_featured = ? AND feature_expiration IS NOT NULL AND feature_expiration < ?", true, now).
		Update("is_featured", false)
	return res.RowsAffected, res.Error
}
