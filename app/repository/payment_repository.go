package repository

import (
	"github.com/hasib1010/Happylife-sub003/app/models"
	"gorm.io/gorm"
)

// paymentRepository implements the PaymentRepository interface
type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository instance
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) GetByID(id uint) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.First(&payment, id).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) GetByExternalRef(ref string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.Where("external_payment_ref = ?", ref).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) ListByUserID(userID uint, offset, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).Find(&payments).Error
	return payments, err
}

// MarkRefunded moves a completed ledger row to refunded. Refunded is the only
// mutation allowed after a terminal status.
func (r *paymentRepository) MarkRefunded(ref string) error {
	return r.db.Model(&models.Payment{}).
		Where("external_payment_ref = ? AND status = ?", ref, models.PaymentStatusCompleted).
		Update("status", models.PaymentStatusRefunded).Error
}
