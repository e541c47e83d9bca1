package billing

import (
	"time"

	"github.com/hasib1010/Happylife-sub003/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the billing service. All state
// transitions are single conditional writes; the guard predicate is
// re-evaluated at write time so concurrent webhook deliveries serialize at
// the storage layer.
type Repository interface {
	GetUserByID(id uint) (*models.User, error)
	GetCurrentSubscription(userID uint) (*models.Subscription, error)
	GetSubscriptionByProviderRef(ref string) (*models.Subscription, error)
	CreateSubscription(sub *models.Subscription) error
	SaveSubscription(sub *models.Subscription) error
	ApplySubscriptionEvent(ev ProcessorEvent) (bool, error)
	MarkSubscriptionCanceled(id uint, canceledAt time.Time) error
	SetCancelAtPeriodEnd(id uint, flag bool) error
	ClearSubscriptionState(id uint) error
	CreatePayment(payment *models.Payment) error
	CompletePaymentIfPending(externalRef string) (bool, *models.Payment, error)
	FailPaymentIfPending(externalRef string) (bool, error)
	CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetCurrentSubscription returns the newest record lineage for the user.
// Older canceled rows stay behind as history.
func (r *gormRepository) GetCurrentSubscription(userID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC, id DESC").First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) GetSubscriptionByProviderRef(ref string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Where("stripe_subscription_id = ?", ref).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) CreateSubscription(sub *models.Subscription) error {
	return r.db.Create(sub).Error
}

func (r *gormRepository) SaveSubscription(sub *models.Subscription) error {
	return r.db.Save(sub).Error
}

// ApplySubscriptionEvent overwrites the record matching the event's
// subscription ref, guarded by monotonicity on current_period_end evaluated
// inside the UPDATE itself. Returns false when no row matched: either the
// ref is unknown locally or the event is older than the stored state.
func (r *gormRepository) ApplySubscriptionEvent(ev ProcessorEvent) (bool, error) {
	updates := map[string]interface{}{
		"status":               ev.Status,
		"current_period_start": ev.CurrentPeriodStart,
		"current_period_end":   ev.CurrentPeriodEnd,
		"cancel_at_period_end": ev.CancelAtPeriodEnd,
	}
	if ev.PlanRef != "" {
		updates["plan_id"] = ev.PlanRef
	}
	if ev.Status == models.SubscriptionStatusCanceled {
		now := time.Now()
		updates["canceled_at"] = &now
	}

	q := r.db.Model(&models.Subscription{}).Where("stripe_subscription_id = ?", ev.SubscriptionRef)
	if ev.CurrentPeriodEnd != nil {
		q = q.Where("current_period_end IS NULL OR current_period_end <= ?", *ev.CurrentPeriodEnd)
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkSubscriptionCanceled applies an immediate user-initiated cancellation:
// status flips to canceled and the external ref is detached so future
// entitlement checks cannot see it. The row itself is retained as history.
func (r *gormRepository) MarkSubscriptionCanceled(id uint, canceledAt time.Time) error {
	return r.db.Model(&models.Subscription{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":                 models.SubscriptionStatusCanceled,
		"canceled_at":            &canceledAt,
		"stripe_subscription_id": nil,
	}).Error
}

func (r *gormRepository) SetCancelAtPeriodEnd(id uint, flag bool) error {
	return r.db.Model(&models.Subscription{}).Where("id = ?", id).
		Update("cancel_at_period_end", flag).Error
}

// ClearSubscriptionState is the terminal drift repair: the processor has no
// subscription at all, so the record falls back to none.
func (r *gormRepository) ClearSubscriptionState(id uint) error {
	return r.db.Model(&models.Subscription{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":                 models.SubscriptionStatusNone,
		"stripe_subscription_id": nil,
		"current_period_start":   nil,
		"current_period_end":     nil,
		"cancel_at_period_end":   false,
	}).Error
}

func (r *gormRepository) CreatePayment(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

// CompletePaymentIfPending moves a ledger row from pending to completed in
// one conditional write. The first delivery wins; replays see zero rows
// affected and are reported as no-ops alongside the stored row.
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

func (r *gormRepository) FailPaymentIfPending(externalRef string) (bool, error) {
	res := r.db.Model(&models.Payment{}).
		Where("external_payment_ref = ? AND status = ?", externalRef, models.PaymentStatusPending).
		Update("status", models.PaymentStatusFailed)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.WebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
