package feature

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/hasib1010/Happylife-sub003/app/models"
	"github.com/hasib1010/Happylife-sub003/internal/pkg/billing"
	"gorm.io/gorm"
)

var (
	// ErrAlreadyFeatured is returned when the listing already has an
	// unexpired feature grant.
	ErrAlreadyFeatured = errors.New("listing is already featured")

	// ErrNotOwner is returned when the caller neither owns the listing nor
	// is an admin.
	ErrNotOwner = errors.New("caller does not own this listing")

	// ErrRecordNotFound is returned when the listing or payment does not exist.
	ErrRecordNotFound = errors.New("record not found")
)

const (
	minDurationDays = 1
	maxDurationDays = 90
)

// Service owns transitions of the per-listing feature state. Feature grants
// are purchased independently of any subscription.
type Service struct {
	repo          Repository
	processor     billing.Processor
	priceCentsDay int64
	priceCurrency string
}

// NewService creates a feature service from injected dependencies.
func NewService(repo Repository, processor billing.Processor, priceCentsPerDay int64, currency string) *Service {
	if priceCentsPerDay <= 0 {
		priceCentsPerDay = 100
	}
	if currency == "" {
		currency = "usd"
	}
	return &Service{repo: repo, processor: processor, priceCentsDay: priceCentsPerDay, priceCurrency: currency}
}

// NewServiceFromDB creates a feature service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, processor billing.Processor, priceCentsPerDay int64, currency string) *Service {
	return NewService(NewRepository(db), processor, priceCentsPerDay, currency)
}

// InitiateCheckout verifies ownership and opens a one-time checkout for a
// feature boost. The pending ledger row carries the purchased window in
// ExpiresAt and is written only after the processor confirmed a checkout
// handle.
func (s *Service) InitiateCheckout(ctx context.Context, userID uint, listingKind string, listingID uint, durationDays int) (*billing.CheckoutSession, error) {
	if durationDays < minDurationDays || durationDays > maxDurationDays {
		return nil, errors.New("duration must be between 1 and 90 days")
	}

	user, err := s.repo.GetUserByID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	listing, err := s.repo.GetFeaturable(listingKind, listingID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	if listing.OwnerID() != userID && !user.IsAdmin() {
		return nil, ErrNotOwner
	}

	now := time.Now()
	if listing.GetFeatureState().FeaturedUntil(now) {
		return nil, ErrAlreadyFeatured
	}

	amountCents := int64(durationDays) * s.priceCentsDay
	session, err := s.processor.CreateOneTimeCheckout(ctx, billing.OneTimeCheckoutInput{
		UserID:       userID,
		ListingID:    listingID,
		ListingKind:  listingKind,
		AmountCents:  amountCents,
		Currency:     s.priceCurrency,
		DurationDays: durationDays,
	})
	if err != nil {
		return nil, err
	}

	expiresAt := now.Add(time.Duration(durationDays) * 24 * time.Hour)
	meta, _ := json.Marshal(map[string]string{
		"listing_kind":  listingKind,
		"listing_id":    strconv.FormatUint(uint64(listingID), 10),
		"duration_days": strconv.Itoa(durationDays),
	})
	payment := &models.Payment{
		UserID:             userID,
		ListingID:          listingID,
		ListingKind:        listingKind,
		AmountCents:        amountCents,
		Currency:           s.priceCurrency,
		Kind:               models.PaymentKindListingFeature,
		Status:             models.PaymentStatusPending,
		ExternalPaymentRef: session.SessionRef,
		MetadataJSON:       string(meta),
		ExpiresAt:          &expiresAt,
	}
	if err := s.repo.CreatePayment(payment); err != nil {
		return nil, err
	}

	return session, nil
}

// ConfirmGrant applies a completed feature purchase. Idempotency lives in
// the ledger: the pending-to-completed flip is a single conditional write,
// so at-least-once webhook delivery cannot double-extend a grant. A listing
// deleted between purchase and confirmation completes the payment anyway and
// only logs an orphaned-grant warning; the payment flow never sees an error
// for it.
func (s *Service) ConfirmGrant(ctx context.Context, paymentRef string) error {
	_ = ctx
	applied, payment, err := s.repo.CompletePaymentIfPending(paymentRef)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warnf("[Feature] Completed payment %s has no local ledger row", paymentRef)
		return nil
	}
	if err != nil {
		return err
	}
	if !applied {
		log.Infof("[Feature] Payment %s already settled, skipping grant", paymentRef)
		return nil
	}
	if payment.Kind != models.PaymentKindListingFeature {
		return nil
	}

	if err := s.repo.SetFeature(payment.ListingKind, payment.ListingID, true, payment.ExpiresAt); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnf("[Feature] Orphaned grant: listing %s/%d deleted before payment %s confirmed",
				payment.ListingKind, payment.ListingID, paymentRef)
			return nil
		}
		return err
	}

	log.Infof("[Feature] Granted feature to %s/%d until %v (payment %s)",
		payment.ListingKind, payment.ListingID, payment.ExpiresAt, paymentRef)
	return nil
}

// ForceSetFeature is the operator override: it bypasses payment entirely and
// writes the feature state directly. No ledger row is created.
func (s *Service) ForceSetFeature(ctx context.Context, listingKind string, listingID uint, featured bool, expiration *time.Time) error {
	_ = ctx
	if featured && (expiration == nil || !expiration.After(time.Now())) {
		return errors.New("featuring a listing requires a future expiration")
	}
	err := s.repo.SetFeature(listingKind, listingID, featured, expiration)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrRecordNotFound
	}
	return err
}
