package feature

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/hasib1010/Happylife-sub003/app/models"
	"github.com/hasib1010/Happylife-sub003/internal/pkg/billing"
)

type fakeFeatureRepo struct {
	users    map[uint]*models.User
	products map[uint]*models.Product
	services map[uint]*models.ServiceListing
	payments map[string]*models.Payment
}

func newFakeFeatureRepo() *fakeFeatureRepo {
	return &fakeFeatureRepo{
		users:    make(map[uint]*models.User),
		products: make(map[uint]*models.Product),
		services: make(map[uint]*models.ServiceListing),
		payments: make(map[string]*models.Payment),
	}
}

func (r *fakeFeatureRepo) GetUserByID(id uint) (*models.User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeFeatureRepo) GetFeaturable(kind string, id uint) (models.Featurable, error) {
	switch kind {
	case models.ListingKindProduct:
		if p, ok := r.products[id]; ok {
			return p, nil
		}
	case models.ListingKindService:
		if s, ok := r.services[id]; ok {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeFeatureRepo) SetFeature(kind string, id uint, featured bool, expiration *time.Time) error {
	listing, err := r.GetFeaturable(kind, id)
	if err != nil {
		return err
	}
	state := listing.GetFeatureState()
	state.IsFeatured = featured
	state.FeatureExpiration = expiration
	return nil
}

func (r *fakeFeatureRepo) CreatePayment(payment *models.Payment) error {
	if _, exists := r.payments[payment.ExternalPaymentRef]; exists {
		return errors.New("duplicate external ref")
	}
	copied := *payment
	r.payments[payment.ExternalPaymentRef] = &copied
	return nil
}

func (r *fakeFeatureRepo) CompletePaymentIfPending(externalRef string) (bool, *models.Payment, error) {
	p, ok := r.payments[externalRef]
	if !ok {
		return false, nil, gorm.ErrRecordNotFound
	}
	if p.Status != models.PaymentStatusPending {
		copied := *p
		return false, &copied, nil
	}
	p.Status = models.PaymentStatusCompleted
	copied := *p
	return true, &copied, nil
}

func (r *fakeFeatureRepo) SweepExpired(kind string, now time.Time) (int64, error) {
	var demoted int64
	switch kind {
	case models.ListingKindProduct:
		for _, p := range r.products {
			if p.IsFeatured && p.FeatureExpiration != nil && p.FeatureExpiration.Before(now) {
				p.IsFeatured = false
				demoted++
			}
		}
	case models.ListingKindService:
		for _, s := range r.services {
			if s.IsFeatured && s.FeatureExpiration != nil && s.FeatureExpiration.Before(now) {
				s.IsFeatured = false
				demoted++
			}
		}
	}
	return demoted, nil
}

type fakeCheckoutProcessor struct {
	billing.Processor
	session   *billing.CheckoutSession
	createErr error
	calls     int
}

func (p *fakeCheckoutProcessor) CreateOneTimeCheckout(ctx context.Context, in billing.OneTimeCheckoutInput) (*billing.CheckoutSession, error) {
	p.calls++
	if p.createErr != nil {
		return nil, p.createErr
	}
	if p.session == nil {
		p.session = &billing.CheckoutSession{SessionRef: "cs_feature", RedirectURL: "https://checkout.example/cs_feature"}
	}
	return p.session, nil
}

func seedProduct(repo *fakeFeatureRepo, ownerID uint) *models.Product {
	p := &models.Product{ID: 1, UserID: ownerID, Title: "Widget", Status: models.ListingStatusPublished}
	repo.products[p.ID] = p
	return p
}

func TestInitiateCheckout_OwnershipRequired(t *testing.T) {
	repo := newFakeFeatureRepo()
	repo.users[1] = &models.User{ID: 1, Role: models.ROLE_SELLER}
	repo.users[2] = &models.User{ID: 2, Role: models.ROLE_SELLER}
	seedProduct(repo, 1)
	svc := NewService(repo, &fakeCheckoutProcessor{}, 100, "usd")

	if _, err := svc.InitiateCheckout(context.Background(), 2, models.ListingKindProduct, 1, 7); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
}

func TestInitiateCheckout_AdminMayFeatureAnyListing(t *testing.T) {
	repo := newFakeFeatureRepo()
	repo.users[9] = &models.User{ID: 9, Role: models.ROLE_ADMIN}
	seedProduct(repo, 1)
	svc := NewService(repo, &fakeCheckoutProcessor{}, 100, "usd")

	if _, err := svc.InitiateCheckout(context.Background(), 9, models.ListingKindProduct, 1, 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestInitiateCheckout_AlreadyFeatured(t *testing.T) {
	repo := newFakeFeatureRepo()
	repo.users[1] = &models.User{ID: 1, Role: models.ROLE_SELLER}
	p := seedProduct(repo, 1)
	until := time.Now().Add(48 * time.Hour)
	p.IsFeatured = true
	p.FeatureExpiration = &until
	svc := NewService(repo, &fakeCheckoutProcessor{}, 100, "usd")

	if _, err := svc.InitiateCheckout(context.Background(), 1, models.ListingKindProduct, 1, 7); !errors.Is(err, ErrAlreadyFeatured) {
		t.Fatalf("expected ErrAlreadyFeatured, got %v", err)
	}
}

func TestInitiateCheckout_ExpiredGrantAllowsRepurchase(t *testing.T) {
	repo := newFakeFeatureRepo()
	repo.users[1] = &models.User{ID: 1, Role: models.ROLE_SELLER}
	p := seedProduct(repo, 1)
	past := time.Now().Add(-time.Hour)
	p.IsFeatured = true // sweeper has not run yet
	p.FeatureExpiration = &past
	svc := NewService(repo, &fakeCheckoutProcessor{}, 100, "usd")

	if _, err := svc.InitiateCheckout(context.Background(), 1, models.ListingKindProduct, 1, 7); err != nil {
		t.Fatalf("an expired grant must not block repurchase, got %v", err)
	}
}

func TestInitiateCheckout_PendingLedgerRow(t *testing.T) {
	repo := newFakeFeatureRepo()
	repo.users[1] = &models.User{ID: 1, Role: models.ROLE_SELLER}
	seedProduct(repo, 1)
	proc := &fakeCheckoutProcessor{}
	svc := NewService(repo, proc, 250, "usd")

	session, err := svc.InitiateCheckout(context.Background(), 1, models.ListingKindProduct, 1, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	payment := repo.payments[session.SessionRef]
	if payment == nil {
		t.Fatalf("expected a pending ledger row")
	}
	if payment.Status != models.PaymentStatusPending || payment.Kind != models.PaymentKindListingFeature {
		t.Fatalf("unexpected ledger row: %+v", payment)
	}
	if payment.AmountCents != 2500 {
		t.Fatalf("expected 10 days * 250 cents, got %d", payment.AmountCents)
	}
	if payment.ExpiresAt == nil || !payment.ExpiresAt.After(time.Now().Add(9*24*time.Hour)) {
		t.Fatalf("expected the purchased window in expires_at, got %v", payment.ExpiresAt)
	}
}

func TestInitiateCheckout_ProcessorFailureLeavesNoLedgerRow(t *testing.T) {
	repo := newFakeFeatureRepo()
	repo.users[1] = &models.User{ID: 1, Role: models.ROLE_SELLER}
	seedProduct(repo, 1)
	proc := &fakeCheckoutProcessor{createErr: billing.ErrProcessorUnavailable}
	svc := NewService(repo, proc, 100, "usd")

	if _, err := svc.InitiateCheckout(context.Background(), 1, models.ListingKindProduct, 1, 7); !errors.Is(err, billing.ErrProcessorUnavailable) {
		t.Fatalf("expected ErrProcessorUnavailable, got %v", err)
	}
	if len(repo.payments) != 0 {
		t.Fatalf("expected no ledger rows after processor failure")
	}
}

func TestInitiateCheckout_DurationBounds(t *testing.T) {
	repo := newFakeFeatureRepo()
	repo.users[1] = &models.User{ID: 1, Role: models.ROLE_SELLER}
	seedProduct(repo, 1)
	svc := NewService(repo, &fakeCheckoutProcessor{}, 100, "usd")

	for _, days := range []int{0, -1, 91} {
		if _, err := svc.InitiateCheckout(context.Background(), 1, models.ListingKindProduct, 1, days); err == nil {
			t.Fatalf("expected duration %d to be rejected", days)
		}
	}
}

func TestConfirmGrant_AppliesOnce(t *testing.T) {
	repo := newFakeFeatureRepo()
	p := seedProduct(repo, 1)
	expires := time.Now().Add(7 * 24 * time.Hour)
	repo.payments["cs_1"] = &models.Payment{
		UserID:             1,
		ListingID:          1,
		ListingKind:        models.ListingKindProduct,
		Kind:               models.PaymentKindListingFeature,
		Status:             models.PaymentStatusPending,
		ExternalPaymentRef: "cs_1",
		ExpiresAt:          &expires,
	}
	svc := NewService(repo, &fakeCheckoutProcessor{}, 100, "usd")

	if err := svc.ConfirmGrant(context.Background(), "cs_1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.IsFeatured || p.FeatureExpiration == nil || !p.FeatureExpiration.Equal(expires) {
		t.Fatalf("expected the grant to be applied: %+v", p.FeatureState)
	}

	// Redelivery: flip the expiration so a second application would show.
	moved := expires.Add(24 * time.Hour)
	repo.payments["cs_1"].ExpiresAt = &moved

	if err := svc.ConfirmGrant(context.Background(), "cs_1"); err != nil {
		t.Fatalf("replay must not error: %v", err)
	}
	if !p.FeatureExpiration.Equal(expires) {
		t.Fatalf("replay must not extend the grant: %v", p.FeatureExpiration)
	}
}

func TestConfirmGrant_UnknownPaymentIsAbsorbed(t *testing.T) {
	svc := NewService(newFakeFeatureRepo(), &fakeCheckoutProcessor{}, 100, "usd")

	if err := svc.ConfirmGrant(context.Background(), "cs_missing"); err != nil {
		t.Fatalf("unknown refs must be absorbed, got %v", err)
	}
}

func TestConfirmGrant_DeletedListingCompletesPayment(t *testing.T) {
	repo := newFakeFeatureRepo()
	expires := time.Now().Add(7 * 24 * time.Hour)
	repo.payments["cs_1"] = &models.Payment{
		UserID:             1,
		ListingID:          77, // never seeded
		ListingKind:        models.ListingKindProduct,
		Kind:               models.PaymentKindListingFeature,
		Status:             models.PaymentStatusPending,
		ExternalPaymentRef: "cs_1",
		ExpiresAt:          &expires,
	}
	svc := NewService(repo, &fakeCheckoutProcessor{}, 100, "usd")

	if err := svc.ConfirmGrant(context.Background(), "cs_1"); err != nil {
		t.Fatalf("orphaned grants must not error, got %v", err)
	}
	if repo.payments["cs_1"].Status != models.PaymentStatusCompleted {
		t.Fatalf("payment must settle even when the listing is gone")
	}
}

func TestConfirmGrant_SubscriptionPaymentIsNotAGrant(t *testing.T) {
	repo := newFakeFeatureRepo()
	p := seedProduct(repo, 1)
	repo.payments["cs_sub"] = &models.Payment{
		UserID:             1,
		Kind:               models.PaymentKindSubscription,
		Status:             models.PaymentStatusPending,
		ExternalPaymentRef: "cs_sub",
	}
	svc := NewService(repo, &fakeCheckoutProcessor{}, 100, "usd")

	if err := svc.ConfirmGrant(context.Background(), "cs_sub"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.payments["cs_sub"].Status != models.PaymentStatusCompleted {
		t.Fatalf("subscription checkout payments must still settle")
	}
	if p.IsFeatured {
		t.Fatalf("subscription payments must never feature a listing")
	}
}

func TestForceSetFeature(t *testing.T) {
	repo := newFakeFeatureRepo()
	p := seedProduct(repo, 1)
	svc := NewService(repo, &fakeCheckoutProcessor{}, 100, "usd")

	until := time.Now().Add(72 * time.Hour)
	if err := svc.ForceSetFeature(context.Background(), models.ListingKindProduct, 1, true, &until); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.FeaturedUntil(time.Now()) {
		t.Fatalf("expected listing to be featured")
	}

	if err := svc.ForceSetFeature(context.Background(), models.ListingKindProduct, 1, false, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.IsFeatured {
		t.Fatalf("expected listing to be unfeatured")
	}

	if err := svc.ForceSetFeature(context.Background(), models.ListingKindProduct, 1, true, nil); err == nil {
		t.Fatalf("featuring without a future expiration must be rejected")
	}
	if err := svc.ForceSetFeature(context.Background(), models.ListingKindProduct, 99, false, nil); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}
