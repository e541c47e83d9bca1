package controllers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/hasib1010/Happylife-sub003/app/models"
	"github.com/hasib1010/Happylife-sub003/internal/pkg/billing"
	"github.com/hasib1010/Happylife-sub003/internal/pkg/middleware"
)

type fakeListingRepo struct {
	products       map[uint]*models.Product
	services       map[uint]*models.ServiceListing
	createdCount   int
	setStatusCalls int
}

func newFakeListingRepo() *fakeListingRepo {
	return &fakeListingRepo{
		products: make(map[uint]*models.Product),
		services: make(map[uint]*models.ServiceListing),
	}
}

func (r *fakeListingRepo) CreateProduct(product *models.Product) error {
	r.createdCount++
	product.ID = uint(len(r.products) + 1)
	r.products[product.ID] = product
	return nil
}

func (r *fakeListingRepo) CreateService(service *models.ServiceListing) error {
	r.createdCount++
	service.ID = uint(len(r.services) + 1)
	r.services[service.ID] = service
	return nil
}

func (r *fakeListingRepo) GetProductByID(id uint) (*models.Product, error) {
	if p, ok := r.products[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeListingRepo) GetServiceByID(id uint) (*models.ServiceListing, error) {
	if s, ok := r.services[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeListingRepo) GetFeaturable(kind string, id uint) (models.Featurable, error) {
	switch kind {
	case models.ListingKindProduct:
		return r.GetProductByID(id)
	case models.ListingKindService:
		return r.GetServiceByID(id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeListingRepo) UpdateProduct(product *models.Product) error { return nil }

func (r *fakeListingRepo) UpdateService(service *models.ServiceListing) error { return nil }

func (r *fakeListingRepo) SetStatus(kind string, id uint, status string) error {
	r.setStatusCalls++
	if kind == models.ListingKindProduct {
		if p, ok := r.products[id]; ok {
			p.Status = status
		}
	}
	return nil
}

func (r *fakeListingRepo) ListPublishedProducts(offset, limit int) ([]models.Product, error) {
	return nil, nil
}

func (r *fakeListingRepo) ListPublishedServices(offset, limit int) ([]models.ServiceListing, error) {
	return nil, nil
}

func (r *fakeListingRepo) CountByUserID(kind string, userID uint) (int64, error) {
	return 0, nil
}

func newListingTestApp(listings *fakeListingRepo, billingRepo *fakeBillingRepo) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Use(middleware.UserContextMiddleware)
	billingSvc := billing.NewService(billingRepo, &stubProcessor{})
	ctrl := NewListingController(listings, billingSvc)
	app.Post("/products", ctrl.HandleCreateProduct)
	app.Post("/listings/:kind/:id/publish", ctrl.HandlePublish)
	return app
}

func TestHandleCreateProduct_LapsedMerchantCreatesNothing(t *testing.T) {
	listings := newFakeListingRepo()
	app := newListingTestApp(listings, newFakeBillingRepo())

	req := httptest.NewRequest(fiber.MethodPost, "/products",
		strings.NewReader(`{"title":"Handmade chair","price_cents":1500}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Auth-User-Id", "7")
	req.Header.Set("X-Auth-Role", models.ROLE_PROVIDER)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}
	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("provider without subscription must get 403, got %d", resp.StatusCode)
	}
	if listings.createdCount != 0 {
		t.Fatalf("blocked request must not create a listing")
	}

	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("error responses must be JSON: %v", err)
	}
	if body.Error == "" {
		t.Fatalf("expected an error code in the body")
	}
}

func TestHandlePublish_EntitledOwnerSucceeds(t *testing.T) {
	listings := newFakeListingRepo()
	listings.products[3] = &models.Product{ID: 3, UserID: 7, Title: "Handmade chair", Status: models.ListingStatusDraft}

	billingRepo := newFakeBillingRepo()
	end := time.Now().Add(14 * 24 * time.Hour)
	_ = billingRepo.CreateSubscription(&models.Subscription{
		UserID:           7,
		Status:           models.SubscriptionStatusActive,
		CurrentPeriodEnd: &end,
	})
	app := newListingTestApp(listings, billingRepo)

	req := httptest.NewRequest(fiber.MethodPost, "/listings/product/3/publish", nil)
	req.Header.Set("X-Auth-User-Id", "7")
	req.Header.Set("X-Auth-Role", models.ROLE_PROVIDER)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("entitled owner must publish, got %d", resp.StatusCode)
	}
	if listings.products[3].Status != models.ListingStatusPublished {
		t.Fatalf("expected the listing to be published")
	}
}

func TestHandlePublish_LapsedMerchantBlocked(t *testing.T) {
	listings := newFakeListingRepo()
	listings.products[3] = &models.Product{ID: 3, UserID: 7, Title: "Handmade chair", Status: models.ListingStatusDraft}
	app := newListingTestApp(listings, newFakeBillingRepo())

	req := httptest.NewRequest(fiber.MethodPost, "/listings/product/3/publish", nil)
	req.Header.Set("X-Auth-User-Id", "7")
	req.Header.Set("X-Auth-Role", models.ROLE_PROVIDER)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}
	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("lapsed merchant must get 403, got %d", resp.StatusCode)
	}
	if listings.setStatusCalls != 0 {
		t.Fatalf("blocked publish must not change listing status")
	}
	if listings.products[3].Status != models.ListingStatusDraft {
		t.Fatalf("listing must stay draft, got %q", listings.products[3].Status)
	}
}

func TestHandlePublish_InvalidParamsRenderJSON(t *testing.T) {
	app := newListingTestApp(newFakeListingRepo(), newFakeBillingRepo())

	req := httptest.NewRequest(fiber.MethodPost, "/listings/banana/3/publish", nil)
	req.Header.Set("X-Auth-User-Id", "7")
	req.Header.Set("X-Auth-Role", models.ROLE_PROVIDER)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("unknown listing kind must 400, got %d", resp.StatusCode)
	}

	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("parameter errors must render as JSON: %v", err)
	}
	if body.Error != "invalid_request" {
		t.Fatalf("expected invalid_request, got %q", body.Error)
	}
}
