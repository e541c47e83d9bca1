package controllers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/hasib1010/Happylife-sub003/app/models"
	"github.com/hasib1010/Happylife-sub003/app/repository"
	"github.com/hasib1010/Happylife-sub003/internal/pkg/billing"
	"github.com/hasib1010/Happylife-sub003/internal/pkg/entitlements"
	"github.com/hasib1010/Happylife-sub003/internal/pkg/usercontext"
)

// ListingController exposes listing creation and the entitlement-gated
// publish action. Browsing published listings is public; featured listings
// sort first.
type ListingController struct {
	listings   repository.ListingRepository
	billingSvc *billing.Service
}

// NewListingController wires the listing endpoints.
func NewListingController(listings repository.ListingRepository, billingSvc *billing.Service) *ListingController {
	return &ListingController{listings: listings, billingSvc: billingSvc}
}

type createProductRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents"`
	Currency    string `json:"currency"`
}

// HandleCreateProduct creates a draft product. Drafts require the
// create_content capability; publishing is a separate gated step.
func (ct *ListingController) HandleCreateProduct(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req createProductRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "could not parse request body")
	}

	if err := ct.requireCapability(userCtx, entitlements.CapabilityCreateContent); err != nil {
		return err
	}

	product := &models.Product{
		UserID:      userCtx.UserID,
		Title:       req.Title,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Currency:    normalizeCurrency(req.Currency),
		Status:      models.ListingStatusDraft,
	}
	if err := product.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}
	if err := ct.listings.CreateProduct(product); err != nil {
		log.Errorf("[Listing] Product create failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "could not create product")
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

type createServiceRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	HourlyCents int64  `json:"hourly_cents"`
	Currency    string `json:"currency"`
}

// HandleCreateService creates a draft service listing.
func (ct *ListingController) HandleCreateService(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req createServiceRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "could not parse request body")
	}

	if err := ct.requireCapability(userCtx, entitlements.CapabilityCreateContent); err != nil {
		return err
	}

	service := &models.ServiceListing{
		UserID:      userCtx.UserID,
		Title:       req.Title,
		Description: req.Description,
		HourlyCents: req.HourlyCents,
		Currency:    normalizeCurrency(req.Currency),
		Status:      models.ListingStatusDraft,
	}
	if err := service.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}
	if err := ct.listings.CreateService(service); err != nil {
		log.Errorf("[Listing] Service create failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "could not create service")
	}
	return c.Status(fiber.StatusCreated).JSON(service)
}

// HandlePublish publishes a draft listing. Entitlement is resolved at the
// moment of the call; a lapsed subscription blocks publishing even when the
// listing was created while entitled.
func (ct *ListingController) HandlePublish(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	kind, err := parseListingKind(c)
	if err != nil {
		return err
	}
	listingID, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	listing, err := ct.listings.GetFeaturable(kind, listingID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return jsonError(c, fiber.StatusNotFound, "not_found", "listing not found")
	}
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "could not load listing")
	}
	if listing.OwnerID() != userCtx.UserID && !userCtx.IsAdmin() {
		return jsonError(c, fiber.StatusForbidden, "not_owner", "only the listing owner can publish it")
	}

	if err := ct.requireCapability(userCtx, entitlements.CapabilityPublishListing); err != nil {
		return err
	}

	if err := ct.listings.SetStatus(kind, listingID, models.ListingStatusPublished); err != nil {
		log.Errorf("[Listing] Publish failed for %s/%d: %v", kind, listingID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "could not publish listing")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "status": models.ListingStatusPublished})
}

// HandleListProducts returns published products, featured first.
func (ct *ListingController) HandleListProducts(c *fiber.Ctx) error {
	offset, limit := parsePagination(c)
	products, err := ct.listings.ListPublishedProducts(offset, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "could not load products")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"products": products})
}

// HandleListServices returns published service listings, featured first.
func (ct *ListingController) HandleListServices(c *fiber.Ctx) error {
	offset, limit := parsePagination(c)
	services, err := ct.listings.ListPublishedServices(offset, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "could not load services")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"services": services})
}

// requireCapability resolves the caller's capability set fresh from the
// current entitlement record. The returned error is non-nil whenever the
// gated action must not proceed; the app error handler renders it.
func (ct *ListingController) requireCapability(userCtx usercontext.UserContext, capability entitlements.Capability) error {
	ctx, cancel := requestContext()
	defer cancel()

	sub, err := ct.billingSvc.GetCurrentRecord(ctx, userCtx.UserID)
	if err != nil {
		return fmt.Errorf("loading subscription record: %w", err)
	}
	caps := entitlements.Resolve(userCtx.Role, sub, time.Now())
	if !caps.Has(capability) {
		return fiber.NewError(fiber.StatusForbidden, "an active subscription is required for this action")
	}
	return nil
}

func normalizeCurrency(currency string) string {
	if currency == "" {
		return "usd"
	}
	return currency
}
