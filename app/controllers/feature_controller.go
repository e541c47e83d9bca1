package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/hasib1010/Happylife-sub003/internal/pkg/billing"
	"github.com/hasib1010/Happylife-sub003/internal/pkg/entitlements"
	"github.com/hasib1010/Happylife-sub003/internal/pkg/feature"
	"github.com/hasib1010/Happylife-sub003/internal/pkg/usercontext"
)

// FeatureController exposes feature grant purchase and the admin override.
type FeatureController struct {
	svc        *feature.Service
	billingSvc *billing.Service
}

// NewFeatureController wires the feature endpoints.
func NewFeatureController(svc *feature.Service, billingSvc *billing.Service) *FeatureController {
	return &FeatureController{svc: svc, billingSvc: billingSvc}
}

type featureCheckoutRequest struct {
	DurationDays int `json:"duration_days"`
}

// HandleFeatureCheckout opens a one-time checkout to feature a listing. The
// self-service path is capability-gated: merchants without an entitled
// subscription cannot buy boosts, admins and regular roles can.
func (ct *FeatureController) HandleFeatureCheckout(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	kind, err := parseListingKind(c)
	if err != nil {
		return err
	}
	listingID, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	var req featureCheckoutRequest
	if err := c.BodyParser(&req); err != nil || req.DurationDays <= 0 {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "duration_days is required")
	}

	ctx, cancel := requestContext()
	defer cancel()

	sub, err := ct.billingSvc.GetCurrentRecord(ctx, userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "could not load subscription record")
	}
	caps := entitlements.Resolve(userCtx.Role, sub, time.Now())
	if !caps.Has(entitlements.CapabilityFeatureListingSelfService) {
		return jsonError(c, fiber.StatusForbidden, "not_entitled", "an active subscription is required to feature listings")
	}

	session, err := ct.svc.InitiateCheckout(ctx, userCtx.UserID, kind, listingID, req.DurationDays)
	if err != nil {
		return ct.mapFeatureError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(session)
}

type forceFeatureRequest struct {
	Featured   bool       `json:"featured"`
	Expiration *time.Time `json:"expiration"`
}

// HandleAdminForceFeature sets feature state directly, bypassing payment.
func (ct *FeatureController) HandleAdminForceFeature(c *fiber.Ctx) error {
	kind, err := parseListingKind(c)
	if err != nil {
		return err
	}
	listingID, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	var req forceFeatureRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "featured and expiration are required")
	}

	ctx, cancel := requestContext()
	defer cancel()

	if err := ct.svc.ForceSetFeature(ctx, kind, listingID, req.Featured, req.Expiration); err != nil {
		return ct.mapFeatureError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}

func (ct *FeatureController) mapFeatureError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, feature.ErrAlreadyFeatured):
		return jsonError(c, fiber.StatusConflict, "already_featured", "listing already has an active feature grant")
	case errors.Is(err, feature.ErrNotOwner):
		return jsonError(c, fiber.StatusForbidden, "not_owner", "only the listing owner can feature it")
	case errors.Is(err, feature.ErrRecordNotFound):
		return jsonError(c, fiber.StatusNotFound, "not_found", "listing not found")
	case errors.Is(err, billing.ErrProcessorUnavailable):
		return jsonError(c, fiber.StatusServiceUnavailable, "processor_unavailable", "payment processor is unreachable, try again later")
	default:
		log.Errorf("[Feature] Unexpected error: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "unexpected feature error")
	}
}
