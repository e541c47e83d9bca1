package controllers

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/hasib1010/Happylife-sub003/app/models"
	"github.com/hasib1010/Happylife-sub003/app/repository"
	"github.com/hasib1010/Happylife-sub003/internal/pkg/billing"
	"github.com/hasib1010/Happylife-sub003/internal/pkg/cache"
	"github.com/hasib1010/Happylife-sub003/internal/pkg/entitlements"
	"github.com/hasib1010/Happylife-sub003/internal/pkg/env"
	"github.com/hasib1010/Happylife-sub003/internal/pkg/feature"
	"github.com/hasib1010/Happylife-sub003/internal/pkg/usercontext"
)

// reconcileThrottleTTL bounds how often the checkout-success redirect may
// trigger an opportunistic reconciliation per user.
const reconcileThrottleTTL = time.Minute

// BillingController exposes the subscription lifecycle over HTTP.
type BillingController struct {
	svc        *billing.Service
	featureSvc *feature.Service
	payments   repository.PaymentRepository
	cache      *cache.Client
}

// NewBillingController wires the billing endpoints.
func NewBillingController(svc *billing.Service, featureSvc *feature.Service, payments repository.PaymentRepository, cacheClient *cache.Client) *BillingController {
	return &BillingController{svc: svc, featureSvc: featureSvc, payments: payments, cache: cacheClient}
}

type subscribeRequest struct {
	PlanID string `json:"plan_id"`
}

// HandleSubscribe opens a hosted checkout for the requested plan.
func (ct *BillingController) HandleSubscribe(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req subscribeRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.PlanID) == "" {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "plan_id is required")
	}

	ctx, cancel := requestContext()
	defer cancel()

	session, err := ct.svc.InitiateSubscription(ctx, userCtx.UserID, req.PlanID)
	if err != nil {
		return ct.mapBillingError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(session)
}

type cancelRequest struct {
	Immediate bool `json:"immediate"`
}

// HandleCancel cancels immediately or at period end.
func (ct *BillingController) HandleCancel(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req cancelRequest
	_ = c.BodyParser(&req)

	ctx, cancel := requestContext()
	defer cancel()

	if err := ct.svc.RequestCancellation(ctx, userCtx.UserID, req.Immediate); err != nil {
		return ct.mapBillingError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "immediate": req.Immediate})
}

type autoRenewRequest struct {
	Enabled bool `json:"enabled"`
}

// HandleAutoRenew flips renewal intent for the current subscription.
func (ct *BillingController) HandleAutoRenew(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req autoRenewRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "enabled is required")
	}

	ctx, cancel := requestContext()
	defer cancel()

	if err := ct.svc.ToggleAutoRenew(ctx, userCtx.UserID, req.Enabled); err != nil {
		return ct.mapBillingError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "auto_renew": req.Enabled})
}

// HandleStatus returns the current entitlement record plus the capability set
// resolved from it. Capabilities are derived fresh on every call.
func (ct *BillingController) HandleStatus(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	ctx, cancel := requestContext()
	defer cancel()

	sub, err := ct.svc.GetCurrentRecord(ctx, userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "could not load subscription record")
	}

	now := time.Now()
	caps := entitlements.Resolve(userCtx.Role, sub, now)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":               sub.Status,
		"plan_id":              sub.PlanID,
		"current_period_end":   sub.CurrentPeriodEnd,
		"cancel_at_period_end": sub.CancelAtPeriodEnd,
		"entitled":             entitlements.IsEntitled(sub, now),
		"capabilities":         caps.List(),
	})
}

// HandleReconcile re-reads authoritative processor state for the caller.
func (ct *BillingController) HandleReconcile(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	ctx, cancel := requestContext()
	defer cancel()

	result, err := ct.svc.Reconcile(ctx, userCtx.UserID)
	if err != nil {
		return ct.mapBillingError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

// HandleListPayments returns the caller's payment ledger, newest first.
func (ct *BillingController) HandleListPayments(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	offset, limit := parsePagination(c)

	payments, err := ct.payments.ListByUserID(userCtx.UserID, offset, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "could not load payments")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"payments": payments})
}

// HandleCheckoutSuccess is the processor redirect target after a finished
// checkout. The webhook remains the authoritative settlement path; this
// handler only triggers an opportunistic, throttled reconciliation so the
// user sees fresh state right away even if the webhook is still in flight.
func (ct *BillingController) HandleCheckoutSuccess(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "login required")
	}

	ctx, cancel := requestContext()
	defer cancel()

	throttleKey := "billing:reconcile:" + strconv.FormatUint(uint64(userCtx.UserID), 10)
	acquired, err := ct.cache.SetNX(ctx, throttleKey, "1", reconcileThrottleTTL)
	if err != nil {
		log.Warnf("[Billing] Reconcile throttle check failed for user %d: %v", userCtx.UserID, err)
		acquired = true
	}
	if acquired {
		if _, err := ct.svc.Reconcile(ctx, userCtx.UserID); err != nil {
			log.Warnf("[Billing] Opportunistic reconcile failed for user %d: %v", userCtx.UserID, err)
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "session_id": c.Query("session_id")})
}

// HandleAdminMarkRefunded records a processor-side refund on the ledger.
// Refunds are issued in the processor dashboard; this endpoint mirrors the
// outcome locally. Only completed rows can move to refunded.
func (ct *BillingController) HandleAdminMarkRefunded(c *fiber.Ctx) error {
	ref := strings.TrimSpace(c.Params("ref"))
	if ref == "" {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "payment ref is required")
	}

	payment, err := ct.payments.GetByExternalRef(ref)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return jsonError(c, fiber.StatusNotFound, "not_found", "no payment with this ref")
	}
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "could not load payment")
	}
	if payment.Status != models.PaymentStatusCompleted {
		return jsonError(c, fiber.StatusConflict, "not_refundable", "only completed payments can be refunded")
	}

	if err := ct.payments.MarkRefunded(ref); err != nil {
		log.Errorf("[Billing] Refund mark failed for %s: %v", ref, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "could not record refund")
	}
	log.Infof("[Billing] Payment %s marked refunded", ref)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "status": models.PaymentStatusRefunded})
}

// HandleStripeWebhook ingests processor notifications. Dedup happens before
// dispatch so redelivered events short-circuit; signature failures are
// recorded and rejected. Stale subscription events are absorbed as success so
// the processor stops retrying them.
func (ct *BillingController) HandleStripeWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	secret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")
	signatureValid := billing.VerifyStripeWebhookSignature(rawBody, c.Get("Stripe-Signature"), secret, time.Now())

	parsed, parseErr := billing.ParseStripeWebhookEvent(rawBody)
	eventID := ""
	eventType := ""
	if parsed != nil {
		eventID = parsed.EventID
		eventType = parsed.Type
	}

	ctx, cancel := requestContext()
	defer cancel()

	created, stored, err := ct.svc.RecordWebhookEvent(ctx, billing.WebhookEventInput{
		Provider:        billing.ProviderStripe,
		ProviderEventID: eventID,
		EventType:       eventType,
		PayloadJSON:     string(rawBody),
		SignatureValid:  signatureValid,
	})
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "webhook_persist_failed", "could not persist webhook event")
	}
	if !created {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	}
	if !signatureValid {
		_ = ct.svc.MarkWebhookProcessed(ctx, stored.ID, errors.New("invalid webhook signature"))
		return jsonError(c, fiber.StatusUnauthorized, "invalid_signature", "webhook signature verification failed")
	}
	if parseErr != nil {
		_ = ct.svc.MarkWebhookProcessed(ctx, stored.ID, parseErr)
		return jsonError(c, fiber.StatusBadRequest, "invalid_payload", "could not parse webhook payload")
	}

	var dispatchErr error
	switch {
	case parsed.Subscription != nil:
		dispatchErr = ct.svc.ApplyProcessorEvent(ctx, *parsed.Subscription)
		if errors.Is(dispatchErr, billing.ErrStaleEvent) {
			dispatchErr = nil
		}
	case parsed.Checkout != nil && parsed.Type == "checkout.session.completed":
		dispatchErr = ct.handleCheckoutCompleted(c, parsed.Checkout)
	case parsed.Checkout != nil:
		// checkout.session.expired / async_payment_failed: the purchase never
		// happened, release the pending ledger row.
		dispatchErr = ct.svc.FailCheckoutPayment(ctx, parsed.Checkout.SessionRef)
	default:
		// Recorded but not engine-relevant.
	}

	_ = ct.svc.MarkWebhookProcessed(ctx, stored.ID, dispatchErr)
	if dispatchErr != nil {
		return jsonError(c, fiber.StatusInternalServerError, "webhook_dispatch_failed", "could not apply webhook event")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}

// handleCheckoutCompleted settles the pending ledger row for the session.
// Subscription checkouts settle through the billing ledger and kick a
// reconciliation for the referenced user so the subscription ref attaches
// without waiting for the customer.subscription.* event; everything else is
// a feature purchase and goes through the grant path.
func (ct *BillingController) handleCheckoutCompleted(c *fiber.Ctx, checkout *billing.StripeCheckoutSession) error {
	ctx, cancel := requestContext()
	defer cancel()

	if checkout.PaymentStatus != "" && checkout.PaymentStatus != "paid" && checkout.PaymentStatus != "no_payment_required" {
		log.Infof("[Billing] Ignoring unfinished checkout %s (payment_status=%s)", checkout.SessionRef, checkout.PaymentStatus)
		return nil
	}

	if checkout.Mode != "subscription" {
		return ct.featureSvc.ConfirmGrant(ctx, checkout.SessionRef)
	}

	if _, _, err := ct.svc.CompleteCheckoutPayment(ctx, checkout.SessionRef); err != nil {
		return err
	}

	userID, err := strconv.ParseUint(checkout.ClientReferenceID, 10, 64)
	if err != nil || userID == 0 {
		log.Warnf("[Billing] Checkout %s carries unparseable client reference %q", checkout.SessionRef, checkout.ClientReferenceID)
		return nil
	}
	if _, err := ct.svc.Reconcile(ctx, uint(userID)); err != nil {
		log.Warnf("[Billing] Post-checkout reconcile failed for user %d: %v", userID, err)
	}
	return nil
}

func (ct *BillingController) mapBillingError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, billing.ErrRoleNotEligible):
		return jsonError(c, fiber.StatusForbidden, "role_not_eligible", "this role cannot hold a subscription")
	case errors.Is(err, billing.ErrRecordNotFound):
		return jsonError(c, fiber.StatusNotFound, "not_found", "no subscription on file")
	case errors.Is(err, billing.ErrAlreadyCanceled):
		return jsonError(c, fiber.StatusConflict, "already_canceled", "subscription is already canceled")
	case errors.Is(err, billing.ErrProcessorUnavailable):
		return jsonError(c, fiber.StatusServiceUnavailable, "processor_unavailable", "payment processor is unreachable, try again later")
	default:
		log.Errorf("[Billing] Unexpected error: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "unexpected billing error")
	}
}
