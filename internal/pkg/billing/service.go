package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/hasib1010/Happylife-sub003/app/models"
	"gorm.io/gorm"
)

// Service owns all transitions of the per-account entitlement record. The
// local record is never the source of truth for status: status only changes
// through processor events (ApplyProcessorEvent, Reconcile); user commands
// record intent and talk to the processor first.
type Service struct {
	repo      Repository
	processor Processor
}

// NewService creates a billing service from injected dependencies.
func NewService(repo Repository, processor Processor) *Service {
	return &Service{repo: repo, processor: processor}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, processor Processor) *Service {
	return NewService(NewRepository(db), processor)
}

// GetCurrentRecord returns the user's current entitlement record. Accounts
// that never subscribed get a synthesized status=none record so gating
// callers always have something to resolve against.
func (s *Service) GetCurrentRecord(ctx context.Context, userID uint) (*models.Subscription, error) {
	_ = ctx
	sub, err := s.repo.GetCurrentSubscription(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.Subscription{UserID: userID, Status: models.SubscriptionStatusNone}, nil
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// InitiateSubscription creates or reuses the processor customer, opens a
// hosted checkout for the plan and returns the redirect handle. The pending
// ledger row is written only after the processor confirmed a checkout handle,
// so a timed-out adapter call leaves no partial local state.
func (s *Service) InitiateSubscription(ctx context.Context, userID uint, planID string) (*CheckoutSession, error) {
	if userID == 0 || strings.TrimSpace(planID) == "" {
		return nil, errors.New("user_id and plan_id are required")
	}

	user, err := s.repo.GetUserByID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	if !user.IsMerchant() {
		return nil, ErrRoleNotEligible
	}

	sub, err := s.repo.GetCurrentSubscription(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		sub = &models.Subscription{UserID: userID, Status: models.SubscriptionStatusNone}
		if err := s.repo.CreateSubscription(sub); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	// Customer ref is created lazily on first subscribe, then immutable.
	if sub.StripeCustomerID == "" {
		customerRef, err := s.processor.CreateCustomer(ctx, user)
		if err != nil {
			return nil, err
		}
		sub.StripeCustomerID = customerRef
		if err := s.repo.SaveSubscription(sub); err != nil {
			return nil, err
		}
	}

	session, err := s.processor.CreateSubscriptionCheckout(ctx, userID, sub.StripeCustomerID, planID)
	if err != nil {
		return nil, err
	}

	meta, _ := json.Marshal(map[string]string{"plan_id": planID})
	payment := &models.Payment{
		UserID:             userID,
		Kind:               models.PaymentKindSubscription,
		Status:             models.PaymentStatusPending,
		ExternalPaymentRef: session.SessionRef,
		MetadataJSON:       string(meta),
	}
	if err := s.repo.CreatePayment(payment); err != nil {
		return nil, err
	}

	sub.PlanID = planID
	if err := s.repo.SaveSubscription(sub); err != nil {
		return nil, err
	}

	return session, nil
}

// ApplyProcessorEvent is the idempotent upsert through which all status
// transitions flow. Unknown subscription refs are logged and dropped: the
// account may not have been linked locally yet, which reconciliation repairs
// later. Events older than the stored state return ErrStaleEvent.
func (s *Service) ApplyProcessorEvent(ctx context.Context, ev ProcessorEvent) error {
	_ = ctx
	if strings.TrimSpace(ev.SubscriptionRef) == "" || strings.TrimSpace(ev.Status) == "" {
		return errors.New("subscription ref and status are required")
	}

	if _, err := s.repo.GetSubscriptionByProviderRef(ev.SubscriptionRef); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnf("[Billing] Dropping event for unknown subscription ref %s (status=%s)", ev.SubscriptionRef, ev.Status)
			return nil
		}
		return err
	}

	applied, err := s.repo.ApplySubscriptionEvent(ev)
	if err != nil {
		return err
	}
	if !applied {
		log.Infof("[Billing] Rejected stale event for subscription ref %s (status=%s)", ev.SubscriptionRef, ev.Status)
		return ErrStaleEvent
	}
	return nil
}

// RequestCancellation cancels now or at period end. Immediate cancellation
// is the one user command that eagerly writes status: the processor call has
// already succeeded and a deleted subscription may never emit another event.
// At-period-end cancellation only records intent; status stays untouched
// until the processor confirms the period actually lapsed.
func (s *Service) RequestCancellation(ctx context.Context, userID uint, immediate bool) error {
	sub, err := s.repo.GetCurrentSubscription(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrRecordNotFound
	}
	if err != nil {
		return err
	}
	ref := sub.SubscriptionRef()
	if ref == "" {
		return ErrRecordNotFound
	}
	if sub.Status == models.SubscriptionStatusCanceled {
		return ErrAlreadyCanceled
	}

	if err := s.processor.CancelSubscription(ctx, ref, !immediate); err != nil {
		return err
	}

	if immediate {
		return s.repo.MarkSubscriptionCanceled(sub.ID, time.Now())
	}
	return s.repo.SetCancelAtPeriodEnd(sub.ID, true)
}

// ToggleAutoRenew flips renewal intent. Forbidden once canceled.
func (s *Service) ToggleAutoRenew(ctx context.Context, userID uint, enabled bool) error {
	sub, err := s.repo.GetCurrentSubscription(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrRecordNotFound
	}
	if err != nil {
		return err
	}
	ref := sub.SubscriptionRef()
	if ref == "" {
		return ErrRecordNotFound
	}
	if sub.Status == models.SubscriptionStatusCanceled {
		return ErrAlreadyCanceled
	}

	if err := s.processor.SetAutoRenew(ctx, ref, enabled); err != nil {
		return err
	}
	return s.repo.SetCancelAtPeriodEnd(sub.ID, !enabled)
}

// CompleteCheckoutPayment settles a pending ledger row for a finished
// checkout session. Replays report applied=false with the stored row.
func (s *Service) CompleteCheckoutPayment(ctx context.Context, sessionRef string) (bool, *models.Payment, error) {
	_ = ctx
	if strings.TrimSpace(sessionRef) == "" {
		return false, nil, errors.New("session ref is required")
	}
	applied, payment, err := s.repo.CompletePaymentIfPending(sessionRef)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warnf("[Billing] Completed checkout %s has no local ledger row", sessionRef)
		return false, nil, nil
	}
	return applied, payment, err
}

// FailCheckoutPayment releases the pending ledger row for a checkout session
// the processor reported as expired or failed. Sessions with no local row and
// rows already settled are absorbed silently: the ledger transition is
// conditional, so out-of-order delivery against a completed row is a no-op.
func (s *Service) FailCheckoutPayment(ctx context.Context, sessionRef string) error {
	_ = ctx
	if strings.TrimSpace(sessionRef) == "" {
		return errors.New("session ref is required")
	}
	applied, err := s.repo.FailPaymentIfPending(sessionRef)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warnf("[Billing] Failed checkout %s has no local ledger row", sessionRef)
		return nil
	}
	if err != nil {
		return err
	}
	if !applied {
		log.Infof("[Billing] Checkout %s already settled, ignoring failure notification", sessionRef)
	}
	return nil
}

// RecordWebhookEvent persists webhook payloads idempotently.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.WebhookEvent, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.WebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}
