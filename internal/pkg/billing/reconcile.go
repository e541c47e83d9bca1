package billing

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/hasib1010/Happylife-sub003/app/models"
	"gorm.io/gorm"
)

// Reconcile re-reads the authoritative processor state for the account and
// corrects local drift. It is never required for correctness of the gating
// path, which always re-derives from whatever is stored; reconciliation only
// shortens the staleness window.
func (s *Service) Reconcile(ctx context.Context, userID uint) (*ReconcileResult, error) {
	if userID == 0 {
		return nil, errors.New("user_id is required")
	}

	sub, err := s.repo.GetCurrentSubscription(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &ReconcileResult{
			Corrected:      false,
			PreviousStatus: models.SubscriptionStatusNone,
			CurrentStatus:  models.SubscriptionStatusNone,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	previous := sub.Status
	ref := sub.SubscriptionRef()
	if ref == "" {
		ref = sub.StripeCustomerID
	}
	if ref == "" {
		return &ReconcileResult{Corrected: false, PreviousStatus: previous, CurrentStatus: previous}, nil
	}

	authoritative, err := s.processor.FetchSubscription(ctx, ref)
	if err != nil {
		return nil, err
	}

	if authoritative == nil {
		// The processor has no subscription at all. A vanished subscription
		// cannot generate a cancellation event, so this is the one place the
		// engine declares state without one.
		if sub.Status == models.SubscriptionStatusActive || sub.Status == models.SubscriptionStatusTrialing {
			if err := s.repo.ClearSubscriptionState(sub.ID); err != nil {
				return nil, err
			}
			log.Warnf("[Billing] Drift repaired for user %d: local status %s but no authoritative subscription", userID, previous)
			return &ReconcileResult{
				Corrected:      true,
				PreviousStatus: previous,
				CurrentStatus:  models.SubscriptionStatusNone,
			}, nil
		}
		return &ReconcileResult{Corrected: false, PreviousStatus: previous, CurrentStatus: previous}, nil
	}

	// A terminal local record with a different authoritative subscription
	// means the user re-subscribed: start a new record lineage instead of
	// resurrecting the old one.
	if sub.IsTerminal() && sub.SubscriptionRef() != authoritative.SubscriptionRef {
		fresh := &models.Subscription{
			UserID:               userID,
			PlanID:               authoritative.PlanRef,
			StripeCustomerID:     sub.StripeCustomerID,
			StripeSubscriptionID: &authoritative.SubscriptionRef,
			Status:               authoritative.Status,
			CurrentPeriodStart:   authoritative.CurrentPeriodStart,
			CurrentPeriodEnd:     authoritative.CurrentPeriodEnd,
			CancelAtPeriodEnd:    authoritative.CancelAtPeriodEnd,
		}
		if err := s.repo.CreateSubscription(fresh); err != nil {
			return nil, err
		}
		return &ReconcileResult{Corrected: true, PreviousStatus: previous, CurrentStatus: fresh.Status}, nil
	}

	if !s.differs(sub, authoritative) {
		return &ReconcileResult{Corrected: false, PreviousStatus: previous, CurrentStatus: previous}, nil
	}

	// Overwrite local fields exactly as ApplyProcessorEvent would, plus
	// attach the subscription ref when checkout finished before the
	// corresponding webhook was ever delivered.
	sub.StripeSubscriptionID = &authoritative.SubscriptionRef
	sub.Status = authoritative.Status
	sub.CurrentPeriodStart = authoritative.CurrentPeriodStart
	sub.CurrentPeriodEnd = authoritative.CurrentPeriodEnd
	sub.CancelAtPeriodEnd = authoritative.CancelAtPeriodEnd
	if authoritative.PlanRef != "" {
		sub.PlanID = authoritative.PlanRef
	}
	if sub.Status == models.SubscriptionStatusCanceled && sub.CanceledAt == nil {
		now := time.Now()
		sub.CanceledAt = &now
	}
	if err := s.repo.SaveSubscription(sub); err != nil {
		return nil, err
	}

	log.Infof("[Billing] Reconciled user %d: %s -> %s", userID, previous, sub.Status)
	return &ReconcileResult{Corrected: true, PreviousStatus: previous, CurrentStatus: sub.Status}, nil
}

func (s *Service) differs(sub *models.Subscription, authoritative *ProcessorEvent) bool {
	if sub.SubscriptionRef() != authoritative.SubscriptionRef {
		return true
	}
	if sub.Status != authoritative.Status {
		return true
	}
	if sub.CancelAtPeriodEnd != authoritative.CancelAtPeriodEnd {
		return true
	}
	return !equalTimePtr(sub.CurrentPeriodEnd, authoritative.CurrentPeriodEnd)
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
