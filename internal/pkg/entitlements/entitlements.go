package entitlements

import (
	"time"

	"github.com/hasib1010/Happylife-sub003/app/models"
)

// Capability is a single gated action.
type Capability string

const (
	CapabilityPublishListing            Capability = "publish_listing"
	CapabilityCreateContent             Capability = "create_content"
	CapabilityFeatureListingSelfService Capability = "feature_listing_self_service"
)

// CapabilitySet is the set of gated actions an account may perform right now.
type CapabilitySet map[Capability]struct{}

// Has reports whether the capability is in the set.
func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// IsEmpty reports whether no gated action is allowed.
func (s CapabilitySet) IsEmpty() bool {
	return len(s) == 0
}

// List returns the capabilities as strings for JSON responses.
func (s CapabilitySet) List() []string {
	out := make([]string, 0, len(s))
	for _, c := range []Capability{CapabilityPublishListing, CapabilityCreateContent, CapabilityFeatureListingSelfService} {
		if s.Has(c) {
			out = append(out, string(c))
		}
	}
	return out
}

func fullSet() CapabilitySet {
	return CapabilitySet{
		CapabilityPublishListing:            {},
		CapabilityCreateContent:             {},
		CapabilityFeatureListingSelfService: {},
	}
}

// IsEntitled reports whether the subscription record grants entitlement at
// now. It re-derives from status and period end on every call; cached
// booleans are never trusted because status can be stale by up to one
// reconciliation interval.
func IsEntitled(sub *models.Subscription, now time.Time) bool {
	if sub == nil {
		return false
	}
	if sub.Status != models.SubscriptionStatusActive && sub.Status != models.SubscriptionStatusTrialing {
		return false
	}
	return sub.CurrentPeriodEnd != nil && sub.CurrentPeriodEnd.After(now)
}

// Resolve maps (role, subscription record, now) to the allowed capability
// set. Pure and deterministic: the only clock it sees is the passed now.
//
// Roles outside {provider, seller} get the full set unconditionally; merchant
// roles get the full set if entitled and the empty set otherwise. Gating
// callers must treat an empty set as a hard failure, not a warning.
func Resolve(role string, sub *models.Subscription, now time.Time) CapabilitySet {
	if role != models.ROLE_PROVIDER && role != models.ROLE_SELLER {
		return fullSet()
	}
	if IsEntitled(sub, now) {
		return fullSet()
	}
	return CapabilitySet{}
}
