package feature

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/hasib1010/Happylife-sub003/app/models"
	"gorm.io/gorm"
)

// SweepResult reports demotions partitioned by listing kind.
type SweepResult struct {
	ProductsDemoted int64 `json:"products_demoted"`
	ServicesDemoted int64 `json:"services_demoted"`
}

// Total returns the combined number of demoted listings.
func (r SweepResult) Total() int64 {
	return r.ProductsDemoted + r.ServicesDemoted
}

// Sweeper demotes listings whose feature grant lapsed. There is no
// subscription analogue: subscription expiry is always confirmed by a
// processor event, never declared locally, because grace periods and dunning
// are the processor's responsibility.
type Sweeper struct {
	repo Repository
}

// NewSweeper creates a sweeper from an injected repository.
func NewSweeper(repo Repository) *Sweeper {
	return &Sweeper{repo: repo}
}

// NewSweeperFromDB creates a sweeper from a GORM DB handle.
func NewSweeperFromDB(db *gorm.DB) *Sweeper {
	return NewSweeper(NewRepository(db))
}

// Sweep runs a single idempotent batch pass at now. Safe to invoke
// concurrently or in overlapping windows: the demotion predicate is
// re-evaluated at write time, so a racing grant is never clobbered, and a
// second run over the same state demotes nothing.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	_ = ctx
	var result SweepResult

	products, err := s.repo.SweepExpired(models.ListingKindProduct, now)
	if err != nil {
		return result, err
	}
	result.ProductsDemoted = products

	services, err := s.repo.SweepExpired(models.ListingKindService, now)
	if err != nil {
		return result, err
	}
	result.ServicesDemoted = services

	if result.Total() > 0 {
		log.Infof("[Sweep] Demoted %d expired feature grants (products=%d services=%d)",
			result.Total(), result.ProductsDemoted, result.ServicesDemoted)
	}
	return result, nil
}
