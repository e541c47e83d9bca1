package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/hasib1010/Happylife-sub003/internal/pkg/feature"
)

// SweepController exposes the operator trigger for the expiration sweep.
type SweepController struct {
	sweeper *feature.Sweeper
}

// NewSweepController wires the sweep endpoint.
func NewSweepController(sweeper *feature.Sweeper) *SweepController {
	return &SweepController{sweeper: sweeper}
}

// HandleSweep runs a single sweep pass and reports demotion counts. The
// sweep is idempotent, so an external scheduler hitting this alongside the
// in-process ticker is harmless.
func (ct *SweepController) HandleSweep(c *fiber.Ctx) error {
	ctx, cancel := requestContext()
	defer cancel()

	result, err := ct.sweeper.Sweep(ctx, time.Now())
	if err != nil {
		log.Errorf("[Sweep] Triggered sweep failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "sweep_failed", "sweep pass failed")
	}
	return c.Status(fiber.StatusOK).JSON(result)
}
