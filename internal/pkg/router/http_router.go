package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hasib1010/Happylife-sub003/internal/pkg/constants"
	"github.com/hasib1010/Happylife-sub003/internal/pkg/middleware"
)

// HttpRouter owns the non-API surface: health, webhook ingestion, checkout
// redirect targets and the operator endpoints.
type HttpRouter struct {
	ctrls Controllers
}

func NewHttpRouter(ctrls Controllers) *HttpRouter {
	return &HttpRouter{ctrls: ctrls}
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	app.Get(constants.HealthRoute, func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
	})

	// Processor callbacks. The webhook authenticates by signature, not by
	// user identity; the success redirect carries the user's own session.
	app.Post(constants.StripeWebhookRoute, h.ctrls.Billing.HandleStripeWebhook)
	app.Get(constants.CheckoutSuccessRoute, h.ctrls.Billing.HandleCheckoutSuccess)

	// Operator endpoints behind the shared internal token.
	app.Post(constants.InternalSweepRoute, middleware.InternalTokenMiddleware(), h.ctrls.Sweep.HandleSweep)
	app.Post(constants.InternalAccountsRoute, middleware.InternalTokenMiddleware(), h.ctrls.Account.HandleUpsertAccount)
	app.Get(constants.InternalAccountsRoute+"/:id", middleware.InternalTokenMiddleware(), h.ctrls.Account.HandleGetAccount)
}
