package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hasib1010/Happylife-sub003/app/controllers"
)

// Router is anything able to register its routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// Controllers carries the wired HTTP controllers for route registration.
type Controllers struct {
	Billing *controllers.BillingController
	Feature *controllers.FeatureController
	Listing *controllers.ListingController
	Account *controllers.AccountController
	Sweep   *controllers.SweepController
}

// InstallRouter registers all routes. HttpRouter goes first so the global
// UserContext middleware is in place before the API routes that depend on it.
func InstallRouter(app *fiber.App, ctrls Controllers) {
	setup(app, NewHttpRouter(ctrls), NewApiRouter(ctrls))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
