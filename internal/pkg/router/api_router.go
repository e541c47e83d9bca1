package router

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	redisstorage "github.com/gofiber/storage/redis"

	"github.com/hasib1010/Happylife-sub003/internal/pkg/env"
	"github.com/hasib1010/Happylife-sub003/internal/pkg/middleware"
)

// ApiRouter owns the authenticated JSON API.
type ApiRouter struct {
	ctrls Controllers
}

func NewApiRouter(ctrls Controllers) *ApiRouter {
	return &ApiRouter{ctrls: ctrls}
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Storage:    newLimiterStorage(),
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")

	// Public browse endpoints.
	v1.Get("/products", h.ctrls.Listing.HandleListProducts)
	v1.Get("/services", h.ctrls.Listing.HandleListServices)

	// Subscription lifecycle.
	billing := v1.Group("/billing", middleware.RequireAuth)
	billing.Post("/subscribe", h.ctrls.Billing.HandleSubscribe)
	billing.Post("/cancel", h.ctrls.Billing.HandleCancel)
	billing.Post("/auto-renew", h.ctrls.Billing.HandleAutoRenew)
	billing.Get("/status", h.ctrls.Billing.HandleStatus)
	billing.Post("/reconcile", h.ctrls.Billing.HandleReconcile)
	billing.Get("/payments", h.ctrls.Billing.HandleListPayments)

	// Listings and feature grants.
	v1.Post("/products", middleware.RequireAuth, h.ctrls.Listing.HandleCreateProduct)
	v1.Post("/services", middleware.RequireAuth, h.ctrls.Listing.HandleCreateService)
	v1.Post("/listings/:kind/:id/publish", middleware.RequireAuth, h.ctrls.Listing.HandlePublish)
	v1.Post("/listings/:kind/:id/feature", middleware.RequireAuth, h.ctrls.Feature.HandleFeatureCheckout)

	// Admin overrides.
	admin := v1.Group("/admin", middleware.RequireAdmin)
	admin.Post("/listings/:kind/:id/feature", h.ctrls.Feature.HandleAdminForceFeature)
	admin.Post("/payments/:ref/refund", h.ctrls.Billing.HandleAdminMarkRefunded)
}

// newLimiterStorage backs the rate limiter with Redis so limits hold across
// replicas. Database 1 keeps limiter keys apart from the cache on DB 0.
func newLimiterStorage() *redisstorage.Storage {
	host := env.GetEnv("CACHE_HOST", "localhost")
	port := 6379
	if p, err := strconv.Atoi(env.GetEnv("CACHE_PORT", "6379")); err == nil {
		port = p
	}
	return redisstorage.New(redisstorage.Config{
		Host:     host,
		Port:     port,
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		Database: 1,
		Reset:    false,
	})
}
