package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/hasib1010/Happylife-sub003/app/controllers"
	"github.com/hasib1010/Happylife-sub003/app/repository"
	"github.com/hasib1010/Happylife-sub003/internal/pkg/billing"
	"github.com/hasib1010/Happylife-sub003/internal/pkg/cache"
	"github.com/hasib1010/Happylife-sub003/internal/pkg/database"
	"github.com/hasib1010/Happylife-sub003/internal/pkg/env"
	"github.com/hasib1010/Happylife-sub003/internal/pkg/feature"
	"github.com/hasib1010/Happylife-sub003/internal/pkg/jobs"
	"github.com/hasib1010/Happylife-sub003/internal/pkg/router"
)

func main() {
	env.SetupEnvFile()

	db, err := database.Connect()
	if err != nil {
		log.Fatalf("[App] Database connection failed: %v", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Errorf("[App] Database close failed: %v", err)
		}
	}()

	cacheClient := cache.New()
	defer func() {
		if err := cacheClient.Close(); err != nil {
			log.Errorf("[App] Cache close failed: %v", err)
		}
	}()

	// Stripe is the only processor adapter today; everything downstream only
	// sees the Processor interface.
	processor := billing.NewStripeClientFromEnv()

	repos := repository.NewRepositories(db)
	billingSvc := billing.NewServiceFromDB(db, processor)
	featureSvc := feature.NewServiceFromDB(db, processor, featurePriceCentsPerDay(), env.GetEnv("FEATURE_CURRENCY", "usd"))
	sweeper := feature.NewSweeperFromDB(db)

	manager := jobs.NewManager(sweeper)
	manager.Start()
	defer manager.Stop()

	app := fiber.New(fiber.Config{
		AppName:      "happylife-entitlements",
		ErrorHandler: controllers.ErrorHandler,
	})
	app.Use(recover.New(), logger.New())

	router.InstallRouter(app, router.Controllers{
		Billing: controllers.NewBillingController(billingSvc, featureSvc, repos.Payment, cacheClient),
		Feature: controllers.NewFeatureController(featureSvc, billingSvc),
		Listing: controllers.NewListingController(repos.Listing, billingSvc),
		Account: controllers.NewAccountController(repos.User),
		Sweep:   controllers.NewSweepController(sweeper),
	})

	// Graceful shutdown: stop accepting connections, then let the deferred
	// closers run.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("[App] Shutdown signal received")
		if err := app.Shutdown(); err != nil {
			log.Errorf("[App] Shutdown failed: %v", err)
		}
	}()

	addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000"))
	if err := app.Listen(addr); err != nil {
		log.Errorf("[App] Server stopped: %v", err)
	}
}

func featurePriceCentsPerDay() int64 {
	cents := env.GetEnvInt64("FEATURE_PRICE_CENTS_PER_DAY", 100)
	if cents <= 0 {
		return 100
	}
	return cents
}
