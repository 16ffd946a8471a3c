package main

import (
	"fmt"
	"log"
	"os"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/FitLifeApp/FitLife/app/controllers"
	"github.com/FitLifeApp/FitLife/app/repository"
	"github.com/FitLifeApp/FitLife/internal/pkg/billing"
	"github.com/FitLifeApp/FitLife/internal/pkg/cache"
	"github.com/FitLifeApp/FitLife/internal/pkg/database"
	"github.com/FitLifeApp/FitLife/internal/pkg/env"
	"github.com/FitLifeApp/FitLife/internal/pkg/jobqueue"
	"github.com/FitLifeApp/FitLife/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	repository.InitializeFactory(database.GetDB())
	controllers.InitializeBillingController(billing.NewStripeGateway(env.GetEnv("STRIPE_SECRET_KEY", "")))

	// background delivery of member mails
	jobqueue.GetManager().Start()

	// Find the correct base path
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/fitlife to project root
		"../../../", // Fallback
	}
	basePath := ""
	for _, path := range basePaths {
		if _, err := os.Stat(path + "public"); !os.IsNotExist(err) {
			basePath = path
			break
		}
	}
	if basePath == "" {
		panic("Could not find project root directory")
	}

	app := fiber.New(fiber.Config{
		AppName: "FitLife",
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", monitor.New())

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app)

	return app
}
