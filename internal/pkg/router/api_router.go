package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/FitLifeApp/FitLife/app/controllers"
	"github.com/FitLifeApp/FitLife/internal/pkg/constants"
	"github.com/FitLifeApp/FitLife/internal/pkg/middleware"
	"github.com/FitLifeApp/FitLife/internal/pkg/ratelimit"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group(constants.APIRoute, ratelimit.NewAPILimiter(120, 1*time.Minute))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "FitLife API",
		})
	})

	v1 := api.Group(constants.APIV1Route)

	// public endpoints
	auth := v1.Group("/auth")
	auth.Post("/register", controllers.HandleRegister)
	auth.Post("/login", controllers.HandleLogin)
	v1.Get("/billing/plans", controllers.HandleListPlans)

	// authenticated endpoints
	protected := v1.Group("/", middleware.BearerAuthMiddleware())
	protected.Get("/user/me", controllers.HandleGetMe)

	billing := protected.Group("/billing")
	billing.Post("/checkout", controllers.HandleCreateCheckoutSession)
	billing.Get("/", controllers.HandleBillingStatus)
	billing.Post("/", controllers.HandleBillingAction)
	billing.Get("/payments", controllers.HandleBillingPayments)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
