package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/FitLifeApp/FitLife/app/controllers"
	"github.com/FitLifeApp/FitLife/internal/pkg/constants"
)

type WebhookRouter struct {
}

// InstallRouter registers the payment provider callback outside the API
// group: no bearer auth and no rate limiter, the raw body signature is
// the only gate.
func (h WebhookRouter) InstallRouter(app *fiber.App) {
	app.Post(constants.StripeWebhookRoute, controllers.HandleStripeWebhook)
}

func NewWebhookRouter() *WebhookRouter {
	return &WebhookRouter{}
}
