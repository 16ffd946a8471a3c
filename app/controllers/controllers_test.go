package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v72"
	"gorm.io/gorm"

	"github.com/FitLifeApp/FitLife/app/repository"
	"github.com/FitLifeApp/FitLife/internal/pkg/billing"
	"github.com/FitLifeApp/FitLife/internal/pkg/database"
	"github.com/FitLifeApp/FitLife/internal/pkg/middleware"
	"github.com/FitLifeApp/FitLife/internal/testutil"
)

const testWebhookSecret = "whsec_controller_test"

// stubGateway stands in for the Stripe client behind the billing handlers.
type stubGateway struct {
	sessionID string
	subs      []*stripe.Subscription
	portalURL string
	err       error
}

func (g *stubGateway) CreateCheckoutSession(ctx context.Context, in billing.CheckoutSessionInput) (*stripe.CheckoutSession, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &stripe.CheckoutSession{ID: g.sessionID}, nil
}

func (g *stubGateway) ListSubscriptions(ctx context.Context, customerID, status string, limit int64) ([]*stripe.Subscription, error) {
	return g.subs, g.err
}

func (g *stubGateway) SetSubscriptionCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) (*stripe.Subscription, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &stripe.Subscription{ID: subscriptionID, CancelAtPeriodEnd: cancel}, nil
}

func (g *stubGateway) UpcomingInvoice(ctx context.Context, customerID string) (*stripe.Invoice, error) {
	return nil, errors.New("no upcoming invoice")
}

func (g *stubGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (*stripe.BillingPortalSession, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &stripe.BillingPortalSession{URL: g.portalURL}, nil
}

var (
	setupOnce   sync.Once
	testApp     *fiber.App
	testGateway *stubGateway
)

// setupTestApp builds one shared fiber app over an in-memory database with
// the same route layout the router installs in production.
func setupTestApp(t *testing.T) (*fiber.App, *gorm.DB, *stubGateway) {
	t.Helper()

	setupOnce.Do(func() {
		os.Setenv("STRIPE_WEBHOOK_SECRET", testWebhookSecret)
		os.Setenv("JWT_SECRET", "controller-test-secret")

		database.DB = testutil.SetupTestDB(t)
		repository.InitializeFactory(database.DB)

		testGateway = &stubGateway{sessionID: "cs_stub_1", portalURL: "https://billing.stripe.com/p/stub"}
		InitializeBillingController(testGateway)

		app := fiber.New()
		app.Post("/webhooks/stripe", HandleStripeWebhook)

		v1 := app.Group("/api/v1")
		v1.Post("/auth/register", HandleRegister)
		v1.Post("/auth/login", HandleLogin)
		v1.Get("/billing/plans", HandleListPlans)

		protected := v1.Group("/", middleware.BearerAuthMiddleware())
		protected.Get("/user/me", HandleGetMe)
		bill := protected.Group("/billing")
		bill.Post("/checkout", HandleCreateCheckoutSession)
		bill.Get("/", HandleBillingStatus)
		bill.Post("/", HandleBillingAction)
		bill.Get("/payments", HandleBillingPayments)

		testApp = app
	})

	return testApp, database.DB, testGateway
}

func jsonRequest(t *testing.T, method, target string, body interface{}, headers map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

// registerAndLogin creates a member through the API and returns its bearer token.
func registerAndLogin(t *testing.T, app *fiber.App, email string) string {
	t.Helper()

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"name":     "Test Member",
		"email":    email,
		"password": "sup3r-secret",
	}, nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = app.Test(jsonRequest(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    email,
		"password": "sup3r-secret",
	}, nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}
