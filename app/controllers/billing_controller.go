package controllers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/FitLifeApp/FitLife/internal/pkg/billing"
	"github.com/FitLifeApp/FitLife/internal/pkg/constants"
	"github.com/FitLifeApp/FitLife/internal/pkg/database"
	"github.com/FitLifeApp/FitLife/internal/pkg/env"
	"github.com/FitLifeApp/FitLife/internal/pkg/jobqueue"
	"github.com/FitLifeApp/FitLife/internal/pkg/usercontext"
)

const webhookTimeout = 15 * time.Second

// billingGateway is the payment provider client used by the billing
// handlers. It is swapped for a fake in tests.
var billingGateway billing.Gateway

// InitializeBillingController wires the payment gateway used by the
// billing endpoints. Must be called before the routes are served.
func InitializeBillingController(gateway billing.Gateway) {
	billingGateway = gateway
}

func getBillingGateway() billing.Gateway {
	if billingGateway == nil {
		billingGateway = billing.NewStripeGateway(env.GetEnv("STRIPE_SECRET_KEY", ""))
	}
	return billingGateway
}

type checkoutRequest struct {
	PlanType string `json:"plan_type"`
	Trial    bool   `json:"trial"`
}

type billingActionRequest struct {
	Action string `json:"action"`
}

// HandleStripeWebhook receives provider events. The signature is checked
// against the raw body before anything is persisted; an event that fails
// verification leaves no trace. Verified events are stored once, keyed by
// the provider event id, so redeliveries are acknowledged without being
// applied a second time.
func HandleStripeWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := c.Get("Stripe-Signature")
	secret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")

	event, err := billing.VerifyWebhookEvent(rawBody, signature, secret)
	if err != nil {
		log.Printf("[Billing] webhook signature verification failed: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_signature", "message": "Webhook signature verification failed"})
	}

	ctx, cancel := context.WithTimeout(c.Context(), webhookTimeout)
	defer cancel()

	rec := billing.NewReconcilerFromDB(database.GetDB()).WithNotifier(jobqueue.NotifyByEmail)

	created, stored, err := rec.RecordWebhookEvent(ctx, event, rawBody)
	if err != nil {
		log.Printf("[Billing] failed to record webhook event %s: %v", event.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Could not record event"})
	}
	if !created && stored.ProcessedAt != nil && stored.ProcessingError == "" {
		// Redelivery of an event that already went through cleanly.
		return c.JSON(fiber.Map{"received": true, "duplicate": true})
	}

	dispatcher := billing.NewDispatcher(rec)
	handled, err := dispatcher.Dispatch(ctx, event)
	if markErr := rec.MarkWebhookProcessed(ctx, stored.ID, err); markErr != nil {
		log.Printf("[Billing] failed to mark webhook event %s: %v", event.ID, markErr)
	}
	if err != nil {
		if errors.Is(err, billing.ErrMalformedPayload) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload", "message": "Event payload could not be parsed"})
		}
		log.Printf("[Billing] processing webhook event %s (%s) failed: %v", event.ID, event.Type, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Event processing failed"})
	}
	if !handled {
		// Unrecognized event types are acknowledged so the sender stops retrying.
		return c.JSON(fiber.Map{"received": true, "ignored": true})
	}

	return c.JSON(fiber.Map{"received": true})
}

// HandleCreateCheckoutSession starts a hosted checkout for the chosen plan.
func HandleCreateCheckoutSession(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}

	domain := env.GetEnv("PUBLIC_DOMAIN", "http://localhost:3000")
	successURL := fmt.Sprintf("%s%s?session_id={CHECKOUT_SESSION_ID}", domain, constants.DashboardPath)
	cancelURL := fmt.Sprintf("%s%s?cancelled=true", domain, constants.JoinPath)

	orch := billing.NewOrchestrator(billing.NewRepository(database.GetDB()), getBillingGateway())
	sessionID, err := orch.StartCheckout(c.Context(), userCtx.UserID, req.PlanType, req.Trial, successURL, cancelURL)
	if err != nil {
		if errors.Is(err, billing.ErrUnknownPlan) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown_plan", "message": "Unknown plan type"})
		}
		log.Printf("[Billing] checkout session for user %d failed: %v", userCtx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Could not start checkout"})
	}

	return c.JSON(fiber.Map{"session_id": sessionID})
}

// HandleListPlans returns the public plan catalog, cheapest tier first.
func HandleListPlans(c *fiber.Ctx) error {
	plans := billing.Plans()
	out := make([]fiber.Map, 0, len(plans))
	for _, p := range plans {
		out = append(out, fiber.Map{
			"plan_type":   p.Type,
			"name":        p.Name,
			"description": p.Description,
			"amount":      p.Amount,
			"interval":    p.Interval,
		})
	}
	return c.JSON(fiber.Map{"plans": out})
}

// HandleBillingStatus returns the current membership billing projection.
func HandleBillingStatus(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	projector := billing.NewProjector(billing.NewRepository(database.GetDB()), getBillingGateway())
	view, err := projector.Status(c.Context(), userCtx.UserID)
	if err != nil {
		log.Printf("[Billing] status projection for user %d failed: %v", userCtx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Could not load billing status"})
	}

	return c.JSON(view)
}

// HandleBillingAction runs a subscription management action for the
// authenticated member: cancel, reactivate or portal.
func HandleBillingAction(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req billingActionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}

	orch := billing.NewOrchestrator(billing.NewRepository(database.GetDB()), getBillingGateway())

	var (
		result fiber.Map
		err    error
	)
	switch req.Action {
	case billing.ActionCancel:
		err = orch.Cancel(c.Context(), userCtx.UserID)
		result = fiber.Map{"success": true}
	case billing.ActionReactivate:
		err = orch.Reactivate(c.Context(), userCtx.UserID)
		result = fiber.Map{"success": true}
	case billing.ActionPortal:
		domain := env.GetEnv("PUBLIC_DOMAIN", "http://localhost:3000")
		var url string
		url, err = orch.PortalURL(c.Context(), userCtx.UserID, domain+constants.BillingDashboardPath)
		result = fiber.Map{"url": url}
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Unknown action"})
	}

	if err != nil {
		if errors.Is(err, billing.ErrNoLinkedCustomer) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "No billing customer linked to this account"})
		}
		log.Printf("[Billing] action %q for user %d failed: %v", req.Action, userCtx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Billing action failed"})
	}

	return c.JSON(result)
}

// HandleBillingPayments returns the member's payment history, newest first.
func HandleBillingPayments(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	projector := billing.NewProjector(billing.NewRepository(database.GetDB()), getBillingGateway())
	entries, err := projector.Payments(c.Context(), userCtx.UserID)
	if err != nil {
		log.Printf("[Billing] payment history for user %d failed: %v", userCtx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Could not load payments"})
	}

	return c.JSON(fiber.Map{"payments": entries})
}
