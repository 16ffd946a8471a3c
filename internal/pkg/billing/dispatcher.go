package billing

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/FitLifeApp/FitLife/app/models"
	"github.com/stripe/stripe-go/v72"
)

// Stripe event types acted on by this service. Anything else is acknowledged
// and ignored so the sender stops redelivering it.
const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventSubscriptionCreated      = "customer.subscription.created"
	EventSubscriptionUpdated      = "customer.subscription.updated"
	EventSubscriptionDeleted      = "customer.subscription.deleted"
	EventInvoicePaymentSucceeded  = "invoice.payment_succeeded"
	EventInvoicePaymentFailed     = "invoice.payment_failed"
)

// EventHandler processes one verified event.
type EventHandler func(ctx context.Context, ev stripe.Event) error

// Dispatcher routes a verified event to its handler by type tag. The registry
// is fixed at construction; exactly one handler runs per event.
type Dispatcher struct {
	handlers map[string]EventHandler
}

// NewDispatcher builds the handler registry around a reconciler.
func NewDispatcher(rec *Reconciler) *Dispatcher {
	return &Dispatcher{handlers: map[string]EventHandler{
		EventCheckoutSessionCompleted: func(ctx context.Context, ev stripe.Event) error {
			var sess stripe.CheckoutSession
			if err := json.Unmarshal(ev.Data.Raw, &sess); err != nil {
				return fmt.Errorf("%w: checkout session: %v", ErrMalformedPayload, err)
			}
			return rec.ApplyCheckoutCompleted(ctx, &sess)
		},
		EventSubscriptionCreated: func(ctx context.Context, ev stripe.Event) error {
			return applySubscriptionEvent(ctx, rec, ev)
		},
		EventSubscriptionUpdated: func(ctx context.Context, ev stripe.Event) error {
			return applySubscriptionEvent(ctx, rec, ev)
		},
		EventSubscriptionDeleted: func(ctx context.Context, ev stripe.Event) error {
			var sub stripe.Subscription
			if err := json.Unmarshal(ev.Data.Raw, &sub); err != nil {
				return fmt.Errorf("%w: subscription: %v", ErrMalformedPayload, err)
			}
			return rec.ApplySubscriptionDeleted(ctx, &sub)
		},
		EventInvoicePaymentSucceeded: func(ctx context.Context, ev stripe.Event) error {
			return applyInvoiceEvent(ctx, rec, ev, models.PaymentOutcomeSucceeded)
		},
		EventInvoicePaymentFailed: func(ctx context.Context, ev stripe.Event) error {
			return applyInvoiceEvent(ctx, rec, ev, models.PaymentOutcomeFailed)
		},
	}}
}

// Dispatch runs the handler registered for the event type. It reports
// handled=false for unregistered types, which callers acknowledge as success.
func (d *Dispatcher) Dispatch(ctx context.Context, ev stripe.Event) (handled bool, err error) {
	h, ok := d.handlers[ev.Type]
	if !ok {
		return false, nil
	}
	return true, h(ctx, ev)
}

// HandlesType reports whether the registry covers the given event type.
func (d *Dispatcher) HandlesType(eventType string) bool {
	_, ok := d.handlers[eventType]
	return ok
}

func applySubscriptionEvent(ctx context.Context, rec *Reconciler, ev stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(ev.Data.Raw, &sub); err != nil {
		return fmt.Errorf("%w: subscription: %v", ErrMalformedPayload, err)
	}
	return rec.ApplySubscriptionSnapshot(ctx, &sub)
}

func applyInvoiceEvent(ctx context.Context, rec *Reconciler, ev stripe.Event, outcome string) error {
	var inv stripe.Invoice
	if err := json.Unmarshal(ev.Data.Raw, &inv); err != nil {
		return fmt.Errorf("%w: invoice: %v", ErrMalformedPayload, err)
	}
	return rec.ApplyInvoiceOutcome(ctx, &inv, outcome)
}
