package billing

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v72"
)

// fakeGateway records calls and serves canned responses so the orchestrator
// and projector can be tested without the Stripe API.
type fakeGateway struct {
	checkoutSession *stripe.CheckoutSession
	checkoutInputs  []CheckoutSessionInput

	subs        []*stripe.Subscription
	listStatus  []string
	cancelCalls map[string]bool

	upcoming  *stripe.Invoice
	portalURL string

	err error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{cancelCalls: map[string]bool{}}
}

func (g *fakeGateway) CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (*stripe.CheckoutSession, error) {
	g.checkoutInputs = append(g.checkoutInputs, in)
	if g.err != nil {
		return nil, g.err
	}
	if g.checkoutSession != nil {
		return g.checkoutSession, nil
	}
	return &stripe.CheckoutSession{ID: "cs_test_fake"}, nil
}

func (g *fakeGateway) ListSubscriptions(ctx context.Context, customerID, status string, limit int64) ([]*stripe.Subscription, error) {
	g.listStatus = append(g.listStatus, status)
	if g.err != nil {
		return nil, g.err
	}
	if int64(len(g.subs)) > limit {
		return g.subs[:limit], nil
	}
	return g.subs, nil
}

func (g *fakeGateway) SetSubscriptionCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) (*stripe.Subscription, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.cancelCalls[subscriptionID] = cancel
	return &stripe.Subscription{ID: subscriptionID, CancelAtPeriodEnd: cancel}, nil
}

func (g *fakeGateway) UpcomingInvoice(ctx context.Context, customerID string) (*stripe.Invoice, error) {
	if g.upcoming == nil {
		return nil, errors.New("no upcoming invoice")
	}
	return g.upcoming, nil
}

func (g *fakeGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (*stripe.BillingPortalSession, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &stripe.BillingPortalSession{URL: g.portalURL, ReturnURL: returnURL}, nil
}
