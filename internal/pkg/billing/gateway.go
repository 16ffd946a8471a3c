package billing

import (
	"context"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
)

// CheckoutSessionInput carries everything needed to open a hosted checkout
// for one member and plan.
type CheckoutSessionInput struct {
	UserUUID   string
	PlanType   string
	Trial      bool
	SuccessURL string
	CancelURL  string
}

// Gateway is the payment-processor surface the billing subsystem depends on.
// The production implementation talks to Stripe; tests substitute a fake.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (*stripe.CheckoutSession, error)
	ListSubscriptions(ctx context.Context, customerID, status string, limit int64) ([]*stripe.Subscription, error)
	SetSubscriptionCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) (*stripe.Subscription, error)
	UpcomingInvoice(ctx context.Context, customerID string) (*stripe.Invoice, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (*stripe.BillingPortalSession, error)
}

type stripeGateway struct {
	api *client.API
}

// NewStripeGateway creates a Gateway backed by the Stripe API.
func NewStripeGateway(secretKey string) Gateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &stripeGateway{api: api}
}

func (g *stripeGateway) CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (*stripe.CheckoutSession, error) {
	plan, ok := PlanByType(in.PlanType)
	if !ok {
		return nil, ErrUnknownPlan
	}

	metadata := map[string]string{
		"userId":   in.UserUUID,
		"planType": plan.Type,
		"trial":    boolString(in.Trial),
	}

	subscriptionData := &stripe.CheckoutSessionSubscriptionDataParams{
		Metadata: metadata,
	}
	if in.Trial {
		subscriptionData.TrialPeriodDays = stripe.Int64(trialPeriodDays)
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String("usd"),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String("FitLife " + plan.Name + " Membership"),
						Description: stripe.String(plan.Description),
					},
					UnitAmount: stripe.Int64(plan.Amount),
					Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
						Interval: stripe.String(plan.Interval),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		AllowPromotionCodes: stripe.Bool(true),
		SubscriptionData:    subscriptionData,
		SuccessURL:          stripe.String(in.SuccessURL),
		CancelURL:           stripe.String(in.CancelURL),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	return g.api.CheckoutSessions.New(params)
}

func (g *stripeGateway) ListSubscriptions(ctx context.Context, customerID, status string, limit int64) ([]*stripe.Subscription, error) {
	params := &stripe.SubscriptionListParams{
		Customer: customerID,
		Status:   status,
	}
	params.Context = ctx
	params.Limit = stripe.Int64(limit)

	var subs []*stripe.Subscription
	iter := g.api.Subscriptions.List(params)
	for iter.Next() {
		subs = append(subs, iter.Subscription())
		if int64(len(subs)) >= limit {
			break
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return subs, nil
}

func (g *stripeGateway) SetSubscriptionCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(cancel),
	}
	params.Context = ctx
	return g.api.Subscriptions.Update(subscriptionID, params)
}

func (g *stripeGateway) UpcomingInvoice(ctx context.Context, customerID string) (*stripe.Invoice, error) {
	params := &stripe.InvoiceParams{
		Customer: stripe.String(customerID),
	}
	params.Context = ctx
	return g.api.Invoices.GetNext(params)
}

func (g *stripeGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (*stripe.BillingPortalSession, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx
	return g.api.BillingPortalSessions.New(params)
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
