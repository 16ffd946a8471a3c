package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/FitLifeApp/FitLife/app/models"
	"gorm.io/gorm"
)

// Billing actions a member can trigger against their own subscription.
const (
	ActionCancel     = "cancel"
	ActionReactivate = "reactivate"
	ActionPortal     = "portal"
)

// Orchestrator executes member-initiated billing actions against the payment
// processor. It never mutates the local projection; the processor's webhook
// events close the loop through the reconciler.
type Orchestrator struct {
	repo    Repository
	gateway Gateway
}

// NewOrchestrator wires the orchestrator to a repository and gateway.
func NewOrchestrator(repo Repository, gateway Gateway) *Orchestrator {
	return &Orchestrator{repo: repo, gateway: gateway}
}

// StartCheckout opens a hosted checkout session for the given member and
// plan and returns the session id.
func (o *Orchestrator) StartCheckout(ctx context.Context, userID uint, planType string, trial bool, successURL, cancelURL string) (string, error) {
	plan, ok := PlanByType(planType)
	if !ok {
		return "", ErrUnknownPlan
	}

	user, err := o.repo.GetUserByID(userID)
	if err != nil {
		return "", fmt.Errorf("load user: %w", err)
	}

	sess, err := o.gateway.CreateCheckoutSession(ctx, CheckoutSessionInput{
		UserUUID:   user.UUID,
		PlanType:   plan.Type,
		Trial:      trial,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
	})
	if err != nil {
		return "", err
	}
	return sess.ID, nil
}

// Cancel flags the member's active subscription to end at the period close.
// Repeating the action is a no-op on the processor side.
func (o *Orchestrator) Cancel(ctx context.Context, userID uint) error {
	return o.setCancelFlag(ctx, userID, true)
}

// Reactivate removes a pending cancel-at-period-end flag.
func (o *Orchestrator) Reactivate(ctx context.Context, userID uint) error {
	return o.setCancelFlag(ctx, userID, false)
}

// PortalURL creates a time-limited Stripe billing-portal session and returns
// its URL.
func (o *Orchestrator) PortalURL(ctx context.Context, userID uint, returnURL string) (string, error) {
	customerID, err := o.linkedCustomerID(userID)
	if err != nil {
		return "", err
	}
	sess, err := o.gateway.CreatePortalSession(ctx, customerID, returnURL)
	if err != nil {
		return "", fmt.Errorf("create portal session: %w", err)
	}
	return sess.URL, nil
}

func (o *Orchestrator) setCancelFlag(ctx context.Context, userID uint, cancel bool) error {
	customerID, err := o.linkedCustomerID(userID)
	if err != nil {
		return err
	}

	// Processor-returned order, limit one: each customer is assumed to hold
	// at most one concurrent subscription.
	subs, err := o.gateway.ListSubscriptions(ctx, customerID, models.MEMBERSHIP_ACTIVE, 1)
	if err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return nil
	}

	if _, err := o.gateway.SetSubscriptionCancelAtPeriodEnd(ctx, subs[0].ID, cancel); err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	return nil
}

func (o *Orchestrator) linkedCustomerID(userID uint) (string, error) {
	account, err := o.repo.GetAccountByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNoLinkedCustomer
		}
		return "", fmt.Errorf("load membership account: %w", err)
	}
	if account.StripeCustomerID == "" {
		return "", ErrNoLinkedCustomer
	}
	return account.StripeCustomerID, nil
}
