package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/FitLifeApp/FitLife/app/models"
	"github.com/FitLifeApp/FitLife/internal/pkg/cache"
	"github.com/stripe/stripe-go/v72"
	"gorm.io/gorm"
)

const statusCacheTTL = 60 * time.Second

// PlanView is the plan slice of the billing status read model.
type PlanView struct {
	Nickname string `json:"nickname"`
	Amount   int64  `json:"amount"`
	Interval string `json:"interval"`
}

// SubscriptionView is the normalized subscription state returned to callers.
type SubscriptionView struct {
	ID                 string   `json:"id"`
	Status             string   `json:"status"`
	CurrentPeriodStart int64    `json:"current_period_start"`
	CurrentPeriodEnd   int64    `json:"current_period_end"`
	TrialEnd           int64    `json:"trial_end,omitempty"`
	CancelAtPeriodEnd  bool     `json:"cancel_at_period_end"`
	Plan               PlanView `json:"plan"`
}

// UpcomingInvoiceView is the next invoice preview, when the processor has one.
type UpcomingInvoiceView struct {
	AmountDue   int64 `json:"amount_due"`
	PeriodStart int64 `json:"period_start"`
	PeriodEnd   int64 `json:"period_end"`
}

// StatusView is the complete billing status response. A member without a
// linked customer gets Subscription == nil; the view is never half-filled.
type StatusView struct {
	Subscription    *SubscriptionView    `json:"subscription"`
	UpcomingInvoice *UpcomingInvoiceView `json:"upcoming_invoice,omitempty"`
}

// Projector assembles the read-only billing status view from the payment
// processor, with a short-lived cache in front. The reconciler invalidates
// the cache whenever it applies an event for the same member.
type Projector struct {
	repo    Repository
	gateway Gateway
}

// NewProjector wires the projector to a repository and gateway.
func NewProjector(repo Repository, gateway Gateway) *Projector {
	return &Projector{repo: repo, gateway: gateway}
}

// Status returns the member's current subscription and next invoice.
func (p *Projector) Status(ctx context.Context, userID uint) (*StatusView, error) {
	if view, ok := p.cachedStatus(userID); ok {
		return view, nil
	}

	account, err := p.repo.GetAccountByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &StatusView{Subscription: nil}, nil
		}
		return nil, fmt.Errorf("load membership account: %w", err)
	}
	if account.StripeCustomerID == "" {
		return &StatusView{Subscription: nil}, nil
	}

	// Most recent subscription regardless of status, processor order.
	subs, err := p.gateway.ListSubscriptions(ctx, account.StripeCustomerID, "all", 1)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return &StatusView{Subscription: nil}, nil
	}

	view := &StatusView{Subscription: subscriptionView(subs[0])}

	// Best-effort: a missing upcoming invoice is not an error condition.
	if inv, err := p.gateway.UpcomingInvoice(ctx, account.StripeCustomerID); err == nil && inv != nil {
		view.UpcomingInvoice = &UpcomingInvoiceView{
			AmountDue:   inv.AmountDue,
			PeriodStart: inv.PeriodStart,
			PeriodEnd:   inv.PeriodEnd,
		}
	}

	p.cacheStatus(userID, view)
	return view, nil
}

// Payments returns the member's payment ledger, newest first.
func (p *Projector) Payments(ctx context.Context, userID uint) ([]models.PaymentLedgerEntry, error) {
	_ = ctx
	return p.repo.ListLedgerEntriesByUser(userID)
}

func subscriptionView(sub *stripe.Subscription) *SubscriptionView {
	view := &SubscriptionView{
		ID:                 sub.ID,
		Status:             NormalizeStatus(string(sub.Status)),
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		TrialEnd:           sub.TrialEnd,
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		price := sub.Items.Data[0].Price
		view.Plan.Nickname = price.Nickname
		view.Plan.Amount = price.UnitAmount
		if price.Recurring != nil {
			view.Plan.Interval = string(price.Recurring.Interval)
		}
	}
	return view
}

func (p *Projector) cachedStatus(userID uint) (*StatusView, bool) {
	raw, err := cache.Get(statusCacheKey(userID))
	if err != nil || raw == "" {
		return nil, false
	}
	var view StatusView
	if err := json.Unmarshal([]byte(raw), &view); err != nil {
		return nil, false
	}
	return &view, true
}

func (p *Projector) cacheStatus(userID uint, view *StatusView) {
	raw, err := json.Marshal(view)
	if err != nil {
		return
	}
	if err := cache.Set(statusCacheKey(userID), string(raw), statusCacheTTL); err != nil {
		log.Printf("billing status cache write for user %d failed: %v", userID, err)
	}
}

func statusCacheKey(userID uint) string {
	return fmt.Sprintf("billing:status:%d", userID)
}
