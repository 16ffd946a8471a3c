package billing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/FitLifeApp/FitLife/app/models"
	"github.com/FitLifeApp/FitLife/internal/pkg/cache"
	"github.com/stripe/stripe-go/v72"
	"gorm.io/gorm"
)

// Notifier delivers best-effort member notifications (payment failures).
// Errors are logged, never propagated into webhook handling.
type Notifier func(to, subject, body string) error

// Reconciler merges processor-supplied event snapshots into the local
// membership projection and payment ledger. Every apply method is idempotent:
// replaying the same event converges to the same state as applying it once.
//
// Snapshots are trusted as ground truth and overwrite the projection
// wholesale. There is no logical-clock guard, so an out-of-order delivery of
// an older snapshot rolls the projection back until the next event arrives.
type Reconciler struct {
	repo   Repository
	notify Notifier
}

// NewReconciler creates a reconciler from an injected repository.
func NewReconciler(repo Repository) *Reconciler {
	return &Reconciler{repo: repo}
}

// NewReconcilerFromDB creates a reconciler from a GORM DB handle.
func NewReconcilerFromDB(db *gorm.DB) *Reconciler {
	return NewReconciler(NewRepository(db))
}

// WithNotifier attaches a payment-failure notifier.
func (r *Reconciler) WithNotifier(n Notifier) *Reconciler {
	r.notify = n
	return r
}

// ApplyCheckoutCompleted links the member named in the session metadata to
// the Stripe customer and subscription created by the checkout.
func (r *Reconciler) ApplyCheckoutCompleted(ctx context.Context, sess *stripe.CheckoutSession) error {
	_ = ctx
	if sess.Mode != stripe.CheckoutSessionModeSubscription {
		return nil
	}

	userUUID := sess.Metadata["userId"]
	if userUUID == "" || sess.Customer == nil || sess.Customer.ID == "" {
		log.Printf("checkout session %s missing user metadata or customer, dropping", sess.ID)
		return nil
	}

	user, err := r.repo.GetUserByUUID(userUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("checkout session %s references unknown user %s, dropping", sess.ID, userUUID)
			return nil
		}
		return fmt.Errorf("resolve checkout user: %w", err)
	}

	// A Stripe customer maps to exactly one member. If this customer is
	// already linked elsewhere the event is dropped rather than relinked.
	if existing, err := r.repo.GetAccountByCustomerID(sess.Customer.ID); err == nil {
		if existing.UserID != user.ID {
			log.Printf("customer %s already linked to user %d, dropping checkout for user %d",
				sess.Customer.ID, existing.UserID, user.ID)
			return nil
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("check customer linkage: %w", err)
	}

	account, err := r.repo.GetOrCreateAccount(user.ID)
	if err != nil {
		return fmt.Errorf("load membership account: %w", err)
	}

	account.StripeCustomerID = sess.Customer.ID
	if sess.Subscription != nil {
		account.SubscriptionID = sess.Subscription.ID
	}
	if planType := sess.Metadata["planType"]; planType != "" {
		account.PlanType = planType
	}
	account.Trial = sess.Metadata["trial"] == "true"
	if account.Status == models.MEMBERSHIP_NONE || account.Status == "" {
		if account.Trial {
			account.Status = models.MEMBERSHIP_TRIALING
		} else {
			account.Status = models.MEMBERSHIP_ACTIVE
		}
	}

	if err := r.repo.SaveAccount(account); err != nil {
		return fmt.Errorf("save membership account: %w", err)
	}
	r.invalidateStatus(account.UserID)
	return nil
}

// ApplySubscriptionSnapshot overwrites the projection with the subscription
// state embedded in a created/updated event. The account is located by the
// Stripe customer id; events for unknown customers are dropped.
func (r *Reconciler) ApplySubscriptionSnapshot(ctx context.Context, sub *stripe.Subscription) error {
	_ = ctx
	if sub.Customer == nil || sub.Customer.ID == "" {
		return fmt.Errorf("%w: subscription %s has no customer", ErrMalformedPayload, sub.ID)
	}

	account, err := r.repo.GetAccountByCustomerID(sub.Customer.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("subscription event for unknown customer %s, dropping", sub.Customer.ID)
			return nil
		}
		return fmt.Errorf("lookup account by customer: %w", err)
	}

	account.SubscriptionID = sub.ID
	account.Status = NormalizeStatus(string(sub.Status))
	account.CurrentPeriodStart = unixTimePtr(sub.CurrentPeriodStart)
	account.CurrentPeriodEnd = unixTimePtr(sub.CurrentPeriodEnd)
	account.TrialEnd = unixTimePtr(sub.TrialEnd)
	account.CancelAtPeriodEnd = sub.CancelAtPeriodEnd

	if err := r.repo.SaveAccount(account); err != nil {
		return fmt.Errorf("save membership account: %w", err)
	}
	r.invalidateStatus(account.UserID)
	return nil
}

// ApplySubscriptionDeleted forces the projection to cancelled and clears the
// subscription linkage. The customer linkage itself is kept.
func (r *Reconciler) ApplySubscriptionDeleted(ctx context.Context, sub *stripe.Subscription) error {
	_ = ctx
	if sub.Customer == nil || sub.Customer.ID == "" {
		return fmt.Errorf("%w: subscription %s has no customer", ErrMalformedPayload, sub.ID)
	}

	account, err := r.repo.GetAccountByCustomerID(sub.Customer.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("subscription delete for unknown customer %s, dropping", sub.Customer.ID)
			return nil
		}
		return fmt.Errorf("lookup account by customer: %w", err)
	}

	account.Status = models.MEMBERSHIP_CANCELLED
	account.SubscriptionID = ""
	account.CancelAtPeriodEnd = false

	if err := r.repo.SaveAccount(account); err != nil {
		return fmt.Errorf("save membership account: %w", err)
	}
	r.invalidateStatus(account.UserID)
	return nil
}

// ApplyInvoiceOutcome appends one ledger entry for an invoice payment
// outcome. The (invoice id, outcome) pair is the dedup key: a redelivered
// invoice event inserts nothing.
func (r *Reconciler) ApplyInvoiceOutcome(ctx context.Context, inv *stripe.Invoice, outcome string) error {
	_ = ctx
	if inv.Customer == nil || inv.Customer.ID == "" {
		return fmt.Errorf("%w: invoice %s has no customer", ErrMalformedPayload, inv.ID)
	}
	if outcome == models.PaymentOutcomeSucceeded && inv.Subscription == nil {
		// One-off invoices are not membership payments.
		return nil
	}

	account, err := r.repo.GetAccountByCustomerID(inv.Customer.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("invoice event for unknown customer %s, dropping", inv.Customer.ID)
			return nil
		}
		return fmt.Errorf("lookup account by customer: %w", err)
	}

	entry := &models.PaymentLedgerEntry{
		UserID:      account.UserID,
		InvoiceID:   inv.ID,
		Currency:    string(inv.Currency),
		Outcome:     outcome,
		PeriodStart: unixTimePtr(inv.PeriodStart),
		PeriodEnd:   unixTimePtr(inv.PeriodEnd),
	}

	now := time.Now()
	switch outcome {
	case models.PaymentOutcomeSucceeded:
		entry.Amount = inv.AmountPaid
		if inv.StatusTransitions.PaidAt > 0 {
			entry.OccurredAt = unixTimePtr(inv.StatusTransitions.PaidAt)
		} else {
			entry.OccurredAt = &now
		}
	case models.PaymentOutcomeFailed:
		entry.Amount = inv.AmountDue
		entry.OccurredAt = &now
	default:
		return fmt.Errorf("unsupported invoice outcome %q", outcome)
	}

	created, err := r.repo.CreateLedgerEntryIfNotExists(entry)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}

	if created && outcome == models.PaymentOutcomeFailed {
		r.notifyPaymentFailed(account.UserID, entry.Amount, entry.Currency)
	}
	return nil
}

// RecordWebhookEvent persists a verified delivery idempotently. The returned
// flag is false when the event id was seen before.
func (r *Reconciler) RecordWebhookEvent(ctx context.Context, ev stripe.Event, rawPayload []byte) (bool, *models.BillingWebhookEvent, error) {
	_ = ctx
	event := &models.BillingWebhookEvent{
		StripeEventID: ev.ID,
		EventType:     ev.Type,
		PayloadJSON:   string(rawPayload),
	}
	return r.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks a stored delivery as handled, with the handler
// error if any.
func (r *Reconciler) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return r.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}

func (r *Reconciler) notifyPaymentFailed(userID uint, amount int64, currency string) {
	if r.notify == nil {
		return
	}
	user, err := r.repo.GetUserByID(userID)
	if err != nil {
		log.Printf("payment-failed notification: cannot load user %d: %v", userID, err)
		return
	}
	subject := "FitLife: your membership payment failed"
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>we could not collect your membership payment of %.2f %s. "+
			"Please update your payment method in the billing portal.</p>",
		user.Name, float64(amount)/100, currency)
	if err := r.notify(user.Email, subject, body); err != nil {
		log.Printf("payment-failed notification to %s failed: %v", user.Email, err)
	}
}

func (r *Reconciler) invalidateStatus(userID uint) {
	if err := cache.Delete(statusCacheKey(userID)); err != nil {
		log.Printf("billing status cache invalidation for user %d failed: %v", userID, err)
	}
}

func unixTimePtr(ts int64) *time.Time {
	if ts <= 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}
