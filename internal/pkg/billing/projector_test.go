package billing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v72"

	"github.com/FitLifeApp/FitLife/app/models"
	"github.com/FitLifeApp/FitLife/internal/pkg/cache"
	"github.com/FitLifeApp/FitLife/internal/testutil"
)

// dropCachedStatus clears any view a previous subtest may have cached for
// the same user id.
func dropCachedStatus(userID uint) {
	_ = cache.Delete(statusCacheKey(userID))
}

func TestProjectorStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("member without account gets a nil subscription", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.CleanupTestDB(t, db)
		user := testutil.CreateTestUser(t, db, "fresh@example.com")

		dropCachedStatus(user.ID)
		p := NewProjector(NewRepository(db), newFakeGateway())
		view, err := p.Status(ctx, user.ID)
		require.NoError(t, err)
		assert.Nil(t, view.Subscription)
		assert.Nil(t, view.UpcomingInvoice)
	})

	t.Run("member without linked customer gets a nil subscription", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.CleanupTestDB(t, db)
		user := testutil.CreateTestUser(t, db, "unlinked@example.com")
		repo := NewRepository(db)
		_, err := repo.GetOrCreateAccount(user.ID)
		require.NoError(t, err)

		dropCachedStatus(user.ID)
		p := NewProjector(repo, newFakeGateway())
		view, err := p.Status(ctx, user.ID)
		require.NoError(t, err)
		assert.Nil(t, view.Subscription)
	})

	t.Run("subscription state is normalized into the view", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.CleanupTestDB(t, db)
		user := testutil.CreateTestUser(t, db, "status@example.com")
		repo := NewRepository(db)
		linkAccount(t, repo, user.ID, "cus_1")

		start := time.Now().Unix()
		end := time.Now().AddDate(0, 1, 0).Unix()
		gw := newFakeGateway()
		gw.subs = []*stripe.Subscription{{
			ID:                 "sub_1",
			Status:             stripe.SubscriptionStatusCanceled,
			CurrentPeriodStart: start,
			CurrentPeriodEnd:   end,
			CancelAtPeriodEnd:  true,
			Items: &stripe.SubscriptionItemList{
				Data: []*stripe.SubscriptionItem{{
					Price: &stripe.Price{
						Nickname:   "Standard",
						UnitAmount: 4900,
						Recurring:  &stripe.PriceRecurring{Interval: stripe.PriceRecurringIntervalMonth},
					},
				}},
			},
		}}
		gw.upcoming = &stripe.Invoice{AmountDue: 4900, PeriodStart: end, PeriodEnd: end}

		dropCachedStatus(user.ID)
		p := NewProjector(repo, gw)
		view, err := p.Status(ctx, user.ID)
		require.NoError(t, err)

		require.NotNil(t, view.Subscription)
		assert.Equal(t, "sub_1", view.Subscription.ID)
		assert.Equal(t, models.MEMBERSHIP_CANCELLED, view.Subscription.Status)
		assert.Equal(t, start, view.Subscription.CurrentPeriodStart)
		assert.Equal(t, end, view.Subscription.CurrentPeriodEnd)
		assert.True(t, view.Subscription.CancelAtPeriodEnd)
		assert.Equal(t, "Standard", view.Subscription.Plan.Nickname)
		assert.Equal(t, int64(4900), view.Subscription.Plan.Amount)
		assert.Equal(t, "month", view.Subscription.Plan.Interval)

		require.NotNil(t, view.UpcomingInvoice)
		assert.Equal(t, int64(4900), view.UpcomingInvoice.AmountDue)
	})

	t.Run("missing upcoming invoice is not an error", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.CleanupTestDB(t, db)
		user := testutil.CreateTestUser(t, db, "noinvoice@example.com")
		repo := NewRepository(db)
		linkAccount(t, repo, user.ID, "cus_1")

		gw := newFakeGateway()
		gw.subs = []*stripe.Subscription{{ID: "sub_1", Status: stripe.SubscriptionStatusActive}}

		dropCachedStatus(user.ID)
		p := NewProjector(repo, gw)
		view, err := p.Status(ctx, user.ID)
		require.NoError(t, err)
		require.NotNil(t, view.Subscription)
		assert.Nil(t, view.UpcomingInvoice)
	})
}

func TestProjectorPayments(t *testing.T) {
	ctx := context.Background()

	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	user := testutil.CreateTestUser(t, db, "history@example.com")
	repo := NewRepository(db)

	for i, invoiceID := range []string{"in_1", "in_2", "in_3"} {
		occurred := time.Now().Add(time.Duration(i) * time.Minute)
		created, err := repo.CreateLedgerEntryIfNotExists(&models.PaymentLedgerEntry{
			UserID:     user.ID,
			InvoiceID:  invoiceID,
			Amount:     2900,
			Currency:   "usd",
			Outcome:    models.PaymentOutcomeSucceeded,
			OccurredAt: &occurred,
		})
		require.NoError(t, err)
		require.True(t, created)
	}

	p := NewProjector(repo, newFakeGateway())
	entries, err := p.Payments(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	// newest first
	assert.Equal(t, "in_3", entries[0].InvoiceID)
	assert.Equal(t, "in_1", entries[2].InvoiceID)
}
