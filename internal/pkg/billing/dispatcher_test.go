package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v72"

	"github.com/FitLifeApp/FitLife/app/models"
	"github.com/FitLifeApp/FitLife/internal/testutil"
)

func eventWith(t *testing.T, eventType string, object interface{}) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(object)
	require.NoError(t, err)
	return stripe.Event{
		ID:   fmt.Sprintf("evt_%s", eventType),
		Type: eventType,
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestDispatcherRegistry(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	d := NewDispatcher(NewReconcilerFromDB(db))

	for _, typ := range []string{
		EventCheckoutSessionCompleted,
		EventSubscriptionCreated,
		EventSubscriptionUpdated,
		EventSubscriptionDeleted,
		EventInvoicePaymentSucceeded,
		EventInvoicePaymentFailed,
	} {
		assert.True(t, d.HandlesType(typ), "expected handler for %s", typ)
	}
	assert.False(t, d.HandlesType("customer.created"))
	assert.False(t, d.HandlesType("payment_intent.succeeded"))
}

func TestDispatchUnknownType(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	d := NewDispatcher(NewReconcilerFromDB(db))

	handled, err := d.Dispatch(context.Background(), stripe.Event{
		ID:   "evt_unknown",
		Type: "charge.refunded",
		Data: &stripe.EventData{Raw: []byte(`{}`)},
	})
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestDispatchRoutesSubscriptionEvents(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	user := testutil.CreateTestUser(t, db, "dispatch@example.com")
	rec := NewReconcilerFromDB(db)
	d := NewDispatcher(rec)

	handled, err := d.Dispatch(ctx, eventWith(t, EventCheckoutSessionCompleted,
		checkoutSession(user.UUID, "cus_1", "sub_1", models.PLAN_BASIC, false)))
	require.NoError(t, err)
	assert.True(t, handled)

	handled, err = d.Dispatch(ctx, eventWith(t, EventSubscriptionUpdated, map[string]interface{}{
		"id":       "sub_1",
		"customer": "cus_1",
		"status":   "past_due",
	}))
	require.NoError(t, err)
	assert.True(t, handled)

	account, err := NewRepository(db).GetAccountByUserID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MEMBERSHIP_PAST_DUE, account.Status)
}

func TestDispatchMalformedPayload(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	d := NewDispatcher(NewReconcilerFromDB(db))

	for _, typ := range []string{
		EventCheckoutSessionCompleted,
		EventSubscriptionUpdated,
		EventSubscriptionDeleted,
		EventInvoicePaymentFailed,
	} {
		_, err := d.Dispatch(context.Background(), stripe.Event{
			ID:   "evt_bad",
			Type: typ,
			Data: &stripe.EventData{Raw: []byte(`{not-json`)},
		})
		assert.ErrorIs(t, err, ErrMalformedPayload, "type %s", typ)
	}
}
