package billing

import (
	"fmt"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/webhook"
)

// VerifyWebhookEvent checks the Stripe-Signature header against the raw
// request body and the shared endpoint secret. The body must be the exact
// bytes Stripe sent; re-serializing it would change the byte layout and
// break the HMAC check.
func VerifyWebhookEvent(payload []byte, signatureHeader, endpointSecret string) (stripe.Event, error) {
	event, err := webhook.ConstructEvent(payload, signatureHeader, endpointSecret)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("webhook signature verification failed: %w", err)
	}
	return event, nil
}
