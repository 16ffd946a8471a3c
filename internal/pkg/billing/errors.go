package billing

import "errors"

var (
	// ErrNoLinkedCustomer means the member has no Stripe customer yet; billing
	// actions against it map to a 404.
	ErrNoLinkedCustomer = errors.New("no linked stripe customer for account")

	// ErrMalformedPayload wraps event payloads that fail to decode. These are
	// rejected with a 400 and must not trigger sender retries.
	ErrMalformedPayload = errors.New("malformed event payload")

	// ErrUnknownPlan is returned for checkout requests naming a plan that is
	// not in the catalog.
	ErrUnknownPlan = errors.New("unknown membership plan")
)
