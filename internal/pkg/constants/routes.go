package constants

// Static route constants
const (
	StripeWebhookRoute = "/webhooks/stripe"
	APIRoute           = "/api"
	APIV1Route         = "/v1"

	// frontend paths used in provider redirect URLs
	DashboardPath        = "/dashboard"
	BillingDashboardPath = "/dashboard/billing"
	JoinPath             = "/join"
)
