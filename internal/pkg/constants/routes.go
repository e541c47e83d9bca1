package constants

// Static route constants
const (
	HealthRoute           = "/healthz"
	StripeWebhookRoute    = "/webhooks/stripe"
	CheckoutSuccessRoute  = "/billing/checkout/success"
	InternalSweepRoute    = "/internal/sweep"
	InternalAccountsRoute = "/internal/accounts"
)
