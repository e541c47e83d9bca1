package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hasib1010/Happylife-sub003/app/models"
	"github.com/hasib1010/Happylife-sub003/internal/pkg/env"
)

const (
	defaultStripeAPIBaseURL = "https://api.stripe.com/v1"

	// ProviderStripe is the provider key used on ledger and webhook rows.
	ProviderStripe = "stripe"
)

// StripeClient implements Processor against the Stripe REST API.
type StripeClient struct {
	SecretKey  string
	APIBaseURL string

	// Hosted checkout redirect targets.
	SuccessURL string
	CancelURL  string

	HTTPClient *http.Client
}

// NewStripeClientFromEnv builds a client from STRIPE_* environment keys.
func NewStripeClientFromEnv() *StripeClient {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	successURL := strings.TrimSpace(env.GetEnv("STRIPE_SUCCESS_URL", ""))
	cancelURL := strings.TrimSpace(env.GetEnv("STRIPE_CANCEL_URL", ""))
	if successURL == "" && base != "" {
		successURL = base + "/billing/checkout/success?session_id={CHECKOUT_SESSION_ID}"
	}
	if cancelURL == "" && base != "" {
		cancelURL = base + "/billing/checkout/cancel"
	}

	return &StripeClient{
		SecretKey:  strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		APIBaseURL: strings.TrimRight(env.GetEnv("STRIPE_API_BASE_URL", defaultStripeAPIBaseURL), "/"),
		SuccessURL: successURL,
		CancelURL:  cancelURL,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *StripeClient) doForm(ctx context.Context, method, path string, form url.Values) ([]byte, error) {
	if strings.TrimSpace(c.SecretKey) == "" {
		return nil, errors.New("STRIPE_SECRET_KEY is not configured")
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.APIBaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")
	if method == http.MethodPost {
		// Stripe retries safely when the same key is replayed.
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProcessorUnavailable, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode == http.StatusNotFound {
		return nil, errStripeNotFound
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: stripe status=%d", ErrProcessorUnavailable, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("stripe request failed: status=%d body=%s", resp.StatusCode, string(raw))
	}
	return raw, nil
}

var errStripeNotFound = errors.New("stripe resource not found")

// CreateCustomer registers the user and returns the Stripe customer id.
func (c *StripeClient) CreateCustomer(ctx context.Context, user *models.User) (string, error) {
	if user == nil {
		return "", errors.New("user is required")
	}

	form := url.Values{}
	form.Set("email", user.Email)
	form.Set("name", user.Name)
	form.Set("metadata[user_id]", strconv.FormatUint(uint64(user.ID), 10))

	raw, err := c.doForm(ctx, http.MethodPost, "/customers", form)
	if err != nil {
		return "", err
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.ID) == "" {
		return "", errors.New("stripe customer response missing id")
	}
	return out.ID, nil
}

// CreateSubscriptionCheckout opens a hosted subscription checkout session.
// The user id travels as client_reference_id so the completed-checkout
// webhook can reconcile the account before any customer.subscription.*
// event arrives.
func (c *StripeClient) CreateSubscriptionCheckout(ctx context.Context, userID uint, customerRef, planID string) (*CheckoutSession, error) {
	if userID == 0 || strings.TrimSpace(customerRef) == "" || strings.TrimSpace(planID) == "" {
		return nil, errors.New("user id, customer ref and plan id are required")
	}

	form := url.Values{}
	form.Set("mode", "subscription")
	form.Set("customer", customerRef)
	form.Set("client_reference_id", strconv.FormatUint(uint64(userID), 10))
	form.Set("line_items[0][price]", planID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", c.SuccessURL)
	form.Set("cancel_url", c.CancelURL)

	return c.createCheckoutSession(ctx, form)
}

// CreateOneTimeCheckout opens a hosted one-time checkout for a feature boost.
// The listing coordinates travel in session metadata so the webhook can route
// the completed payment back to the grant.
func (c *StripeClient) CreateOneTimeCheckout(ctx context.Context, in OneTimeCheckoutInput) (*CheckoutSession, error) {
	if in.UserID == 0 || in.ListingID == 0 {
		return nil, errors.New("user id and listing id are required")
	}
	currency := strings.ToLower(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = "usd"
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("client_reference_id", strconv.FormatUint(uint64(in.UserID), 10))
	form.Set("line_items[0][price_data][currency]", currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(in.AmountCents, 10))
	form.Set("line_items[0][price_data][product_data][name]", fmt.Sprintf("Featured %s boost (%d days)", in.ListingKind, in.DurationDays))
	form.Set("line_items[0][quantity]", "1")
	form.Set("metadata[kind]", models.PaymentKindListingFeature)
	form.Set("metadata[listing_kind]", in.ListingKind)
	form.Set("metadata[listing_id]", strconv.FormatUint(uint64(in.ListingID), 10))
	form.Set("metadata[duration_days]", strconv.Itoa(in.DurationDays))
	form.Set("success_url", c.SuccessURL)
	form.Set("cancel_url", c.CancelURL)

	return c.createCheckoutSession(ctx, form)
}

func (c *StripeClient) createCheckoutSession(ctx context.Context, form url.Values) (*CheckoutSession, error) {
	raw, err := c.doForm(ctx, http.MethodPost, "/checkout/sessions", form)
	if err != nil {
		return nil, err
	}

	var out struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.ID) == "" || strings.TrimSpace(out.URL) == "" {
		return nil, errors.New("stripe checkout session response missing id or url")
	}
	return &CheckoutSession{SessionRef: out.ID, RedirectURL: out.URL}, nil
}

// CancelSubscription cancels immediately or at period end.
func (c *StripeClient) CancelSubscription(ctx context.Context, subscriptionRef string, atPeriodEnd bool) error {
	ref := strings.TrimSpace(subscriptionRef)
	if ref == "" {
		return errors.New("subscription ref is required")
	}

	if atPeriodEnd {
		form := url.Values{}
		form.Set("cancel_at_period_end", "true")
		_, err := c.doForm(ctx, http.MethodPost, "/subscriptions/"+ref, form)
		return err
	}

	_, err := c.doForm(ctx, http.MethodDelete, "/subscriptions/"+ref, nil)
	return err
}

// SetAutoRenew toggles cancel_at_period_end on the processor side.
func (c *StripeClient) SetAutoRenew(ctx context.Context, subscriptionRef string, enabled bool) error {
	ref := strings.TrimSpace(subscriptionRef)
	if ref == "" {
		return errors.New("subscription ref is required")
	}

	form := url.Values{}
	form.Set("cancel_at_period_end", strconv.FormatBool(!enabled))
	_, err := c.doForm(ctx, http.MethodPost, "/subscriptions/"+ref, form)
	return err
}

// FetchSubscription reads authoritative state by subscription ref ("sub_...")
// or by customer ref (latest subscription across all statuses). Returns
// (nil, nil) when the processor has no subscription for the ref.
func (c *StripeClient) FetchSubscription(ctx context.Context, customerOrSubscriptionRef string) (*ProcessorEvent, error) {
	ref := strings.TrimSpace(customerOrSubscriptionRef)
	if ref == "" {
		return nil, errors.New("ref is required")
	}

	if strings.HasPrefix(ref, "sub_") {
		raw, err := c.doForm(ctx, http.MethodGet, "/subscriptions/"+ref, nil)
		if errors.Is(err, errStripeNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		var sub stripeSubscription
		if err := json.Unmarshal(raw, &sub); err != nil {
			return nil, err
		}
		return sub.normalize(), nil
	}

	q := url.Values{}
	q.Set("customer", ref)
	q.Set("status", "all")
	q.Set("limit", "1")
	raw, err := c.doForm(ctx, http.MethodGet, "/subscriptions?"+q.Encode(), nil)
	if errors.Is(err, errStripeNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out struct {
		Data []stripeSubscription `json:"data"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, nil
	}
	return out.Data[0].normalize(), nil
}

// stripeSubscription is the subset of Stripe's subscription object the engine
// consumes.
type stripeSubscription struct {
	ID                 string `json:"id"`
	Status             string `json:"status"`
	CancelAtPeriodEnd  bool   `json:"cancel_at_period_end"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
	Items              struct {
		Data []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

func (s *stripeSubscription) normalize() *ProcessorEvent {
	ev := &ProcessorEvent{
		SubscriptionRef:   strings.TrimSpace(s.ID),
		Status:            normalizeStripeStatus(s.Status),
		CancelAtPeriodEnd: s.CancelAtPeriodEnd,
	}
	if s.CurrentPeriodStart > 0 {
		t := time.Unix(s.CurrentPeriodStart, 0).UTC()
		ev.CurrentPeriodStart = &t
	}
	if s.CurrentPeriodEnd > 0 {
		t := time.Unix(s.CurrentPeriodEnd, 0).UTC()
		ev.CurrentPeriodEnd = &t
	}
	if len(s.Items.Data) > 0 {
		ev.PlanRef = strings.TrimSpace(s.Items.Data[0].Price.ID)
	}
	return ev
}

// normalizeStripeStatus maps Stripe's status vocabulary onto the local enum.
// Stripe and the record share the same words; anything unknown degrades to
// incomplete rather than inventing entitlement.
func normalizeStripeStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case models.SubscriptionStatusActive:
		return models.SubscriptionStatusActive
	case models.SubscriptionStatusTrialing:
		return models.SubscriptionStatusTrialing
	case models.SubscriptionStatusPastDue:
		return models.SubscriptionStatusPastDue
	case models.SubscriptionStatusCanceled:
		return models.SubscriptionStatusCanceled
	case models.SubscriptionStatusUnpaid:
		return models.SubscriptionStatusUnpaid
	case models.SubscriptionStatusIncomplete:
		return models.SubscriptionStatusIncomplete
	case models.SubscriptionStatusIncompleteExpired:
		return models.SubscriptionStatusIncompleteExpired
	default:
		return models.SubscriptionStatusIncomplete
	}
}

// StripeWebhookEvent is a parsed processor notification. Exactly one of
// Subscription and Checkout is set depending on the event type.
type StripeWebhookEvent struct {
	EventID      string
	Type         string
	Subscription *ProcessorEvent
	Checkout     *StripeCheckoutSession
}

// StripeCheckoutSession carries the fields needed to settle a pending ledger
// row after a checkout session finished, expired or failed. The envelope
// type on StripeWebhookEvent says which outcome it was.
type StripeCheckoutSession struct {
	SessionRef        string
	Mode              string
	PaymentStatus     string
	ClientReferenceID string
	SubscriptionRef   string
	Metadata          map[string]string
}

// ParseStripeWebhookEvent extracts the engine-relevant shape from a raw
// Stripe webhook payload. Unhandled event types come back with both payload
// fields nil; the caller records and skips them.
func ParseStripeWebhookEvent(payload []byte) (*StripeWebhookEvent, error) {
	var raw struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object json.RawMessage `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw.ID) == "" || strings.TrimSpace(raw.Type) == "" {
		return nil, errors.New("stripe webhook payload missing id or type")
	}

	out := &StripeWebhookEvent{EventID: raw.ID, Type: raw.Type}

	switch {
	case strings.HasPrefix(raw.Type, "customer.subscription."):
		var sub stripeSubscription
		if err := json.Unmarshal(raw.Data.Object, &sub); err != nil {
			return nil, err
		}
		if strings.TrimSpace(sub.ID) == "" {
			return nil, errors.New("stripe subscription event missing subscription id")
		}
		out.Subscription = sub.normalize()
		// Deletion events may omit the status field.
		if raw.Type == "customer.subscription.deleted" {
			out.Subscription.Status = models.SubscriptionStatusCanceled
		}
	case raw.Type == "checkout.session.completed",
		raw.Type == "checkout.session.expired",
		raw.Type == "checkout.session.async_payment_failed":
		var sess struct {
			ID                string            `json:"id"`
			Mode              string            `json:"mode"`
			PaymentStatus     string            `json:"payment_status"`
			ClientReferenceID string            `json:"client_reference_id"`
			Subscription      string            `json:"subscription"`
			Metadata          map[string]string `json:"metadata"`
		}
		if err := json.Unmarshal(raw.Data.Object, &sess); err != nil {
			return nil, err
		}
		if strings.TrimSpace(sess.ID) == "" {
			return nil, errors.New("stripe checkout event missing session id")
		}
		out.Checkout = &StripeCheckoutSession{
			SessionRef:        sess.ID,
			Mode:              sess.Mode,
			PaymentStatus:     sess.PaymentStatus,
			ClientReferenceID: sess.ClientReferenceID,
			SubscriptionRef:   sess.Subscription,
			Metadata:          sess.Metadata,
		}
	}

	return out, nil
}
