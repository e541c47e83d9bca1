package billing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hasib1010/Happylife-sub003/app/models"
)

func TestNormalizeStripeStatus(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "active", want: models.SubscriptionStatusActive},
		{in: "trialing", want: models.SubscriptionStatusTrialing},
		{in: "past_due", want: models.SubscriptionStatusPastDue},
		{in: "canceled", want: models.SubscriptionStatusCanceled},
		{in: "unpaid", want: models.SubscriptionStatusUnpaid},
		{in: "incomplete", want: models.SubscriptionStatusIncomplete},
		{in: "incomplete_expired", want: models.SubscriptionStatusIncompleteExpired},
		{in: "ACTIVE ", want: models.SubscriptionStatusActive},
		{in: "paused", want: models.SubscriptionStatusIncomplete},
		{in: "", want: models.SubscriptionStatusIncomplete},
	}

	for _, tt := range tests {
		if got := normalizeStripeStatus(tt.in); got != tt.want {
			t.Fatalf("normalizeStripeStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseStripeWebhookEvent_SubscriptionUpdated(t *testing.T) {
	raw := []byte(`{
		"id": "evt_1",
		"type": "customer.subscription.updated",
		"data": {
			"object": {
				"id": "sub_1",
				"status": "active",
				"cancel_at_period_end": true,
				"current_period_start": 1700000000,
				"current_period_end": 1702592000,
				"items": { "data": [ { "price": { "id": "price_pro" } } ] }
			}
		}
	}`)

	ev, err := ParseStripeWebhookEvent(raw)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if ev.EventID != "evt_1" || ev.Type != "customer.subscription.updated" {
		t.Fatalf("unexpected envelope: %+v", ev)
	}
	if ev.Subscription == nil || ev.Checkout != nil {
		t.Fatalf("expected a subscription payload")
	}
	sub := ev.Subscription
	if sub.SubscriptionRef != "sub_1" || sub.Status != models.SubscriptionStatusActive {
		t.Fatalf("unexpected subscription: %+v", sub)
	}
	if !sub.CancelAtPeriodEnd || sub.PlanRef != "price_pro" {
		t.Fatalf("expected cancel flag and plan ref: %+v", sub)
	}
	wantEnd := time.Unix(1702592000, 0).UTC()
	if sub.CurrentPeriodEnd == nil || !sub.CurrentPeriodEnd.Equal(wantEnd) {
		t.Fatalf("unexpected period end: %v", sub.CurrentPeriodEnd)
	}
}

func TestParseStripeWebhookEvent_SubscriptionDeleted(t *testing.T) {
	raw := []byte(`{
		"id": "evt_2",
		"type": "customer.subscription.deleted",
		"data": { "object": { "id": "sub_1" } }
	}`)

	ev, err := ParseStripeWebhookEvent(raw)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if ev.Subscription == nil || ev.Subscription.Status != models.SubscriptionStatusCanceled {
		t.Fatalf("deleted events must normalize to canceled, got %+v", ev.Subscription)
	}
}

func TestParseStripeWebhookEvent_CheckoutCompleted(t *testing.T) {
	raw := []byte(`{
		"id": "evt_3",
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_1",
				"mode": "subscription",
				"payment_status": "paid",
				"client_reference_id": "42",
				"subscription": "sub_1",
				"metadata": { "kind": "subscription" }
			}
		}
	}`)

	ev, err := ParseStripeWebhookEvent(raw)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if ev.Checkout == nil || ev.Subscription != nil {
		t.Fatalf("expected a checkout payload")
	}
	co := ev.Checkout
	if co.SessionRef != "cs_1" || co.Mode != "subscription" || co.ClientReferenceID != "42" {
		t.Fatalf("unexpected checkout: %+v", co)
	}
	if co.SubscriptionRef != "sub_1" || co.Metadata["kind"] != "subscription" {
		t.Fatalf("unexpected checkout details: %+v", co)
	}
}

func TestParseStripeWebhookEvent_CheckoutExpired(t *testing.T) {
	raw := []byte(`{
		"id": "evt_5",
		"type": "checkout.session.expired",
		"data": { "object": { "id": "cs_2", "mode": "payment", "payment_status": "unpaid" } }
	}`)

	ev, err := ParseStripeWebhookEvent(raw)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if ev.Type != "checkout.session.expired" {
		t.Fatalf("unexpected envelope type: %q", ev.Type)
	}
	if ev.Checkout == nil || ev.Checkout.SessionRef != "cs_2" {
		t.Fatalf("expired sessions must carry a checkout payload, got %+v", ev.Checkout)
	}
}

func TestParseStripeWebhookEvent_UnhandledType(t *testing.T) {
	raw := []byte(`{"id":"evt_4","type":"invoice.created","data":{"object":{}}}`)

	ev, err := ParseStripeWebhookEvent(raw)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if ev.Subscription != nil || ev.Checkout != nil {
		t.Fatalf("unhandled types must carry no payload")
	}
}

func TestParseStripeWebhookEvent_MissingEnvelope(t *testing.T) {
	if _, err := ParseStripeWebhookEvent([]byte(`{"type":"x"}`)); err == nil {
		t.Fatalf("expected error for missing event id")
	}
	if _, err := ParseStripeWebhookEvent([]byte(`not json`)); err == nil {
		t.Fatalf("expected error for invalid json")
	}
}

func TestCreateSubscriptionCheckout_CarriesClientReference(t *testing.T) {
	var gotForm map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("unexpected form parse error: %v", err)
		}
		gotForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_1","url":"https://checkout.example/cs_1"}`))
	}))
	defer srv.Close()

	client := &StripeClient{
		SecretKey:  "sk_test",
		APIBaseURL: srv.URL,
		SuccessURL: "https://app.example/billing/checkout/success",
		CancelURL:  "https://app.example/billing/checkout/cancel",
		HTTPClient: srv.Client(),
	}

	session, err := client.CreateSubscriptionCheckout(context.Background(), 42, "cus_1", "price_pro")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.SessionRef != "cs_1" {
		t.Fatalf("unexpected session ref: %q", session.SessionRef)
	}
	if got := gotForm["client_reference_id"]; len(got) != 1 || got[0] != "42" {
		t.Fatalf("expected client_reference_id=42 in the form, got %v", gotForm)
	}
	if got := gotForm["mode"]; len(got) != 1 || got[0] != "subscription" {
		t.Fatalf("expected subscription mode, got %v", gotForm["mode"])
	}
}

func TestStripeClient_TransportFailureIsProcessorUnavailable(t *testing.T) {
	client := &StripeClient{
		SecretKey:  "sk_test",
		APIBaseURL: "http://127.0.0.1:1",
		HTTPClient: &http.Client{Timeout: 200 * time.Millisecond},
	}

	_, err := client.CreateSubscriptionCheckout(context.Background(), 42, "cus_1", "price_pro")
	if !errors.Is(err, ErrProcessorUnavailable) {
		t.Fatalf("expected ErrProcessorUnavailable, got %v", err)
	}
}
