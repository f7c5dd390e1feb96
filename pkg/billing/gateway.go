// Package billing wraps Stripe behind a small interface so reconciliation can be tested without the network.
package billing

import (
	"context"
	"errors"
	"time"
)

var ErrInvalidSignature = errors.New("billing: invalid webhook signature")

// Webhook event types the service reacts to.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventInvoicePaid         = "invoice.paid"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"

	BillingReasonCycle = "subscription_cycle"
)

type CheckoutParams struct {
	CustomerId string
	PriceId    string
	UserId     string
	PlanType   string
	SuccessURL string
	CancelURL  string
}

type CheckoutSession struct {
	Id                string
	Url               string
	CustomerId        string
	SubscriptionId    string
	ClientReferenceId string
	Metadata          map[string]string
	PaymentStatus     string
	Status            string
	AmountTotal       int64
}

// Paid reports whether the session finished with money collected.
func (s *CheckoutSession) Paid() bool {
	return s.PaymentStatus == "paid" || s.PaymentStatus == "no_payment_required"
}

type Subscription struct {
	Id                 string
	CustomerId         string
	Status             string
	PriceId            string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
}

type Invoice struct {
	Id             string
	CustomerId     string
	SubscriptionId string
	BillingReason  string
	PriceId        string
	Paid           bool
	AmountPaid     int64
}

// WebhookEvent is a verified Stripe event with the object decoded for the types listed above.
type WebhookEvent struct {
	Id           string
	Type         string
	Session      *CheckoutSession
	Invoice      *Invoice
	Subscription *Subscription
}

type PriceParams struct {
	LookupKey   string
	ProductName string
	Description string
	AmountCents int64
	Currency    string
	Metadata    map[string]string
}

type Price struct {
	Id          string
	ProductId   string
	LookupKey   string
	AmountCents int64
	Currency    string
	Active      bool
}

type Gateway interface {
	CreateCustomer(ctx context.Context, email, name, userId string) (string, error)
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionId string) (*CheckoutSession, error)
	GetSubscription(ctx context.Context, subscriptionId string) (*Subscription, error)
	CancelAtPeriodEnd(ctx context.Context, subscriptionId string) (*Subscription, error)
	CreatePortalSession(ctx context.Context, customerId, returnURL string) (string, error)
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)

	FindPriceByLookupKey(ctx context.Context, lookupKey string) (*Price, error)
	CreateProductPrice(ctx context.Context, params PriceParams) (*Price, error)
}
