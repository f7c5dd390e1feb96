package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	portalsession "github.com/stripe/stripe-go/v79/billingportal/session"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/customer"
	"github.com/stripe/stripe-go/v79/price"
	"github.com/stripe/stripe-go/v79/product"
	"github.com/stripe/stripe-go/v79/subscription"
	"github.com/stripe/stripe-go/v79/webhook"
)

type StripeGateway struct {
	webhookSecret string
}

// NewStripeGateway sets the process-wide Stripe key.
func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{webhookSecret: webhookSecret}
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, email, name, userId string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
	}
	if name != "" {
		params.Name = stripe.String(name)
	}
	params.Context = ctx
	params.AddMetadata("user_id", userId)

	c, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe: create customer: %w", err)
	}
	return c.ID, nil
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:          stripe.String(p.CustomerId),
		ClientReferenceID: stripe.String(p.UserId),
		SuccessURL:        stripe.String(p.SuccessURL),
		CancelURL:         stripe.String(p.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(p.PriceId), Quantity: stripe.Int64(1)},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				"user_id":   p.UserId,
				"plan_type": p.PlanType,
			},
		},
	}
	params.Context = ctx
	params.AddMetadata("user_id", p.UserId)
	params.AddMetadata("plan_type", p.PlanType)

	s, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create checkout session: %w", err)
	}
	return toCheckoutSession(s), nil
}

func (g *StripeGateway) GetCheckoutSession(ctx context.Context, sessionId string) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	s, err := session.Get(sessionId, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: get checkout session: %w", err)
	}
	return toCheckoutSession(s), nil
}

func (g *StripeGateway) GetSubscription(ctx context.Context, subscriptionId string) (*Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	sub, err := subscription.Get(subscriptionId, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: get subscription: %w", err)
	}
	return toSubscription(sub), nil
}

func (g *StripeGateway) CancelAtPeriodEnd(ctx context.Context, subscriptionId string) (*Subscription, error) {
	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	}
	params.Context = ctx

	sub, err := subscription.Update(subscriptionId, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: cancel subscription: %w", err)
	}
	return toSubscription(sub), nil
}

func (g *StripeGateway) CreatePortalSession(ctx context.Context, customerId, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerId),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	s, err := portalsession.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe: create billing portal session: %w", err)
	}
	return s.URL, nil
}

func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &WebhookEvent{Id: event.ID, Type: string(event.Type)}
	if event.Data == nil {
		return out, nil
	}

	switch out.Type {
	case EventCheckoutCompleted:
		var s stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("stripe: decode checkout session: %w", err)
		}
		out.Session = toCheckoutSession(&s)
	case EventInvoicePaid:
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("stripe: decode invoice: %w", err)
		}
		out.Invoice = toInvoice(&inv)
	case EventSubscriptionUpdated, EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("stripe: decode subscription: %w", err)
		}
		out.Subscription = toSubscription(&sub)
	}
	return out, nil
}

func (g *StripeGateway) FindPriceByLookupKey(ctx context.Context, lookupKey string) (*Price, error) {
	params := &stripe.PriceListParams{
		LookupKeys: stripe.StringSlice([]string{lookupKey}),
		Active:     stripe.Bool(true),
	}
	params.Context = ctx

	iter := price.List(params)
	for iter.Next() {
		return toPrice(iter.Price()), nil
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("stripe: list prices: %w", err)
	}
	return nil, nil
}

func (g *StripeGateway) CreateProductPrice(ctx context.Context, p PriceParams) (*Price, error) {
	productParams := &stripe.ProductParams{
		Name: stripe.String(p.ProductName),
	}
	if p.Description != "" {
		productParams.Description = stripe.String(p.Description)
	}
	productParams.Context = ctx
	for k, v := range p.Metadata {
		productParams.AddMetadata(k, v)
	}

	prod, err := product.New(productParams)
	if err != nil {
		return nil, fmt.Errorf("stripe: create product: %w", err)
	}

	priceParams := &stripe.PriceParams{
		Product:    stripe.String(prod.ID),
		UnitAmount: stripe.Int64(p.AmountCents),
		Currency:   stripe.String(strings.ToLower(p.Currency)),
		LookupKey:  stripe.String(p.LookupKey),
		Recurring: &stripe.PriceRecurringParams{
			Interval: stripe.String(string(stripe.PriceRecurringIntervalMonth)),
		},
	}
	priceParams.Context = ctx
	for k, v := range p.Metadata {
		priceParams.AddMetadata(k, v)
	}

	pr, err := price.New(priceParams)
	if err != nil {
		return nil, fmt.Errorf("stripe: create price: %w", err)
	}
	return toPrice(pr), nil
}

func toCheckoutSession(s *stripe.CheckoutSession) *CheckoutSession {
	out := &CheckoutSession{
		Id:                s.ID,
		Url:               s.URL,
		ClientReferenceId: s.ClientReferenceID,
		Metadata:          s.Metadata,
		PaymentStatus:     string(s.PaymentStatus),
		Status:            string(s.Status),
		AmountTotal:       s.AmountTotal,
	}
	if s.Customer != nil {
		out.CustomerId = s.Customer.ID
	}
	if s.Subscription != nil {
		out.SubscriptionId = s.Subscription.ID
	}
	return out
}

func toSubscription(sub *stripe.Subscription) *Subscription {
	out := &Subscription{
		Id:                 sub.ID,
		Status:             string(sub.Status),
		CurrentPeriodStart: unixTime(sub.CurrentPeriodStart),
		CurrentPeriodEnd:   unixTime(sub.CurrentPeriodEnd),
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
	}
	if sub.Customer != nil {
		out.CustomerId = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		out.PriceId = sub.Items.Data[0].Price.ID
	}
	return out
}

func toInvoice(inv *stripe.Invoice) *Invoice {
	out := &Invoice{
		Id:            inv.ID,
		BillingReason: string(inv.BillingReason),
		Paid:          inv.Paid,
		AmountPaid:    inv.AmountPaid,
	}
	if inv.Customer != nil {
		out.CustomerId = inv.Customer.ID
	}
	if inv.Subscription != nil {
		out.SubscriptionId = inv.Subscription.ID
	}
	if inv.Lines != nil && len(inv.Lines.Data) > 0 && inv.Lines.Data[0].Price != nil {
		out.PriceId = inv.Lines.Data[0].Price.ID
	}
	return out
}

func toPrice(p *stripe.Price) *Price {
	out := &Price{
		Id:          p.ID,
		LookupKey:   p.LookupKey,
		AmountCents: p.UnitAmount,
		Currency:    string(p.Currency),
		Active:      p.Active,
	}
	if p.Product != nil {
		out.ProductId = p.Product.ID
	}
	return out
}

func unixTime(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
