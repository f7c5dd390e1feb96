package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"fanova-be/internal/dto"
	"fanova-be/internal/entity"
	"fanova-be/internal/pkg/apperror"
	"fanova-be/internal/repository/unitofwork"
	"fanova-be/pkg/billing"
	"fanova-be/pkg/pricing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	mu        sync.Mutex
	sessions  map[string]*billing.CheckoutSession
	subs      map[string]*billing.Subscription
	events    map[string]*billing.WebhookEvent
	customers int
	lastCheck billing.CheckoutParams
	err       error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		sessions: map[string]*billing.CheckoutSession{},
		subs:     map[string]*billing.Subscription{},
		events:   map[string]*billing.WebhookEvent{},
	}
}

func (g *fakeGateway) CreateCustomer(_ context.Context, _, _, _ string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	g.customers++
	return "cus_test", nil
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, p billing.CheckoutParams) (*billing.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.lastCheck = p
	return &billing.CheckoutSession{Id: "cs_new", Url: "https://checkout.stripe.test/cs_new"}, nil
}

func (g *fakeGateway) GetCheckoutSession(_ context.Context, id string) (*billing.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s, ok := g.sessions[id]; ok {
		return s, nil
	}
	return nil, errUpstream
}

func (g *fakeGateway) GetSubscription(_ context.Context, id string) (*billing.Subscription, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s, ok := g.subs[id]; ok {
		return s, nil
	}
	return nil, errUpstream
}

func (g *fakeGateway) CancelAtPeriodEnd(_ context.Context, id string) (*billing.Subscription, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.subs[id]
	if !ok {
		return nil, errUpstream
	}
	s.CancelAtPeriodEnd = true
	return s, nil
}

func (g *fakeGateway) CreatePortalSession(_ context.Context, customerId, _ string) (string, error) {
	return "https://billing.stripe.test/" + customerId, nil
}

// ParseWebhook treats the payload as an event id and the signature "ok" as valid.
func (g *fakeGateway) ParseWebhook(payload []byte, signature string) (*billing.WebhookEvent, error) {
	if signature != "ok" {
		return nil, billing.ErrInvalidSignature
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if e, ok := g.events[string(payload)]; ok {
		return e, nil
	}
	return nil, errUpstream
}

func (g *fakeGateway) FindPriceByLookupKey(context.Context, string) (*billing.Price, error) {
	return nil, nil
}

func (g *fakeGateway) CreateProductPrice(context.Context, billing.PriceParams) (*billing.Price, error) {
	return nil, errUpstream
}

type paymentFixture struct {
	f       unitofwork.RepositoryFactory
	gateway *fakeGateway
	svc     IPaymentService
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	f := newFactory(t)
	ctx := context.Background()
	for _, p := range pricing.Plans() {
		require.NoError(t, f.NewUnitOfWork(ctx).PriceMappingRepository().Upsert(ctx, &entity.StripePriceMapping{
			PlanType:      string(p.Type),
			StripePriceId: "price_" + string(p.Type),
			Amount:        p.PriceCents,
			Currency:      p.Currency,
			Credits:       p.MonthlyCredits,
			Active:        true,
		}))
	}
	gw := newFakeGateway()
	return &paymentFixture{
		f:       f,
		gateway: gw,
		svc:     NewPaymentService(f, gw, "https://fanova.test", nil, nil, nopLogger),
	}
}

func (fx *paymentFixture) paidSession(userId uuid.UUID, plan pricing.PlanType) *billing.CheckoutSession {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fx.gateway.subs["sub_1"] = &billing.Subscription{
		Id:                 "sub_1",
		CustomerId:         "cus_test",
		Status:             "active",
		PriceId:            "price_" + string(plan),
		CurrentPeriodStart: start,
		CurrentPeriodEnd:   start.AddDate(0, 1, 0),
	}
	s := &billing.CheckoutSession{
		Id:                "cs_paid",
		CustomerId:        "cus_test",
		SubscriptionId:    "sub_1",
		ClientReferenceId: userId.String(),
		Metadata:          map[string]string{"user_id": userId.String(), "plan_type": string(plan)},
		PaymentStatus:     "paid",
		Status:            "complete",
	}
	fx.gateway.sessions[s.Id] = s
	fx.gateway.events["evt_checkout"] = &billing.WebhookEvent{Id: "evt_checkout", Type: billing.EventCheckoutCompleted, Session: s}
	return s
}

func TestPayment_CheckoutCreatesCustomerOnce(t *testing.T) {
	fx := newPaymentFixture(t)
	user := seedProfile(t, fx.f, 0, "")
	ctx := context.Background()

	res, err := fx.svc.CreateCheckoutSession(ctx, user.Id, &dto.CheckoutRequest{PlanType: "essential"})
	require.NoError(t, err)
	assert.Equal(t, "cs_new", res.SessionId)
	assert.Equal(t, "price_essential", fx.gateway.lastCheck.PriceId)
	assert.Equal(t, user.Id.String(), fx.gateway.lastCheck.UserId)
	assert.Equal(t, "essential", fx.gateway.lastCheck.PlanType)

	_, err = fx.svc.CreateCheckoutSession(ctx, user.Id, &dto.CheckoutRequest{PlanType: "essential"})
	require.NoError(t, err)
	assert.Equal(t, 1, fx.gateway.customers)
	require.NotNil(t, reloadProfile(t, fx.f, user.Id).StripeCustomerId)
}

func TestPayment_CheckoutProviderErrorIsGeneric(t *testing.T) {
	fx := newPaymentFixture(t)
	user := seedProfile(t, fx.f, 0, "")
	fx.gateway.err = errUpstream

	_, err := fx.svc.CreateCheckoutSession(context.Background(), user.Id, &dto.CheckoutRequest{PlanType: "base"})
	require.ErrorIs(t, err, apperror.ErrPaymentProvider)
	appErr, _ := apperror.As(err)
	assert.NotContains(t, appErr.Message, errUpstream.Error())
}

func TestPayment_WebhookThenManualCompletionGrantsOnce(t *testing.T) {
	fx := newPaymentFixture(t)
	user := seedProfile(t, fx.f, 5, "")
	fx.paidSession(user.Id, pricing.PlanEssential)
	ctx := context.Background()

	require.NoError(t, fx.svc.HandleWebhook(ctx, []byte("evt_checkout"), "ok"))

	profile := reloadProfile(t, fx.f, user.Id)
	assert.Equal(t, 305, profile.Credits)
	assert.Equal(t, "essential", profile.Plan())
	require.NotNil(t, profile.StripeSubscriptionId)
	assert.Equal(t, "sub_1", *profile.StripeSubscriptionId)
	require.NotNil(t, profile.SubscriptionRenewalDate)
	assert.Equal(t, 2026, profile.SubscriptionRenewalDate.Year())

	// 1. Redelivery of the same event
	require.NoError(t, fx.svc.HandleWebhook(ctx, []byte("evt_checkout"), "ok"))

	// 2. The client fallback arriving after the webhook
	res, err := fx.svc.ProcessPaymentCompletion(ctx, user.Id, &dto.ProcessPaymentRequest{SessionId: "cs_paid"})
	require.NoError(t, err)
	assert.True(t, res.Processed)
	assert.True(t, res.AlreadyApplied)
	assert.Zero(t, res.CreditsAdded)

	assert.Equal(t, 305, reloadProfile(t, fx.f, user.Id).Credits)
	rows := ledgerOf(t, fx.f, user.Id)
	require.Len(t, rows, 1)
	assert.Equal(t, entity.CreditTypePurchase, rows[0].Type)
	assert.Equal(t, "stripe:session:cs_paid", *rows[0].Reference)
}

func TestPayment_ManualCompletionBeforeWebhook(t *testing.T) {
	fx := newPaymentFixture(t)
	user := seedProfile(t, fx.f, 0, "")
	fx.paidSession(user.Id, pricing.PlanBase)
	ctx := context.Background()

	res, err := fx.svc.ProcessPaymentCompletion(ctx, user.Id, &dto.ProcessPaymentRequest{SessionId: "cs_paid"})
	require.NoError(t, err)
	assert.False(t, res.AlreadyApplied)
	assert.Equal(t, 100, res.CreditsAdded)
	assert.Equal(t, 100, res.Balance)

	require.NoError(t, fx.svc.HandleWebhook(ctx, []byte("evt_checkout"), "ok"))
	assert.Equal(t, 100, reloadProfile(t, fx.f, user.Id).Credits)
	assert.Len(t, ledgerOf(t, fx.f, user.Id), 1)
}

func TestPayment_ManualCompletionChecksOwnerAndPayment(t *testing.T) {
	fx := newPaymentFixture(t)
	owner := seedProfile(t, fx.f, 0, "")
	other := seedProfile(t, fx.f, 0, "")
	session := fx.paidSession(owner.Id, pricing.PlanBase)
	ctx := context.Background()

	_, err := fx.svc.ProcessPaymentCompletion(ctx, other.Id, &dto.ProcessPaymentRequest{SessionId: "cs_paid"})
	assert.Equal(t, apperror.CodeForbidden, errorCode(t, err))

	session.PaymentStatus = "unpaid"
	res, err := fx.svc.ProcessPaymentCompletion(ctx, owner.Id, &dto.ProcessPaymentRequest{SessionId: "cs_paid"})
	require.NoError(t, err)
	assert.False(t, res.Processed)
	assert.Zero(t, reloadProfile(t, fx.f, owner.Id).Credits)
}

func TestPayment_WebhookRejectsBadSignature(t *testing.T) {
	fx := newPaymentFixture(t)
	err := fx.svc.HandleWebhook(context.Background(), []byte("evt_checkout"), "forged")
	assert.Equal(t, apperror.CodeValidation, errorCode(t, err))
}

func TestPayment_RenewalAndCancellation(t *testing.T) {
	fx := newPaymentFixture(t)
	user := seedProfile(t, fx.f, 0, "")
	fx.paidSession(user.Id, pricing.PlanUltimate)
	ctx := context.Background()
	require.NoError(t, fx.svc.HandleWebhook(ctx, []byte("evt_checkout"), "ok"))

	invoice := &billing.Invoice{
		Id:             "in_2",
		CustomerId:     "cus_test",
		SubscriptionId: "sub_1",
		BillingReason:  billing.BillingReasonCycle,
		PriceId:        "price_ultimate",
		Paid:           true,
	}
	fx.gateway.events["evt_renew"] = &billing.WebhookEvent{Id: "evt_renew", Type: billing.EventInvoicePaid, Invoice: invoice}
	fx.gateway.events["evt_first_invoice"] = &billing.WebhookEvent{Id: "evt_first_invoice", Type: billing.EventInvoicePaid, Invoice: &billing.Invoice{
		Id: "in_1", SubscriptionId: "sub_1", BillingReason: "subscription_create", Paid: true,
	}}

	require.NoError(t, fx.svc.HandleWebhook(ctx, []byte("evt_first_invoice"), "ok"))
	assert.Equal(t, 750, reloadProfile(t, fx.f, user.Id).Credits, "the first invoice is covered by the checkout grant")

	require.NoError(t, fx.svc.HandleWebhook(ctx, []byte("evt_renew"), "ok"))
	require.NoError(t, fx.svc.HandleWebhook(ctx, []byte("evt_renew"), "ok"))
	assert.Equal(t, 1500, reloadProfile(t, fx.f, user.Id).Credits)

	status, err := fx.svc.CancelSubscription(ctx, user.Id)
	require.NoError(t, err)
	assert.True(t, status.CancelAtPeriodEnd)

	fx.gateway.events["evt_deleted"] = &billing.WebhookEvent{Id: "evt_deleted", Type: billing.EventSubscriptionDeleted, Subscription: &billing.Subscription{
		Id: "sub_1", CustomerId: "cus_test", Status: "canceled",
	}}
	require.NoError(t, fx.svc.HandleWebhook(ctx, []byte("evt_deleted"), "ok"))

	profile := reloadProfile(t, fx.f, user.Id)
	assert.Nil(t, profile.SubscriptionPlan)
	assert.Nil(t, profile.StripeSubscriptionId)
	assert.Equal(t, 1500, profile.Credits, "credits survive cancellation")
}

func TestPayment_PricingListsMappedPrices(t *testing.T) {
	fx := newPaymentFixture(t)
	res, err := fx.svc.GetPricing(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Plans, 3)
	assert.Equal(t, "base", res.Plans[0].PlanType)
	assert.Nil(t, res.Plans[0].NsfwCost)
	require.NotNil(t, res.Plans[2].StripePriceId)
	assert.Equal(t, "price_ultimate", *res.Plans[2].StripePriceId)
	assert.Equal(t, pricing.SfwImageCost, res.SfwImageCost)
}
