package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"fanova-be/internal/dto"
	"fanova-be/internal/entity"
	"fanova-be/internal/pkg/apperror"
	"fanova-be/internal/pkg/logger"
	"fanova-be/internal/pkg/metrics"
	"fanova-be/internal/repository/specification"
	"fanova-be/internal/repository/unitofwork"
	"fanova-be/pkg/billing"
	"fanova-be/pkg/events"
	"fanova-be/pkg/pricing"

	"github.com/google/uuid"
)

const (
	subscriptionStatusActive   = "active"
	subscriptionStatusCanceled = "canceled"
)

type IPaymentService interface {
	GetPricing(ctx context.Context) (*dto.PricingResponse, error)
	CreateCheckoutSession(ctx context.Context, userId uuid.UUID, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	ProcessPaymentCompletion(ctx context.Context, userId uuid.UUID, req *dto.ProcessPaymentRequest) (*dto.ProcessPaymentResponse, error)
	GetSubscriptionStatus(ctx context.Context, userId uuid.UUID) (*dto.SubscriptionStatusResponse, error)
	CreateBillingPortal(ctx context.Context, userId uuid.UUID) (*dto.BillingPortalResponse, error)
	CancelSubscription(ctx context.Context, userId uuid.UUID) (*dto.CancelSubscriptionResponse, error)
}

type paymentService struct {
	uowFactory  unitofwork.RepositoryFactory
	gateway     billing.Gateway
	frontendURL string
	notifier    *events.Notifier
	metrics     *metrics.Metrics
	logger      logger.ILogger
}

func NewPaymentService(
	uowFactory unitofwork.RepositoryFactory,
	gateway billing.Gateway,
	frontendURL string,
	notifier *events.Notifier,
	m *metrics.Metrics,
	log logger.ILogger,
) IPaymentService {
	return &paymentService{
		uowFactory:  uowFactory,
		gateway:     gateway,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		notifier:    notifier,
		metrics:     m,
		logger:      log,
	}
}

// afterCommit collects side effects that must only run once the transaction is durable.
type afterCommit []func()

func (a *afterCommit) add(fn func()) { *a = append(*a, fn) }

func (a afterCommit) run() {
	for _, fn := range a {
		fn()
	}
}

func (s *paymentService) providerError(op string, err error) error {
	s.logger.Error("PAYMENT", "Stripe request failed", map[string]interface{}{
		"operation": op,
		"error":     err.Error(),
	})
	return apperror.Wrap(apperror.ErrPaymentProvider, err)
}

func (s *paymentService) GetPricing(ctx context.Context) (*dto.PricingResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	mappings, err := uow.PriceMappingRepository().FindAll(ctx)
	if err != nil {
		return nil, err
	}
	prices := map[string]string{}
	for _, m := range mappings {
		if m.Active {
			prices[m.PlanType] = m.StripePriceId
		}
	}

	res := &dto.PricingResponse{
		SfwImageCost:        pricing.SfwImageCost,
		BatchCost:           pricing.BatchCost,
		BatchSize:           pricing.BatchSize,
		AddOnCost:           pricing.AddOnCost,
		FreeGenerationLimit: pricing.FreeGenerationLimit,
	}
	for _, p := range pricing.Plans() {
		plan := &dto.PlanResponse{
			PlanType:       string(p.Type),
			Name:           p.Name,
			MonthlyCredits: p.MonthlyCredits,
			PriceCents:     p.PriceCents,
			Currency:       p.Currency,
			NsfwAllowed:    p.NsfwAllowed,
		}
		if p.NsfwAllowed {
			cost := p.NsfwCost
			plan.NsfwCost = &cost
		}
		if priceId, ok := prices[string(p.Type)]; ok {
			plan.StripePriceId = &priceId
		}
		res.Plans = append(res.Plans, plan)
	}
	return res, nil
}

func (s *paymentService) CreateCheckoutSession(ctx context.Context, userId uuid.UUID, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	planType, ok := pricing.ParsePlan(req.PlanType)
	if !ok || planType == pricing.PlanNone {
		return nil, apperror.BadRequest("unknown plan")
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	profile, err := uow.ProfileRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, apperror.NotFound("profile not found")
	}

	mapping, err := uow.PriceMappingRepository().FindByPlan(ctx, string(planType))
	if err != nil {
		return nil, err
	}
	if mapping == nil {
		return nil, apperror.New(http.StatusServiceUnavailable, "PLAN_UNAVAILABLE", "this plan is not available for purchase yet", nil)
	}

	customerId := ""
	if profile.StripeCustomerId != nil {
		customerId = *profile.StripeCustomerId
	}
	if customerId == "" {
		customerId, err = s.gateway.CreateCustomer(ctx, profile.Email, profile.FullName, userId.String())
		if err != nil {
			return nil, s.providerError("create_customer", err)
		}
		if err := uow.ProfileRepository().UpdateFields(ctx, userId, map[string]interface{}{"stripe_customer_id": customerId}); err != nil {
			return nil, err
		}
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, billing.CheckoutParams{
		CustomerId: customerId,
		PriceId:    mapping.StripePriceId,
		UserId:     userId.String(),
		PlanType:   string(planType),
		SuccessURL: s.frontendURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  s.frontendURL + "/pricing?canceled=true",
	})
	if err != nil {
		return nil, s.providerError("create_checkout_session", err)
	}

	s.logger.Info("PAYMENT", "Checkout session created", map[string]interface{}{
		"user_id":    userId.String(),
		"plan":       string(planType),
		"session_id": session.Id,
	})
	return &dto.CheckoutResponse{SessionId: session.Id, Url: session.Url}, nil
}

// HandleWebhook records the event id and applies the event in one transaction, so a redelivery is a no-op.
func (s *paymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, billing.ErrInvalidSignature) {
			s.metrics.WebhookEvent("unknown", "invalid_signature")
			return apperror.BadRequest("invalid webhook signature")
		}
		return apperror.BadRequest("malformed webhook payload")
	}

	// Provider look-ups happen before the transaction opens.
	var subscription *billing.Subscription
	switch {
	case event.Type == billing.EventCheckoutCompleted && event.Session != nil && event.Session.SubscriptionId != "":
		subscription = s.lookupSubscription(ctx, event.Session.SubscriptionId)
	case event.Type == billing.EventInvoicePaid && event.Invoice != nil && event.Invoice.SubscriptionId != "":
		subscription = s.lookupSubscription(ctx, event.Invoice.SubscriptionId)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	fresh, err := uow.StripeEventRepository().MarkProcessed(ctx, event.Id, event.Type)
	if err != nil {
		return err
	}
	if !fresh {
		s.metrics.WebhookEvent(event.Type, "duplicate")
		s.logger.Info("PAYMENT", "Duplicate webhook event ignored", map[string]interface{}{"event_id": event.Id})
		return nil
	}

	var after afterCommit
	result := "processed"
	switch event.Type {
	case billing.EventCheckoutCompleted:
		if event.Session == nil || !event.Session.Paid() {
			result = "ignored"
			break
		}
		_, err = s.reconcileSession(ctx, uow, event.Session, subscription, &after)
	case billing.EventInvoicePaid:
		if event.Invoice == nil || event.Invoice.BillingReason != billing.BillingReasonCycle || !event.Invoice.Paid {
			result = "ignored"
			break
		}
		err = s.applyRenewal(ctx, uow, event.Invoice, subscription, &after)
	case billing.EventSubscriptionUpdated:
		if event.Subscription != nil {
			err = s.mirrorSubscription(ctx, uow, event.Subscription)
		}
	case billing.EventSubscriptionDeleted:
		if event.Subscription != nil {
			err = s.endSubscription(ctx, uow, event.Subscription, &after)
		}
	default:
		result = "ignored"
	}
	if err != nil {
		s.metrics.WebhookEvent(event.Type, "error")
		s.logger.Error("PAYMENT", "Webhook handling failed", map[string]interface{}{
			"event_id": event.Id,
			"type":     event.Type,
			"error":    err.Error(),
		})
		return err
	}

	if err := uow.Commit(); err != nil {
		return err
	}
	after.run()
	s.metrics.WebhookEvent(event.Type, result)
	s.logger.Info("PAYMENT", "Webhook event handled", map[string]interface{}{
		"event_id": event.Id,
		"type":     event.Type,
		"result":   result,
	})
	return nil
}

// ProcessPaymentCompletion is the client-driven fallback for a webhook that has not landed yet.
func (s *paymentService) ProcessPaymentCompletion(ctx context.Context, userId uuid.UUID, req *dto.ProcessPaymentRequest) (*dto.ProcessPaymentResponse, error) {
	session, err := s.gateway.GetCheckoutSession(ctx, req.SessionId)
	if err != nil {
		return nil, s.providerError("get_checkout_session", err)
	}
	if sessionOwner(session) != userId.String() {
		return nil, apperror.Forbidden("this checkout session belongs to another user")
	}
	if !session.Paid() {
		return &dto.ProcessPaymentResponse{Processed: false}, nil
	}

	var subscription *billing.Subscription
	if session.SubscriptionId != "" {
		subscription = s.lookupSubscription(ctx, session.SubscriptionId)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	var after afterCommit
	res, err := s.reconcileSession(ctx, uow, session, subscription, &after)
	if err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		if res.AlreadyApplied {
			// A concurrent reconciliation of the same session won the insert.
			return res, nil
		}
		return nil, err
	}
	after.run()
	return res, nil
}

func (s *paymentService) lookupSubscription(ctx context.Context, subscriptionId string) *billing.Subscription {
	sub, err := s.gateway.GetSubscription(ctx, subscriptionId)
	if err != nil {
		s.logger.Warn("PAYMENT", "Could not load subscription, using default period", map[string]interface{}{
			"subscription_id": subscriptionId,
			"error":           err.Error(),
		})
		return nil
	}
	return sub
}

func sessionOwner(session *billing.CheckoutSession) string {
	if session.ClientReferenceId != "" {
		return session.ClientReferenceId
	}
	return session.Metadata["user_id"]
}

// reconcileSession activates the plan and grants its monthly credits at most once per session.
func (s *paymentService) reconcileSession(
	ctx context.Context,
	uow unitofwork.UnitOfWork,
	session *billing.CheckoutSession,
	subscription *billing.Subscription,
	after *afterCommit,
) (*dto.ProcessPaymentResponse, error) {
	userId, err := uuid.Parse(sessionOwner(session))
	if err != nil {
		return nil, apperror.BadRequest("checkout session has no user reference")
	}
	planType, ok := pricing.ParsePlan(session.Metadata["plan_type"])
	plan, known := pricing.Lookup(planType)
	if !ok || !known {
		return nil, apperror.BadRequest("checkout session has no plan")
	}

	profiles := uow.ProfileRepository()
	profile, err := profiles.FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, apperror.NotFound("profile not found")
	}

	balance, applied, err := applyCredit(ctx, uow, ledgerEntry{
		UserId:      userId,
		Amount:      plan.MonthlyCredits,
		Type:        entity.CreditTypePurchase,
		Description: plan.Name + " plan subscription",
		Reference:   sessionReference(session.Id),
		Metadata: map[string]interface{}{
			"plan":            string(planType),
			"session_id":      session.Id,
			"subscription_id": session.SubscriptionId,
		},
	})
	if errors.Is(err, errDuplicateReference) {
		applied = false
		balance = profile.Credits
	} else if err != nil {
		return nil, err
	}

	res := &dto.ProcessPaymentResponse{
		Processed:      true,
		AlreadyApplied: !applied,
		Plan:           string(planType),
		Balance:        balance,
	}
	if !applied {
		return res, nil
	}

	start, renewal := period(subscription)
	fields := map[string]interface{}{
		"subscription_plan":         string(planType),
		"subscription_status":       subscriptionStatusActive,
		"subscription_start_date":   start,
		"subscription_renewal_date": renewal,
	}
	if session.CustomerId != "" {
		fields["stripe_customer_id"] = session.CustomerId
	}
	if session.SubscriptionId != "" {
		fields["stripe_subscription_id"] = session.SubscriptionId
	}
	if err := profiles.UpdateFields(ctx, userId, fields); err != nil {
		return nil, err
	}

	res.CreditsAdded = plan.MonthlyCredits
	after.add(func() {
		s.metrics.CreditsGranted(string(entity.CreditTypePurchase), plan.MonthlyCredits)
		s.notifier.SubscriptionActivated(ctx, userId, profile.Email, string(planType), plan.MonthlyCredits)
		s.logger.Info("PAYMENT", "Subscription activated", map[string]interface{}{
			"user_id":    userId.String(),
			"plan":       string(planType),
			"session_id": session.Id,
		})
	})
	return res, nil
}

func period(sub *billing.Subscription) (time.Time, time.Time) {
	if sub != nil && !sub.CurrentPeriodEnd.IsZero() {
		return sub.CurrentPeriodStart, sub.CurrentPeriodEnd
	}
	now := time.Now()
	return now, now.AddDate(0, 1, 0)
}

func (s *paymentService) profileForSubscription(ctx context.Context, uow unitofwork.UnitOfWork, subscriptionId, customerId string) (*entity.Profile, error) {
	profiles := uow.ProfileRepository()
	if subscriptionId != "" {
		profile, err := profiles.FindOne(ctx, specification.ByStripeSubscription{SubscriptionID: subscriptionId})
		if err != nil || profile != nil {
			return profile, err
		}
	}
	if customerId != "" {
		return profiles.FindOne(ctx, specification.ByStripeCustomer{CustomerID: customerId})
	}
	return nil, nil
}

// planForPrice resolves a Stripe price to a plan, falling back to the profile's current plan.
func (s *paymentService) planForPrice(ctx context.Context, uow unitofwork.UnitOfWork, priceId string, profile *entity.Profile) (pricing.Plan, bool, error) {
	if priceId != "" {
		mapping, err := uow.PriceMappingRepository().FindByPriceId(ctx, priceId)
		if err != nil {
			return pricing.Plan{}, false, err
		}
		if mapping != nil {
			plan, ok := pricing.Lookup(pricing.PlanType(mapping.PlanType))
			return plan, ok, nil
		}
	}
	plan, ok := pricing.Lookup(pricing.PlanType(profile.Plan()))
	return plan, ok, nil
}

func (s *paymentService) applyRenewal(
	ctx context.Context,
	uow unitofwork.UnitOfWork,
	invoice *billing.Invoice,
	subscription *billing.Subscription,
	after *afterCommit,
) error {
	profile, err := s.profileForSubscription(ctx, uow, invoice.SubscriptionId, invoice.CustomerId)
	if err != nil {
		return err
	}
	if profile == nil {
		s.logger.Warn("PAYMENT", "Renewal invoice for unknown customer", map[string]interface{}{"invoice_id": invoice.Id})
		return nil
	}
	plan, ok, err := s.planForPrice(ctx, uow, invoice.PriceId, profile)
	if err != nil {
		return err
	}
	if !ok {
		s.logger.Warn("PAYMENT", "Renewal invoice without a known plan", map[string]interface{}{"invoice_id": invoice.Id})
		return nil
	}

	_, applied, err := applyCredit(ctx, uow, ledgerEntry{
		UserId:      profile.Id,
		Amount:      plan.MonthlyCredits,
		Type:        entity.CreditTypeRenewal,
		Description: plan.Name + " plan renewal",
		Reference:   invoiceReference(invoice.Id),
		Metadata:    map[string]interface{}{"plan": string(plan.Type), "invoice_id": invoice.Id},
	})
	if errors.Is(err, errDuplicateReference) {
		return nil
	}
	if err != nil || !applied {
		return err
	}

	_, renewal := period(subscription)
	if err := uow.ProfileRepository().UpdateFields(ctx, profile.Id, map[string]interface{}{
		"subscription_plan":         string(plan.Type),
		"subscription_status":       subscriptionStatusActive,
		"subscription_renewal_date": renewal,
	}); err != nil {
		return err
	}

	after.add(func() {
		s.metrics.CreditsGranted(string(entity.CreditTypeRenewal), plan.MonthlyCredits)
		s.notifier.SubscriptionRenewed(ctx, profile.Id, profile.Email, string(plan.Type), plan.MonthlyCredits)
	})
	return nil
}

func (s *paymentService) mirrorSubscription(ctx context.Context, uow unitofwork.UnitOfWork, sub *billing.Subscription) error {
	profile, err := s.profileForSubscription(ctx, uow, sub.Id, sub.CustomerId)
	if err != nil || profile == nil {
		return err
	}

	fields := map[string]interface{}{
		"subscription_status":    sub.Status,
		"stripe_subscription_id": sub.Id,
	}
	if !sub.CurrentPeriodEnd.IsZero() {
		fields["subscription_renewal_date"] = sub.CurrentPeriodEnd
	}
	plan, ok, err := s.planForPrice(ctx, uow, sub.PriceId, profile)
	if err != nil {
		return err
	}
	if ok {
		fields["subscription_plan"] = string(plan.Type)
	}
	return uow.ProfileRepository().UpdateFields(ctx, profile.Id, fields)
}

// endSubscription clears the plan. Remaining credits stay spendable.
func (s *paymentService) endSubscription(ctx context.Context, uow unitofwork.UnitOfWork, sub *billing.Subscription, after *afterCommit) error {
	profile, err := s.profileForSubscription(ctx, uow, sub.Id, sub.CustomerId)
	if err != nil || profile == nil {
		return err
	}
	previous := profile.Plan()
	if err := uow.ProfileRepository().UpdateFields(ctx, profile.Id, map[string]interface{}{
		"subscription_plan":         nil,
		"subscription_status":       subscriptionStatusCanceled,
		"subscription_renewal_date": nil,
		"stripe_subscription_id":    nil,
	}); err != nil {
		return err
	}
	after.add(func() {
		s.notifier.SubscriptionCanceled(ctx, profile.Id, profile.Email, previous)
	})
	return nil
}

func (s *paymentService) GetSubscriptionStatus(ctx context.Context, userId uuid.UUID) (*dto.SubscriptionStatusResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	profile, err := uow.ProfileRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, apperror.NotFound("profile not found")
	}
	return &dto.SubscriptionStatusResponse{
		Plan:        profile.SubscriptionPlan,
		Status:      profile.SubscriptionStatus,
		StartDate:   profile.SubscriptionStartDate,
		RenewalDate: profile.SubscriptionRenewalDate,
		Credits:     profile.Credits,
		HasCustomer: profile.StripeCustomerId != nil && *profile.StripeCustomerId != "",
	}, nil
}

func (s *paymentService) CreateBillingPortal(ctx context.Context, userId uuid.UUID) (*dto.BillingPortalResponse, error) {
	status, err := s.GetSubscriptionStatus(ctx, userId)
	if err != nil {
		return nil, err
	}
	if !status.HasCustomer {
		return nil, apperror.BadRequest("no billing account yet, subscribe to a plan first")
	}

	profile, err := s.uowFactory.NewUnitOfWork(ctx).ProfileRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, err
	}
	url, err := s.gateway.CreatePortalSession(ctx, *profile.StripeCustomerId, s.frontendURL+"/settings")
	if err != nil {
		return nil, s.providerError("create_portal_session", err)
	}
	return &dto.BillingPortalResponse{Url: url}, nil
}

func (s *paymentService) CancelSubscription(ctx context.Context, userId uuid.UUID) (*dto.CancelSubscriptionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	profile, err := uow.ProfileRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, apperror.NotFound("profile not found")
	}
	if profile.StripeSubscriptionId == nil || *profile.StripeSubscriptionId == "" {
		return nil, apperror.BadRequest("no active subscription")
	}

	sub, err := s.gateway.CancelAtPeriodEnd(ctx, *profile.StripeSubscriptionId)
	if err != nil {
		return nil, s.providerError("cancel_subscription", err)
	}

	fields := map[string]interface{}{"subscription_status": sub.Status}
	if !sub.CurrentPeriodEnd.IsZero() {
		fields["subscription_renewal_date"] = sub.CurrentPeriodEnd
	}
	if err := uow.ProfileRepository().UpdateFields(ctx, userId, fields); err != nil {
		return nil, err
	}

	s.logger.Info("PAYMENT", "Subscription set to cancel at period end", map[string]interface{}{"user_id": userId.String()})
	res := &dto.CancelSubscriptionResponse{CancelAtPeriodEnd: sub.CancelAtPeriodEnd}
	if !sub.CurrentPeriodEnd.IsZero() {
		end := sub.CurrentPeriodEnd
		res.RenewalDate = &end
	}
	return res, nil
}
