package dto

import "time"

type PlanResponse struct {
	PlanType       string  `json:"planType"`
	Name           string  `json:"name"`
	MonthlyCredits int     `json:"monthlyCredits"`
	PriceCents     int64   `json:"priceCents"`
	Currency       string  `json:"currency"`
	NsfwAllowed    bool    `json:"nsfwAllowed"`
	NsfwCost       *int    `json:"nsfwCost"`
	StripePriceId  *string `json:"stripePriceId,omitempty"`
}

type PricingResponse struct {
	Plans               []*PlanResponse `json:"plans"`
	SfwImageCost        int             `json:"sfwImageCost"`
	BatchCost           int             `json:"batchCost"`
	BatchSize           int             `json:"batchSize"`
	AddOnCost           int             `json:"addOnCost"`
	FreeGenerationLimit int             `json:"freeGenerationLimit"`
}

type CheckoutRequest struct {
	PlanType string `json:"planType" validate:"required,oneof=base essential ultimate"`
}

type CheckoutResponse struct {
	SessionId string `json:"sessionId"`
	Url       string `json:"url"`
}

type ProcessPaymentRequest struct {
	SessionId string `json:"sessionId" validate:"required"`
}

type ProcessPaymentResponse struct {
	Processed      bool   `json:"processed"`
	AlreadyApplied bool   `json:"alreadyApplied"`
	Plan           string `json:"plan"`
	CreditsAdded   int    `json:"creditsAdded"`
	Balance        int    `json:"balance"`
}

type SubscriptionStatusResponse struct {
	Plan        *string    `json:"plan"`
	Status      *string    `json:"status"`
	StartDate   *time.Time `json:"startDate"`
	RenewalDate *time.Time `json:"renewalDate"`
	Credits     int        `json:"credits"`
	HasCustomer bool       `json:"hasCustomer"`
}

type BillingPortalResponse struct {
	Url string `json:"url"`
}

type CancelSubscriptionResponse struct {
	CancelAtPeriodEnd bool       `json:"cancelAtPeriodEnd"`
	RenewalDate       *time.Time `json:"renewalDate"`
}
