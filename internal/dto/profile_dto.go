package dto

import (
	"time"

	"github.com/google/uuid"
)

type ProfileResponse struct {
	Id                      uuid.UUID  `json:"id"`
	Email                   string     `json:"email"`
	FullName                string     `json:"fullName"`
	Credits                 int        `json:"credits"`
	SubscriptionPlan        *string    `json:"subscriptionPlan"`
	SubscriptionStatus      *string    `json:"subscriptionStatus"`
	SubscriptionRenewalDate *time.Time `json:"subscriptionRenewalDate"`
	FreeGenerationsLeft     int        `json:"freeGenerationsLeft"`
	IsAdmin                 bool       `json:"isAdmin"`
	AdminRole               *string    `json:"adminRole"`
	IsLocked                bool       `json:"isLocked"`
	ReferralCode            string     `json:"referralCode"`
	CreatedAt               time.Time  `json:"createdAt"`
}

type UpdateProfileRequest struct {
	FullName string `json:"fullName" validate:"required,min=1,max=120"`
}

type CreditsResponse struct {
	Balance             int             `json:"balance"`
	Plan                *string         `json:"plan"`
	FreeGenerationsLeft int             `json:"freeGenerationsLeft"`
	Pricing             PlanPricingInfo `json:"pricing"`
}

// PlanPricingInfo is what one image costs on the caller's plan.
type PlanPricingInfo struct {
	SfwImage    int  `json:"sfwImage"`
	NsfwImage   *int `json:"nsfwImage"`
	Batch       int  `json:"batch"`
	BatchSize   int  `json:"batchSize"`
	AddOn       int  `json:"addOn"`
	NsfwAllowed bool `json:"nsfwAllowed"`
}

type CreditTransactionListRequest struct {
	Page  int    `query:"page"`
	Limit int    `query:"limit"`
	Type  string `query:"type"`
}

type CreditTransactionResponse struct {
	Id           uuid.UUID              `json:"id"`
	Amount       int                    `json:"amount"`
	Type         string                 `json:"type"`
	Description  string                 `json:"description"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	BalanceAfter int                    `json:"balanceAfter"`
	CreatedAt    time.Time              `json:"createdAt"`
}

type CreditTransactionListResponse struct {
	Items []*CreditTransactionResponse `json:"items"`
	Total int64                        `json:"total"`
	Page  int                          `json:"page"`
	Limit int                          `json:"limit"`
}

type QuoteRequest struct {
	IsNsfw         bool `json:"isNsfw"`
	Batch          bool `json:"batch"`
	HighResolution bool `json:"highResolution"`
	Priority       bool `json:"priority"`
}

type QuoteResponse struct {
	Cost       int  `json:"cost"`
	Free       bool `json:"free"`
	Images     int  `json:"images"`
	Balance    int  `json:"balance"`
	Affordable bool `json:"affordable"`
}
