package dto

import (
	"time"
)

type ReferralLinkResponse struct {
	Code string `json:"code"`
	Link string `json:"link"`
}

type ReferredUser struct {
	Email     string    `json:"email"`
	Credits   int       `json:"credits"`
	CreatedAt time.Time `json:"createdAt"`
}

type ReferralStatsResponse struct {
	TotalReferrals int             `json:"totalReferrals"`
	CreditsEarned  int             `json:"creditsEarned"`
	Referred       []*ReferredUser `json:"referred"`
}

type ProcessReferralRequest struct {
	ReferralCode string `json:"referralCode" validate:"required,min=4,max=16"`
}

type ProcessReferralResponse struct {
	Processed    bool `json:"processed"`
	CreditsAdded int  `json:"creditsAdded"`
	Balance      int  `json:"balance"`
}
