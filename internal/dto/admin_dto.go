package dto

import (
	"time"

	"github.com/google/uuid"
)

// --- User Management ---

type AdminUserListRequest struct {
	Page   int    `query:"page"`
	Limit  int    `query:"limit"`
	Search string `query:"search"`
	Filter string `query:"filter" validate:"omitempty,oneof=banned locked admins subscribed"`
}

type AdminUserResponse struct {
	Id                  uuid.UUID  `json:"id"`
	Email               string     `json:"email"`
	FullName            string     `json:"fullName"`
	Credits             int        `json:"credits"`
	SubscriptionPlan    *string    `json:"subscriptionPlan"`
	SubscriptionStatus  *string    `json:"subscriptionStatus"`
	FreeGenerationsUsed int        `json:"freeGenerationsUsed"`
	IsAdmin             bool       `json:"isAdmin"`
	AdminRole           *string    `json:"adminRole"`
	IsBanned            bool       `json:"isBanned"`
	BannedReason        *string    `json:"bannedReason"`
	BannedAt            *time.Time `json:"bannedAt"`
	IsLocked            bool       `json:"isLocked"`
	LockedReason        *string    `json:"lockedReason"`
	LockedAt            *time.Time `json:"lockedAt"`
	ReferralCode        string     `json:"referralCode"`
	CreatedAt           time.Time  `json:"createdAt"`
}

type AdminUserListResponse struct {
	Users []*AdminUserResponse `json:"users"`
	Total int64                `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
}

type AdminUserDetailResponse struct {
	User               *AdminUserResponse           `json:"user"`
	Models             []*ModelResponse             `json:"models"`
	RecentTransactions []*CreditTransactionResponse `json:"recentTransactions"`
	ReferralsMade      int64                        `json:"referralsMade"`
	ReferredBy         *uuid.UUID                   `json:"referredBy"`
}

type AdminReasonRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type AdminUpdateUserRequest struct {
	FullName         *string `json:"fullName" validate:"omitempty,min=1,max=120"`
	Credits          *int    `json:"credits" validate:"omitempty,gte=0"`
	SubscriptionPlan *string `json:"subscriptionPlan" validate:"omitempty,oneof=none base essential ultimate"`
	Reason           string  `json:"reason" validate:"max=500"`
}

// --- Admin Management ---

type GrantAdminRequest struct {
	UserId *uuid.UUID `json:"userId"`
	Email  string     `json:"email" validate:"omitempty,email"`
	Role   string     `json:"role" validate:"required,oneof=admin super_admin"`
}

type BootstrapAdminRequest struct {
	Secret string `json:"secret" validate:"required"`
}

// --- Stats and Audit ---

type AdminStatsResponse struct {
	TotalUsers        int64            `json:"totalUsers"`
	BannedUsers       int64            `json:"bannedUsers"`
	LockedUsers       int64            `json:"lockedUsers"`
	Admins            int64            `json:"admins"`
	SubscribersByPlan map[string]int64 `json:"subscribersByPlan"`
	TotalModels       int64            `json:"totalModels"`
	TotalImages       int64            `json:"totalImages"`
	CreditsSpent      int64            `json:"creditsSpent"`
	TotalReferrals    int64            `json:"totalReferrals"`
	NewUsersLast7Days int64            `json:"newUsersLast7Days"`
}

type AdminActionListRequest struct {
	Page     int    `query:"page"`
	Limit    int    `query:"limit"`
	TargetId string `query:"targetId"`
}

type AdminActionResponse struct {
	Id           uuid.UUID              `json:"id"`
	AdminId      uuid.UUID              `json:"adminId"`
	TargetUserId *uuid.UUID             `json:"targetUserId"`
	Action       string                 `json:"action"`
	Reason       *string                `json:"reason"`
	Details      map[string]interface{} `json:"details,omitempty"`
	CreatedAt    time.Time              `json:"createdAt"`
}
