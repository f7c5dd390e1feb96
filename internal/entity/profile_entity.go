package entity

import (
	"time"

	"github.com/google/uuid"
)

type AdminRole string

const (
	AdminRoleAdmin      AdminRole = "admin"
	AdminRoleSuperAdmin AdminRole = "super_admin"
)

type Profile struct {
	Id                      uuid.UUID
	Email                   string
	FullName                string
	Credits                 int
	SubscriptionPlan        *string
	SubscriptionStatus      *string
	SubscriptionStartDate   *time.Time
	SubscriptionRenewalDate *time.Time
	FreeGenerationsUsed     int
	IsAdmin                 bool
	AdminRole               *AdminRole
	IsBanned                bool
	BannedReason            *string
	BannedAt                *time.Time
	IsLocked                bool
	LockedReason            *string
	LockedAt                *time.Time
	ReferralCode            string
	ReferredBy              *uuid.UUID
	StripeCustomerId        *string
	StripeSubscriptionId    *string
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// Plan returns the subscription plan or "" when the user has none.
func (p *Profile) Plan() string {
	if p.SubscriptionPlan == nil {
		return ""
	}
	return *p.SubscriptionPlan
}

func (p *Profile) IsSuperAdmin() bool {
	return p.IsAdmin && p.AdminRole != nil && *p.AdminRole == AdminRoleSuperAdmin
}
