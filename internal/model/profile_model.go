package model

import (
	"time"

	"github.com/google/uuid"
)

// Profile mirrors the Supabase auth user with app specific state.
type Profile struct {
	Id                      uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Email                   string     `gorm:"type:varchar(255);index"`
	FullName                string     `gorm:"type:varchar(255)"`
	Credits                 int        `gorm:"not null;default:0;check:chk_profiles_credits,credits >= 0"`
	SubscriptionPlan        *string    `gorm:"type:varchar(20);index"`
	SubscriptionStatus      *string    `gorm:"type:varchar(30)"`
	SubscriptionStartDate   *time.Time `gorm:"column:subscription_start_date"`
	SubscriptionRenewalDate *time.Time `gorm:"column:subscription_renewal_date"`
	FreeGenerationsUsed     int        `gorm:"not null;default:0"`
	IsAdmin                 bool       `gorm:"not null;default:false;index"`
	AdminRole               *string    `gorm:"type:varchar(20)"`
	IsBanned                bool       `gorm:"not null;default:false"`
	BannedReason            *string    `gorm:"type:text"`
	BannedAt                *time.Time `gorm:"column:banned_at"`
	IsLocked                bool       `gorm:"not null;default:false"`
	LockedReason            *string    `gorm:"type:text"`
	LockedAt                *time.Time `gorm:"column:locked_at"`
	ReferralCode            string     `gorm:"type:varchar(8);uniqueIndex"`
	ReferredBy              *uuid.UUID `gorm:"type:uuid"`
	StripeCustomerId        *string    `gorm:"type:varchar(255);index"`
	StripeSubscriptionId    *string    `gorm:"type:varchar(255);index"`
	CreatedAt               time.Time  `gorm:"autoCreateTime"`
	UpdatedAt               time.Time  `gorm:"autoUpdateTime"`
}

func (Profile) TableName() string {
	return "profiles"
}
