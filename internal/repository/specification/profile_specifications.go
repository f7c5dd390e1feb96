package specification

import (
	"strings"

	"gorm.io/gorm"
)

type ByEmail struct {
	Email string
}

func (s ByEmail) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("LOWER(email) = ?", strings.ToLower(s.Email))
}

type ByReferralCode struct {
	Code string
}

func (s ByReferralCode) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("referral_code = ?", strings.ToUpper(s.Code))
}

type ByStripeCustomer struct {
	CustomerID string
}

func (s ByStripeCustomer) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("stripe_customer_id = ?", s.CustomerID)
}

type ByStripeSubscription struct {
	SubscriptionID string
}

func (s ByStripeSubscription) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("stripe_subscription_id = ?", s.SubscriptionID)
}

// ProfileSearch matches email or full name, case-insensitively on every dialect.
type ProfileSearch struct {
	Query string
}

func (s ProfileSearch) Apply(db *gorm.DB) *gorm.DB {
	if strings.TrimSpace(s.Query) == "" {
		return db
	}
	pattern := "%" + strings.ToLower(strings.TrimSpace(s.Query)) + "%"
	return db.Where("LOWER(email) LIKE ? OR LOWER(full_name) LIKE ?", pattern, pattern)
}

type BannedProfiles struct{}

func (s BannedProfiles) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("is_banned = ?", true)
}

type LockedProfiles struct{}

func (s LockedProfiles) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("is_locked = ?", true)
}

type AdminProfiles struct{}

func (s AdminProfiles) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("is_admin = ?", true)
}

type SubscribedProfiles struct{}

func (s SubscribedProfiles) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("subscription_plan IS NOT NULL")
}

type ByPlan struct {
	Plan string
}

func (s ByPlan) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("subscription_plan = ?", s.Plan)
}
