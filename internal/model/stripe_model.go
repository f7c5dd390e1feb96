package model

import "time"

type StripePriceMapping struct {
	PlanType        string    `gorm:"type:varchar(20);primaryKey"`
	StripePriceId   string    `gorm:"type:varchar(255);not null;uniqueIndex"`
	StripeProductId string    `gorm:"type:varchar(255);not null"`
	Amount          int64     `gorm:"not null"`
	Currency        string    `gorm:"type:varchar(10);not null"`
	Credits         int       `gorm:"not null"`
	Active          bool      `gorm:"not null;default:true"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

func (StripePriceMapping) TableName() string {
	return "stripe_price_mappings"
}

// StripeEvent records processed webhook deliveries.
type StripeEvent struct {
	Id          string    `gorm:"type:varchar(255);primaryKey"`
	Type        string    `gorm:"type:varchar(100);not null"`
	ProcessedAt time.Time `gorm:"autoCreateTime"`
}

func (StripeEvent) TableName() string {
	return "stripe_events"
}
