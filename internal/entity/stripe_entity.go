package entity

import "time"

type StripePriceMapping struct {
	PlanType        string
	StripePriceId   string
	StripeProductId string
	Amount          int64
	Currency        string
	Credits         int
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
