package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type CreditTransaction struct {
	Id           uuid.UUID         `gorm:"type:uuid;primaryKey"`
	UserId       uuid.UUID         `gorm:"type:uuid;not null;index"`
	Amount       int               `gorm:"not null"`
	Type         string            `gorm:"type:varchar(30);not null;index"`
	Description  string            `gorm:"type:text"`
	Metadata     datatypes.JSONMap `gorm:"column:metadata"`
	Reference    *string           `gorm:"type:varchar(255);uniqueIndex"`
	BalanceAfter int               `gorm:"not null"`
	CreatedAt    time.Time         `gorm:"autoCreateTime;index"`
}

func (CreditTransaction) TableName() string {
	return "credit_transactions"
}

type Referral struct {
	Id              uuid.UUID `gorm:"type:uuid;primaryKey"`
	ReferrerId      uuid.UUID `gorm:"type:uuid;not null;index;check:chk_referrals_self,referrer_id <> referred_id"`
	ReferredId      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	Code            string    `gorm:"type:varchar(8);not null"`
	ReferrerCredits int       `gorm:"not null"`
	ReferredCredits int       `gorm:"not null"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
}

func (Referral) TableName() string {
	return "referrals"
}
