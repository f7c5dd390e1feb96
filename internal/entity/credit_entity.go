package entity

import (
	"time"

	"github.com/google/uuid"
)

type CreditTransactionType string

const (
	CreditTypePurchase        CreditTransactionType = "purchase"
	CreditTypeRenewal         CreditTransactionType = "renewal"
	CreditTypeSpend           CreditTransactionType = "spend"
	CreditTypeRefund          CreditTransactionType = "refund"
	CreditTypeReferralBonus   CreditTransactionType = "referral_bonus"
	CreditTypeAdminAdjustment CreditTransactionType = "admin_adjustment"
	CreditTypeFreeGeneration  CreditTransactionType = "free_generation"
)

type CreditTransaction struct {
	Id           uuid.UUID
	UserId       uuid.UUID
	Amount       int
	Type         CreditTransactionType
	Description  string
	Metadata     map[string]interface{}
	Reference    *string
	BalanceAfter int
	CreatedAt    time.Time
}

type Referral struct {
	Id              uuid.UUID
	ReferrerId      uuid.UUID
	ReferredId      uuid.UUID
	Code            string
	ReferrerCredits int
	ReferredCredits int
	CreatedAt       time.Time
}
