package service

import (
	"context"
	"errors"
	"fmt"

	"fanova-be/internal/entity"
	"fanova-be/internal/pkg/apperror"
	"fanova-be/internal/repository/specification"
	"fanova-be/internal/repository/unitofwork"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// errDuplicateReference means a concurrent writer applied the same reference first.
// The transaction is unusable afterwards and must be rolled back.
var errDuplicateReference = errors.New("ledger reference already applied")

type ledgerEntry struct {
	UserId      uuid.UUID
	Amount      int
	Type        entity.CreditTransactionType
	Description string
	Reference   string
	Metadata    map[string]interface{}
}

// Ledger references. Each one can be applied at most once.
func spendReference(jobId uuid.UUID) string  { return "spend:job:" + jobId.String() }
func freeReference(jobId uuid.UUID) string   { return "free:job:" + jobId.String() }
func refundReference(jobId uuid.UUID) string { return "refund:job:" + jobId.String() }
func sessionReference(sessionId string) string {
	return "stripe:session:" + sessionId
}
func invoiceReference(invoiceId string) string {
	return "stripe:invoice:" + invoiceId
}
func referralReference(referredId uuid.UUID, side string) string {
	return fmt.Sprintf("referral:%s:%s", referredId, side)
}

// applyCredit moves the balance and appends the matching ledger row. It must run inside an open
// transaction so both writes commit together. applied is false when the reference was already used.
func applyCredit(ctx context.Context, uow unitofwork.UnitOfWork, entry ledgerEntry) (int, bool, error) {
	ledger := uow.CreditTransactionRepository()
	profiles := uow.ProfileRepository()

	if entry.Reference != "" {
		exists, err := ledger.ExistsReference(ctx, entry.Reference)
		if err != nil {
			return 0, false, err
		}
		if exists {
			balance, err := currentBalance(ctx, uow, entry.UserId)
			return balance, false, err
		}
	}

	var balance int
	switch {
	case entry.Amount > 0:
		b, err := profiles.AddCredits(ctx, entry.UserId, entry.Amount)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, false, apperror.NotFound("profile not found")
			}
			return 0, false, err
		}
		balance = b
	case entry.Amount < 0:
		b, ok, err := profiles.DeductCredits(ctx, entry.UserId, -entry.Amount)
		if err != nil {
			return 0, false, err
		}
		if !ok {
			return 0, false, apperror.ErrInsufficientCredits
		}
		balance = b
	default:
		b, err := currentBalance(ctx, uow, entry.UserId)
		if err != nil {
			return 0, false, err
		}
		balance = b
	}

	row := &entity.CreditTransaction{
		Id:           uuid.New(),
		UserId:       entry.UserId,
		Amount:       entry.Amount,
		Type:         entry.Type,
		Description:  entry.Description,
		Metadata:     entry.Metadata,
		BalanceAfter: balance,
	}
	if entry.Reference != "" {
		ref := entry.Reference
		row.Reference = &ref
	}
	if err := ledger.Create(ctx, row); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, false, errDuplicateReference
		}
		return 0, false, err
	}
	return balance, true, nil
}

func currentBalance(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID) (int, error) {
	profile, err := uow.ProfileRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return 0, err
	}
	if profile == nil {
		return 0, apperror.NotFound("profile not found")
	}
	return profile.Credits, nil
}
