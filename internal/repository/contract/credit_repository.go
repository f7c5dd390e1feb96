package contract

import (
	"context"

	"fanova-be/internal/entity"
	"fanova-be/internal/repository/specification"

	"github.com/google/uuid"
)

// CreditTransactionRepository is append-only.
type CreditTransactionRepository interface {
	Create(ctx context.Context, tx *entity.CreditTransaction) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.CreditTransaction, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.CreditTransaction, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	ExistsReference(ctx context.Context, reference string) (bool, error)
	SumAmount(ctx context.Context, specs ...specification.Specification) (int64, error)
}

type ReferralRepository interface {
	Create(ctx context.Context, referral *entity.Referral) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Referral, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Referral, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	DeleteByUser(ctx context.Context, userId uuid.UUID) error
}
