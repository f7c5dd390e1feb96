package contract

import (
	"context"

	"fanova-be/internal/entity"
	"fanova-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ProfileRepository interface {
	Create(ctx context.Context, profile *entity.Profile) error
	Update(ctx context.Context, profile *entity.Profile) error
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Profile, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Profile, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// DeductCredits decrements only when the balance covers amount. ok is false when it does not.
	DeductCredits(ctx context.Context, id uuid.UUID, amount int) (balance int, ok bool, err error)
	AddCredits(ctx context.Context, id uuid.UUID, amount int) (balance int, err error)
	// ConsumeFreeGeneration increments free_generations_used while it is below limit.
	ConsumeFreeGeneration(ctx context.Context, id uuid.UUID, limit int) (bool, error)
	ReleaseFreeGeneration(ctx context.Context, id uuid.UUID) error
	CountByPlan(ctx context.Context) (map[string]int64, error)
}
