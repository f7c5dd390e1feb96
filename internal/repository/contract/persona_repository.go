package contract

import (
	"context"

	"fanova-be/internal/entity"
	"fanova-be/internal/repository/specification"

	"github.com/google/uuid"
)

type PersonaRepository interface {
	Create(ctx context.Context, persona *entity.Persona) error
	Update(ctx context.Context, persona *entity.Persona) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByUser(ctx context.Context, userId uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Persona, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Persona, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	IncrementGenerationCount(ctx context.Context, id uuid.UUID) error
	SetLockedReference(ctx context.Context, id uuid.UUID, imageId uuid.UUID) error
}

type GeneratedImageRepository interface {
	Create(ctx context.Context, image *entity.GeneratedImage) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.GeneratedImage, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.GeneratedImage, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// Select clears is_selected on every other image of the model, then sets it on imageId.
	Select(ctx context.Context, modelId, imageId uuid.UUID) error
	DeleteByModel(ctx context.Context, modelId uuid.UUID) error
	DeleteByUser(ctx context.Context, userId uuid.UUID) error
}
