package contract

import (
	"context"

	"fanova-be/internal/entity"
	"fanova-be/internal/repository/specification"
)

type GenerationJobRepository interface {
	Create(ctx context.Context, job *entity.GenerationJob) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.GenerationJob, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.GenerationJob, error)
	// SaveState writes status, progress, images, error and updated_at.
	SaveState(ctx context.Context, job *entity.GenerationJob) error
}
