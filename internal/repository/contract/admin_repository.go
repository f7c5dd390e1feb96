package contract

import (
	"context"

	"fanova-be/internal/entity"
	"fanova-be/internal/repository/specification"
)

type AdminActionRepository interface {
	Create(ctx context.Context, action *entity.AdminAction) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.AdminAction, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
