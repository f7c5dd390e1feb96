package implementation

import (
	"context"

	"fanova-be/internal/entity"
	"fanova-be/internal/mapper"
	"fanova-be/internal/model"
	"fanova-be/internal/repository/contract"
	"fanova-be/internal/repository/specification"

	"gorm.io/gorm"
)

type AdminActionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.AdminMapper
}

func NewAdminActionRepository(db *gorm.DB) contract.AdminActionRepository {
	return &AdminActionRepositoryImpl{
		db:     db,
		mapper: mapper.NewAdminMapper(),
	}
}

func (r *AdminActionRepositoryImpl) Create(ctx context.Context, action *entity.AdminAction) error {
	m := r.mapper.ActionToModel(action)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*action = *r.mapper.ActionToEntity(m)
	return nil
}

func (r *AdminActionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.AdminAction, error) {
	var models []*model.AdminAction
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*entity.AdminAction, 0, len(models))
	for _, m := range models {
		out = append(out, r.mapper.ActionToEntity(m))
	}
	return out, nil
}

func (r *AdminActionRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := applySpecifications(r.db.WithContext(ctx).Model(&model.AdminAction{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
