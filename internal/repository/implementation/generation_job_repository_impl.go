package implementation

import (
	"context"
	"errors"

	"fanova-be/internal/entity"
	"fanova-be/internal/mapper"
	"fanova-be/internal/model"
	"fanova-be/internal/repository/contract"
	"fanova-be/internal/repository/specification"

	"gorm.io/gorm"
)

type GenerationJobRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.JobMapper
}

func NewGenerationJobRepository(db *gorm.DB) contract.GenerationJobRepository {
	return &GenerationJobRepositoryImpl{
		db:     db,
		mapper: mapper.NewJobMapper(),
	}
}

func (r *GenerationJobRepositoryImpl) Create(ctx context.Context, job *entity.GenerationJob) error {
	return r.db.WithContext(ctx).Create(r.mapper.ToModel(job)).Error
}

func (r *GenerationJobRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.GenerationJob, error) {
	var m model.GenerationJob
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *GenerationJobRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.GenerationJob, error) {
	var models []*model.GenerationJob
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *GenerationJobRepositoryImpl) SaveState(ctx context.Context, job *entity.GenerationJob) error {
	m := r.mapper.ToModel(job)
	return r.db.WithContext(ctx).Model(&model.GenerationJob{}).Where("id = ?", job.Id).
		Select("status", "progress", "image_urls", "error", "updated_at").
		Updates(m).Error
}
