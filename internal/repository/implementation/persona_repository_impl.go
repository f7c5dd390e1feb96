package implementation

import (
	"context"
	"errors"

	"fanova-be/internal/entity"
	"fanova-be/internal/mapper"
	"fanova-be/internal/model"
	"fanova-be/internal/repository/contract"
	"fanova-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PersonaRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.PersonaMapper
}

func NewPersonaRepository(db *gorm.DB) contract.PersonaRepository {
	return &PersonaRepositoryImpl{
		db:     db,
		mapper: mapper.NewPersonaMapper(),
	}
}

func (r *PersonaRepositoryImpl) Create(ctx context.Context, persona *entity.Persona) error {
	m := r.mapper.ToModel(persona)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*persona = *r.mapper.ToEntity(m)
	return nil
}

func (r *PersonaRepositoryImpl) Update(ctx context.Context, persona *entity.Persona) error {
	m := r.mapper.ToModel(persona)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*persona = *r.mapper.ToEntity(m)
	return nil
}

func (r *PersonaRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Persona{}).Error
}

func (r *PersonaRepositoryImpl) DeleteByUser(ctx context.Context, userId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userId).Delete(&model.Persona{}).Error
}

func (r *PersonaRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Persona, error) {
	var m model.Persona
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *PersonaRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Persona, error) {
	var models []*model.Persona
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *PersonaRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := applySpecifications(r.db.WithContext(ctx).Model(&model.Persona{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PersonaRepositoryImpl) IncrementGenerationCount(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Persona{}).
		Where("id = ?", id).
		UpdateColumn("generation_count", gorm.Expr("generation_count + 1")).Error
}

func (r *PersonaRepositoryImpl) SetLockedReference(ctx context.Context, id uuid.UUID, imageId uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Persona{}).
		Where("id = ?", id).
		Update("locked_reference_image_id", imageId).Error
}

type GeneratedImageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.PersonaMapper
}

func NewGeneratedImageRepository(db *gorm.DB) contract.GeneratedImageRepository {
	return &GeneratedImageRepositoryImpl{
		db:     db,
		mapper: mapper.NewPersonaMapper(),
	}
}

func (r *GeneratedImageRepositoryImpl) Create(ctx context.Context, image *entity.GeneratedImage) error {
	m := r.mapper.ImageToModel(image)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*image = *r.mapper.ImageToEntity(m)
	return nil
}

func (r *GeneratedImageRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.GeneratedImage, error) {
	var m model.GeneratedImage
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ImageToEntity(&m), nil
}

func (r *GeneratedImageRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.GeneratedImage, error) {
	var models []*model.GeneratedImage
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ImagesToEntities(models), nil
}

func (r *GeneratedImageRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := applySpecifications(r.db.WithContext(ctx).Model(&model.GeneratedImage{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Select must clear first: the partial unique index rejects two selected rows even transiently.
func (r *GeneratedImageRepositoryImpl) Select(ctx context.Context, modelId, imageId uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Model(&model.GeneratedImage{}).
		Where("model_id = ? AND id <> ? AND is_selected = ?", modelId, imageId, true).
		Update("is_selected", false).Error; err != nil {
		return err
	}
	return db.Model(&model.GeneratedImage{}).
		Where("id = ? AND model_id = ?", imageId, modelId).
		Update("is_selected", true).Error
}

func (r *GeneratedImageRepositoryImpl) DeleteByModel(ctx context.Context, modelId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("model_id = ?", modelId).Delete(&model.GeneratedImage{}).Error
}

func (r *GeneratedImageRepositoryImpl) DeleteByUser(ctx context.Context, userId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userId).Delete(&model.GeneratedImage{}).Error
}
