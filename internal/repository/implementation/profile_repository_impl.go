package implementation

import (
	"context"
	"errors"
	"time"

	"fanova-be/internal/entity"
	"fanova-be/internal/mapper"
	"fanova-be/internal/model"
	"fanova-be/internal/repository/contract"
	"fanova-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProfileRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ProfileMapper
}

func NewProfileRepository(db *gorm.DB) contract.ProfileRepository {
	return &ProfileRepositoryImpl{
		db:     db,
		mapper: mapper.NewProfileMapper(),
	}
}

func (r *ProfileRepositoryImpl) Create(ctx context.Context, profile *entity.Profile) error {
	m := r.mapper.ToModel(profile)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*profile = *r.mapper.ToEntity(m)
	return nil
}

func (r *ProfileRepositoryImpl) Update(ctx context.Context, profile *entity.Profile) error {
	m := r.mapper.ToModel(profile)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*profile = *r.mapper.ToEntity(m)
	return nil
}

func (r *ProfileRepositoryImpl) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()
	return r.db.WithContext(ctx).Model(&model.Profile{}).Where("id = ?", id).Updates(fields).Error
}

func (r *ProfileRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Profile{}).Error
}

func (r *ProfileRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Profile, error) {
	var m model.Profile
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *ProfileRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Profile, error) {
	var models []*model.Profile
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *ProfileRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := applySpecifications(r.db.WithContext(ctx).Model(&model.Profile{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ProfileRepositoryImpl) balance(ctx context.Context, id uuid.UUID) (int, error) {
	var credits int
	err := r.db.WithContext(ctx).Model(&model.Profile{}).
		Where("id = ?", id).
		Select("credits").
		Scan(&credits).Error
	return credits, err
}

// DeductCredits is a single conditional UPDATE so two concurrent spends cannot both pass a balance check.
func (r *ProfileRepositoryImpl) DeductCredits(ctx context.Context, id uuid.UUID, amount int) (int, bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Profile{}).
		Where("id = ? AND credits >= ?", id, amount).
		Updates(map[string]interface{}{
			"credits":    gorm.Expr("credits - ?", amount),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return 0, false, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, false, nil
	}
	balance, err := r.balance(ctx, id)
	return balance, true, err
}

func (r *ProfileRepositoryImpl) AddCredits(ctx context.Context, id uuid.UUID, amount int) (int, error) {
	res := r.db.WithContext(ctx).Model(&model.Profile{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"credits":    gorm.Expr("credits + ?", amount),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return r.balance(ctx, id)
}

func (r *ProfileRepositoryImpl) ConsumeFreeGeneration(ctx context.Context, id uuid.UUID, limit int) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Profile{}).
		Where("id = ? AND free_generations_used < ? AND subscription_plan IS NULL", id, limit).
		Updates(map[string]interface{}{
			"free_generations_used": gorm.Expr("free_generations_used + 1"),
			"updated_at":            time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ReleaseFreeGeneration gives back a free generation whose job failed.
func (r *ProfileRepositoryImpl) ReleaseFreeGeneration(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Profile{}).
		Where("id = ? AND free_generations_used > 0", id).
		Updates(map[string]interface{}{
			"free_generations_used": gorm.Expr("free_generations_used - 1"),
			"updated_at":            time.Now(),
		}).Error
}

func (r *ProfileRepositoryImpl) CountByPlan(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Plan  string
		Count int64
	}
	err := r.db.WithContext(ctx).Model(&model.Profile{}).
		Select("subscription_plan AS plan, COUNT(*) AS count").
		Where("subscription_plan IS NOT NULL").
		Group("subscription_plan").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Plan] = row.Count
	}
	return out, nil
}
