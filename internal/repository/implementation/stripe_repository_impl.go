package implementation

import (
	"context"
	"errors"

	"fanova-be/internal/entity"
	"fanova-be/internal/mapper"
	"fanova-be/internal/model"
	"fanova-be/internal/repository/contract"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PriceMappingRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.AdminMapper
}

func NewPriceMappingRepository(db *gorm.DB) contract.PriceMappingRepository {
	return &PriceMappingRepositoryImpl{
		db:     db,
		mapper: mapper.NewAdminMapper(),
	}
}

func (r *PriceMappingRepositoryImpl) Upsert(ctx context.Context, mapping *entity.StripePriceMapping) error {
	m := r.mapper.PriceMappingToModel(mapping)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "plan_type"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"stripe_price_id", "stripe_product_id", "amount", "currency", "credits", "active", "updated_at",
		}),
	}).Create(m).Error
}

func (r *PriceMappingRepositoryImpl) find(ctx context.Context, query string, args ...interface{}) (*entity.StripePriceMapping, error) {
	var m model.StripePriceMapping
	if err := r.db.WithContext(ctx).Where(query, args...).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.PriceMappingToEntity(&m), nil
}

func (r *PriceMappingRepositoryImpl) FindByPlan(ctx context.Context, planType string) (*entity.StripePriceMapping, error) {
	return r.find(ctx, "plan_type = ? AND active = ?", planType, true)
}

func (r *PriceMappingRepositoryImpl) FindByPriceId(ctx context.Context, priceId string) (*entity.StripePriceMapping, error) {
	return r.find(ctx, "stripe_price_id = ?", priceId)
}

func (r *PriceMappingRepositoryImpl) FindAll(ctx context.Context) ([]*entity.StripePriceMapping, error) {
	var models []*model.StripePriceMapping
	if err := r.db.WithContext(ctx).Order("amount ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*entity.StripePriceMapping, 0, len(models))
	for _, m := range models {
		out = append(out, r.mapper.PriceMappingToEntity(m))
	}
	return out, nil
}

type StripeEventRepositoryImpl struct {
	db *gorm.DB
}

func NewStripeEventRepository(db *gorm.DB) contract.StripeEventRepository {
	return &StripeEventRepositoryImpl{db: db}
}

func (r *StripeEventRepositoryImpl) MarkProcessed(ctx context.Context, eventId, eventType string) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.StripeEvent{Id: eventId, Type: eventType})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
