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

type CreditTransactionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CreditMapper
}

func NewCreditTransactionRepository(db *gorm.DB) contract.CreditTransactionRepository {
	return &CreditTransactionRepositoryImpl{
		db:     db,
		mapper: mapper.NewCreditMapper(),
	}
}

func (r *CreditTransactionRepositoryImpl) Create(ctx context.Context, tx *entity.CreditTransaction) error {
	m := r.mapper.ToModel(tx)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*tx = *r.mapper.ToEntity(m)
	return nil
}

func (r *CreditTransactionRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.CreditTransaction, error) {
	var m model.CreditTransaction
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *CreditTransactionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.CreditTransaction, error) {
	var models []*model.CreditTransaction
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *CreditTransactionRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := applySpecifications(r.db.WithContext(ctx).Model(&model.CreditTransaction{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *CreditTransactionRepositoryImpl) ExistsReference(ctx context.Context, reference string) (bool, error) {
	count, err := r.Count(ctx, specification.ByReference{Reference: reference})
	return count > 0, err
}

func (r *CreditTransactionRepositoryImpl) SumAmount(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var total int64
	query := applySpecifications(r.db.WithContext(ctx).Model(&model.CreditTransaction{}), specs...)
	if err := query.Select("COALESCE(SUM(amount), 0)").Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

type ReferralRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CreditMapper
}

func NewReferralRepository(db *gorm.DB) contract.ReferralRepository {
	return &ReferralRepositoryImpl{
		db:     db,
		mapper: mapper.NewCreditMapper(),
	}
}

func (r *ReferralRepositoryImpl) Create(ctx context.Context, referral *entity.Referral) error {
	m := r.mapper.ReferralToModel(referral)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*referral = *r.mapper.ReferralToEntity(m)
	return nil
}

func (r *ReferralRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Referral, error) {
	var m model.Referral
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ReferralToEntity(&m), nil
}

func (r *ReferralRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Referral, error) {
	var models []*model.Referral
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*entity.Referral, 0, len(models))
	for _, m := range models {
		out = append(out, r.mapper.ReferralToEntity(m))
	}
	return out, nil
}

func (r *ReferralRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := applySpecifications(r.db.WithContext(ctx).Model(&model.Referral{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ReferralRepositoryImpl) DeleteByUser(ctx context.Context, userId uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("referrer_id = ? OR referred_id = ?", userId, userId).
		Delete(&model.Referral{}).Error
}
