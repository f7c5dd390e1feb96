package mapper

import (
	"fanova-be/internal/entity"
	"fanova-be/internal/model"

	"gorm.io/datatypes"
)

type CreditMapper struct{}

func NewCreditMapper() *CreditMapper {
	return &CreditMapper{}
}

func (m *CreditMapper) ToEntity(t *model.CreditTransaction) *entity.CreditTransaction {
	if t == nil {
		return nil
	}
	return &entity.CreditTransaction{
		Id:           t.Id,
		UserId:       t.UserId,
		Amount:       t.Amount,
		Type:         entity.CreditTransactionType(t.Type),
		Description:  t.Description,
		Metadata:     map[string]interface{}(t.Metadata),
		Reference:    t.Reference,
		BalanceAfter: t.BalanceAfter,
		CreatedAt:    t.CreatedAt,
	}
}

func (m *CreditMapper) ToModel(t *entity.CreditTransaction) *model.CreditTransaction {
	if t == nil {
		return nil
	}
	return &model.CreditTransaction{
		Id:           t.Id,
		UserId:       t.UserId,
		Amount:       t.Amount,
		Type:         string(t.Type),
		Description:  t.Description,
		Metadata:     datatypes.JSONMap(t.Metadata),
		Reference:    t.Reference,
		BalanceAfter: t.BalanceAfter,
		CreatedAt:    t.CreatedAt,
	}
}

func (m *CreditMapper) ToEntities(rows []*model.CreditTransaction) []*entity.CreditTransaction {
	out := make([]*entity.CreditTransaction, 0, len(rows))
	for _, r := range rows {
		out = append(out, m.ToEntity(r))
	}
	return out
}

func (m *CreditMapper) ReferralToEntity(r *model.Referral) *entity.Referral {
	if r == nil {
		return nil
	}
	return &entity.Referral{
		Id:              r.Id,
		ReferrerId:      r.ReferrerId,
		ReferredId:      r.ReferredId,
		Code:            r.Code,
		ReferrerCredits: r.ReferrerCredits,
		ReferredCredits: r.ReferredCredits,
		CreatedAt:       r.CreatedAt,
	}
}

func (m *CreditMapper) ReferralToModel(r *entity.Referral) *model.Referral {
	if r == nil {
		return nil
	}
	return &model.Referral{
		Id:              r.Id,
		ReferrerId:      r.ReferrerId,
		ReferredId:      r.ReferredId,
		Code:            r.Code,
		ReferrerCredits: r.ReferrerCredits,
		ReferredCredits: r.ReferredCredits,
		CreatedAt:       r.CreatedAt,
	}
}
