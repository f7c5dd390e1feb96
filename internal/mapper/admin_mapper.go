package mapper

import (
	"fanova-be/internal/entity"
	"fanova-be/internal/model"

	"gorm.io/datatypes"
)

type AdminMapper struct{}

func NewAdminMapper() *AdminMapper {
	return &AdminMapper{}
}

func (m *AdminMapper) ActionToEntity(a *model.AdminAction) *entity.AdminAction {
	if a == nil {
		return nil
	}
	return &entity.AdminAction{
		Id:           a.Id,
		AdminId:      a.AdminId,
		TargetUserId: a.TargetUserId,
		Action:       entity.AdminActionType(a.Action),
		Reason:       a.Reason,
		Details:      map[string]interface{}(a.Details),
		CreatedAt:    a.CreatedAt,
	}
}

func (m *AdminMapper) ActionToModel(a *entity.AdminAction) *model.AdminAction {
	if a == nil {
		return nil
	}
	return &model.AdminAction{
		Id:           a.Id,
		AdminId:      a.AdminId,
		TargetUserId: a.TargetUserId,
		Action:       string(a.Action),
		Reason:       a.Reason,
		Details:      datatypes.JSONMap(a.Details),
		CreatedAt:    a.CreatedAt,
	}
}

func (m *AdminMapper) PriceMappingToEntity(p *model.StripePriceMapping) *entity.StripePriceMapping {
	if p == nil {
		return nil
	}
	return &entity.StripePriceMapping{
		PlanType:        p.PlanType,
		StripePriceId:   p.StripePriceId,
		StripeProductId: p.StripeProductId,
		Amount:          p.Amount,
		Currency:        p.Currency,
		Credits:         p.Credits,
		Active:          p.Active,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func (m *AdminMapper) PriceMappingToModel(p *entity.StripePriceMapping) *model.StripePriceMapping {
	if p == nil {
		return nil
	}
	return &model.StripePriceMapping{
		PlanType:        p.PlanType,
		StripePriceId:   p.StripePriceId,
		StripeProductId: p.StripeProductId,
		Amount:          p.Amount,
		Currency:        p.Currency,
		Credits:         p.Credits,
		Active:          p.Active,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}
