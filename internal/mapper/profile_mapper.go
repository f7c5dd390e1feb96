package mapper

import (
	"fanova-be/internal/entity"
	"fanova-be/internal/model"
)

type ProfileMapper struct{}

func NewProfileMapper() *ProfileMapper {
	return &ProfileMapper{}
}

func (m *ProfileMapper) ToEntity(p *model.Profile) *entity.Profile {
	if p == nil {
		return nil
	}
	var role *entity.AdminRole
	if p.AdminRole != nil {
		r := entity.AdminRole(*p.AdminRole)
		role = &r
	}
	return &entity.Profile{
		Id:                      p.Id,
		Email:                   p.Email,
		FullName:                p.FullName,
		Credits:                 p.Credits,
		SubscriptionPlan:        p.SubscriptionPlan,
		SubscriptionStatus:      p.SubscriptionStatus,
		SubscriptionStartDate:   p.SubscriptionStartDate,
		SubscriptionRenewalDate: p.SubscriptionRenewalDate,
		FreeGenerationsUsed:     p.FreeGenerationsUsed,
		IsAdmin:                 p.IsAdmin,
		AdminRole:               role,
		IsBanned:                p.IsBanned,
		BannedReason:            p.BannedReason,
		BannedAt:                p.BannedAt,
		IsLocked:                p.IsLocked,
		LockedReason:            p.LockedReason,
		LockedAt:                p.LockedAt,
		ReferralCode:            p.ReferralCode,
		ReferredBy:              p.ReferredBy,
		StripeCustomerId:        p.StripeCustomerId,
		StripeSubscriptionId:    p.StripeSubscriptionId,
		CreatedAt:               p.CreatedAt,
		UpdatedAt:               p.UpdatedAt,
	}
}

func (m *ProfileMapper) ToModel(p *entity.Profile) *model.Profile {
	if p == nil {
		return nil
	}
	var role *string
	if p.AdminRole != nil {
		r := string(*p.AdminRole)
		role = &r
	}
	return &model.Profile{
		Id:                      p.Id,
		Email:                   p.Email,
		FullName:                p.FullName,
		Credits:                 p.Credits,
		SubscriptionPlan:        p.SubscriptionPlan,
		SubscriptionStatus:      p.SubscriptionStatus,
		SubscriptionStartDate:   p.SubscriptionStartDate,
		SubscriptionRenewalDate: p.SubscriptionRenewalDate,
		FreeGenerationsUsed:     p.FreeGenerationsUsed,
		IsAdmin:                 p.IsAdmin,
		AdminRole:               role,
		IsBanned:                p.IsBanned,
		BannedReason:            p.BannedReason,
		BannedAt:                p.BannedAt,
		IsLocked:                p.IsLocked,
		LockedReason:            p.LockedReason,
		LockedAt:                p.LockedAt,
		ReferralCode:            p.ReferralCode,
		ReferredBy:              p.ReferredBy,
		StripeCustomerId:        p.StripeCustomerId,
		StripeSubscriptionId:    p.StripeSubscriptionId,
		CreatedAt:               p.CreatedAt,
		UpdatedAt:               p.UpdatedAt,
	}
}

func (m *ProfileMapper) ToEntities(profiles []*model.Profile) []*entity.Profile {
	out := make([]*entity.Profile, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, m.ToEntity(p))
	}
	return out
}
