package dashboard

import (
	"context"
	"time"

	"fanova-be/internal/entity"
	"fanova-be/internal/pkg/logger"
	"fanova-be/internal/repository/specification"
	"fanova-be/internal/repository/unitofwork"
)

// Aggregator handles dashboard statistics
type Aggregator struct {
	logger logger.ILogger
}

// NewAggregator creates a new dashboard aggregator
func NewAggregator(logger logger.ILogger) *Aggregator {
	return &Aggregator{
		logger: logger,
	}
}

// GetStats counts users, content and credit flow across the whole service.
func (a *Aggregator) GetStats(ctx context.Context, uow unitofwork.UnitOfWork) (*entity.DashboardStats, error) {
	profiles := uow.ProfileRepository()
	stats := &entity.DashboardStats{}
	var err error

	counts := []struct {
		dst   *int64
		specs []specification.Specification
	}{
		{&stats.TotalUsers, nil},
		{&stats.BannedUsers, []specification.Specification{specification.BannedProfiles{}}},
		{&stats.LockedUsers, []specification.Specification{specification.LockedProfiles{}}},
		{&stats.Admins, []specification.Specification{specification.AdminProfiles{}}},
		{&stats.NewUsersLast7Days, []specification.Specification{specification.CreatedAfter{Time: time.Now().AddDate(0, 0, -7)}}},
	}
	for _, c := range counts {
		if *c.dst, err = profiles.Count(ctx, c.specs...); err != nil {
			return nil, err
		}
	}

	if stats.SubscribersByPlan, err = profiles.CountByPlan(ctx); err != nil {
		return nil, err
	}
	if stats.TotalModels, err = uow.PersonaRepository().Count(ctx); err != nil {
		return nil, err
	}
	if stats.TotalImages, err = uow.GeneratedImageRepository().Count(ctx); err != nil {
		return nil, err
	}
	if stats.TotalReferrals, err = uow.ReferralRepository().Count(ctx); err != nil {
		return nil, err
	}

	// Spend rows are negative.
	spent, err := uow.CreditTransactionRepository().SumAmount(ctx, specification.ByTransactionType{Type: string(entity.CreditTypeSpend)})
	if err != nil {
		return nil, err
	}
	stats.CreditsSpent = -spent

	return stats, nil
}
