package service

import (
	"context"
	"errors"

	"fanova-be/internal/dto"
	"fanova-be/internal/entity"
	"fanova-be/internal/pkg/apperror"
	"fanova-be/internal/repository/specification"
	"fanova-be/internal/repository/unitofwork"
	"fanova-be/pkg/pricing"

	"github.com/google/uuid"
)

type ICreditService interface {
	GetCredits(ctx context.Context, userId uuid.UUID) (*dto.CreditsResponse, error)
	ListTransactions(ctx context.Context, userId uuid.UUID, req *dto.CreditTransactionListRequest) (*dto.CreditTransactionListResponse, error)
	Quote(ctx context.Context, userId uuid.UUID, req *dto.QuoteRequest) (*dto.QuoteResponse, error)
}

type creditService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewCreditService(uowFactory unitofwork.RepositoryFactory) ICreditService {
	return &creditService{uowFactory: uowFactory}
}

func (s *creditService) loadProfile(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID) (*entity.Profile, pricing.PlanType, error) {
	profile, err := uow.ProfileRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, pricing.PlanNone, err
	}
	if profile == nil {
		return nil, pricing.PlanNone, apperror.NotFound("profile not found")
	}
	plan, _ := pricing.ParsePlan(profile.Plan())
	return profile, plan, nil
}

func (s *creditService) GetCredits(ctx context.Context, userId uuid.UUID) (*dto.CreditsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	profile, plan, err := s.loadProfile(ctx, uow, userId)
	if err != nil {
		return nil, err
	}

	return &dto.CreditsResponse{
		Balance:             profile.Credits,
		Plan:                profile.SubscriptionPlan,
		FreeGenerationsLeft: pricing.FreeRemaining(plan, profile.FreeGenerationsUsed),
		Pricing:             planPricing(plan),
	}, nil
}

func planPricing(plan pricing.PlanType) dto.PlanPricingInfo {
	info := dto.PlanPricingInfo{
		SfwImage:  pricing.SfwImageCost,
		Batch:     pricing.BatchCost,
		BatchSize: pricing.BatchSize,
		AddOn:     pricing.AddOnCost,
	}
	if p, ok := pricing.Lookup(plan); ok && p.NsfwAllowed {
		cost := p.NsfwCost
		info.NsfwImage = &cost
		info.NsfwAllowed = true
	}
	return info
}

func (s *creditService) ListTransactions(ctx context.Context, userId uuid.UUID, req *dto.CreditTransactionListRequest) (*dto.CreditTransactionListResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.CreditTransactionRepository()

	filters := []specification.Specification{specification.UserOwnedBy{UserID: userId}}
	if req.Type != "" {
		filters = append(filters, specification.ByTransactionType{Type: req.Type})
	}

	total, err := repo.Count(ctx, filters...)
	if err != nil {
		return nil, err
	}

	page := specification.NewPagination(req.Page, req.Limit)
	rows, err := repo.FindAll(ctx, append(filters,
		specification.OrderBy{Field: "created_at", Desc: true},
		page,
	)...)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.CreditTransactionResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, toCreditTransactionResponse(row))
	}
	return &dto.CreditTransactionListResponse{
		Items: items,
		Total: total,
		Page:  page.Offset/page.Limit + 1,
		Limit: page.Limit,
	}, nil
}

func toCreditTransactionResponse(row *entity.CreditTransaction) *dto.CreditTransactionResponse {
	return &dto.CreditTransactionResponse{
		Id:           row.Id,
		Amount:       row.Amount,
		Type:         string(row.Type),
		Description:  row.Description,
		Metadata:     row.Metadata,
		BalanceAfter: row.BalanceAfter,
		CreatedAt:    row.CreatedAt,
	}
}

// Quote previews what a generation would cost without charging anything.
func (s *creditService) Quote(ctx context.Context, userId uuid.UUID, req *dto.QuoteRequest) (*dto.QuoteResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	profile, plan, err := s.loadProfile(ctx, uow, userId)
	if err != nil {
		return nil, err
	}

	quote, err := pricing.QuoteFor(plan, profile.FreeGenerationsUsed, pricing.Options{
		IsNsfw:         req.IsNsfw,
		Batch:          req.Batch,
		HighResolution: req.HighResolution,
		Priority:       req.Priority,
	})
	if err != nil {
		return nil, pricingError(err)
	}

	return &dto.QuoteResponse{
		Cost:       quote.Cost,
		Free:       quote.Free,
		Images:     quote.Images,
		Balance:    profile.Credits,
		Affordable: quote.Free || profile.Credits >= quote.Cost,
	}, nil
}

func pricingError(err error) error {
	if errors.Is(err, pricing.ErrNsfwNotAllowed) {
		return apperror.Wrap(apperror.ErrNsfwNotAllowed, err)
	}
	return err
}
