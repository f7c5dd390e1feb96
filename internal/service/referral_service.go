package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fanova-be/internal/dto"
	"fanova-be/internal/entity"
	"fanova-be/internal/pkg/apperror"
	"fanova-be/internal/pkg/logger"
	"fanova-be/internal/pkg/metrics"
	"fanova-be/internal/repository/specification"
	"fanova-be/internal/repository/unitofwork"
	"fanova-be/pkg/events"
	"fanova-be/pkg/pricing"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type IReferralService interface {
	GetMyLink(ctx context.Context, userId uuid.UUID) (*dto.ReferralLinkResponse, error)
	GetStats(ctx context.Context, userId uuid.UUID) (*dto.ReferralStatsResponse, error)
	ProcessReferral(ctx context.Context, userId uuid.UUID, req *dto.ProcessReferralRequest) (*dto.ProcessReferralResponse, error)
}

type referralService struct {
	uowFactory  unitofwork.RepositoryFactory
	frontendURL string
	notifier    *events.Notifier
	metrics     *metrics.Metrics
	logger      logger.ILogger
}

func NewReferralService(
	uowFactory unitofwork.RepositoryFactory,
	frontendURL string,
	notifier *events.Notifier,
	m *metrics.Metrics,
	log logger.ILogger,
) IReferralService {
	return &referralService{
		uowFactory:  uowFactory,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		notifier:    notifier,
		metrics:     m,
		logger:      log,
	}
}

func (s *referralService) GetMyLink(ctx context.Context, userId uuid.UUID) (*dto.ReferralLinkResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.ProfileRepository()

	profile, err := repo.FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, apperror.NotFound("profile not found")
	}

	code := profile.ReferralCode
	for attempt := 0; code == "" && attempt < maxProfileAttempts; attempt++ {
		candidate, err := newReferralCode()
		if err != nil {
			return nil, err
		}
		err = repo.UpdateFields(ctx, userId, map[string]interface{}{"referral_code": candidate})
		if err == nil {
			code = candidate
			break
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
	}
	if code == "" {
		return nil, apperror.Internal(errors.New("could not assign a referral code"))
	}

	return &dto.ReferralLinkResponse{
		Code: code,
		Link: fmt.Sprintf("%s/signup?ref=%s", s.frontendURL, code),
	}, nil
}

func (s *referralService) GetStats(ctx context.Context, userId uuid.UUID) (*dto.ReferralStatsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	referrals, err := uow.ReferralRepository().FindAll(ctx,
		specification.ReferralsBy{ReferrerID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(referrals))
	for _, r := range referrals {
		ids = append(ids, r.ReferredId)
	}
	emails := map[uuid.UUID]string{}
	if len(ids) > 0 {
		profiles, err := uow.ProfileRepository().FindAll(ctx, specification.ByIDs{IDs: ids})
		if err != nil {
			return nil, err
		}
		for _, p := range profiles {
			emails[p.Id] = p.Email
		}
	}

	res := &dto.ReferralStatsResponse{Referred: make([]*dto.ReferredUser, 0, len(referrals))}
	for _, r := range referrals {
		res.TotalReferrals++
		res.CreditsEarned += r.ReferrerCredits
		res.Referred = append(res.Referred, &dto.ReferredUser{
			Email:     maskEmail(emails[r.ReferredId]),
			Credits:   r.ReferrerCredits,
			CreatedAt: r.CreatedAt,
		})
	}
	return res, nil
}

// ProcessReferral credits both sides once. The caller is the referred (new) user.
func (s *referralService) ProcessReferral(ctx context.Context, userId uuid.UUID, req *dto.ProcessReferralRequest) (*dto.ProcessReferralResponse, error) {
	code := strings.ToUpper(strings.TrimSpace(req.ReferralCode))
	if code == "" {
		return nil, apperror.BadRequest("referral code is required")
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	profiles := uow.ProfileRepository()
	referrer, err := profiles.FindOne(ctx, specification.ByReferralCode{Code: code})
	if err != nil {
		return nil, err
	}
	if referrer == nil {
		return nil, apperror.NotFound("referral code not found")
	}
	if referrer.Id == userId {
		return nil, apperror.ErrSelfReferral
	}

	existing, err := uow.ReferralRepository().FindOne(ctx, specification.ReferralOf{ReferredID: userId})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		balance, err := currentBalance(ctx, uow, userId)
		if err != nil {
			return nil, err
		}
		return &dto.ProcessReferralResponse{Processed: false, Balance: balance}, nil
	}

	referral := &entity.Referral{
		Id:              uuid.New(),
		ReferrerId:      referrer.Id,
		ReferredId:      userId,
		Code:            code,
		ReferrerCredits: pricing.ReferralBonus,
		ReferredCredits: pricing.ReferralBonus,
	}
	if err := uow.ReferralRepository().Create(ctx, referral); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// A parallel request won; report it the same way as a repeat.
			return &dto.ProcessReferralResponse{Processed: false}, nil
		}
		return nil, err
	}

	if _, _, err := applyCredit(ctx, uow, ledgerEntry{
		UserId:      referrer.Id,
		Amount:      pricing.ReferralBonus,
		Type:        entity.CreditTypeReferralBonus,
		Description: "Referral bonus for inviting a friend",
		Reference:   referralReference(userId, "referrer"),
		Metadata:    map[string]interface{}{"referred_id": userId.String()},
	}); err != nil {
		return nil, err
	}
	balance, _, err := applyCredit(ctx, uow, ledgerEntry{
		UserId:      userId,
		Amount:      pricing.ReferralBonus,
		Type:        entity.CreditTypeReferralBonus,
		Description: "Welcome bonus for joining with a referral",
		Reference:   referralReference(userId, "referred"),
		Metadata:    map[string]interface{}{"referrer_id": referrer.Id.String()},
	})
	if err != nil {
		return nil, err
	}

	if err := profiles.UpdateFields(ctx, userId, map[string]interface{}{"referred_by": referrer.Id}); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.metrics.CreditsGranted(string(entity.CreditTypeReferralBonus), 2*pricing.ReferralBonus)
	s.notifier.ReferralCompleted(ctx, referrer.Id, userId, referrer.Email, pricing.ReferralBonus)
	s.logger.Info("REFERRAL", "Referral processed", map[string]interface{}{
		"referrer_id": referrer.Id.String(),
		"referred_id": userId.String(),
	})

	return &dto.ProcessReferralResponse{
		Processed:    true,
		CreditsAdded: pricing.ReferralBonus,
		Balance:      balance,
	}, nil
}

// maskEmail keeps the first character of the local part: "jane@x.com" -> "j***@x.com".
func maskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}
