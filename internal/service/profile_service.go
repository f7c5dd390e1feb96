package service

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"

	"fanova-be/internal/dto"
	"fanova-be/internal/entity"
	"fanova-be/internal/pkg/apperror"
	"fanova-be/internal/pkg/auth"
	"fanova-be/internal/pkg/logger"
	"fanova-be/internal/repository/specification"
	"fanova-be/internal/repository/unitofwork"
	"fanova-be/pkg/pricing"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	referralCodeLength   = 8
	referralCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	maxProfileAttempts   = 5
)

type IProfileService interface {
	ResolvePrincipal(ctx context.Context, claims *auth.Claims) (*auth.Principal, error)
	EnsureProfile(ctx context.Context, claims *auth.Claims) (*entity.Profile, error)
	GetProfile(ctx context.Context, userId uuid.UUID) (*dto.ProfileResponse, error)
	UpdateProfile(ctx context.Context, userId uuid.UUID, req *dto.UpdateProfileRequest) (*dto.ProfileResponse, error)
}

type profileService struct {
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
}

func NewProfileService(uowFactory unitofwork.RepositoryFactory, log logger.ILogger) IProfileService {
	return &profileService{
		uowFactory: uowFactory,
		logger:     log,
	}
}

func (s *profileService) ResolvePrincipal(ctx context.Context, claims *auth.Claims) (*auth.Principal, error) {
	profile, err := s.EnsureProfile(ctx, claims)
	if err != nil {
		return nil, err
	}
	return principalOf(profile), nil
}

func principalOf(profile *entity.Profile) *auth.Principal {
	role := auth.RoleUser
	if profile.IsSuperAdmin() {
		role = auth.RoleSuperAdmin
	} else if profile.IsAdmin {
		role = auth.RoleAdmin
	}
	return &auth.Principal{
		UserID:   profile.Id,
		Email:    profile.Email,
		Role:     role,
		IsBanned: profile.IsBanned,
		IsLocked: profile.IsLocked,
	}
}

// EnsureProfile loads the caller's profile and creates it on the first authenticated request.
func (s *profileService) EnsureProfile(ctx context.Context, claims *auth.Claims) (*entity.Profile, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.ProfileRepository()

	for attempt := 0; attempt < maxProfileAttempts; attempt++ {
		profile, err := repo.FindOne(ctx, specification.ByID{ID: claims.Subject})
		if err != nil {
			return nil, err
		}
		if profile != nil {
			if claims.Email != "" && !strings.EqualFold(profile.Email, claims.Email) {
				if err := repo.UpdateFields(ctx, profile.Id, map[string]interface{}{"email": claims.Email}); err != nil {
					return nil, err
				}
				profile.Email = claims.Email
			}
			return profile, nil
		}

		code, err := newReferralCode()
		if err != nil {
			return nil, err
		}
		profile = &entity.Profile{
			Id:           claims.Subject,
			Email:        claims.Email,
			FullName:     claims.FullName,
			ReferralCode: code,
		}
		err = repo.Create(ctx, profile)
		if err == nil {
			s.logger.Info("PROFILE", "Profile created", map[string]interface{}{"user_id": profile.Id.String()})
			return profile, nil
		}
		// Either a parallel request created the row or the referral code collided; look again.
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
	}
	return nil, apperror.Internal(errors.New("could not create profile"))
}

func (s *profileService) GetProfile(ctx context.Context, userId uuid.UUID) (*dto.ProfileResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	profile, err := uow.ProfileRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, apperror.NotFound("profile not found")
	}
	return toProfileResponse(profile), nil
}

func (s *profileService) UpdateProfile(ctx context.Context, userId uuid.UUID, req *dto.UpdateProfileRequest) (*dto.ProfileResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.ProfileRepository()

	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return nil, apperror.BadRequest("full name is required")
	}
	if err := repo.UpdateFields(ctx, userId, map[string]interface{}{"full_name": fullName}); err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, userId)
}

func toProfileResponse(p *entity.Profile) *dto.ProfileResponse {
	var role *string
	if p.AdminRole != nil {
		r := string(*p.AdminRole)
		role = &r
	}
	plan, _ := pricing.ParsePlan(p.Plan())
	return &dto.ProfileResponse{
		Id:                      p.Id,
		Email:                   p.Email,
		FullName:                p.FullName,
		Credits:                 p.Credits,
		SubscriptionPlan:        p.SubscriptionPlan,
		SubscriptionStatus:      p.SubscriptionStatus,
		SubscriptionRenewalDate: p.SubscriptionRenewalDate,
		FreeGenerationsLeft:     pricing.FreeRemaining(plan, p.FreeGenerationsUsed),
		IsAdmin:                 p.IsAdmin,
		AdminRole:               role,
		IsLocked:                p.IsLocked,
		ReferralCode:            p.ReferralCode,
		CreatedAt:               p.CreatedAt,
	}
}

func newReferralCode() (string, error) {
	var sb strings.Builder
	max := big.NewInt(int64(len(referralCodeAlphabet)))
	for i := 0; i < referralCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(referralCodeAlphabet[n.Int64()])
	}
	return sb.String(), nil
}
