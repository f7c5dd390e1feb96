package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"fanova-be/internal/dto"
	"fanova-be/internal/entity"
	"fanova-be/internal/pkg/apperror"
	"fanova-be/internal/pkg/auth"
	"fanova-be/internal/pkg/logger"
	"fanova-be/internal/repository/specification"
	"fanova-be/internal/repository/unitofwork"
	"fanova-be/pkg/admin/dashboard"
	"fanova-be/pkg/admin/user"
	"fanova-be/pkg/pricing"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const recentTransactionsLimit = 20

type IAdminService interface {
	// User Management
	ListUsers(ctx context.Context, req *dto.AdminUserListRequest) (*dto.AdminUserListResponse, error)
	GetUser(ctx context.Context, userId uuid.UUID) (*dto.AdminUserDetailResponse, error)
	BanUser(ctx context.Context, actor *auth.Principal, userId uuid.UUID, reason string) (*dto.AdminUserResponse, error)
	UnbanUser(ctx context.Context, actor *auth.Principal, userId uuid.UUID) (*dto.AdminUserResponse, error)
	LockUser(ctx context.Context, actor *auth.Principal, userId uuid.UUID, reason string) (*dto.AdminUserResponse, error)
	UnlockUser(ctx context.Context, actor *auth.Principal, userId uuid.UUID) (*dto.AdminUserResponse, error)
	UpdateUser(ctx context.Context, actor *auth.Principal, userId uuid.UUID, req *dto.AdminUpdateUserRequest) (*dto.AdminUserResponse, error)
	DeleteUser(ctx context.Context, actor *auth.Principal, userId uuid.UUID) error

	// Admin Management
	ListAdmins(ctx context.Context) ([]*dto.AdminUserResponse, error)
	GrantAdmin(ctx context.Context, actor *auth.Principal, req *dto.GrantAdminRequest) (*dto.AdminUserResponse, error)
	RevokeAdmin(ctx context.Context, actor *auth.Principal, userId uuid.UUID) error
	Bootstrap(ctx context.Context, caller *auth.Principal, req *dto.BootstrapAdminRequest) (*dto.AdminUserResponse, error)

	// Stats, audit and logs
	GetStats(ctx context.Context) (*dto.AdminStatsResponse, error)
	ListActions(ctx context.Context, req *dto.AdminActionListRequest) ([]*dto.AdminActionResponse, int64, error)
	GetLogs(ctx context.Context, req *dto.LogListRequest) ([]*dto.LogListResponse, error)
}

type adminService struct {
	uowFactory          unitofwork.RepositoryFactory
	logger              logger.ILogger
	userManager         *user.Manager
	dashboardAggregator *dashboard.Aggregator
	bootstrapSecretHash string
}

func NewAdminService(
	uowFactory unitofwork.RepositoryFactory,
	logger logger.ILogger,
	userManager *user.Manager,
	dashboardAggregator *dashboard.Aggregator,
	bootstrapSecretHash string,
) IAdminService {
	return &adminService{
		uowFactory:          uowFactory,
		logger:              logger,
		userManager:         userManager,
		dashboardAggregator: dashboardAggregator,
		bootstrapSecretHash: bootstrapSecretHash,
	}
}

// --- User Management ---

func (s *adminService) ListUsers(ctx context.Context, req *dto.AdminUserListRequest) (*dto.AdminUserListResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.ProfileRepository()

	filters := []specification.Specification{specification.ProfileSearch{Query: req.Search}}
	switch req.Filter {
	case "banned":
		filters = append(filters, specification.BannedProfiles{})
	case "locked":
		filters = append(filters, specification.LockedProfiles{})
	case "admins":
		filters = append(filters, specification.AdminProfiles{})
	case "subscribed":
		filters = append(filters, specification.SubscribedProfiles{})
	}

	total, err := repo.Count(ctx, filters...)
	if err != nil {
		return nil, err
	}
	page := specification.NewPagination(req.Page, req.Limit)
	profiles, err := repo.FindAll(ctx, append(filters,
		specification.OrderBy{Field: "created_at", Desc: true},
		page,
	)...)
	if err != nil {
		return nil, err
	}

	users := make([]*dto.AdminUserResponse, 0, len(profiles))
	for _, p := range profiles {
		users = append(users, toAdminUserResponse(p))
	}
	return &dto.AdminUserListResponse{
		Users: users,
		Total: total,
		Page:  page.Offset/page.Limit + 1,
		Limit: page.Limit,
	}, nil
}

func (s *adminService) GetUser(ctx context.Context, userId uuid.UUID) (*dto.AdminUserDetailResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	profile, err := uow.ProfileRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, apperror.NotFound("user not found")
	}

	personas, err := uow.PersonaRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}
	rows, err := uow.CreditTransactionRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: recentTransactionsLimit},
	)
	if err != nil {
		return nil, err
	}
	referrals, err := uow.ReferralRepository().Count(ctx, specification.ReferralsBy{ReferrerID: userId})
	if err != nil {
		return nil, err
	}

	res := &dto.AdminUserDetailResponse{
		User:               toAdminUserResponse(profile),
		Models:             make([]*dto.ModelResponse, 0, len(personas)),
		RecentTransactions: make([]*dto.CreditTransactionResponse, 0, len(rows)),
		ReferralsMade:      referrals,
		ReferredBy:         profile.ReferredBy,
	}
	for _, p := range personas {
		res.Models = append(res.Models, toModelResponse(p, nil))
	}
	for _, row := range rows {
		res.RecentTransactions = append(res.RecentTransactions, toCreditTransactionResponse(row))
	}
	return res, nil
}

// moderate runs one guarded moderation step in a transaction and announces it after commit.
func (s *adminService) moderate(
	ctx context.Context,
	actor *auth.Principal,
	userId uuid.UUID,
	verb string,
	action entity.AdminActionType,
	reason string,
	apply func(uow unitofwork.UnitOfWork, target *entity.Profile) error,
) (*entity.Profile, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	actorProfile, err := s.actorProfile(ctx, uow, actor)
	if err != nil {
		return nil, err
	}
	target, err := s.userManager.Target(ctx, uow, actorProfile, userId, verb)
	if err != nil {
		return nil, err
	}
	if err := apply(uow, target); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.userManager.Announce(ctx, action, actor.UserID, target, reason)
	s.logger.Info("ADMIN", "Moderation action applied", map[string]interface{}{
		"admin_id": actor.UserID.String(),
		"user_id":  userId.String(),
		"action":   string(action),
	})
	return target, nil
}

func (s *adminService) actorProfile(ctx context.Context, uow unitofwork.UnitOfWork, actor *auth.Principal) (*entity.Profile, error) {
	profile, err := uow.ProfileRepository().FindOne(ctx, specification.ByID{ID: actor.UserID})
	if err != nil {
		return nil, err
	}
	if profile == nil || !profile.IsAdmin {
		return nil, apperror.Forbidden("admin access required")
	}
	return profile, nil
}

func (s *adminService) BanUser(ctx context.Context, actor *auth.Principal, userId uuid.UUID, reason string) (*dto.AdminUserResponse, error) {
	reason = strings.TrimSpace(reason)
	target, err := s.moderate(ctx, actor, userId, "ban", entity.AdminActionBan, reason, func(uow unitofwork.UnitOfWork, target *entity.Profile) error {
		return s.userManager.Ban(ctx, uow, actor.UserID, target, reason)
	})
	if err != nil {
		return nil, err
	}
	return toAdminUserResponse(target), nil
}

func (s *adminService) UnbanUser(ctx context.Context, actor *auth.Principal, userId uuid.UUID) (*dto.AdminUserResponse, error) {
	target, err := s.moderate(ctx, actor, userId, "unban", entity.AdminActionUnban, "", func(uow unitofwork.UnitOfWork, target *entity.Profile) error {
		return s.userManager.Unban(ctx, uow, actor.UserID, target)
	})
	if err != nil {
		return nil, err
	}
	return toAdminUserResponse(target), nil
}

func (s *adminService) LockUser(ctx context.Context, actor *auth.Principal, userId uuid.UUID, reason string) (*dto.AdminUserResponse, error) {
	reason = strings.TrimSpace(reason)
	target, err := s.moderate(ctx, actor, userId, "lock", entity.AdminActionLock, reason, func(uow unitofwork.UnitOfWork, target *entity.Profile) error {
		return s.userManager.Lock(ctx, uow, actor.UserID, target, reason)
	})
	if err != nil {
		return nil, err
	}
	return toAdminUserResponse(target), nil
}

func (s *adminService) UnlockUser(ctx context.Context, actor *auth.Principal, userId uuid.UUID) (*dto.AdminUserResponse, error) {
	target, err := s.moderate(ctx, actor, userId, "unlock", entity.AdminActionUnlock, "", func(uow unitofwork.UnitOfWork, target *entity.Profile) error {
		return s.userManager.Unlock(ctx, uow, actor.UserID, target)
	})
	if err != nil {
		return nil, err
	}
	return toAdminUserResponse(target), nil
}

func (s *adminService) DeleteUser(ctx context.Context, actor *auth.Principal, userId uuid.UUID) error {
	_, err := s.moderate(ctx, actor, userId, "delete", entity.AdminActionDelete, "", func(uow unitofwork.UnitOfWork, target *entity.Profile) error {
		return s.userManager.Delete(ctx, uow, actor.UserID, target)
	})
	return err
}

// UpdateUser edits basics. A credit change is written as an admin_adjustment row carrying the delta.
func (s *adminService) UpdateUser(ctx context.Context, actor *auth.Principal, userId uuid.UUID, req *dto.AdminUpdateUserRequest) (*dto.AdminUserResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	actorProfile, err := s.actorProfile(ctx, uow, actor)
	if err != nil {
		return nil, err
	}
	profiles := uow.ProfileRepository()
	target, err := profiles.FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, apperror.NotFound("user not found")
	}
	if target.IsSuperAdmin() && !actorProfile.IsSuperAdmin() && target.Id != actorProfile.Id {
		return nil, apperror.Forbidden("only a super admin can edit a super admin")
	}

	details := map[string]interface{}{}
	fields := map[string]interface{}{}
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return nil, apperror.BadRequest("full name cannot be empty")
		}
		fields["full_name"] = name
		details["full_name"] = name
	}
	if req.SubscriptionPlan != nil {
		plan, ok := pricing.ParsePlan(*req.SubscriptionPlan)
		if !ok {
			return nil, apperror.BadRequest("unknown plan")
		}
		if plan == pricing.PlanNone {
			fields["subscription_plan"] = nil
		} else {
			fields["subscription_plan"] = string(plan)
		}
		details["subscription_plan"] = string(plan)
	}
	if len(fields) > 0 {
		if err := profiles.UpdateFields(ctx, userId, fields); err != nil {
			return nil, err
		}
	}

	actionId := uuid.New()
	if req.Credits != nil && *req.Credits != target.Credits {
		delta := *req.Credits - target.Credits
		if _, _, err := applyCredit(ctx, uow, ledgerEntry{
			UserId:      userId,
			Amount:      delta,
			Type:        entity.CreditTypeAdminAdjustment,
			Description: "Balance adjusted by an administrator",
			Reference:   "admin:" + actionId.String(),
			Metadata: map[string]interface{}{
				"admin_id": actor.UserID.String(),
				"reason":   req.Reason,
			},
		}); err != nil {
			return nil, err
		}
		details["credits_delta"] = delta
	}
	if len(details) == 0 {
		return toAdminUserResponse(target), nil
	}

	if err := uow.AdminActionRepository().Create(ctx, &entity.AdminAction{
		Id:           actionId,
		AdminId:      actor.UserID,
		TargetUserId: &userId,
		Action:       entity.AdminActionUpdate,
		Reason:       nonEmpty(req.Reason),
		Details:      details,
	}); err != nil {
		return nil, err
	}

	updated, err := profiles.FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}
	s.logger.Info("ADMIN", "User updated", map[string]interface{}{
		"admin_id": actor.UserID.String(),
		"user_id":  userId.String(),
		"details":  details,
	})
	return toAdminUserResponse(updated), nil
}

// --- Admin Management ---

func (s *adminService) ListAdmins(ctx context.Context) ([]*dto.AdminUserResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	profiles, err := uow.ProfileRepository().FindAll(ctx,
		specification.AdminProfiles{},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.AdminUserResponse, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, toAdminUserResponse(p))
	}
	return out, nil
}

func (s *adminService) GrantAdmin(ctx context.Context, actor *auth.Principal, req *dto.GrantAdminRequest) (*dto.AdminUserResponse, error) {
	if req.UserId == nil && strings.TrimSpace(req.Email) == "" {
		return nil, apperror.BadRequest("userId or email is required")
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if _, err := s.actorProfile(ctx, uow, actor); err != nil {
		return nil, err
	}
	var spec specification.Specification = specification.ByEmail{Email: strings.TrimSpace(req.Email)}
	if req.UserId != nil {
		spec = specification.ByID{ID: *req.UserId}
	}
	target, err := uow.ProfileRepository().FindOne(ctx, spec)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, apperror.NotFound("user not found")
	}
	if err := s.userManager.SetRole(ctx, uow, actor.UserID, target, entity.AdminRole(req.Role), entity.AdminActionGrantAdmin); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}
	s.userManager.Announce(ctx, entity.AdminActionGrantAdmin, actor.UserID, target, "")
	return toAdminUserResponse(target), nil
}

func (s *adminService) RevokeAdmin(ctx context.Context, actor *auth.Principal, userId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if _, err := s.actorProfile(ctx, uow, actor); err != nil {
		return err
	}
	target, err := uow.ProfileRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return err
	}
	if target == nil {
		return apperror.NotFound("user not found")
	}
	if err := s.userManager.RevokeRole(ctx, uow, actor.UserID, target); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}
	s.userManager.Announce(ctx, entity.AdminActionRevokeAdmin, actor.UserID, target, "")
	return nil
}

// Bootstrap promotes the caller to super admin while the console has no admin at all.
func (s *adminService) Bootstrap(ctx context.Context, caller *auth.Principal, req *dto.BootstrapAdminRequest) (*dto.AdminUserResponse, error) {
	if s.bootstrapSecretHash == "" {
		return nil, apperror.Forbidden("admin bootstrap is disabled")
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	admins, err := uow.ProfileRepository().Count(ctx, specification.AdminProfiles{})
	if err != nil {
		return nil, err
	}
	if admins > 0 {
		return nil, apperror.Conflict("an admin already exists")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.bootstrapSecretHash), []byte(req.Secret)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			s.logger.Warn("ADMIN", "Bootstrap attempt with a wrong secret", map[string]interface{}{"user_id": caller.UserID.String()})
			return nil, apperror.Forbidden("invalid bootstrap secret")
		}
		return nil, apperror.Internal(err)
	}

	target, err := uow.ProfileRepository().FindOne(ctx, specification.ByID{ID: caller.UserID})
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, apperror.NotFound("profile not found")
	}
	if err := s.userManager.SetRole(ctx, uow, caller.UserID, target, entity.AdminRoleSuperAdmin, entity.AdminActionBootstrap); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("ADMIN", "First super admin bootstrapped", map[string]interface{}{"user_id": caller.UserID.String()})
	return toAdminUserResponse(target), nil
}

// --- Stats, audit and logs ---

func (s *adminService) GetStats(ctx context.Context) (*dto.AdminStatsResponse, error) {
	stats, err := s.dashboardAggregator.GetStats(ctx, s.uowFactory.NewUnitOfWork(ctx))
	if err != nil {
		return nil, err
	}
	return &dto.AdminStatsResponse{
		TotalUsers:        stats.TotalUsers,
		BannedUsers:       stats.BannedUsers,
		LockedUsers:       stats.LockedUsers,
		Admins:            stats.Admins,
		SubscribersByPlan: stats.SubscribersByPlan,
		TotalModels:       stats.TotalModels,
		TotalImages:       stats.TotalImages,
		CreditsSpent:      stats.CreditsSpent,
		TotalReferrals:    stats.TotalReferrals,
		NewUsersLast7Days: stats.NewUsersLast7Days,
	}, nil
}

func (s *adminService) ListActions(ctx context.Context, req *dto.AdminActionListRequest) ([]*dto.AdminActionResponse, int64, error) {
	repo := s.uowFactory.NewUnitOfWork(ctx).AdminActionRepository()

	var filters []specification.Specification
	if req.TargetId != "" {
		targetId, err := uuid.Parse(req.TargetId)
		if err != nil {
			return nil, 0, apperror.BadRequest("invalid targetId")
		}
		filters = append(filters, specification.ActionsOnTarget{TargetID: targetId})
	}
	total, err := repo.Count(ctx, filters...)
	if err != nil {
		return nil, 0, err
	}
	rows, err := repo.FindAll(ctx, append(filters,
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.NewPagination(req.Page, req.Limit),
	)...)
	if err != nil {
		return nil, 0, err
	}

	out := make([]*dto.AdminActionResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, &dto.AdminActionResponse{
			Id:           row.Id,
			AdminId:      row.AdminId,
			TargetUserId: row.TargetUserId,
			Action:       string(row.Action),
			Reason:       row.Reason,
			Details:      row.Details,
			CreatedAt:    row.CreatedAt,
		})
	}
	return out, total, nil
}

func (s *adminService) GetLogs(ctx context.Context, req *dto.LogListRequest) ([]*dto.LogListResponse, error) {
	page := specification.NewPagination(req.Page, req.Limit)
	entries, err := s.logger.GetLogs(strings.ToUpper(req.Level), page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.LogListResponse, 0, len(entries))
	for _, e := range entries {
		createdAt, _ := time.Parse("2006-01-02T15:04:05.000Z0700", e.Timestamp)
		out = append(out, &dto.LogListResponse{
			Id:        e.Id,
			Level:     strings.ToLower(e.Level),
			Module:    e.Module,
			Message:   e.Message,
			Details:   e.Details,
			CreatedAt: createdAt,
		})
	}
	return out, nil
}

func toAdminUserResponse(p *entity.Profile) *dto.AdminUserResponse {
	var role *string
	if p.AdminRole != nil {
		r := string(*p.AdminRole)
		role = &r
	}
	return &dto.AdminUserResponse{
		Id:                  p.Id,
		Email:               p.Email,
		FullName:            p.FullName,
		Credits:             p.Credits,
		SubscriptionPlan:    p.SubscriptionPlan,
		SubscriptionStatus:  p.SubscriptionStatus,
		FreeGenerationsUsed: p.FreeGenerationsUsed,
		IsAdmin:             p.IsAdmin,
		AdminRole:           role,
		IsBanned:            p.IsBanned,
		BannedReason:        p.BannedReason,
		BannedAt:            p.BannedAt,
		IsLocked:            p.IsLocked,
		LockedReason:        p.LockedReason,
		LockedAt:            p.LockedAt,
		ReferralCode:        p.ReferralCode,
		CreatedAt:           p.CreatedAt,
	}
}

func nonEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
