package user

import (
	"context"
	"time"

	"fanova-be/internal/entity"
	"fanova-be/internal/pkg/apperror"
	"fanova-be/internal/pkg/logger"
	"fanova-be/internal/repository/specification"
	"fanova-be/internal/repository/unitofwork"
	adminEvents "fanova-be/pkg/admin/events"

	"github.com/google/uuid"
)

// Manager handles moderation of user accounts. Every mutation writes an admin_actions row in the caller's unit of work.
type Manager struct {
	logger    logger.ILogger
	publisher adminEvents.Publisher
}

// NewManager creates a new user manager
func NewManager(logger logger.ILogger, publisher adminEvents.Publisher) *Manager {
	return &Manager{
		logger:    logger,
		publisher: publisher,
	}
}

// Target loads the user an admin is acting on and applies the self and rank guards.
func (m *Manager) Target(ctx context.Context, uow unitofwork.UnitOfWork, actor *entity.Profile, targetId uuid.UUID, verb string) (*entity.Profile, error) {
	if actor.Id == targetId {
		return nil, apperror.BadRequest("you cannot " + verb + " your own account")
	}
	target, err := uow.ProfileRepository().FindOne(ctx, specification.ByID{ID: targetId})
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, apperror.NotFound("user not found")
	}
	if target.IsSuperAdmin() && !actor.IsSuperAdmin() {
		return nil, apperror.Forbidden("only a super admin can " + verb + " a super admin")
	}
	return target, nil
}

// Record appends an audit row.
func (m *Manager) Record(ctx context.Context, uow unitofwork.UnitOfWork, adminId uuid.UUID, targetId *uuid.UUID, action entity.AdminActionType, reason string, details map[string]interface{}) error {
	row := &entity.AdminAction{
		Id:           uuid.New(),
		AdminId:      adminId,
		TargetUserId: targetId,
		Action:       action,
		Details:      details,
	}
	if reason != "" {
		row.Reason = &reason
	}
	return uow.AdminActionRepository().Create(ctx, row)
}

func (m *Manager) Ban(ctx context.Context, uow unitofwork.UnitOfWork, adminId uuid.UUID, target *entity.Profile, reason string) error {
	now := time.Now()
	fields := map[string]interface{}{
		"is_banned":     true,
		"banned_reason": nullable(reason),
		"banned_at":     now,
	}
	if err := uow.ProfileRepository().UpdateFields(ctx, target.Id, fields); err != nil {
		return err
	}
	if err := m.Record(ctx, uow, adminId, &target.Id, entity.AdminActionBan, reason, nil); err != nil {
		return err
	}
	target.IsBanned = true
	target.BannedReason = nullable(reason)
	target.BannedAt = &now
	return nil
}

func (m *Manager) Unban(ctx context.Context, uow unitofwork.UnitOfWork, adminId uuid.UUID, target *entity.Profile) error {
	if err := uow.ProfileRepository().UpdateFields(ctx, target.Id, map[string]interface{}{
		"is_banned":     false,
		"banned_reason": nil,
		"banned_at":     nil,
	}); err != nil {
		return err
	}
	if err := m.Record(ctx, uow, adminId, &target.Id, entity.AdminActionUnban, "", nil); err != nil {
		return err
	}
	target.IsBanned = false
	target.BannedReason = nil
	target.BannedAt = nil
	return nil
}

func (m *Manager) Lock(ctx context.Context, uow unitofwork.UnitOfWork, adminId uuid.UUID, target *entity.Profile, reason string) error {
	now := time.Now()
	if err := uow.ProfileRepository().UpdateFields(ctx, target.Id, map[string]interface{}{
		"is_locked":     true,
		"locked_reason": nullable(reason),
		"locked_at":     now,
	}); err != nil {
		return err
	}
	if err := m.Record(ctx, uow, adminId, &target.Id, entity.AdminActionLock, reason, nil); err != nil {
		return err
	}
	target.IsLocked = true
	target.LockedReason = nullable(reason)
	target.LockedAt = &now
	return nil
}

func (m *Manager) Unlock(ctx context.Context, uow unitofwork.UnitOfWork, adminId uuid.UUID, target *entity.Profile) error {
	if err := uow.ProfileRepository().UpdateFields(ctx, target.Id, map[string]interface{}{
		"is_locked":     false,
		"locked_reason": nil,
		"locked_at":     nil,
	}); err != nil {
		return err
	}
	if err := m.Record(ctx, uow, adminId, &target.Id, entity.AdminActionUnlock, "", nil); err != nil {
		return err
	}
	target.IsLocked = false
	target.LockedReason = nil
	target.LockedAt = nil
	return nil
}

// Delete removes the profile with its models, images and referral rows. Ledger rows are kept for accounting.
func (m *Manager) Delete(ctx context.Context, uow unitofwork.UnitOfWork, adminId uuid.UUID, target *entity.Profile) error {
	if target.IsSuperAdmin() {
		if err := m.EnsureAnotherSuperAdmin(ctx, uow, target.Id); err != nil {
			return err
		}
	}
	if err := uow.GeneratedImageRepository().DeleteByUser(ctx, target.Id); err != nil {
		return err
	}
	if err := uow.PersonaRepository().DeleteByUser(ctx, target.Id); err != nil {
		return err
	}
	if err := uow.ReferralRepository().DeleteByUser(ctx, target.Id); err != nil {
		return err
	}
	if err := uow.ProfileRepository().Delete(ctx, target.Id); err != nil {
		return err
	}

	m.logger.Info("ADMIN", "Deleted user", map[string]interface{}{
		"admin_id": adminId.String(),
		"user_id":  target.Id.String(),
	})
	return m.Record(ctx, uow, adminId, &target.Id, entity.AdminActionDelete, "", map[string]interface{}{"email": target.Email})
}

// SetRole grants role to target and audits it as action.
func (m *Manager) SetRole(ctx context.Context, uow unitofwork.UnitOfWork, adminId uuid.UUID, target *entity.Profile, role entity.AdminRole, action entity.AdminActionType) error {
	if target.IsSuperAdmin() && role != entity.AdminRoleSuperAdmin {
		if err := m.EnsureAnotherSuperAdmin(ctx, uow, target.Id); err != nil {
			return err
		}
	}
	if err := uow.ProfileRepository().UpdateFields(ctx, target.Id, map[string]interface{}{
		"is_admin":   true,
		"admin_role": string(role),
	}); err != nil {
		return err
	}
	target.IsAdmin = true
	target.AdminRole = &role
	return m.Record(ctx, uow, adminId, &target.Id, action, "", map[string]interface{}{"role": string(role)})
}

func (m *Manager) RevokeRole(ctx context.Context, uow unitofwork.UnitOfWork, adminId uuid.UUID, target *entity.Profile) error {
	if !target.IsAdmin {
		return apperror.BadRequest("user is not an admin")
	}
	if target.IsSuperAdmin() {
		if err := m.EnsureAnotherSuperAdmin(ctx, uow, target.Id); err != nil {
			return err
		}
	}
	if err := uow.ProfileRepository().UpdateFields(ctx, target.Id, map[string]interface{}{
		"is_admin":   false,
		"admin_role": nil,
	}); err != nil {
		return err
	}
	target.IsAdmin = false
	target.AdminRole = nil
	return m.Record(ctx, uow, adminId, &target.Id, entity.AdminActionRevokeAdmin, "", nil)
}

// EnsureAnotherSuperAdmin fails when excluding leaves the console without a super admin.
func (m *Manager) EnsureAnotherSuperAdmin(ctx context.Context, uow unitofwork.UnitOfWork, excluding uuid.UUID) error {
	supers, err := uow.ProfileRepository().FindAll(ctx,
		specification.AdminProfiles{},
		specification.Filter("admin_role", string(entity.AdminRoleSuperAdmin)),
	)
	if err != nil {
		return err
	}
	for _, p := range supers {
		if p.Id != excluding {
			return nil
		}
	}
	return apperror.Conflict("the last super admin cannot be removed")
}

// Announce publishes the moderation event after the transaction committed.
func (m *Manager) Announce(ctx context.Context, action entity.AdminActionType, adminId uuid.UUID, target *entity.Profile, reason string) {
	switch action {
	case entity.AdminActionBan:
		m.publisher.PublishUserBanned(ctx, adminId, target.Id, target.Email, reason)
	case entity.AdminActionUnban:
		m.publisher.PublishUserUnbanned(ctx, adminId, target.Id, target.Email)
	case entity.AdminActionLock:
		m.publisher.PublishUserLocked(ctx, adminId, target.Id, target.Email, reason)
	case entity.AdminActionUnlock:
		m.publisher.PublishUserUnlocked(ctx, adminId, target.Id, target.Email)
	case entity.AdminActionDelete:
		m.publisher.PublishUserDeleted(ctx, adminId, target.Id, target.Email)
	case entity.AdminActionGrantAdmin:
		role := ""
		if target.AdminRole != nil {
			role = string(*target.AdminRole)
		}
		m.publisher.PublishAdminGranted(ctx, adminId, target.Id, target.Email, role)
	case entity.AdminActionRevokeAdmin:
		m.publisher.PublishAdminRevoked(ctx, adminId, target.Id, target.Email)
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
