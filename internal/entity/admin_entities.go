package entity

import (
	"time"

	"github.com/google/uuid"
)

type AdminActionType string

const (
	AdminActionBan         AdminActionType = "ban"
	AdminActionUnban       AdminActionType = "unban"
	AdminActionLock        AdminActionType = "lock"
	AdminActionUnlock      AdminActionType = "unlock"
	AdminActionDelete      AdminActionType = "delete"
	AdminActionUpdate      AdminActionType = "update"
	AdminActionGrantAdmin  AdminActionType = "grant_admin"
	AdminActionRevokeAdmin AdminActionType = "revoke_admin"
	AdminActionBootstrap   AdminActionType = "bootstrap"
)

type AdminAction struct {
	Id           uuid.UUID
	AdminId      uuid.UUID
	TargetUserId *uuid.UUID
	Action       AdminActionType
	Reason       *string
	Details      map[string]interface{}
	CreatedAt    time.Time
}

type DashboardStats struct {
	TotalUsers        int64
	BannedUsers       int64
	LockedUsers       int64
	Admins            int64
	SubscribersByPlan map[string]int64
	TotalModels       int64
	TotalImages       int64
	CreditsSpent      int64
	TotalReferrals    int64
	NewUsersLast7Days int64
}
