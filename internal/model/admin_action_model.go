package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AdminAction struct {
	Id           uuid.UUID         `gorm:"type:uuid;primaryKey"`
	AdminId      uuid.UUID         `gorm:"type:uuid;not null;index"`
	TargetUserId *uuid.UUID        `gorm:"type:uuid;index"`
	Action       string            `gorm:"type:varchar(30);not null"`
	Reason       *string           `gorm:"type:text"`
	Details      datatypes.JSONMap `gorm:"column:details"`
	CreatedAt    time.Time         `gorm:"autoCreateTime;index"`
}

func (AdminAction) TableName() string {
	return "admin_actions"
}
