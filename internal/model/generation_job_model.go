package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// GenerationJob is the durable record of a charged generation request. Live progress is cached in memory;
// this row is written on creation and on every stage change.
type GenerationJob struct {
	Id             uuid.UUID                   `gorm:"type:uuid;primaryKey"`
	UserId         uuid.UUID                   `gorm:"type:uuid;not null;index"`
	ModelId        uuid.UUID                   `gorm:"type:uuid;not null"`
	Prompt         string                      `gorm:"type:text"`
	IsNsfw         bool                        `gorm:"not null;default:false"`
	Batch          bool                        `gorm:"not null;default:false"`
	HighResolution bool                        `gorm:"not null;default:false"`
	Priority       bool                        `gorm:"not null;default:false"`
	Free           bool                        `gorm:"not null;default:false"`
	Cost           int                         `gorm:"not null;default:0"`
	Status         string                      `gorm:"type:varchar(20);not null;index"`
	Progress       int                         `gorm:"not null;default:0"`
	ImageUrls      datatypes.JSONSlice[string] `gorm:"column:image_urls"`
	Error          *string                     `gorm:"type:text"`
	CreatedAt      time.Time                   `gorm:"not null"`
	UpdatedAt      time.Time                   `gorm:"not null;index"`
}

func (GenerationJob) TableName() string {
	return "generation_jobs"
}
