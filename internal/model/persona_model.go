package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Persona struct {
	Id                     uuid.UUID                   `gorm:"type:uuid;primaryKey"`
	UserId                 uuid.UUID                   `gorm:"type:uuid;not null;index"`
	Name                   string                      `gorm:"type:varchar(120);not null"`
	Age                    *int                        `gorm:"check:chk_models_age,age IS NULL OR age >= 18"`
	Nationality            *string                     `gorm:"type:varchar(100)"`
	Occupation             *string                     `gorm:"type:varchar(120)"`
	Description            *string                     `gorm:"type:text"`
	Attributes             datatypes.JSONMap           `gorm:"column:attributes"`
	FacialFeatures         datatypes.JSONMap           `gorm:"column:facial_features"`
	GenerationMethod       *string                     `gorm:"type:varchar(20)"`
	ReferenceImages        datatypes.JSONSlice[string] `gorm:"column:reference_images"`
	BasePrompt             *string                     `gorm:"type:text"`
	LockedReferenceImageId *uuid.UUID                  `gorm:"type:uuid"`
	GenerationCount        int                         `gorm:"not null;default:0"`
	CreatedAt              time.Time                   `gorm:"autoCreateTime"`
	UpdatedAt              time.Time                   `gorm:"autoUpdateTime"`
}

func (Persona) TableName() string {
	return "models"
}

type GeneratedImage struct {
	Id         uuid.UUID `gorm:"type:uuid;primaryKey"`
	ModelId    uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:ux_generated_images_selected,where:is_selected = true"`
	UserId     uuid.UUID `gorm:"type:uuid;not null;index"`
	ImageUrl   string    `gorm:"type:text;not null"`
	Prompt     *string   `gorm:"type:text"`
	IsSelected bool      `gorm:"not null;default:false"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (GeneratedImage) TableName() string {
	return "generated_images"
}
