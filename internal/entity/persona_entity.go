package entity

import (
	"time"

	"github.com/google/uuid"
)

type GenerationMethod string

const (
	GenerationMethodDescription GenerationMethod = "description"
	GenerationMethodReference   GenerationMethod = "reference"
)

// Persona is a user's AI character ("model" in the product).
type Persona struct {
	Id                     uuid.UUID
	UserId                 uuid.UUID
	Name                   string
	Age                    *int
	Nationality            *string
	Occupation             *string
	Description            *string
	Attributes             map[string]interface{}
	FacialFeatures         map[string]interface{}
	GenerationMethod       *GenerationMethod
	ReferenceImages        []string
	BasePrompt             *string
	LockedReferenceImageId *uuid.UUID
	GenerationCount        int
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

type GeneratedImage struct {
	Id         uuid.UUID
	ModelId    uuid.UUID
	UserId     uuid.UUID
	ImageUrl   string
	Prompt     *string
	IsSelected bool
	CreatedAt  time.Time
}
