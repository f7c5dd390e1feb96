package dto

import (
	"time"

	"github.com/google/uuid"
)

// --- Wizard ---

type CreateModelRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=80"`
	Age         *int    `json:"age" validate:"omitempty,gte=18,lte=120"`
	Nationality *string `json:"nationality" validate:"omitempty,max=80"`
	Occupation  *string `json:"occupation" validate:"omitempty,max=80"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

type UpdateModelRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=80"`
	Age         *int    `json:"age" validate:"omitempty,gte=18,lte=120"`
	Nationality *string `json:"nationality" validate:"omitempty,max=80"`
	Occupation  *string `json:"occupation" validate:"omitempty,max=80"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

type UpdateAttributesRequest struct {
	Attributes map[string]interface{} `json:"attributes" validate:"required"`
}

type UpdateGenerationMethodRequest struct {
	Method          string   `json:"method" validate:"required,oneof=description reference"`
	ReferenceImages []string `json:"referenceImages" validate:"omitempty,max=4,dive,url"`
}

type UpdateFacialFeaturesRequest struct {
	FacialFeatures map[string]interface{} `json:"facialFeatures" validate:"required"`
}

type ModelResponse struct {
	Id                     uuid.UUID              `json:"id"`
	Name                   string                 `json:"name"`
	Age                    *int                   `json:"age"`
	Nationality            *string                `json:"nationality"`
	Occupation             *string                `json:"occupation"`
	Description            *string                `json:"description"`
	Attributes             map[string]interface{} `json:"attributes"`
	FacialFeatures         map[string]interface{} `json:"facialFeatures"`
	GenerationMethod       *string                `json:"generationMethod"`
	ReferenceImages        []string               `json:"referenceImages"`
	BasePrompt             *string                `json:"basePrompt"`
	LockedReferenceImageId *uuid.UUID             `json:"lockedReferenceImageId"`
	LockedReferenceURL     *string                `json:"lockedReferenceUrl,omitempty"`
	GenerationCount        int                    `json:"generationCount"`
	CreatedAt              time.Time              `json:"createdAt"`
	UpdatedAt              time.Time              `json:"updatedAt"`
}

// --- Kept images and reference lock ---

type LockReferenceRequest struct {
	ImageUrls []string `json:"imageUrls" validate:"required,dive,url"`
	Prompt    *string  `json:"prompt" validate:"omitempty,max=4000"`
}

type KeepImageRequest struct {
	ImageUrl string  `json:"imageUrl" validate:"required,url"`
	Prompt   *string `json:"prompt" validate:"omitempty,max=4000"`
}

type GeneratedImageResponse struct {
	Id         uuid.UUID `json:"id"`
	ModelId    uuid.UUID `json:"modelId"`
	ImageUrl   string    `json:"imageUrl"`
	Prompt     *string   `json:"prompt"`
	IsSelected bool      `json:"isSelected"`
	CreatedAt  time.Time `json:"createdAt"`
}

type KeepImageResponse struct {
	Image   *GeneratedImageResponse `json:"image"`
	Created bool                    `json:"created"`
}
