package dto

import "github.com/google/uuid"

type AnalyzeImagesRequest struct {
	Images    []string `json:"images" validate:"required,min=1,max=4"`
	ModelName string   `json:"modelName" validate:"max=80"`
}

type AnalyzeImagesResponse struct {
	Description    string                 `json:"description"`
	Attributes     map[string]interface{} `json:"attributes"`
	FacialFeatures map[string]interface{} `json:"facialFeatures"`
	Prompt         string                 `json:"prompt"`
}

type GeneratePromptRequest struct {
	ModelId uuid.UUID `json:"modelId" validate:"required"`
}

type EnhancePromptRequest struct {
	ModelId uuid.UUID `json:"modelId" validate:"required"`
	Message string    `json:"message" validate:"required,max=4000"`
}

type PromptResponse struct {
	Prompt string `json:"prompt"`
}
