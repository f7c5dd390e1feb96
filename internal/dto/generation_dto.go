package dto

import (
	"time"

	"github.com/google/uuid"
)

type GenerateRequest struct {
	ModelId        uuid.UUID `json:"modelId" validate:"required"`
	Prompt         string    `json:"prompt" validate:"max=4000"`
	IsNsfw         bool      `json:"isNsfw"`
	Batch          bool      `json:"batch"`
	HighResolution bool      `json:"highResolution"`
	Priority       bool      `json:"priority"`
}

type GenerateResponse struct {
	JobId   uuid.UUID `json:"jobId"`
	Cost    int       `json:"cost"`
	Free    bool      `json:"free"`
	Balance int       `json:"balance"`
	Status  string    `json:"status"`
}

type JobResponse struct {
	JobId     uuid.UUID `json:"jobId"`
	ModelId   uuid.UUID `json:"modelId"`
	Status    string    `json:"status"`
	Progress  int       `json:"progress"`
	Images    []string  `json:"images"`
	Error     string    `json:"error,omitempty"`
	Cost      int       `json:"cost"`
	Free      bool      `json:"free"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// JobUpdateMessage is what the websocket pushes on every job transition.
type JobUpdateMessage struct {
	Type string       `json:"type"`
	Job  *JobResponse `json:"job"`
}

// PublishGenerationMessage is the job queue payload. The job itself lives in the job store.
type PublishGenerationMessage struct {
	JobId uuid.UUID `json:"job_id"`
}
