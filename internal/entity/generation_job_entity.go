package entity

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// GenerationJob is the server-side state of one generation request.
type GenerationJob struct {
	Id             uuid.UUID
	UserId         uuid.UUID
	ModelId        uuid.UUID
	Prompt         string
	IsNsfw         bool
	Batch          bool
	HighResolution bool
	Priority       bool
	Free           bool
	Cost           int
	Status         JobStatus
	Progress       int
	ImageUrls      []string
	Error          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (j *GenerationJob) Finished() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
