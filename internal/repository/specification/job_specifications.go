package specification

import (
	"time"

	"gorm.io/gorm"
)

// UnfinishedJobs matches jobs still queued or running.
type UnfinishedJobs struct{}

func (s UnfinishedJobs) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status IN ?", []string{"queued", "running"})
}

// UpdatedBefore matches rows whose last write is older than Time.
type UpdatedBefore struct {
	Time time.Time
}

func (s UpdatedBefore) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("updated_at < ?", s.Time)
}
