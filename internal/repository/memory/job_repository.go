package memory

import (
	"sort"
	"sync"
	"time"

	"fanova-be/internal/entity"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// JobRepository keeps generation job state in process memory. Jobs expire a day after their last update.
type JobRepository struct {
	cache *cache.Cache
	mu    sync.Mutex
}

func NewJobRepository() *JobRepository {
	c := cache.New(24*time.Hour, 30*time.Minute)
	return &JobRepository{
		cache: c,
	}
}

func (r *JobRepository) Save(job *entity.GenerationJob) {
	job.UpdatedAt = time.Now()
	r.cache.Set(job.Id.String(), clone(job), cache.DefaultExpiration)
}

// Get returns a copy, so callers cannot mutate stored state without Save or Update.
func (r *JobRepository) Get(jobId uuid.UUID) (*entity.GenerationJob, bool) {
	if x, found := r.cache.Get(jobId.String()); found {
		return clone(x.(*entity.GenerationJob)), true
	}
	return nil, false
}

// Update applies fn to the stored job under a lock and returns the updated copy.
func (r *JobRepository) Update(jobId uuid.UUID, fn func(job *entity.GenerationJob)) (*entity.GenerationJob, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.Get(jobId)
	if !ok {
		return nil, false
	}
	fn(job)
	r.Save(job)
	return clone(job), true
}

// ListByUser returns the user's jobs, newest first.
func (r *JobRepository) ListByUser(userId uuid.UUID) []*entity.GenerationJob {
	var jobs []*entity.GenerationJob
	for _, item := range r.cache.Items() {
		job := item.Object.(*entity.GenerationJob)
		if job.UserId == userId {
			jobs = append(jobs, clone(job))
		}
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.After(jobs[j].CreatedAt) })
	return jobs
}

func (r *JobRepository) Delete(jobId uuid.UUID) {
	r.cache.Delete(jobId.String())
}

func clone(job *entity.GenerationJob) *entity.GenerationJob {
	c := *job
	if job.ImageUrls != nil {
		c.ImageUrls = append([]string(nil), job.ImageUrls...)
	}
	return &c
}
