package memory

import (
	"sync"
	"testing"
	"time"

	"fanova-be/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobRepository_SaveGetIsolated(t *testing.T) {
	repo := NewJobRepository()
	job := &entity.GenerationJob{Id: uuid.New(), UserId: uuid.New(), Status: entity.JobStatusQueued}
	repo.Save(job)

	got, ok := repo.Get(job.Id)
	require.True(t, ok)
	got.Status = entity.JobStatusFailed

	again, _ := repo.Get(job.Id)
	assert.Equal(t, entity.JobStatusQueued, again.Status)
}

func TestJobRepository_UpdateConcurrent(t *testing.T) {
	repo := NewJobRepository()
	id := uuid.New()
	repo.Save(&entity.GenerationJob{Id: id})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			repo.Update(id, func(j *entity.GenerationJob) { j.Progress++ })
		}()
	}
	wg.Wait()

	job, _ := repo.Get(id)
	assert.Equal(t, 50, job.Progress)
}

func TestJobRepository_ListByUser(t *testing.T) {
	repo := NewJobRepository()
	userID := uuid.New()
	older := &entity.GenerationJob{Id: uuid.New(), UserId: userID, CreatedAt: time.Now().Add(-time.Minute)}
	newer := &entity.GenerationJob{Id: uuid.New(), UserId: userID, CreatedAt: time.Now()}
	repo.Save(older)
	repo.Save(newer)
	repo.Save(&entity.GenerationJob{Id: uuid.New(), UserId: uuid.New()})

	jobs := repo.ListByUser(userID)
	require.Len(t, jobs, 2)
	assert.Equal(t, newer.Id, jobs[0].Id)

	_, ok := repo.Update(uuid.New(), func(*entity.GenerationJob) {})
	assert.False(t, ok)
}
