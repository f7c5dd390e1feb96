package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"fanova-be/internal/dto"
	"fanova-be/internal/entity"
	"fanova-be/internal/model"
	"fanova-be/internal/repository/memory"
	"fanova-be/internal/repository/specification"
	"fanova-be/pkg/wavespeed"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsumer_ProcessCompletesPaidJob(t *testing.T) {
	fx, seed := newGenerationFixture(t)
	profile, persona := seed(100, "ultimate")
	ctx := context.Background()

	res, err := fx.svc.Generate(ctx, principalFor(profile), &dto.GenerateRequest{ModelId: persona.Id, Batch: true})
	require.NoError(t, err)

	require.NoError(t, fx.worker.Process(ctx, res.JobId))

	job, ok := fx.jobs.Get(res.JobId)
	require.True(t, ok)
	assert.Equal(t, entity.JobStatusCompleted, job.Status)
	assert.Equal(t, 100, job.Progress)
	assert.Len(t, job.ImageUrls, 3)
	for _, url := range job.ImageUrls {
		assert.True(t, strings.HasPrefix(url, "https://storage.test/generations/"+profile.Id.String()+"/luna-vale/"))
	}

	assert.Equal(t, 0, fx.watermark.applied, "paid output is not watermarked")
	require.Len(t, fx.generator.requests, 1)
	assert.Equal(t, 3, fx.generator.requests[0].Count)
	assert.Empty(t, fx.generator.requests[0].ReferenceImage)

	last := fx.notifier.last()
	require.NotNil(t, last)
	assert.Equal(t, "completed", last.Job.Status)
}

func TestConsumer_FreeOutputIsWatermarked(t *testing.T) {
	fx, seed := newGenerationFixture(t)
	profile, persona := seed(0, "")
	ctx := context.Background()

	res, err := fx.svc.Generate(ctx, principalFor(profile), &dto.GenerateRequest{ModelId: persona.Id})
	require.NoError(t, err)
	require.True(t, res.Free)

	require.NoError(t, fx.worker.Process(ctx, res.JobId))
	assert.Equal(t, 1, fx.watermark.applied)
	for key, data := range fx.store.files {
		assert.True(t, strings.HasSuffix(key, ".jpg"))
		assert.True(t, strings.HasPrefix(string(data), "wm:"))
	}
}

func TestConsumer_UsesLockedReference(t *testing.T) {
	fx, seed := newGenerationFixture(t)
	profile, persona := seed(100, "base")
	f := fx.svc.(*generationService).uowFactory
	ctx := context.Background()

	uow := f.NewUnitOfWork(ctx)
	image := &entity.GeneratedImage{Id: uuid.New(), ModelId: persona.Id, UserId: profile.Id, ImageUrl: "https://cdn.test/ref.png", IsSelected: true}
	require.NoError(t, uow.GeneratedImageRepository().Create(ctx, image))
	require.NoError(t, uow.PersonaRepository().SetLockedReference(ctx, persona.Id, image.Id))

	res, err := fx.svc.Generate(ctx, principalFor(profile), &dto.GenerateRequest{ModelId: persona.Id})
	require.NoError(t, err)
	require.NoError(t, fx.worker.Process(ctx, res.JobId))

	require.Len(t, fx.generator.requests, 1)
	assert.Equal(t, "https://cdn.test/ref.png", fx.generator.requests[0].ReferenceImage)
}

func TestConsumer_FailureRefundsOnce(t *testing.T) {
	fx, seed := newGenerationFixture(t)
	profile, persona := seed(10, "essential")
	f := fx.svc.(*generationService).uowFactory
	ctx := context.Background()
	fx.generator.err = wavespeed.ErrTimeout

	res, err := fx.svc.Generate(ctx, principalFor(profile), &dto.GenerateRequest{ModelId: persona.Id})
	require.NoError(t, err)
	assert.Equal(t, 0, reloadProfile(t, f, profile.Id).Credits)

	// 1. The failed job is refunded and marked failed
	assert.ErrorIs(t, fx.worker.Process(ctx, res.JobId), wavespeed.ErrTimeout)
	job, _ := fx.jobs.Get(res.JobId)
	assert.Equal(t, entity.JobStatusFailed, job.Status)
	assert.Contains(t, job.Error, "timed out")
	assert.Equal(t, 10, reloadProfile(t, f, profile.Id).Credits)

	// 2. Redelivery and a second compensation attempt change nothing
	require.NoError(t, fx.worker.Process(ctx, res.JobId))
	require.NoError(t, refundJob(ctx, f, job))
	assert.Equal(t, 10, reloadProfile(t, f, profile.Id).Credits)

	rows := ledgerOf(t, f, profile.Id)
	require.Len(t, rows, 2)
	assert.Equal(t, entity.CreditTypeSpend, rows[0].Type)
	assert.Equal(t, entity.CreditTypeRefund, rows[1].Type)
	assert.Equal(t, 10, rows[1].BalanceAfter)
}

func TestConsumer_FailedFreeJobReturnsFreeGeneration(t *testing.T) {
	fx, seed := newGenerationFixture(t)
	profile, persona := seed(0, "")
	f := fx.svc.(*generationService).uowFactory
	ctx := context.Background()
	fx.generator.err = errUpstream

	res, err := fx.svc.Generate(ctx, principalFor(profile), &dto.GenerateRequest{ModelId: persona.Id})
	require.NoError(t, err)
	require.Equal(t, 1, reloadProfile(t, f, profile.Id).FreeGenerationsUsed)

	require.Error(t, fx.worker.Process(ctx, res.JobId))
	assert.Equal(t, 0, reloadProfile(t, f, profile.Id).FreeGenerationsUsed)
}

func TestConsumer_ComposerFailureFallsBackToSheet(t *testing.T) {
	fx, seed := newGenerationFixture(t)
	profile, persona := seed(10, "base")
	ctx := context.Background()
	fx.worker.(*consumerService).composer = &fakeComposer{err: errUpstream}

	res, err := fx.svc.Generate(ctx, principalFor(profile), &dto.GenerateRequest{ModelId: persona.Id, Prompt: "in a cafe"})
	require.NoError(t, err)
	require.NoError(t, fx.worker.Process(ctx, res.JobId))

	require.Len(t, fx.generator.requests, 1)
	prompt := fx.generator.requests[0].Prompt
	assert.Contains(t, prompt, "Luna Vale")
	assert.Contains(t, prompt, "in a cafe")
}

func storedJob(t *testing.T, fx *generationFixture, jobId uuid.UUID) *entity.GenerationJob {
	t.Helper()
	ctx := context.Background()
	job, err := fx.factory.NewUnitOfWork(ctx).GenerationJobRepository().FindOne(ctx, specification.ByID{ID: jobId})
	require.NoError(t, err)
	return job
}

func TestConsumer_RestartedWorkerRunsStoredJob(t *testing.T) {
	fx, seed := newGenerationFixture(t)
	profile, persona := seed(10, "essential")
	ctx := context.Background()

	res, err := fx.svc.Generate(ctx, principalFor(profile), &dto.GenerateRequest{ModelId: persona.Id})
	require.NoError(t, err)

	restarted := fx.newWorker(memory.NewJobRepository())
	require.NoError(t, restarted.Process(ctx, res.JobId))

	job := storedJob(t, fx, res.JobId)
	require.NotNil(t, job)
	assert.Equal(t, entity.JobStatusCompleted, job.Status)
	assert.Equal(t, 100, job.Progress)
	assert.Len(t, job.ImageUrls, 1)
	assert.Equal(t, 0, reloadProfile(t, fx.factory, profile.Id).Credits)
	assert.Len(t, ledgerOf(t, fx.factory, profile.Id), 1)
}

func TestConsumer_JobWithoutStateIsRefundedFromLedger(t *testing.T) {
	fx, seed := newGenerationFixture(t)
	profile, persona := seed(10, "essential")
	ctx := context.Background()

	res, err := fx.svc.Generate(ctx, principalFor(profile), &dto.GenerateRequest{ModelId: persona.Id})
	require.NoError(t, err)
	require.NoError(t, fx.db.Delete(&model.GenerationJob{}, "id = ?", res.JobId).Error)

	jobs := memory.NewJobRepository()
	restarted := fx.newWorker(jobs)
	assert.Error(t, restarted.Process(ctx, res.JobId))
	assert.Equal(t, 0, fx.generator.calls())
	assert.Equal(t, 10, reloadProfile(t, fx.factory, profile.Id).Credits)

	rows := ledgerOf(t, fx.factory, profile.Id)
	require.Len(t, rows, 2)
	assert.Equal(t, entity.CreditTypeRefund, rows[1].Type)
	assert.Equal(t, "refund:job:"+res.JobId.String(), *rows[1].Reference)

	cached, ok := jobs.Get(res.JobId)
	require.True(t, ok)
	assert.Equal(t, entity.JobStatusFailed, cached.Status)

	// Redelivery sees the failed job and refunds nothing more.
	require.NoError(t, restarted.Process(ctx, res.JobId))
	assert.Equal(t, 10, reloadProfile(t, fx.factory, profile.Id).Credits)
}

func TestConsumer_RecoverInterruptedRefundsStaleJobs(t *testing.T) {
	fx, seed := newGenerationFixture(t)
	profile, persona := seed(20, "essential")
	ctx := context.Background()

	stale, err := fx.svc.Generate(ctx, principalFor(profile), &dto.GenerateRequest{ModelId: persona.Id})
	require.NoError(t, err)
	fresh, err := fx.svc.Generate(ctx, principalFor(profile), &dto.GenerateRequest{ModelId: persona.Id})
	require.NoError(t, err)
	require.NoError(t, fx.db.Model(&model.GenerationJob{}).Where("id = ?", stale.JobId).
		UpdateColumn("updated_at", time.Now().Add(-time.Hour)).Error)

	restarted := fx.newWorker(memory.NewJobRepository())
	n, err := restarted.RecoverInterrupted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	job := storedJob(t, fx, stale.JobId)
	assert.Equal(t, entity.JobStatusFailed, job.Status)
	assert.Equal(t, interruptedReason, job.Error)
	assert.Equal(t, entity.JobStatusQueued, storedJob(t, fx, fresh.JobId).Status)
	assert.Equal(t, 10, reloadProfile(t, fx.factory, profile.Id).Credits)

	n, err = restarted.RecoverInterrupted(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 10, reloadProfile(t, fx.factory, profile.Id).Credits)
}
