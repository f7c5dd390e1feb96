package service

import (
	"context"
	"sync"
	"testing"

	"fanova-be/internal/dto"
	"fanova-be/internal/entity"
	"fanova-be/internal/pkg/apperror"
	"fanova-be/internal/repository/memory"
	"fanova-be/internal/repository/specification"
	"fanova-be/internal/repository/unitofwork"
	"fanova-be/internal/testutil"
	"fanova-be/pkg/pricing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type generationFixture struct {
	db        *gorm.DB
	factory   unitofwork.RepositoryFactory
	svc       IGenerationService
	worker    IConsumerService
	jobs      *memory.JobRepository
	publisher *fakePublisher
	generator *fakeGenerator
	watermark *fakeWatermarker
	store     *fakeStore
	notifier  *recordingNotifier
}

func newGenerationFixture(t *testing.T) (*generationFixture, func(credits int, plan string) (*entity.Profile, *entity.Persona)) {
	t.Helper()
	db := testutil.NewTestDB(t)
	f := unitofwork.NewRepositoryFactory(db)
	fx := &generationFixture{
		db:        db,
		factory:   f,
		jobs:      memory.NewJobRepository(),
		publisher: &fakePublisher{},
		generator: &fakeGenerator{},
		watermark: &fakeWatermarker{},
		store:     newFakeStore(),
		notifier:  &recordingNotifier{},
	}
	fx.svc = NewGenerationService(f, fx.jobs, fx.publisher, fx.notifier, nil, nopLogger)
	fx.worker = fx.newWorker(fx.jobs)

	seed := func(credits int, plan string) (*entity.Profile, *entity.Persona) {
		profile := seedProfile(t, f, credits, plan)
		return profile, seedPersona(t, f, profile.Id)
	}
	return fx, seed
}

// newWorker builds a worker over jobs; a fresh store stands in for a restarted process.
func (fx *generationFixture) newWorker(jobs JobStore) IConsumerService {
	return NewConsumerService(ConsumerDeps{
		UowFactory: fx.factory,
		Jobs:       jobs,
		Composer:   &fakeComposer{},
		Generator:  fx.generator,
		Watermark:  fx.watermark,
		Store:      fx.store,
		Notifier:   fx.notifier,
		Logger:     nopLogger,
	})
}

func TestGenerate_TenCreditsOnEssential(t *testing.T) {
	fx, seed := newGenerationFixture(t)
	profile, persona := seed(10, "essential")
	ctx := context.Background()

	// 1. First SFW image spends the whole balance
	res, err := fx.svc.Generate(ctx, principalFor(profile), &dto.GenerateRequest{ModelId: persona.Id, Prompt: "at the beach"})
	require.NoError(t, err)
	assert.Equal(t, 10, res.Cost)
	assert.Equal(t, 0, res.Balance)
	assert.False(t, res.Free)
	assert.Equal(t, "queued", res.Status)
	assert.Equal(t, 1, fx.publisher.count())

	// 2. The second request is refused before anything is queued
	_, err = fx.svc.Generate(ctx, principalFor(profile), &dto.GenerateRequest{ModelId: persona.Id})
	assert.ErrorIs(t, err, apperror.ErrInsufficientCredits)
	assert.Equal(t, 1, fx.publisher.count())
	assert.Equal(t, 0, fx.generator.calls())
}

func TestGenerate_WritesSpendRowAndCountsGeneration(t *testing.T) {
	fx, seed := newGenerationFixture(t)
	profile, persona := seed(100, "base")
	f := fx.svc.(*generationService).uowFactory
	ctx := context.Background()

	res, err := fx.svc.Generate(ctx, principalFor(profile), &dto.GenerateRequest{
		ModelId:        persona.Id,
		HighResolution: true,
		Priority:       true,
	})
	require.NoError(t, err)
	assert.Equal(t, 20, res.Cost)

	rows := ledgerOf(t, f, profile.Id)
	require.Len(t, rows, 1)
	assert.Equal(t, -20, rows[0].Amount)
	assert.Equal(t, entity.CreditTypeSpend, rows[0].Type)
	assert.Equal(t, 80, rows[0].BalanceAfter)
	require.NotNil(t, rows[0].Reference)
	assert.Equal(t, "spend:job:"+res.JobId.String(), *rows[0].Reference)

	updated, err := f.NewUnitOfWork(ctx).PersonaRepository().FindOne(ctx, specification.ByID{ID: persona.Id})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.GenerationCount)
	assert.Equal(t, 80, reloadProfile(t, f, profile.Id).Credits)
}

func TestGenerate_NsfwGating(t *testing.T) {
	testCases := []struct {
		name    string
		plan    string
		wantErr bool
		cost    int
	}{
		{name: "no plan", plan: "", wantErr: true},
		{name: "base", plan: "base", wantErr: true},
		{name: "essential", plan: "essential", cost: 30},
		{name: "ultimate", plan: "ultimate", cost: 15},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fx, seed := newGenerationFixture(t)
			profile, persona := seed(100, tc.plan)

			res, err := fx.svc.Generate(context.Background(), principalFor(profile), &dto.GenerateRequest{
				ModelId: persona.Id,
				IsNsfw:  true,
			})
			if tc.wantErr {
				assert.ErrorIs(t, err, apperror.ErrNsfwNotAllowed)
				assert.Equal(t, 0, fx.publisher.count())
				assert.Equal(t, 0, fx.generator.calls())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.cost, res.Cost)
		})
	}
}

func TestGenerate_FreeGenerationsForNoPlan(t *testing.T) {
	fx, seed := newGenerationFixture(t)
	profile, persona := seed(0, "")
	f := fx.svc.(*generationService).uowFactory
	ctx := context.Background()

	for i := 0; i < pricing.FreeGenerationLimit; i++ {
		res, err := fx.svc.Generate(ctx, principalFor(profile), &dto.GenerateRequest{ModelId: persona.Id})
		require.NoError(t, err)
		assert.True(t, res.Free)
		assert.Equal(t, 0, res.Cost)
	}

	_, err := fx.svc.Generate(ctx, principalFor(profile), &dto.GenerateRequest{ModelId: persona.Id})
	assert.ErrorIs(t, err, apperror.ErrInsufficientCredits)

	rows := ledgerOf(t, f, profile.Id)
	require.Len(t, rows, pricing.FreeGenerationLimit)
	for _, row := range rows {
		assert.Equal(t, entity.CreditTypeFreeGeneration, row.Type)
		assert.Equal(t, 0, row.Amount)
	}
	reloaded := reloadProfile(t, f, profile.Id)
	assert.Equal(t, pricing.FreeGenerationLimit, reloaded.FreeGenerationsUsed)
	assert.Equal(t, 0, reloaded.Credits)
}

func TestGenerate_FreeTierAddOnsAreCharged(t *testing.T) {
	fx, seed := newGenerationFixture(t)
	profile, persona := seed(50, "")

	res, err := fx.svc.Generate(context.Background(), principalFor(profile), &dto.GenerateRequest{
		ModelId: persona.Id,
		Batch:   true,
	})
	require.NoError(t, err)
	assert.False(t, res.Free)
	assert.Equal(t, pricing.BatchCost, res.Cost)
	assert.Equal(t, 25, res.Balance)
}

func TestGenerate_Rejections(t *testing.T) {
	fx, seed := newGenerationFixture(t)
	profile, persona := seed(100, "base")
	other, _ := seed(100, "base")
	ctx := context.Background()

	t.Run("foreign model", func(t *testing.T) {
		_, err := fx.svc.Generate(ctx, principalFor(other), &dto.GenerateRequest{ModelId: persona.Id})
		appErr, ok := apperror.As(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeNotFound, appErr.Code)
	})

	t.Run("locked account", func(t *testing.T) {
		p := principalFor(profile)
		p.IsLocked = true
		_, err := fx.svc.Generate(ctx, p, &dto.GenerateRequest{ModelId: persona.Id})
		assert.ErrorIs(t, err, apperror.ErrAccountLocked)
	})

	assert.Equal(t, 0, fx.publisher.count())
	assert.Equal(t, 100, reloadProfile(t, fx.svc.(*generationService).uowFactory, profile.Id).Credits)
}

func TestGenerate_EnqueueFailureRefunds(t *testing.T) {
	fx, seed := newGenerationFixture(t)
	profile, persona := seed(30, "base")
	f := fx.svc.(*generationService).uowFactory
	fx.publisher.err = errUpstream

	_, err := fx.svc.Generate(context.Background(), principalFor(profile), &dto.GenerateRequest{ModelId: persona.Id})
	require.Error(t, err)

	assert.Equal(t, 30, reloadProfile(t, f, profile.Id).Credits)
	rows := ledgerOf(t, f, profile.Id)
	require.Len(t, rows, 2)
	assert.Equal(t, entity.CreditTypeRefund, rows[1].Type)
	assert.Equal(t, 10, rows[1].Amount)

	jobs := fx.jobs.ListByUser(profile.Id)
	require.Len(t, jobs, 1)
	assert.Equal(t, entity.JobStatusFailed, jobs[0].Status)
}

func TestGetJob_OwnerOnly(t *testing.T) {
	fx, seed := newGenerationFixture(t)
	profile, persona := seed(10, "base")
	ctx := context.Background()

	res, err := fx.svc.Generate(ctx, principalFor(profile), &dto.GenerateRequest{ModelId: persona.Id})
	require.NoError(t, err)

	job, err := fx.svc.GetJob(ctx, profile.Id, res.JobId)
	require.NoError(t, err)
	assert.Equal(t, "queued", job.Status)
	assert.Empty(t, job.Images)

	_, err = fx.svc.GetJob(ctx, uuid.New(), res.JobId)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeNotFound, appErr.Code)
}

func TestGenerate_ConcurrentSpendsNeverOverdraw(t *testing.T) {
	fx, seed := newGenerationFixture(t)
	profile, persona := seed(10, "essential")
	ctx := context.Background()

	// sqlite has a single writer; one connection queues the transactions instead of failing them with SQLITE_LOCKED.
	sqlDB, err := fx.db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = fx.svc.Generate(ctx, principalFor(profile), &dto.GenerateRequest{ModelId: persona.Id})
		}(i)
	}
	close(start)
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		assert.ErrorIs(t, err, apperror.ErrInsufficientCredits)
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 0, reloadProfile(t, fx.factory, profile.Id).Credits)
	require.Len(t, ledgerOf(t, fx.factory, profile.Id), 1)
	assert.Equal(t, 1, fx.publisher.count())
}

func TestGenerate_JobIsStoredWithTheCharge(t *testing.T) {
	fx, seed := newGenerationFixture(t)
	profile, persona := seed(10, "base")
	ctx := context.Background()

	res, err := fx.svc.Generate(ctx, principalFor(profile), &dto.GenerateRequest{ModelId: persona.Id, Prompt: "on a boat"})
	require.NoError(t, err)

	stored, err := fx.factory.NewUnitOfWork(ctx).GenerationJobRepository().FindOne(ctx, specification.ByID{ID: res.JobId})
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, entity.JobStatusQueued, stored.Status)
	assert.Equal(t, 10, stored.Cost)
	assert.Equal(t, "on a boat", stored.Prompt)

	// A service without the live cache answers from the stored row, and only to the owner.
	cold := NewGenerationService(fx.factory, memory.NewJobRepository(), fx.publisher, nil, nil, nopLogger)
	job, err := cold.GetJob(ctx, profile.Id, res.JobId)
	require.NoError(t, err)
	assert.Equal(t, "queued", job.Status)

	_, err = cold.GetJob(ctx, uuid.New(), res.JobId)
	assert.Equal(t, apperror.CodeNotFound, errorCode(t, err))

	list, err := cold.ListJobs(ctx, profile.Id)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, res.JobId, list[0].JobId)
}
