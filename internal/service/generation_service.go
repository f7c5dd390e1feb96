package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fanova-be/internal/dto"
	"fanova-be/internal/entity"
	"fanova-be/internal/pkg/apperror"
	"fanova-be/internal/pkg/auth"
	"fanova-be/internal/pkg/logger"
	"fanova-be/internal/pkg/metrics"
	"fanova-be/internal/repository/specification"
	"fanova-be/internal/repository/unitofwork"
	"fanova-be/pkg/pricing"

	"github.com/google/uuid"
)

const maxListedJobs = 50

// JobStore keeps server-side job state for polling and websocket push.
type JobStore interface {
	Save(job *entity.GenerationJob)
	Get(jobId uuid.UUID) (*entity.GenerationJob, bool)
	Update(jobId uuid.UUID, fn func(job *entity.GenerationJob)) (*entity.GenerationJob, bool)
	ListByUser(userId uuid.UUID) []*entity.GenerationJob
}

// JobNotifier pushes job transitions to the job owner's live connections.
type JobNotifier interface {
	SendJobUpdate(userId uuid.UUID, update *dto.JobUpdateMessage)
}

type IGenerationService interface {
	Generate(ctx context.Context, principal *auth.Principal, req *dto.GenerateRequest) (*dto.GenerateResponse, error)
	GetJob(ctx context.Context, userId, jobId uuid.UUID) (*dto.JobResponse, error)
	ListJobs(ctx context.Context, userId uuid.UUID) ([]*dto.JobResponse, error)
}

type generationService struct {
	uowFactory unitofwork.RepositoryFactory
	jobs       JobStore
	publisher  IPublisherService
	notifier   JobNotifier
	metrics    *metrics.Metrics
	logger     logger.ILogger
}

func NewGenerationService(
	uowFactory unitofwork.RepositoryFactory,
	jobs JobStore,
	publisher IPublisherService,
	notifier JobNotifier,
	m *metrics.Metrics,
	log logger.ILogger,
) IGenerationService {
	return &generationService{
		uowFactory: uowFactory,
		jobs:       jobs,
		publisher:  publisher,
		notifier:   notifier,
		metrics:    m,
		logger:     log,
	}
}

func (s *generationService) Generate(ctx context.Context, principal *auth.Principal, req *dto.GenerateRequest) (*dto.GenerateResponse, error) {
	if principal.IsBanned {
		return nil, apperror.ErrAccountBanned
	}
	if principal.IsLocked {
		return nil, apperror.ErrAccountLocked
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	// 1. Load the caller and the model
	profile, err := uow.ProfileRepository().FindOne(ctx, specification.ByID{ID: principal.UserID})
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, apperror.NotFound("profile not found")
	}
	persona, err := uow.PersonaRepository().FindOne(ctx,
		specification.ByID{ID: req.ModelId},
		specification.UserOwnedBy{UserID: principal.UserID},
	)
	if err != nil {
		return nil, err
	}
	if persona == nil {
		return nil, apperror.NotFound("model not found")
	}

	// 2. Price the request. NSFW without entitlement stops here.
	plan, _ := pricing.ParsePlan(profile.Plan())
	opts := pricing.Options{
		IsNsfw:         req.IsNsfw,
		Batch:          req.Batch,
		HighResolution: req.HighResolution,
		Priority:       req.Priority,
	}
	quote, err := pricing.QuoteFor(plan, profile.FreeGenerationsUsed, opts)
	if err != nil {
		return nil, pricingError(err)
	}
	paidCost, err := pricing.Cost(plan, opts)
	if err != nil {
		return nil, pricingError(err)
	}

	// 3. Charge and count in one transaction
	jobId := uuid.New()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	free := false
	if quote.Free {
		free, err = uow.ProfileRepository().ConsumeFreeGeneration(ctx, profile.Id, pricing.FreeGenerationLimit)
		if err != nil {
			return nil, err
		}
	}

	cost := paidCost
	var balance int
	if free {
		cost = 0
		balance, _, err = applyCredit(ctx, uow, ledgerEntry{
			UserId:      profile.Id,
			Amount:      0,
			Type:        entity.CreditTypeFreeGeneration,
			Description: fmt.Sprintf("Free generation for %s", persona.Name),
			Reference:   freeReference(jobId),
			Metadata:    map[string]interface{}{"job_id": jobId.String(), "model_id": persona.Id.String()},
		})
	} else {
		balance, _, err = applyCredit(ctx, uow, ledgerEntry{
			UserId:      profile.Id,
			Amount:      -cost,
			Type:        entity.CreditTypeSpend,
			Description: fmt.Sprintf("Generation for %s", persona.Name),
			Reference:   spendReference(jobId),
			Metadata: map[string]interface{}{
				"job_id":   jobId.String(),
				"model_id": persona.Id.String(),
				"images":   opts.ImageCount(),
				"is_nsfw":  opts.IsNsfw,
			},
		})
	}
	if err != nil {
		return nil, err
	}

	if err := uow.PersonaRepository().IncrementGenerationCount(ctx, persona.Id); err != nil {
		return nil, err
	}

	// 4. Record the job in the same transaction as the charge
	now := time.Now()
	job := &entity.GenerationJob{
		Id:             jobId,
		UserId:         profile.Id,
		ModelId:        persona.Id,
		Prompt:         req.Prompt,
		IsNsfw:         opts.IsNsfw,
		Batch:          opts.Batch,
		HighResolution: opts.HighResolution,
		Priority:       opts.Priority,
		Free:           free,
		Cost:           cost,
		Status:         entity.JobStatusQueued,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := uow.GenerationJobRepository().Create(ctx, job); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}
	s.metrics.CreditsSpent(cost)

	// 5. Queue it
	s.jobs.Save(job)

	payload, _ := json.Marshal(dto.PublishGenerationMessage{JobId: jobId})
	if err := s.publisher.Publish(ctx, payload); err != nil {
		s.logger.Error("GENERATION", "Failed to enqueue generation job", map[string]interface{}{
			"job_id": jobId.String(),
			"error":  err.Error(),
		})
		failJob(ctx, s.uowFactory, s.jobs, s.notifier, s.logger, job, "could not queue the generation")
		return nil, apperror.Internal(err)
	}

	s.logger.Info("GENERATION", "Generation job queued", map[string]interface{}{
		"job_id":   jobId.String(),
		"user_id":  profile.Id.String(),
		"model_id": persona.Id.String(),
		"cost":     cost,
		"free":     free,
	})

	return &dto.GenerateResponse{
		JobId:   jobId,
		Cost:    cost,
		Free:    free,
		Balance: balance,
		Status:  string(entity.JobStatusQueued),
	}, nil
}

func (s *generationService) GetJob(ctx context.Context, userId, jobId uuid.UUID) (*dto.JobResponse, error) {
	job, ok := s.jobs.Get(jobId)
	if !ok {
		stored, err := s.uowFactory.NewUnitOfWork(ctx).GenerationJobRepository().FindOne(ctx,
			specification.ByID{ID: jobId},
			specification.UserOwnedBy{UserID: userId},
		)
		if err != nil {
			return nil, err
		}
		job = stored
	}
	// Other users' jobs look exactly like missing ones.
	if job == nil || job.UserId != userId {
		return nil, apperror.NotFound("job not found")
	}
	return toJobResponse(job), nil
}

// ListJobs reads the stored jobs and overlays the live progress this instance holds.
func (s *generationService) ListJobs(ctx context.Context, userId uuid.UUID) ([]*dto.JobResponse, error) {
	stored, err := s.uowFactory.NewUnitOfWork(ctx).GenerationJobRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: maxListedJobs},
	)
	if err != nil {
		return nil, err
	}
	res := make([]*dto.JobResponse, 0, len(stored))
	for _, job := range stored {
		if live, ok := s.jobs.Get(job.Id); ok {
			job = live
		}
		res = append(res, toJobResponse(job))
	}
	return res, nil
}

func toJobResponse(job *entity.GenerationJob) *dto.JobResponse {
	images := job.ImageUrls
	if images == nil {
		images = []string{}
	}
	return &dto.JobResponse{
		JobId:     job.Id,
		ModelId:   job.ModelId,
		Status:    string(job.Status),
		Progress:  job.Progress,
		Images:    images,
		Error:     job.Error,
		Cost:      job.Cost,
		Free:      job.Free,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
}

// failJob marks the job failed, refunds its charge once and tells the owner.
func failJob(
	ctx context.Context,
	uowFactory unitofwork.RepositoryFactory,
	jobs JobStore,
	notifier JobNotifier,
	log logger.ILogger,
	job *entity.GenerationJob,
	reason string,
) {
	if err := refundJob(ctx, uowFactory, job); err != nil {
		log.Error("GENERATION", "Failed to refund generation", map[string]interface{}{
			"job_id": job.Id.String(),
			"error":  err.Error(),
		})
	}

	markFailed := func(j *entity.GenerationJob) {
		j.Status = entity.JobStatusFailed
		j.Error = reason
	}
	failed, ok := jobs.Update(job.Id, markFailed)
	if !ok {
		failed = job
		markFailed(failed)
		failed.UpdatedAt = time.Now()
		jobs.Save(failed)
	}
	persistJob(ctx, uowFactory, log, failed)
	if notifier != nil {
		notifier.SendJobUpdate(failed.UserId, &dto.JobUpdateMessage{Type: "job_update", Job: toJobResponse(failed)})
	}
}

// persistJob writes the job's state row. Failures are logged; the cache still holds the state.
func persistJob(ctx context.Context, uowFactory unitofwork.RepositoryFactory, log logger.ILogger, job *entity.GenerationJob) {
	if err := uowFactory.NewUnitOfWork(ctx).GenerationJobRepository().SaveState(ctx, job); err != nil {
		log.Error("GENERATION", "Failed to store job state", map[string]interface{}{
			"job_id": job.Id.String(),
			"status": string(job.Status),
			"error":  err.Error(),
		})
	}
}

// refundJob is the compensating transaction for a charged job. The refund reference makes it
// a no-op the second time.
func refundJob(ctx context.Context, uowFactory unitofwork.RepositoryFactory, job *entity.GenerationJob) error {
	uow := uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	description := "Refund for failed generation"
	if job.Free {
		description = "Free generation returned after failure"
	}
	_, applied, err := applyCredit(ctx, uow, ledgerEntry{
		UserId:      job.UserId,
		Amount:      job.Cost,
		Type:        entity.CreditTypeRefund,
		Description: description,
		Reference:   refundReference(job.Id),
		Metadata:    map[string]interface{}{"job_id": job.Id.String()},
	})
	if err != nil {
		if errors.Is(err, errDuplicateReference) {
			return nil
		}
		return err
	}
	if applied && job.Free {
		if err := uow.ProfileRepository().ReleaseFreeGeneration(ctx, job.UserId); err != nil {
			return err
		}
	}
	return uow.Commit()
}
