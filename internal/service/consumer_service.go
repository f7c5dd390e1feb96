package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fanova-be/internal/dto"
	"fanova-be/internal/entity"
	"fanova-be/internal/pkg/logger"
	"fanova-be/internal/pkg/metrics"
	"fanova-be/internal/repository/specification"
	"fanova-be/internal/repository/unitofwork"
	"fanova-be/pkg/events"
	"fanova-be/pkg/gemini"
	"fanova-be/pkg/pricing"
	"fanova-be/pkg/storage"
	"fanova-be/pkg/wavespeed"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

const (
	progressRunning  = 10
	progressPrompted = 30
	progressRendered = 80
	progressStored   = 90
	progressDone     = 100

	// Unfinished jobs untouched for this long belong to a worker that is gone.
	staleJobAfter = 15 * time.Minute
	reapEvery     = 5 * time.Minute

	interruptedReason = "generation was interrupted, your credits were refunded"

	highResolutionSize = "2048*2048"
	defaultSize        = "1024*1024"
)

type PromptComposer interface {
	ComposePrompt(ctx context.Context, character gemini.Character, message string) (string, error)
}

type ImageGenerator interface {
	Generate(ctx context.Context, req wavespeed.Request, onProgress func(percent int)) ([]string, error)
	Download(ctx context.Context, url string) ([]byte, string, error)
}

type ImageWatermarker interface {
	Apply(data []byte) ([]byte, string, error)
}

// IConsumerService drains the generation topic. Process runs one job and is what the
// subscription loop calls for every message. RecoverInterrupted fails and refunds stale unfinished jobs.
type IConsumerService interface {
	Consume(ctx context.Context) error
	Process(ctx context.Context, jobId uuid.UUID) error
	RecoverInterrupted(ctx context.Context) (int, error)
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	uowFactory unitofwork.RepositoryFactory
	jobs       JobStore
	composer   PromptComposer
	generator  ImageGenerator
	watermark  ImageWatermarker
	store      storage.Store
	notifier   JobNotifier
	events     *events.Notifier
	metrics    *metrics.Metrics
	logger     logger.ILogger
}

type ConsumerDeps struct {
	Subscriber message.Subscriber
	TopicName  string
	UowFactory unitofwork.RepositoryFactory
	Jobs       JobStore
	Composer   PromptComposer
	Generator  ImageGenerator
	Watermark  ImageWatermarker
	Store      storage.Store
	Notifier   JobNotifier
	Events     *events.Notifier
	Metrics    *metrics.Metrics
	Logger     logger.ILogger
}

func NewConsumerService(deps ConsumerDeps) IConsumerService {
	return &consumerService{
		subscriber: deps.Subscriber,
		topicName:  deps.TopicName,
		uowFactory: deps.UowFactory,
		jobs:       deps.Jobs,
		composer:   deps.Composer,
		generator:  deps.Generator,
		watermark:  deps.Watermark,
		store:      deps.Store,
		notifier:   deps.Notifier,
		events:     deps.Events,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()
	go cs.reap(ctx)

	cs.logger.Info("WORKER", "Generation worker listening", map[string]interface{}{"topic": cs.topicName})
	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishGenerationMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("WORKER", "Failed to unmarshal job message", map[string]interface{}{"error": err.Error()})
		msg.Ack() // invalid payloads would loop forever
		return
	}

	// Failures are settled inside Process (refund plus failed status), so every message is acked.
	if err := cs.Process(ctx, payload.JobId); err != nil {
		cs.logger.Warn("WORKER", "Generation job failed", map[string]interface{}{
			"job_id": payload.JobId.String(),
			"error":  err.Error(),
		})
	}
	msg.Ack()
}

func (cs *consumerService) reap(ctx context.Context) {
	ticker := time.NewTicker(reapEvery)
	defer ticker.Stop()
	for {
		if n, err := cs.RecoverInterrupted(ctx); err != nil {
			cs.logger.Error("WORKER", "Failed to recover interrupted jobs", map[string]interface{}{"error": err.Error()})
		} else if n > 0 {
			cs.logger.Warn("WORKER", "Refunded interrupted jobs", map[string]interface{}{"count": n})
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (cs *consumerService) RecoverInterrupted(ctx context.Context) (int, error) {
	stale, err := cs.uowFactory.NewUnitOfWork(ctx).GenerationJobRepository().FindAll(ctx,
		specification.UnfinishedJobs{},
		specification.UpdatedBefore{Time: time.Now().Add(-staleJobAfter)},
	)
	if err != nil {
		return 0, err
	}
	for _, job := range stale {
		failJob(ctx, cs.uowFactory, cs.jobs, cs.notifier, cs.logger, job, interruptedReason)
		cs.metrics.Generation("interrupted")
	}
	return len(stale), nil
}

func (cs *consumerService) Process(ctx context.Context, jobId uuid.UUID) error {
	job, ok := cs.jobs.Get(jobId)
	if !ok {
		var err error
		if job, err = cs.restore(ctx, jobId); err != nil {
			return err
		}
	}
	if job.Finished() {
		return nil
	}

	urls, err := cs.run(ctx, job)
	if err != nil {
		cs.logger.Error("WORKER", "Generation failed, refunding", map[string]interface{}{
			"job_id":  jobId.String(),
			"user_id": job.UserId.String(),
			"error":   err.Error(),
		})
		failJob(ctx, cs.uowFactory, cs.jobs, cs.notifier, cs.logger, job, userFacingError(err))
		cs.metrics.Generation("failed")
		cs.events.GenerationFinished(ctx, jobId, job.UserId, false, 0)
		return err
	}

	cs.advance(ctx, jobId, func(j *entity.GenerationJob) {
		j.Status = entity.JobStatusCompleted
		j.Progress = progressDone
		j.ImageUrls = urls
	})
	cs.metrics.Generation("completed")
	cs.events.GenerationFinished(ctx, jobId, job.UserId, true, len(urls))
	cs.logger.Info("WORKER", "Generation completed", map[string]interface{}{
		"job_id": jobId.String(),
		"images": len(urls),
	})
	return nil
}

// restore loads a job this process holds no live state for. A job without a stored row is
// rebuilt from its charge and refunded, since its inputs are gone.
func (cs *consumerService) restore(ctx context.Context, jobId uuid.UUID) (*entity.GenerationJob, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	job, err := uow.GenerationJobRepository().FindOne(ctx, specification.ByID{ID: jobId})
	if err != nil {
		return nil, err
	}
	if job != nil {
		if !job.Finished() {
			cs.jobs.Save(job)
		}
		return job, nil
	}

	charged, err := jobFromLedger(ctx, uow, jobId)
	if err != nil {
		return nil, err
	}
	if charged == nil {
		return nil, fmt.Errorf("job %s not found", jobId)
	}
	failJob(ctx, cs.uowFactory, cs.jobs, cs.notifier, cs.logger, charged, interruptedReason)
	return nil, fmt.Errorf("job %s has no stored state, charge refunded", jobId)
}

// jobFromLedger rebuilds the billing side of a job from its spend or free row.
func jobFromLedger(ctx context.Context, uow unitofwork.UnitOfWork, jobId uuid.UUID) (*entity.GenerationJob, error) {
	ledger := uow.CreditTransactionRepository()
	for _, ref := range []string{spendReference(jobId), freeReference(jobId)} {
		row, err := ledger.FindOne(ctx, specification.ByReference{Reference: ref})
		if err != nil {
			return nil, err
		}
		if row == nil {
			continue
		}
		job := &entity.GenerationJob{
			Id:        jobId,
			UserId:    row.UserId,
			Cost:      -row.Amount,
			Free:      row.Type == entity.CreditTypeFreeGeneration,
			Status:    entity.JobStatusQueued,
			CreatedAt: row.CreatedAt,
		}
		if raw, ok := row.Metadata["model_id"].(string); ok {
			job.ModelId, _ = uuid.Parse(raw)
		}
		return job, nil
	}
	return nil, nil
}

func (cs *consumerService) run(ctx context.Context, job *entity.GenerationJob) ([]string, error) {
	cs.advance(ctx, job.Id, func(j *entity.GenerationJob) {
		j.Status = entity.JobStatusRunning
		j.Progress = progressRunning
	})

	// 1. Load the model and its locked reference
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	persona, err := uow.PersonaRepository().FindOne(ctx, specification.ByID{ID: job.ModelId})
	if err != nil {
		return nil, err
	}
	if persona == nil {
		return nil, errors.New("model no longer exists")
	}

	var reference string
	if persona.LockedReferenceImageId != nil {
		image, err := uow.GeneratedImageRepository().FindOne(ctx, specification.ByID{ID: *persona.LockedReferenceImageId})
		if err != nil {
			return nil, err
		}
		if image != nil {
			reference = image.ImageUrl
		}
	}

	// 2. Compose the prompt. The character sheet is a usable prompt when Gemini is unavailable.
	character := characterOf(persona)
	prompt, err := cs.composer.ComposePrompt(ctx, character, job.Prompt)
	if err != nil || prompt == "" {
		cs.logger.Warn("WORKER", "Prompt composition failed, using character sheet", map[string]interface{}{
			"job_id": job.Id.String(),
			"error":  fmt.Sprint(err),
		})
		prompt = gemini.CharacterSheet(character)
		if job.Prompt != "" {
			prompt += "\n" + job.Prompt
		}
	}
	cs.advance(ctx, job.Id, func(j *entity.GenerationJob) { j.Progress = progressPrompted })

	// 3. Render
	size := defaultSize
	if job.HighResolution {
		size = highResolutionSize
	}
	count := 1
	if job.Batch {
		count = pricing.BatchSize
	}
	outputs, err := cs.generator.Generate(ctx, wavespeed.Request{
		Prompt:         prompt,
		ReferenceImage: reference,
		Size:           size,
		Count:          count,
	}, func(percent int) {
		span := progressRendered - progressPrompted
		cs.update(job.Id, func(j *entity.GenerationJob) { j.Progress = progressPrompted + span*percent/100 })
	})
	if err != nil {
		return nil, err
	}
	if len(outputs) == 0 {
		return nil, wavespeed.ErrPredictionFailed
	}
	cs.advance(ctx, job.Id, func(j *entity.GenerationJob) { j.Progress = progressRendered })

	// 4. Download, watermark free output, store
	urls := make([]string, 0, len(outputs))
	for i, output := range outputs {
		data, contentType, err := cs.generator.Download(ctx, output)
		if err != nil {
			return nil, err
		}
		if job.Free && cs.watermark != nil {
			data, contentType, err = cs.watermark.Apply(data)
			if err != nil {
				return nil, err
			}
		}
		key := storage.GenerationKey(job.UserId, persona.Name, job.Id, i, contentType)
		url, err := cs.store.Put(ctx, key, data, contentType)
		if err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	cs.advance(ctx, job.Id, func(j *entity.GenerationJob) { j.Progress = progressStored })

	return urls, nil
}

// update changes the cached job and pushes it to the owner.
func (cs *consumerService) update(jobId uuid.UUID, fn func(job *entity.GenerationJob)) (*entity.GenerationJob, bool) {
	job, ok := cs.jobs.Update(jobId, fn)
	if !ok {
		return nil, false
	}
	if cs.notifier != nil {
		cs.notifier.SendJobUpdate(job.UserId, &dto.JobUpdateMessage{Type: "job_update", Job: toJobResponse(job)})
	}
	return job, true
}

// advance is update plus a write of the stored row. Used for stage changes, not progress ticks.
func (cs *consumerService) advance(ctx context.Context, jobId uuid.UUID, fn func(job *entity.GenerationJob)) {
	if job, ok := cs.update(jobId, fn); ok {
		persistJob(ctx, cs.uowFactory, cs.logger, job)
	}
}

func characterOf(p *entity.Persona) gemini.Character {
	return gemini.Character{
		Name:           p.Name,
		Age:            p.Age,
		Nationality:    deref(p.Nationality),
		Occupation:     deref(p.Occupation),
		Description:    deref(p.Description),
		BasePrompt:     deref(p.BasePrompt),
		Attributes:     p.Attributes,
		FacialFeatures: p.FacialFeatures,
	}
}

func userFacingError(err error) string {
	switch {
	case errors.Is(err, wavespeed.ErrTimeout):
		return "generation timed out, your credits were refunded"
	case errors.Is(err, context.Canceled):
		return "generation was cancelled, your credits were refunded"
	default:
		return "generation failed, your credits were refunded"
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
