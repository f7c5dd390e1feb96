package service

import (
	"context"
	"fmt"
	"strings"

	"fanova-be/internal/dto"
	"fanova-be/internal/entity"
	"fanova-be/internal/pkg/apperror"
	"fanova-be/internal/pkg/logger"
	"fanova-be/internal/repository/specification"
	"fanova-be/internal/repository/unitofwork"
	"fanova-be/pkg/gemini"

	"github.com/google/uuid"
)

const minPersonaAge = 18

type IPersonaService interface {
	// Wizard
	CreateModel(ctx context.Context, userId uuid.UUID, req *dto.CreateModelRequest) (*dto.ModelResponse, error)
	UpdateModel(ctx context.Context, userId, modelId uuid.UUID, req *dto.UpdateModelRequest) (*dto.ModelResponse, error)
	UpdateAttributes(ctx context.Context, userId, modelId uuid.UUID, req *dto.UpdateAttributesRequest) (*dto.ModelResponse, error)
	UpdateGenerationMethod(ctx context.Context, userId, modelId uuid.UUID, req *dto.UpdateGenerationMethodRequest) (*dto.ModelResponse, error)
	UpdateFacialFeatures(ctx context.Context, userId, modelId uuid.UUID, req *dto.UpdateFacialFeaturesRequest) (*dto.ModelResponse, error)

	ListModels(ctx context.Context, userId uuid.UUID) ([]*dto.ModelResponse, error)
	GetModel(ctx context.Context, userId, modelId uuid.UUID) (*dto.ModelResponse, error)
	DeleteModel(ctx context.Context, userId, modelId uuid.UUID) error

	// Kept images
	LockReference(ctx context.Context, userId, modelId uuid.UUID, req *dto.LockReferenceRequest) (*dto.GeneratedImageResponse, error)
	KeepImage(ctx context.Context, userId, modelId uuid.UUID, req *dto.KeepImageRequest) (*dto.KeepImageResponse, error)
	ListImages(ctx context.Context, userId, modelId uuid.UUID) ([]*dto.GeneratedImageResponse, error)
}

type personaService struct {
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
}

func NewPersonaService(uowFactory unitofwork.RepositoryFactory, log logger.ILogger) IPersonaService {
	return &personaService{
		uowFactory: uowFactory,
		logger:     log,
	}
}

func validateAge(age *int) error {
	if age != nil && *age < minPersonaAge {
		return apperror.BadRequest("models must be at least 18 years old")
	}
	return nil
}

func (s *personaService) findOwned(ctx context.Context, uow unitofwork.UnitOfWork, userId, modelId uuid.UUID) (*entity.Persona, error) {
	persona, err := uow.PersonaRepository().FindOne(ctx,
		specification.ByID{ID: modelId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if persona == nil {
		return nil, apperror.NotFound("model not found")
	}
	return persona, nil
}

func (s *personaService) CreateModel(ctx context.Context, userId uuid.UUID, req *dto.CreateModelRequest) (*dto.ModelResponse, error) {
	if err := validateAge(req.Age); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.BadRequest("name is required")
	}

	persona := &entity.Persona{
		Id:          uuid.New(),
		UserId:      userId,
		Name:        name,
		Age:         req.Age,
		Nationality: req.Nationality,
		Occupation:  req.Occupation,
		Description: req.Description,
	}
	persona.BasePrompt = basePrompt(persona)

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.PersonaRepository().Create(ctx, persona); err != nil {
		return nil, err
	}

	s.logger.Info("PERSONA", "Model created", map[string]interface{}{
		"model_id": persona.Id.String(),
		"user_id":  userId.String(),
	})
	return toModelResponse(persona, nil), nil
}

// mutate loads an owned model, applies fn, recomputes the base prompt and saves.
func (s *personaService) mutate(ctx context.Context, userId, modelId uuid.UUID, fn func(p *entity.Persona) error) (*dto.ModelResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	persona, err := s.findOwned(ctx, uow, userId, modelId)
	if err != nil {
		return nil, err
	}
	if err := fn(persona); err != nil {
		return nil, err
	}
	persona.BasePrompt = basePrompt(persona)
	if err := uow.PersonaRepository().Update(ctx, persona); err != nil {
		return nil, err
	}
	return s.withReference(ctx, uow, persona)
}

func (s *personaService) UpdateModel(ctx context.Context, userId, modelId uuid.UUID, req *dto.UpdateModelRequest) (*dto.ModelResponse, error) {
	return s.mutate(ctx, userId, modelId, func(p *entity.Persona) error {
		if err := validateAge(req.Age); err != nil {
			return err
		}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return apperror.BadRequest("name cannot be empty")
			}
			p.Name = name
		}
		if req.Age != nil {
			p.Age = req.Age
		}
		if req.Nationality != nil {
			p.Nationality = req.Nationality
		}
		if req.Occupation != nil {
			p.Occupation = req.Occupation
		}
		if req.Description != nil {
			p.Description = req.Description
		}
		return nil
	})
}

func (s *personaService) UpdateAttributes(ctx context.Context, userId, modelId uuid.UUID, req *dto.UpdateAttributesRequest) (*dto.ModelResponse, error) {
	return s.mutate(ctx, userId, modelId, func(p *entity.Persona) error {
		p.Attributes = req.Attributes
		return nil
	})
}

func (s *personaService) UpdateGenerationMethod(ctx context.Context, userId, modelId uuid.UUID, req *dto.UpdateGenerationMethodRequest) (*dto.ModelResponse, error) {
	method := entity.GenerationMethod(req.Method)
	if method != entity.GenerationMethodDescription && method != entity.GenerationMethodReference {
		return nil, apperror.BadRequest("generation method must be description or reference")
	}
	if method == entity.GenerationMethodReference && len(req.ReferenceImages) == 0 {
		return nil, apperror.BadRequest("reference generation needs at least one reference image")
	}

	return s.mutate(ctx, userId, modelId, func(p *entity.Persona) error {
		p.GenerationMethod = &method
		if method == entity.GenerationMethodReference {
			p.ReferenceImages = req.ReferenceImages
		} else {
			p.ReferenceImages = nil
		}
		return nil
	})
}

func (s *personaService) UpdateFacialFeatures(ctx context.Context, userId, modelId uuid.UUID, req *dto.UpdateFacialFeaturesRequest) (*dto.ModelResponse, error) {
	return s.mutate(ctx, userId, modelId, func(p *entity.Persona) error {
		p.FacialFeatures = req.FacialFeatures
		return nil
	})
}

func (s *personaService) ListModels(ctx context.Context, userId uuid.UUID) ([]*dto.ModelResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	personas, err := uow.PersonaRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.ModelResponse, 0, len(personas))
	for _, p := range personas {
		res = append(res, toModelResponse(p, nil))
	}
	return res, nil
}

func (s *personaService) GetModel(ctx context.Context, userId, modelId uuid.UUID) (*dto.ModelResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	persona, err := s.findOwned(ctx, uow, userId, modelId)
	if err != nil {
		return nil, err
	}
	return s.withReference(ctx, uow, persona)
}

func (s *personaService) withReference(ctx context.Context, uow unitofwork.UnitOfWork, persona *entity.Persona) (*dto.ModelResponse, error) {
	if persona.LockedReferenceImageId == nil {
		return toModelResponse(persona, nil), nil
	}
	image, err := uow.GeneratedImageRepository().FindOne(ctx, specification.ByID{ID: *persona.LockedReferenceImageId})
	if err != nil {
		return nil, err
	}
	if image == nil {
		return toModelResponse(persona, nil), nil
	}
	return toModelResponse(persona, &image.ImageUrl), nil
}

func (s *personaService) DeleteModel(ctx context.Context, userId, modelId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	persona, err := s.findOwned(ctx, uow, userId, modelId)
	if err != nil {
		return err
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.GeneratedImageRepository().DeleteByModel(ctx, persona.Id); err != nil {
		return err
	}
	if err := uow.PersonaRepository().Delete(ctx, persona.Id); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	s.logger.Info("PERSONA", "Model deleted", map[string]interface{}{"model_id": persona.Id.String()})
	return nil
}

// LockReference pins exactly one image as the model's reference. Reusing an already kept URL
// never inserts a second row.
func (s *personaService) LockReference(ctx context.Context, userId, modelId uuid.UUID, req *dto.LockReferenceRequest) (*dto.GeneratedImageResponse, error) {
	if len(req.ImageUrls) != 1 {
		return nil, apperror.BadRequest("select exactly one image to lock as the reference")
	}
	url := strings.TrimSpace(req.ImageUrls[0])
	if url == "" {
		return nil, apperror.BadRequest("image url is required")
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	persona, err := s.findOwned(ctx, uow, userId, modelId)
	if err != nil {
		return nil, err
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	images := uow.GeneratedImageRepository()
	image, err := images.FindOne(ctx, specification.ImagesOfModel{ModelID: persona.Id}, specification.ByImageURL{URL: url})
	if err != nil {
		return nil, err
	}
	if image == nil {
		image = &entity.GeneratedImage{
			Id:       uuid.New(),
			ModelId:  persona.Id,
			UserId:   userId,
			ImageUrl: url,
			Prompt:   req.Prompt,
		}
		if err := images.Create(ctx, image); err != nil {
			return nil, err
		}
	}

	if err := images.Select(ctx, persona.Id, image.Id); err != nil {
		return nil, err
	}
	if err := uow.PersonaRepository().SetLockedReference(ctx, persona.Id, image.Id); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	image.IsSelected = true
	s.logger.Info("PERSONA", "Reference image locked", map[string]interface{}{
		"model_id": persona.Id.String(),
		"image_id": image.Id.String(),
	})
	return toImageResponse(image), nil
}

func (s *personaService) KeepImage(ctx context.Context, userId, modelId uuid.UUID, req *dto.KeepImageRequest) (*dto.KeepImageResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	persona, err := s.findOwned(ctx, uow, userId, modelId)
	if err != nil {
		return nil, err
	}

	images := uow.GeneratedImageRepository()
	url := strings.TrimSpace(req.ImageUrl)
	existing, err := images.FindOne(ctx, specification.ImagesOfModel{ModelID: persona.Id}, specification.ByImageURL{URL: url})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &dto.KeepImageResponse{Image: toImageResponse(existing), Created: false}, nil
	}

	image := &entity.GeneratedImage{
		Id:       uuid.New(),
		ModelId:  persona.Id,
		UserId:   userId,
		ImageUrl: url,
		Prompt:   req.Prompt,
	}
	if err := images.Create(ctx, image); err != nil {
		return nil, err
	}
	return &dto.KeepImageResponse{Image: toImageResponse(image), Created: true}, nil
}

func (s *personaService) ListImages(ctx context.Context, userId, modelId uuid.UUID) ([]*dto.GeneratedImageResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	persona, err := s.findOwned(ctx, uow, userId, modelId)
	if err != nil {
		return nil, err
	}

	images, err := uow.GeneratedImageRepository().FindAll(ctx,
		specification.ImagesOfModel{ModelID: persona.Id},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}
	res := make([]*dto.GeneratedImageResponse, 0, len(images))
	for _, image := range images {
		res = append(res, toImageResponse(image))
	}
	return res, nil
}

// basePrompt is the persona's standing description, prepended to every generation.
func basePrompt(p *entity.Persona) *string {
	var sb strings.Builder
	sb.WriteString("Photorealistic portrait of ")
	sb.WriteString(p.Name)

	var who []string
	if p.Age != nil {
		who = append(who, fmt.Sprintf("%d-year-old", *p.Age))
	}
	if p.Nationality != nil && *p.Nationality != "" {
		who = append(who, *p.Nationality)
	}
	if p.Occupation != nil && *p.Occupation != "" {
		who = append(who, *p.Occupation)
	}
	if len(who) > 0 {
		sb.WriteString(", a ")
		sb.WriteString(strings.Join(who, " "))
	}
	if features := gemini.DescribeFeatures(p.Attributes, p.FacialFeatures); features != "" {
		sb.WriteString(", with ")
		sb.WriteString(features)
	}
	sb.WriteString(".")
	if p.Description != nil && strings.TrimSpace(*p.Description) != "" {
		sb.WriteString(" ")
		sb.WriteString(strings.TrimSpace(*p.Description))
	}

	prompt := sb.String()
	return &prompt
}

func toModelResponse(p *entity.Persona, lockedURL *string) *dto.ModelResponse {
	var method *string
	if p.GenerationMethod != nil {
		m := string(*p.GenerationMethod)
		method = &m
	}
	refs := p.ReferenceImages
	if refs == nil {
		refs = []string{}
	}
	return &dto.ModelResponse{
		Id:                     p.Id,
		Name:                   p.Name,
		Age:                    p.Age,
		Nationality:            p.Nationality,
		Occupation:             p.Occupation,
		Description:            p.Description,
		Attributes:             p.Attributes,
		FacialFeatures:         p.FacialFeatures,
		GenerationMethod:       method,
		ReferenceImages:        refs,
		BasePrompt:             p.BasePrompt,
		LockedReferenceImageId: p.LockedReferenceImageId,
		LockedReferenceURL:     lockedURL,
		GenerationCount:        p.GenerationCount,
		CreatedAt:              p.CreatedAt,
		UpdatedAt:              p.UpdatedAt,
	}
}

func toImageResponse(i *entity.GeneratedImage) *dto.GeneratedImageResponse {
	return &dto.GeneratedImageResponse{
		Id:         i.Id,
		ModelId:    i.ModelId,
		ImageUrl:   i.ImageUrl,
		Prompt:     i.Prompt,
		IsSelected: i.IsSelected,
		CreatedAt:  i.CreatedAt,
	}
}
