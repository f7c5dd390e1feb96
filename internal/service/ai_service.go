package service

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"fanova-be/internal/dto"
	"fanova-be/internal/entity"
	"fanova-be/internal/pkg/apperror"
	"fanova-be/internal/pkg/logger"
	"fanova-be/internal/repository/specification"
	"fanova-be/internal/repository/unitofwork"
	"fanova-be/pkg/gemini"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	maxAnalyzeImages = 4
	maxImageBytes    = 5 << 20
)

type ImageAnalyzer interface {
	AnalyzeImage(ctx context.Context, image []byte, mimeType, characterName string) (*gemini.ImageAnalysis, error)
}

type IAiService interface {
	AnalyzeImages(ctx context.Context, req *dto.AnalyzeImagesRequest) (*dto.AnalyzeImagesResponse, error)
	GeneratePrompt(ctx context.Context, userId uuid.UUID, req *dto.GeneratePromptRequest) (*dto.PromptResponse, error)
	EnhancePrompt(ctx context.Context, userId uuid.UUID, req *dto.EnhancePromptRequest) (*dto.PromptResponse, error)
}

type aiService struct {
	uowFactory unitofwork.RepositoryFactory
	analyzer   ImageAnalyzer
	composer   PromptComposer
	logger     logger.ILogger
}

// NewAiService accepts a nil analyzer when no Gemini key is configured; analysis then answers 503.
func NewAiService(uowFactory unitofwork.RepositoryFactory, analyzer ImageAnalyzer, composer PromptComposer, log logger.ILogger) IAiService {
	return &aiService{
		uowFactory: uowFactory,
		analyzer:   analyzer,
		composer:   composer,
		logger:     log,
	}
}

type decodedImage struct {
	data     []byte
	mimeType string
}

// decodeImage accepts raw base64 or a data URL.
func decodeImage(raw string) (*decodedImage, error) {
	mimeType := ""
	if strings.HasPrefix(raw, "data:") {
		comma := strings.Index(raw, ",")
		if comma < 0 {
			return nil, apperror.BadRequest("malformed data URL")
		}
		header := raw[len("data:"):comma]
		mimeType = strings.TrimSuffix(header, ";base64")
		raw = raw[comma+1:]
	}
	if base64.StdEncoding.DecodedLen(len(raw)) > maxImageBytes+3 {
		return nil, apperror.BadRequest("each image must be at most 5 MB")
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, apperror.BadRequest("images must be base64 encoded")
	}
	if len(data) > maxImageBytes {
		return nil, apperror.BadRequest("each image must be at most 5 MB")
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, apperror.BadRequest("only image uploads are supported")
	}
	return &decodedImage{data: data, mimeType: mimeType}, nil
}

func aiError(err error) error {
	if errors.Is(err, gemini.ErrRateLimited) {
		return apperror.Wrap(apperror.ErrRateLimited, err)
	}
	if _, ok := apperror.As(err); ok {
		return err
	}
	return apperror.Upstream("the AI provider request failed", err)
}

func (s *aiService) AnalyzeImages(ctx context.Context, req *dto.AnalyzeImagesRequest) (*dto.AnalyzeImagesResponse, error) {
	if s.analyzer == nil {
		return nil, apperror.New(http.StatusServiceUnavailable, apperror.CodeUpstreamError, "image analysis is not configured", nil)
	}
	if len(req.Images) == 0 || len(req.Images) > maxAnalyzeImages {
		return nil, apperror.BadRequest("send between 1 and 4 images")
	}

	images := make([]*decodedImage, 0, len(req.Images))
	for _, raw := range req.Images {
		img, err := decodeImage(raw)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}

	results := make([]*gemini.ImageAnalysis, len(images))
	g, gctx := errgroup.WithContext(ctx)
	for i, img := range images {
		g.Go(func() error {
			analysis, err := s.analyzer.AnalyzeImage(gctx, img.data, img.mimeType, req.ModelName)
			if err != nil {
				return err
			}
			results[i] = analysis
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("AI", "Image analysis failed", map[string]interface{}{
			"images": len(images),
			"error":  err.Error(),
		})
		return nil, aiError(err)
	}

	return mergeAnalyses(results), nil
}

// mergeAnalyses keeps the first value seen for every key, in image order.
func mergeAnalyses(results []*gemini.ImageAnalysis) *dto.AnalyzeImagesResponse {
	res := &dto.AnalyzeImagesResponse{
		Attributes:     map[string]interface{}{},
		FacialFeatures: map[string]interface{}{},
	}
	var descriptions []string
	for _, r := range results {
		if r == nil {
			continue
		}
		if d := strings.TrimSpace(r.Description); d != "" {
			descriptions = append(descriptions, d)
		}
		if res.Prompt == "" {
			res.Prompt = strings.TrimSpace(r.Prompt)
		}
		fillMissing(res.Attributes, r.Attributes)
		fillMissing(res.FacialFeatures, r.FacialFeatures)
	}
	res.Description = strings.Join(descriptions, " ")
	return res
}

func fillMissing(dst, src map[string]interface{}) {
	for k, v := range src {
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		if v == nil {
			continue
		}
		if _, exists := dst[k]; !exists {
			dst[k] = v
		}
	}
}

func (s *aiService) ownedCharacter(ctx context.Context, userId, modelId uuid.UUID) (*entity.Persona, error) {
	persona, err := s.uowFactory.NewUnitOfWork(ctx).PersonaRepository().FindOne(ctx,
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

func (s *aiService) GeneratePrompt(ctx context.Context, userId uuid.UUID, req *dto.GeneratePromptRequest) (*dto.PromptResponse, error) {
	persona, err := s.ownedCharacter(ctx, userId, req.ModelId)
	if err != nil {
		return nil, err
	}
	prompt, err := s.composer.ComposePrompt(ctx, characterOf(persona), "")
	if err != nil {
		return nil, aiError(err)
	}
	return &dto.PromptResponse{Prompt: prompt}, nil
}

// EnhancePrompt returns the prompt the generation worker would send for this message.
func (s *aiService) EnhancePrompt(ctx context.Context, userId uuid.UUID, req *dto.EnhancePromptRequest) (*dto.PromptResponse, error) {
	persona, err := s.ownedCharacter(ctx, userId, req.ModelId)
	if err != nil {
		return nil, err
	}
	prompt, err := s.composer.ComposePrompt(ctx, characterOf(persona), req.Message)
	if err != nil {
		return nil, aiError(err)
	}
	return &dto.PromptResponse{Prompt: prompt}, nil
}
