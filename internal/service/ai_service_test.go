package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"testing"

	"fanova-be/internal/dto"
	"fanova-be/internal/pkg/apperror"
	"fanova-be/pkg/gemini"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n0000")

type fakeAnalyzer struct {
	mu       sync.Mutex
	results  map[string]*gemini.ImageAnalysis
	mimes    []string
	err      error
	received int
}

func (f *fakeAnalyzer) AnalyzeImage(_ context.Context, image []byte, mimeType, _ string) (*gemini.ImageAnalysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received++
	f.mimes = append(f.mimes, mimeType)
	if f.err != nil {
		return nil, f.err
	}
	return f.results[string(image)], nil
}

func encoded(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func TestAi_AnalyzeImagesMerges(t *testing.T) {
	first := append([]byte{}, pngHeader...)
	second := append(append([]byte{}, pngHeader...), '1')
	analyzer := &fakeAnalyzer{results: map[string]*gemini.ImageAnalysis{
		string(first): {
			Description:    "A woman with auburn hair.",
			Attributes:     map[string]interface{}{"hairColor": "auburn", "style": ""},
			FacialFeatures: map[string]interface{}{"eyeColor": "green"},
			Prompt:         "portrait of an auburn-haired woman",
		},
		string(second): {
			Description:    "Freckles across the nose.",
			Attributes:     map[string]interface{}{"hairColor": "red", "style": "casual"},
			FacialFeatures: map[string]interface{}{"distinctive": "freckles"},
		},
	}}
	svc := NewAiService(newFactory(t), analyzer, gemini.SheetComposer{}, nopLogger)

	res, err := svc.AnalyzeImages(context.Background(), &dto.AnalyzeImagesRequest{
		Images: []string{"data:image/png;base64," + encoded(first), encoded(second)},
	})
	require.NoError(t, err)
	assert.Equal(t, "A woman with auburn hair. Freckles across the nose.", res.Description)
	assert.Equal(t, "auburn", res.Attributes["hairColor"])
	assert.Equal(t, "casual", res.Attributes["style"])
	assert.Equal(t, "freckles", res.FacialFeatures["distinctive"])
	assert.Equal(t, "portrait of an auburn-haired woman", res.Prompt)
	assert.ElementsMatch(t, []string{"image/png", "image/png"}, analyzer.mimes)
}

func TestAi_AnalyzeImagesValidation(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	svc := NewAiService(newFactory(t), analyzer, gemini.SheetComposer{}, nopLogger)
	ctx := context.Background()

	tests := []struct {
		name   string
		images []string
	}{
		{"none", nil},
		{"too many", []string{encoded(pngHeader), encoded(pngHeader), encoded(pngHeader), encoded(pngHeader), encoded(pngHeader)}},
		{"not base64", []string{"%%%"}},
		{"not an image", []string{encoded([]byte("hello, plain text"))}},
		{"too large", []string{encoded(append(append([]byte{}, pngHeader...), make([]byte, maxImageBytes)...))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AnalyzeImages(ctx, &dto.AnalyzeImagesRequest{Images: tt.images})
			assert.Equal(t, apperror.CodeValidation, errorCode(t, err))
		})
	}
	assert.Zero(t, analyzer.received)
}

func TestAi_RateLimitIsMapped(t *testing.T) {
	analyzer := &fakeAnalyzer{err: fmt.Errorf("%w: quota", gemini.ErrRateLimited)}
	svc := NewAiService(newFactory(t), analyzer, gemini.SheetComposer{}, nopLogger)

	_, err := svc.AnalyzeImages(context.Background(), &dto.AnalyzeImagesRequest{Images: []string{encoded(pngHeader)}})
	assert.ErrorIs(t, err, apperror.ErrRateLimited)
	appErr, _ := apperror.As(err)
	assert.Equal(t, 429, appErr.Status)
}

func TestAi_AnalyzeWithoutKey(t *testing.T) {
	svc := NewAiService(newFactory(t), nil, gemini.SheetComposer{}, nopLogger)
	_, err := svc.AnalyzeImages(context.Background(), &dto.AnalyzeImagesRequest{Images: []string{encoded(pngHeader)}})
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, 503, appErr.Status)
}

func TestAi_PromptsUseOwnedPersona(t *testing.T) {
	f := newFactory(t)
	svc := NewAiService(f, nil, gemini.SheetComposer{}, nopLogger)
	owner := seedProfile(t, f, 0, "")
	persona := seedPersona(t, f, owner.Id)
	ctx := context.Background()

	res, err := svc.GeneratePrompt(ctx, owner.Id, &dto.GeneratePromptRequest{ModelId: persona.Id})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Prompt, "Name: Luna Vale"))

	res, err = svc.EnhancePrompt(ctx, owner.Id, &dto.EnhancePromptRequest{ModelId: persona.Id, Message: "at a cafe"})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(res.Prompt, "at a cafe"))

	_, err = svc.GeneratePrompt(ctx, uuid.New(), &dto.GeneratePromptRequest{ModelId: persona.Id})
	assert.Equal(t, apperror.CodeNotFound, errorCode(t, err))
}
