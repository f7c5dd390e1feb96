package service

import (
	"context"
	"testing"

	"fanova-be/internal/dto"
	"fanova-be/internal/pkg/apperror"
	"fanova-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func errorCode(t *testing.T, err error) string {
	t.Helper()
	appErr, ok := apperror.As(err)
	require.True(t, ok, "expected an AppError, got %v", err)
	return appErr.Code
}

func TestPersona_WizardBuildsBasePrompt(t *testing.T) {
	f := newFactory(t)
	svc := NewPersonaService(f, nopLogger)
	user := seedProfile(t, f, 0, "")
	ctx := context.Background()

	age := 27
	nationality := "Italian"
	created, err := svc.CreateModel(ctx, user.Id, &dto.CreateModelRequest{Name: " Sofia ", Age: &age, Nationality: &nationality})
	require.NoError(t, err)
	assert.Equal(t, "Sofia", created.Name)
	assert.Empty(t, created.ReferenceImages)

	_, err = svc.UpdateAttributes(ctx, user.Id, created.Id, &dto.UpdateAttributesRequest{
		Attributes: map[string]interface{}{"hairColor": "black"},
	})
	require.NoError(t, err)

	updated, err := svc.UpdateFacialFeatures(ctx, user.Id, created.Id, &dto.UpdateFacialFeaturesRequest{
		FacialFeatures: map[string]interface{}{"eyeColor": "green"},
	})
	require.NoError(t, err)
	require.NotNil(t, updated.BasePrompt)
	assert.Equal(t, "Photorealistic portrait of Sofia, a 27-year-old Italian, with black hair color, green eye color.", *updated.BasePrompt)

	method, err := svc.UpdateGenerationMethod(ctx, user.Id, created.Id, &dto.UpdateGenerationMethodRequest{
		Method:          "reference",
		ReferenceImages: []string{"https://cdn.test/a.png"},
	})
	require.NoError(t, err)
	require.NotNil(t, method.GenerationMethod)
	assert.Equal(t, "reference", *method.GenerationMethod)
	assert.Equal(t, []string{"https://cdn.test/a.png"}, method.ReferenceImages)
}

func TestPersona_RejectsMinors(t *testing.T) {
	f := newFactory(t)
	svc := NewPersonaService(f, nopLogger)
	user := seedProfile(t, f, 0, "")

	age := 17
	_, err := svc.CreateModel(context.Background(), user.Id, &dto.CreateModelRequest{Name: "Kid", Age: &age})
	assert.Equal(t, apperror.CodeValidation, errorCode(t, err))
}

func TestPersona_OwnerOnly(t *testing.T) {
	f := newFactory(t)
	svc := NewPersonaService(f, nopLogger)
	owner := seedProfile(t, f, 0, "")
	stranger := seedProfile(t, f, 0, "")
	persona := seedPersona(t, f, owner.Id)
	ctx := context.Background()

	_, err := svc.GetModel(ctx, stranger.Id, persona.Id)
	assert.Equal(t, apperror.CodeNotFound, errorCode(t, err))

	err = svc.DeleteModel(ctx, stranger.Id, persona.Id)
	assert.Equal(t, apperror.CodeNotFound, errorCode(t, err))

	_, err = svc.LockReference(ctx, stranger.Id, persona.Id, &dto.LockReferenceRequest{ImageUrls: []string{"https://cdn.test/x.png"}})
	assert.Equal(t, apperror.CodeNotFound, errorCode(t, err))
}

func TestPersona_LockReference(t *testing.T) {
	f := newFactory(t)
	svc := NewPersonaService(f, nopLogger)
	user := seedProfile(t, f, 0, "")
	persona := seedPersona(t, f, user.Id)
	ctx := context.Background()

	// 1. Exactly one candidate is required
	for _, urls := range [][]string{nil, {"https://cdn.test/a.png", "https://cdn.test/b.png"}} {
		_, err := svc.LockReference(ctx, user.Id, persona.Id, &dto.LockReferenceRequest{ImageUrls: urls})
		assert.Equal(t, apperror.CodeValidation, errorCode(t, err))
	}

	// 2. A kept image is reused instead of duplicated
	kept, err := svc.KeepImage(ctx, user.Id, persona.Id, &dto.KeepImageRequest{ImageUrl: "https://cdn.test/a.png"})
	require.NoError(t, err)
	assert.True(t, kept.Created)

	first, err := svc.LockReference(ctx, user.Id, persona.Id, &dto.LockReferenceRequest{ImageUrls: []string{"https://cdn.test/a.png"}})
	require.NoError(t, err)
	assert.Equal(t, kept.Image.Id, first.Id)
	assert.True(t, first.IsSelected)

	// 3. Locking another image moves the selection
	second, err := svc.LockReference(ctx, user.Id, persona.Id, &dto.LockReferenceRequest{ImageUrls: []string{"https://cdn.test/b.png"}})
	require.NoError(t, err)
	assert.NotEqual(t, first.Id, second.Id)

	images, err := svc.ListImages(ctx, user.Id, persona.Id)
	require.NoError(t, err)
	require.Len(t, images, 2)
	selected := 0
	for _, image := range images {
		if image.IsSelected {
			selected++
			assert.Equal(t, second.Id, image.Id)
		}
	}
	assert.Equal(t, 1, selected, "at most one selected image per model")

	model, err := svc.GetModel(ctx, user.Id, persona.Id)
	require.NoError(t, err)
	require.NotNil(t, model.LockedReferenceImageId)
	assert.Equal(t, second.Id, *model.LockedReferenceImageId)
	require.NotNil(t, model.LockedReferenceURL)
	assert.Equal(t, "https://cdn.test/b.png", *model.LockedReferenceURL)

	// 4. Re-locking the same URL is idempotent
	again, err := svc.LockReference(ctx, user.Id, persona.Id, &dto.LockReferenceRequest{ImageUrls: []string{"https://cdn.test/b.png"}})
	require.NoError(t, err)
	assert.Equal(t, second.Id, again.Id)
	count, err := f.NewUnitOfWork(ctx).GeneratedImageRepository().Count(ctx, specification.ImagesOfModel{ModelID: persona.Id})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestPersona_KeepImageDeduplicates(t *testing.T) {
	f := newFactory(t)
	svc := NewPersonaService(f, nopLogger)
	user := seedProfile(t, f, 0, "")
	persona := seedPersona(t, f, user.Id)
	ctx := context.Background()

	first, err := svc.KeepImage(ctx, user.Id, persona.Id, &dto.KeepImageRequest{ImageUrl: "https://cdn.test/a.png"})
	require.NoError(t, err)
	second, err := svc.KeepImage(ctx, user.Id, persona.Id, &dto.KeepImageRequest{ImageUrl: "https://cdn.test/a.png"})
	require.NoError(t, err)

	assert.True(t, first.Created)
	assert.False(t, second.Created)
	assert.Equal(t, first.Image.Id, second.Image.Id)
	assert.False(t, second.Image.IsSelected)
}

func TestPersona_DeleteRemovesImages(t *testing.T) {
	f := newFactory(t)
	svc := NewPersonaService(f, nopLogger)
	user := seedProfile(t, f, 0, "")
	persona := seedPersona(t, f, user.Id)
	ctx := context.Background()

	_, err := svc.KeepImage(ctx, user.Id, persona.Id, &dto.KeepImageRequest{ImageUrl: "https://cdn.test/a.png"})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteModel(ctx, user.Id, persona.Id))

	_, err = svc.GetModel(ctx, user.Id, persona.Id)
	assert.Equal(t, apperror.CodeNotFound, errorCode(t, err))
	count, err := f.NewUnitOfWork(ctx).GeneratedImageRepository().Count(ctx, specification.ImagesOfModel{ModelID: persona.Id})
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = svc.GetModel(ctx, uuid.New(), uuid.New())
	assert.Error(t, err)
}
