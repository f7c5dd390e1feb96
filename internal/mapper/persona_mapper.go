package mapper

import (
	"fanova-be/internal/entity"
	"fanova-be/internal/model"

	"gorm.io/datatypes"
)

type PersonaMapper struct{}

func NewPersonaMapper() *PersonaMapper {
	return &PersonaMapper{}
}

func (m *PersonaMapper) ToEntity(p *model.Persona) *entity.Persona {
	if p == nil {
		return nil
	}
	var method *entity.GenerationMethod
	if p.GenerationMethod != nil {
		gm := entity.GenerationMethod(*p.GenerationMethod)
		method = &gm
	}
	refs := []string(p.ReferenceImages)
	if refs == nil {
		refs = []string{}
	}
	return &entity.Persona{
		Id:                     p.Id,
		UserId:                 p.UserId,
		Name:                   p.Name,
		Age:                    p.Age,
		Nationality:            p.Nationality,
		Occupation:             p.Occupation,
		Description:            p.Description,
		Attributes:             map[string]interface{}(p.Attributes),
		FacialFeatures:         map[string]interface{}(p.FacialFeatures),
		GenerationMethod:       method,
		ReferenceImages:        refs,
		BasePrompt:             p.BasePrompt,
		LockedReferenceImageId: p.LockedReferenceImageId,
		GenerationCount:        p.GenerationCount,
		CreatedAt:              p.CreatedAt,
		UpdatedAt:              p.UpdatedAt,
	}
}

func (m *PersonaMapper) ToModel(p *entity.Persona) *model.Persona {
	if p == nil {
		return nil
	}
	var method *string
	if p.GenerationMethod != nil {
		gm := string(*p.GenerationMethod)
		method = &gm
	}
	return &model.Persona{
		Id:                     p.Id,
		UserId:                 p.UserId,
		Name:                   p.Name,
		Age:                    p.Age,
		Nationality:            p.Nationality,
		Occupation:             p.Occupation,
		Description:            p.Description,
		Attributes:             datatypes.JSONMap(p.Attributes),
		FacialFeatures:         datatypes.JSONMap(p.FacialFeatures),
		GenerationMethod:       method,
		ReferenceImages:        datatypes.JSONSlice[string](p.ReferenceImages),
		BasePrompt:             p.BasePrompt,
		LockedReferenceImageId: p.LockedReferenceImageId,
		GenerationCount:        p.GenerationCount,
		CreatedAt:              p.CreatedAt,
		UpdatedAt:              p.UpdatedAt,
	}
}

func (m *PersonaMapper) ToEntities(personas []*model.Persona) []*entity.Persona {
	out := make([]*entity.Persona, 0, len(personas))
	for _, p := range personas {
		out = append(out, m.ToEntity(p))
	}
	return out
}

func (m *PersonaMapper) ImageToEntity(img *model.GeneratedImage) *entity.GeneratedImage {
	if img == nil {
		return nil
	}
	return &entity.GeneratedImage{
		Id:         img.Id,
		ModelId:    img.ModelId,
		UserId:     img.UserId,
		ImageUrl:   img.ImageUrl,
		Prompt:     img.Prompt,
		IsSelected: img.IsSelected,
		CreatedAt:  img.CreatedAt,
	}
}

func (m *PersonaMapper) ImageToModel(img *entity.GeneratedImage) *model.GeneratedImage {
	if img == nil {
		return nil
	}
	return &model.GeneratedImage{
		Id:         img.Id,
		ModelId:    img.ModelId,
		UserId:     img.UserId,
		ImageUrl:   img.ImageUrl,
		Prompt:     img.Prompt,
		IsSelected: img.IsSelected,
		CreatedAt:  img.CreatedAt,
	}
}

func (m *PersonaMapper) ImagesToEntities(images []*model.GeneratedImage) []*entity.GeneratedImage {
	out := make([]*entity.GeneratedImage, 0, len(images))
	for _, img := range images {
		out = append(out, m.ImageToEntity(img))
	}
	return out
}
