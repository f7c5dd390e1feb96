package mapper

import (
	"fanova-be/internal/entity"
	"fanova-be/internal/model"

	"gorm.io/datatypes"
)

type JobMapper struct{}

func NewJobMapper() *JobMapper {
	return &JobMapper{}
}

func (m *JobMapper) ToEntity(j *model.GenerationJob) *entity.GenerationJob {
	if j == nil {
		return nil
	}
	job := &entity.GenerationJob{
		Id:             j.Id,
		UserId:         j.UserId,
		ModelId:        j.ModelId,
		Prompt:         j.Prompt,
		IsNsfw:         j.IsNsfw,
		Batch:          j.Batch,
		HighResolution: j.HighResolution,
		Priority:       j.Priority,
		Free:           j.Free,
		Cost:           j.Cost,
		Status:         entity.JobStatus(j.Status),
		Progress:       j.Progress,
		ImageUrls:      []string(j.ImageUrls),
		CreatedAt:      j.CreatedAt,
		UpdatedAt:      j.UpdatedAt,
	}
	if j.Error != nil {
		job.Error = *j.Error
	}
	return job
}

func (m *JobMapper) ToEntities(models []*model.GenerationJob) []*entity.GenerationJob {
	out := make([]*entity.GenerationJob, 0, len(models))
	for _, j := range models {
		out = append(out, m.ToEntity(j))
	}
	return out
}

func (m *JobMapper) ToModel(j *entity.GenerationJob) *model.GenerationJob {
	if j == nil {
		return nil
	}
	row := &model.GenerationJob{
		Id:             j.Id,
		UserId:         j.UserId,
		ModelId:        j.ModelId,
		Prompt:         j.Prompt,
		IsNsfw:         j.IsNsfw,
		Batch:          j.Batch,
		HighResolution: j.HighResolution,
		Priority:       j.Priority,
		Free:           j.Free,
		Cost:           j.Cost,
		Status:         string(j.Status),
		Progress:       j.Progress,
		ImageUrls:      datatypes.JSONSlice[string](j.ImageUrls),
		CreatedAt:      j.CreatedAt,
		UpdatedAt:      j.UpdatedAt,
	}
	if j.Error != "" {
		e := j.Error
		row.Error = &e
	}
	return row
}
