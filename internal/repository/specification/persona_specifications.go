package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ImagesOfModel struct {
	ModelID uuid.UUID
}

func (s ImagesOfModel) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("model_id = ?", s.ModelID)
}

type ByImageURL struct {
	URL string
}

func (s ByImageURL) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("image_url = ?", s.URL)
}

type SelectedImage struct{}

func (s SelectedImage) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("is_selected = ?", true)
}

type ByReference struct {
	Reference string
}

func (s ByReference) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("reference = ?", s.Reference)
}

type ByTransactionType struct {
	Type string
}

func (s ByTransactionType) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("type = ?", s.Type)
}

type ReferralsBy struct {
	ReferrerID uuid.UUID
}

func (s ReferralsBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("referrer_id = ?", s.ReferrerID)
}

type ReferralOf struct {
	ReferredID uuid.UUID
}

func (s ReferralOf) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("referred_id = ?", s.ReferredID)
}

type ActionsOnTarget struct {
	TargetID uuid.UUID
}

func (s ActionsOnTarget) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("target_user_id = ?", s.TargetID)
}
