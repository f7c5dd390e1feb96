package model

import "gorm.io/gorm"

// All lists every table owned by the service, in creation order.
func All() []interface{} {
	return []interface{}{
		&Profile{},
		&Persona{},
		&GeneratedImage{},
		&GenerationJob{},
		&CreditTransaction{},
		&Referral{},
		&StripePriceMapping{},
		&StripeEvent{},
		&AdminAction{},
	}
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(All()...)
}
