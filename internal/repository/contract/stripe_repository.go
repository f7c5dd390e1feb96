package contract

import (
	"context"

	"fanova-be/internal/entity"
)

type PriceMappingRepository interface {
	Upsert(ctx context.Context, mapping *entity.StripePriceMapping) error
	FindByPlan(ctx context.Context, planType string) (*entity.StripePriceMapping, error)
	FindByPriceId(ctx context.Context, priceId string) (*entity.StripePriceMapping, error)
	FindAll(ctx context.Context) ([]*entity.StripePriceMapping, error)
}

type StripeEventRepository interface {
	// MarkProcessed records the event id. It returns false when the id was already recorded.
	MarkProcessed(ctx context.Context, eventId, eventType string) (bool, error)
}
