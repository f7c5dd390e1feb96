package billing

import (
	"context"
	"testing"

	"fanova-be/pkg/pricing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// priceCatalog implements the price half of Gateway; the embedded nil interface covers the rest.
type priceCatalog struct {
	Gateway
	prices  map[string]*Price
	created []PriceParams
}

func (c *priceCatalog) FindPriceByLookupKey(_ context.Context, key string) (*Price, error) {
	return c.prices[key], nil
}

func (c *priceCatalog) CreateProductPrice(_ context.Context, p PriceParams) (*Price, error) {
	c.created = append(c.created, p)
	price := &Price{Id: "price_" + p.LookupKey, LookupKey: p.LookupKey, AmountCents: p.AmountCents, Currency: p.Currency, Active: true}
	c.prices[p.LookupKey] = price
	return price, nil
}

func TestEnsurePlanPrices_CreatesMissingOnce(t *testing.T) {
	base, _ := pricing.Lookup(pricing.PlanBase)
	catalog := &priceCatalog{prices: map[string]*Price{
		LookupKey(pricing.PlanBase): {Id: "price_existing", AmountCents: base.PriceCents},
	}}

	got, err := EnsurePlanPrices(context.Background(), catalog, false)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.False(t, got[0].Created)
	assert.Equal(t, "price_existing", got[0].Price.Id)
	assert.True(t, got[1].Created)
	assert.True(t, got[2].Created)
	require.Len(t, catalog.created, 2)
	assert.Equal(t, "essential", catalog.created[0].Metadata["plan_type"])
	assert.Equal(t, "fanova_ultimate_monthly", catalog.created[1].LookupKey)

	// A second run finds everything.
	got, err = EnsurePlanPrices(context.Background(), catalog, false)
	require.NoError(t, err)
	for _, p := range got {
		assert.False(t, p.Created)
	}
	assert.Len(t, catalog.created, 2)
}

func TestEnsurePlanPrices_DryRunAndMismatch(t *testing.T) {
	catalog := &priceCatalog{prices: map[string]*Price{}}
	got, err := EnsurePlanPrices(context.Background(), catalog, true)
	require.NoError(t, err)
	for _, p := range got {
		assert.Nil(t, p.Price)
	}
	assert.Empty(t, catalog.created)

	catalog.prices[LookupKey(pricing.PlanEssential)] = &Price{Id: "price_old", AmountCents: 1}
	_, err = EnsurePlanPrices(context.Background(), catalog, false)
	assert.ErrorContains(t, err, "price_old")
}
