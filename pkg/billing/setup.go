package billing

import (
	"context"
	"fmt"
	"strconv"

	"fanova-be/pkg/pricing"
)

// LookupKey is the Stripe price lookup key for a plan's monthly price.
func LookupKey(plan pricing.PlanType) string {
	return "fanova_" + string(plan) + "_monthly"
}

// PlanPrice is the Stripe price that backs a plan, and whether this run created it.
type PlanPrice struct {
	Plan    pricing.Plan
	Price   *Price
	Created bool
}

// EnsurePlanPrices finds or creates the monthly price of every paid plan. With dryRun, missing prices are
// reported with a nil Price instead of being created.
func EnsurePlanPrices(ctx context.Context, gateway Gateway, dryRun bool) ([]PlanPrice, error) {
	out := make([]PlanPrice, 0, len(pricing.Plans()))
	for _, plan := range pricing.Plans() {
		key := LookupKey(plan.Type)
		existing, err := gateway.FindPriceByLookupKey(ctx, key)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			if existing.AmountCents != plan.PriceCents {
				return nil, fmt.Errorf("price %s for %s charges %d cents, plan expects %d", existing.Id, plan.Name, existing.AmountCents, plan.PriceCents)
			}
			out = append(out, PlanPrice{Plan: plan, Price: existing})
			continue
		}
		if dryRun {
			out = append(out, PlanPrice{Plan: plan})
			continue
		}

		created, err := gateway.CreateProductPrice(ctx, PriceParams{
			LookupKey:   key,
			ProductName: "Fanova " + plan.Name,
			Description: strconv.Itoa(plan.MonthlyCredits) + " credits every month",
			AmountCents: plan.PriceCents,
			Currency:    plan.Currency,
			Metadata: map[string]string{
				"plan_type": string(plan.Type),
				"credits":   strconv.Itoa(plan.MonthlyCredits),
			},
		})
		if err != nil {
			return nil, err
		}
		out = append(out, PlanPrice{Plan: plan, Price: created, Created: true})
	}
	return out, nil
}
