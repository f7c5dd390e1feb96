// Package pricing holds the static plan table and the credit cost rules for image generation.
package pricing

import "errors"

type PlanType string

const (
	PlanNone      PlanType = ""
	PlanBase      PlanType = "base"
	PlanEssential PlanType = "essential"
	PlanUltimate  PlanType = "ultimate"
)

const (
	SfwImageCost        = 10
	BatchCost           = 25
	BatchSize           = 3
	AddOnCost           = 5
	FreeGenerationLimit = 3
	ReferralBonus       = 20
)

var ErrNsfwNotAllowed = errors.New("nsfw generation is not available on this plan")

type Plan struct {
	Type           PlanType `json:"type"`
	Name           string   `json:"name"`
	MonthlyCredits int      `json:"monthlyCredits"`
	PriceCents     int64    `json:"priceCents"`
	Currency       string   `json:"currency"`
	NsfwAllowed    bool     `json:"nsfwAllowed"`
	NsfwCost       int      `json:"nsfwCost,omitempty"`
}

var plans = map[PlanType]Plan{
	PlanBase: {
		Type:           PlanBase,
		Name:           "Base",
		MonthlyCredits: 100,
		PriceCents:     1999,
		Currency:       "usd",
	},
	PlanEssential: {
		Type:           PlanEssential,
		Name:           "Essential",
		MonthlyCredits: 300,
		PriceCents:     3999,
		Currency:       "usd",
		NsfwAllowed:    true,
		NsfwCost:       30,
	},
	PlanUltimate: {
		Type:           PlanUltimate,
		Name:           "Ultimate",
		MonthlyCredits: 750,
		PriceCents:     7999,
		Currency:       "usd",
		NsfwAllowed:    true,
		NsfwCost:       15,
	},
}

// Plans returns the paid plans in ascending price order.
func Plans() []Plan {
	return []Plan{plans[PlanBase], plans[PlanEssential], plans[PlanUltimate]}
}

func Lookup(planType PlanType) (Plan, bool) {
	p, ok := plans[planType]
	return p, ok
}

// ParsePlan accepts "" or nil-like values as PlanNone.
func ParsePlan(raw string) (PlanType, bool) {
	if raw == "" || raw == "none" || raw == "free" {
		return PlanNone, true
	}
	if _, ok := plans[PlanType(raw)]; ok {
		return PlanType(raw), true
	}
	return PlanNone, false
}

type Options struct {
	IsNsfw         bool `json:"isNsfw"`
	Batch          bool `json:"batch"`
	HighResolution bool `json:"highResolution"`
	Priority       bool `json:"priority"`
}

// ImageCount is how many images a request produces.
func (o Options) ImageCount() int {
	if o.Batch {
		return BatchSize
	}
	return 1
}

// Quote is the priced outcome of a generation request.
type Quote struct {
	Cost   int  `json:"cost"`
	Free   bool `json:"free"`
	Images int  `json:"images"`
}

// Cost prices a request for a plan. NSFW on a plan without entitlement is an error, never a price.
func Cost(planType PlanType, opts Options) (int, error) {
	if opts.IsNsfw {
		p, ok := plans[planType]
		if !ok || !p.NsfwAllowed {
			return 0, ErrNsfwNotAllowed
		}
	}

	if opts.Batch {
		return BatchCost, nil
	}

	cost := SfwImageCost
	if opts.IsNsfw {
		cost = plans[planType].NsfwCost
	}
	if opts.HighResolution {
		cost += AddOnCost
	}
	if opts.Priority {
		cost += AddOnCost
	}
	return cost, nil
}

// FreeEligible reports whether a no-plan user may take this request as a free generation.
func FreeEligible(planType PlanType, freeUsed int, opts Options) bool {
	if planType != PlanNone || freeUsed >= FreeGenerationLimit {
		return false
	}
	return !opts.IsNsfw && !opts.Batch && !opts.HighResolution && !opts.Priority
}

// QuoteFor combines Cost and FreeEligible.
func QuoteFor(planType PlanType, freeUsed int, opts Options) (Quote, error) {
	cost, err := Cost(planType, opts)
	if err != nil {
		return Quote{}, err
	}
	if FreeEligible(planType, freeUsed, opts) {
		return Quote{Cost: 0, Free: true, Images: opts.ImageCount()}, nil
	}
	return Quote{Cost: cost, Images: opts.ImageCount()}, nil
}

func FreeRemaining(planType PlanType, freeUsed int) int {
	if planType != PlanNone || freeUsed >= FreeGenerationLimit {
		return 0
	}
	return FreeGenerationLimit - freeUsed
}
