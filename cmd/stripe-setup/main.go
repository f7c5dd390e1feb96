// Command stripe-setup creates the Stripe products and monthly prices for every paid plan
// and records them in stripe_price_mappings.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"fanova-be/internal/config"
	"fanova-be/internal/entity"
	"fanova-be/internal/repository/unitofwork"
	"fanova-be/pkg/billing"
	"fanova-be/pkg/database"
	"fanova-be/pkg/pricing"

	"github.com/fatih/color"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "report missing prices without creating anything")
	list := flag.Bool("list", false, "print the stored price mappings and exit")
	flag.Parse()

	cfg := config.Load()
	if cfg.Database.Connection == "" {
		color.Red("DB_CONNECTION_STRING is not set")
		os.Exit(1)
	}
	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, false)
	if err != nil {
		color.Red("Failed to connect to database: %v", err)
		os.Exit(1)
	}
	mappings := unitofwork.NewRepositoryFactory(db).NewUnitOfWork(context.Background()).PriceMappingRepository()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if *list {
		rows, err := mappings.FindAll(ctx)
		if err != nil {
			color.Red("Failed to load price mappings: %v", err)
			os.Exit(1)
		}
		if len(rows) == 0 {
			color.Yellow("No price mappings stored yet")
		}
		for _, m := range rows {
			fmt.Printf("%-10s %-32s %6d %s  %d credits  active=%t\n", m.PlanType, m.StripePriceId, m.Amount, m.Currency, m.Credits, m.Active)
		}
		return
	}

	if cfg.Stripe.SecretKey == "" {
		color.Red("STRIPE_SECRET_KEY is not set")
		os.Exit(1)
	}
	gateway := billing.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret)

	color.Cyan("Ensuring Stripe prices for %d plans (dry run: %t)", len(pricing.Plans()), *dryRun)
	prices, err := billing.EnsurePlanPrices(ctx, gateway, *dryRun)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}

	for _, p := range prices {
		switch {
		case p.Price == nil:
			color.Yellow("%-10s missing, would create %s at %d %s", p.Plan.Type, billing.LookupKey(p.Plan.Type), p.Plan.PriceCents, p.Plan.Currency)
			continue
		case p.Created:
			color.Green("%-10s created %s", p.Plan.Type, p.Price.Id)
		default:
			color.White("%-10s found   %s", p.Plan.Type, p.Price.Id)
		}
		if *dryRun {
			continue
		}
		if err := mappings.Upsert(ctx, &entity.StripePriceMapping{
			PlanType:        string(p.Plan.Type),
			StripePriceId:   p.Price.Id,
			StripeProductId: p.Price.ProductId,
			Amount:          p.Plan.PriceCents,
			Currency:        p.Plan.Currency,
			Credits:         p.Plan.MonthlyCredits,
			Active:          true,
		}); err != nil {
			color.Red("Failed to store mapping for %s: %v", p.Plan.Type, err)
			os.Exit(1)
		}
	}
	color.Green("Done")
}
