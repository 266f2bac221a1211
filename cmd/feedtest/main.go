package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/rickgao/insider-trades/internal/api"
	"github.com/rickgao/insider-trades/internal/config"
	"github.com/rickgao/insider-trades/internal/ingest"
	"github.com/rickgao/insider-trades/internal/model"
)

func main() {
	configPath := flag.String("config", "configs/ingester.yaml", "path to config file")
	envPath := flag.String("env", ".env", "optional dotenv file loaded before the config")
	limit := flag.Int("limit", 0, "override feed.limit")
	prices := flag.Bool("prices", false, "also fetch the price series of the first record")
	flag.Parse()

	if err := config.LoadEnv(*envPath); err != nil {
		log.Fatalf("LoadEnv failed: %v", err)
	}
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		log.Fatalf("LoadAndValidate failed: %v", err)
	}
	if *limit > 0 {
		cfg.Feed.Limit = *limit
	}

	feed := api.NewFeedClient(cfg.Feed.BaseURL, cfg.Feed.Path, cfg.Feed.APIKey,
		api.WithTimeout(cfg.Feed.Timeout),
		api.WithRetries(0, time.Second),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	// Test 1: Disclosure feed
	fmt.Printf("=== Fetching disclosures (page %d, limit %d) ===\n", cfg.Feed.Page, cfg.Feed.Limit)
	records, err := feed.Latest(ctx, cfg.Feed.Page, cfg.Feed.Limit)
	if err != nil {
		log.Fatalf("Latest failed: %v", err)
	}
	fmt.Printf("Fetched %d records\n", len(records))

	// Test 2: Hashes and windows
	for i := range records {
		rec := &records[i]
		fmt.Printf("\n%d. %s %s %s (%s) %s\n", i+1,
			rec.Ticker(),
			model.Value(rec.Type),
			model.Value(rec.Amount),
			model.Value(rec.Owner),
			model.Value(rec.TransactionDate),
		)
		fmt.Printf("   Filer: %s %s, disclosed %s\n", model.Value(rec.FirstName), model.Value(rec.LastName), model.Value(rec.DisclosureDate))
		fmt.Printf("   Hash: %s\n", rec.Hash())

		w, err := ingest.PriceWindow(rec, cfg.Prices.LookbackDays)
		if err != nil {
			fmt.Printf("   Price window: invalid (%v)\n", err)
			continue
		}
		fmt.Printf("   Price window: %s .. %s\n", w.Start.Format(model.DateLayout), w.End.Format(model.DateLayout))

		if cfg.Options.Enabled {
			snapshot, exp, _ := ingest.OptionsWindow(rec, cfg.Options.HorizonDays)
			fmt.Printf("   Options: snapshot %s, expiring %s .. %s\n",
				snapshot.Format(model.DateLayout), exp.Start.Format(model.DateLayout), exp.End.Format(model.DateLayout))
		}
	}

	// Test 3: Price history for the first record
	if !*prices || len(records) == 0 {
		return
	}
	rec := &records[0]
	w, err := ingest.PriceWindow(rec, cfg.Prices.LookbackDays)
	if err != nil {
		log.Fatalf("PriceWindow failed: %v", err)
	}

	fmt.Printf("\n=== Fetching price history (%s) ===\n", rec.Ticker())
	client := api.NewPriceClient(cfg.Prices.BaseURL, api.WithTimeout(cfg.Prices.Timeout))
	bars, err := client.History(ctx, rec.Ticker(), w.Start, w.End)
	if err != nil {
		log.Fatalf("History failed: %v", err)
	}
	fmt.Printf("Fetched %d bars\n", len(bars))
	for i, b := range bars {
		if i >= 5 {
			fmt.Printf("  ... %d more\n", len(bars)-5)
			break
		}
		fmt.Printf("  %s O=%s H=%s L=%s C=%s\n", b.Date.Format(model.DateLayout),
			b.Open.Decimal, b.High.Decimal, b.Low.Decimal, b.Close.Decimal)
	}

	fmt.Println("\n=== Done (nothing written) ===")
}
