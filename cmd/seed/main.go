// Command main runs the database seeder for the marketplace.
package main

import (
	"context"
	"flag"
	"log"
	"strings"

	"marketplace/internal/config"
	"marketplace/internal/database"
	"marketplace/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()

	numListings := flag.Int("listings", defaults.NumListings, "Number of listings to create")
	sellers := flag.String("sellers", strings.Join(defaults.SellerUIDs, ","), "Comma-separated seller uids")
	buyers := flag.String("buyers", strings.Join(defaults.BuyerUIDs, ","), "Comma-separated buyer uids")
	soldRatio := flag.Float64("sold", defaults.SoldRatio, "Fraction of listings completed as trades")
	reviewRatio := flag.Float64("reviews", defaults.ReviewRatio, "Fraction of trades that get a review")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(db)
	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("❌ Cleanup failed: %v", err)
		}
	}

	opts := defaults
	opts.NumListings = *numListings
	opts.SellerUIDs = splitUIDs(*sellers)
	opts.BuyerUIDs = splitUIDs(*buyers)
	opts.SoldRatio = *soldRatio
	opts.ReviewRatio = *reviewRatio

	if _, err := s.Seed(context.Background(), opts); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("✨ All done! Your database is now populated with test data.")
}

func splitUIDs(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
