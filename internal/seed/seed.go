// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"context"
	"fmt"
	"log"
	"time"

	"marketplace/internal/models"
	"marketplace/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumListings int
	// SellerUIDs and BuyerUIDs are identity-provider uids. Users are never
	// stored locally, so the seeder only references them.
	SellerUIDs []string
	BuyerUIDs  []string
	// SoldRatio is the fraction of listings completed as trades.
	SoldRatio float64
	// ReviewRatio is the fraction of completed trades that get a review.
	ReviewRatio float64
	MaxDays     int
	// RandSeed makes the generated data reproducible when non-zero.
	RandSeed int64
}

// Result summarizes what a seeding run created.
type Result struct {
	Listings int
	Photos   int
	Trades   int
	Reviews  int
}

var (
	towns = []string{
		"Mapo-gu", "Gangnam-gu", "Seocho-gu", "Songpa-gu", "Yongsan-gu",
		"Jongno-gu", "Seongdong-gu", "Gwangjin-gu", "Dongjak-gu", "Gwanak-gu",
	}

	tagPool = []string{
		"furniture", "electronics", "books", "clothing", "kids", "sports",
		"kitchen", "garden", "vintage", "camera", "bike", "free",
	}

	reviewLines = []string{
		"Friendly and on time.",
		"Item was exactly as described.",
		"Quick reply, smooth trade.",
		"Would buy from again.",
		"Great price, thanks!",
	}
)

// Seeder writes marketplace demo data through the repositories.
type Seeder struct {
	db       *gorm.DB
	listings repository.ListingRepository
	reviews  repository.ReviewRepository
}

// NewSeeder creates a Seeder bound to db.
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{
		db:       db,
		listings: repository.NewListingRepository(db),
		reviews:  repository.NewReviewRepository(db),
	}
}

// DefaultOptions returns a small data set with three sellers and three buyers.
func DefaultOptions() Options {
	return Options{
		NumListings: 40,
		SellerUIDs:  []string{"seed-seller-1", "seed-seller-2", "seed-seller-3"},
		BuyerUIDs:   []string{"seed-buyer-1", "seed-buyer-2", "seed-buyer-3"},
		SoldRatio:   0.3,
		ReviewRatio: 0.5,
		MaxDays:     60,
	}
}

// ClearAll removes every marketplace row, including soft-deleted listings.
func (s *Seeder) ClearAll() error {
	log.Println("🗑️  Clearing existing data...")
	for _, table := range []string{"reviews", "trade_histories", "photos", "listing_tags", "tags", "listings"} {
		if err := s.db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

// Seed populates the database with listings, photos, trades and reviews.
func (s *Seeder) Seed(ctx context.Context, opts Options) (*Result, error) {
	if len(opts.SellerUIDs) == 0 {
		return nil, fmt.Errorf("seed: at least one seller uid is required")
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = 90
	}
	randSeed := opts.RandSeed
	if randSeed == 0 {
		randSeed = time.Now().UnixNano()
	}
	faker := gofakeit.New(randSeed)

	log.Printf("🌱 Seeding %d listings for %d sellers...", opts.NumListings, len(opts.SellerUIDs))

	result := &Result{}
	now := time.Now()
	for i := 0; i < opts.NumListings; i++ {
		seller := opts.SellerUIDs[i%len(opts.SellerUIDs)]
		listing := buildListing(faker, seller, now, opts.MaxDays)

		if err := s.listings.Create(ctx, listing, pickTags(faker)); err != nil {
			return result, fmt.Errorf("create listing %d: %w", i, err)
		}
		result.Listings++

		photos := buildPhotos(faker)
		if err := s.listings.AddPhotos(ctx, listing.ID, photos); err != nil {
			return result, fmt.Errorf("add photos to listing %d: %w", listing.ID, err)
		}
		result.Photos += len(photos)

		buyer := pickBuyer(faker, opts.BuyerUIDs, seller)
		if buyer == "" || faker.Float64() >= opts.SoldRatio {
			continue
		}
		if _, err := s.listings.CompleteTrade(ctx, listing.ID, seller, buyer); err != nil {
			return result, fmt.Errorf("complete trade for listing %d: %w", listing.ID, err)
		}
		result.Trades++

		if faker.Float64() >= opts.ReviewRatio {
			continue
		}
		review := &models.Review{
			ListingID: listing.ID,
			SellerUID: seller,
			BuyerUID:  buyer,
			Content:   reviewLines[faker.Number(0, len(reviewLines)-1)],
		}
		if err := s.reviews.Create(ctx, review); err != nil {
			return result, fmt.Errorf("create review for listing %d: %w", listing.ID, err)
		}
		result.Reviews++
	}

	log.Printf("✓ %d listings, %d photos, %d trades, %d reviews created",
		result.Listings, result.Photos, result.Trades, result.Reviews)
	return result, nil
}

func buildListing(faker *gofakeit.Faker, sellerUID string, now time.Time, maxDays int) *models.Listing {
	title := faker.ProductName()
	if len(title) > 100 {
		title = title[:100]
	}

	// realistic created_at spread
	age := time.Duration(faker.Number(0, maxDays*24*60)) * time.Minute

	return &models.Listing{
		Title:     title,
		Content:   faker.ProductDescription(),
		Price:     int64(faker.Number(0, 500)) * 1000,
		Town:      towns[faker.Number(0, len(towns)-1)],
		Status:    models.ListingStatusOnSale,
		SellerUID: sellerUID,
		CreatedAt: now.Add(-age),
	}
}

func buildPhotos(faker *gofakeit.Faker) []*models.Photo {
	n := faker.Number(0, 3)
	photos := make([]*models.Photo, 0, n)
	for i := 0; i < n; i++ {
		photos = append(photos, &models.Photo{
			Path:             fmt.Sprintf("https://picsum.photos/seed/%s/800/800", faker.UUID()),
			OriginalFilename: fmt.Sprintf("photo_%d.jpg", i+1),
			ContentType:      "image/jpeg",
			Width:            800,
			Height:           800,
		})
	}
	return photos
}

func pickTags(faker *gofakeit.Faker) []string {
	n := faker.Number(0, 3)
	seen := make(map[string]struct{}, n)
	tags := make([]string, 0, n)
	for i := 0; i < n; i++ {
		tag := tagPool[faker.Number(0, len(tagPool)-1)]
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

// pickBuyer returns a buyer other than the seller, or "" if none exists.
func pickBuyer(faker *gofakeit.Faker, buyers []string, seller string) string {
	candidates := make([]string, 0, len(buyers))
	for _, b := range buyers {
		if b != seller {
			candidates = append(candidates, b)
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	return candidates[faker.Number(0, len(candidates)-1)]
}
