package repository

import (
	"context"
	"errors"

	"marketplace/internal/models"

	"gorm.io/gorm"
)

// ErrDuplicateReview is returned by Create when the buyer already reviewed the listing.
var ErrDuplicateReview = errors.New("review already exists for this listing and buyer")

// ReviewRepository defines the interface for seller review data operations
type ReviewRepository interface {
	ListBySeller(ctx context.Context, sellerUID string) ([]*models.Review, error)
	Create(ctx context.Context, review *models.Review) error
	Exists(ctx context.Context, listingID uint, buyerUID string) (bool, error)
}

type reviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository creates a new review repository
func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) ListBySeller(ctx context.Context, sellerUID string) ([]*models.Review, error) {
	var reviews []*models.Review
	err := r.db.WithContext(ctx).
		Where("seller_uid = ?", sellerUID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&reviews).Error
	if err != nil {
		return nil, err
	}
	return reviews, nil
}

// Create inserts review. It relies on the DB being opened with TranslateError
// so the (listing_id, buyer_uid) unique index reports gorm.ErrDuplicatedKey.
func (r *reviewRepository) Create(ctx context.Context, review *models.Review) error {
	err := r.db.WithContext(ctx).Create(review).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateReview
	}
	return err
}

func (r *reviewRepository) Exists(ctx context.Context, listingID uint, buyerUID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("listing_id = ? AND buyer_uid = ?", listingID, buyerUID).
		Count(&count).Error
	return count > 0, err
}
