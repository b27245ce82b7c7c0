// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"strings"

	"marketplace/internal/models"

	"gorm.io/gorm"
)

// ErrListingUnavailable is returned when a trade targets a listing that is
// already sold, deleted, or owned by someone else.
var ErrListingUnavailable = errors.New("listing is not available for trade")

// ListingRepository defines the interface for listing data operations
type ListingRepository interface {
	Search(ctx context.Context, keyword string) ([]*models.Listing, error)
	ListBySeller(ctx context.Context, sellerUID string) ([]*models.Listing, error)
	ListPurchasedBy(ctx context.Context, buyerUID string) ([]*models.Listing, error)
	GetByID(ctx context.Context, id uint) (*models.Listing, error)
	GetAnyByID(ctx context.Context, id uint) (*models.Listing, error)
	Create(ctx context.Context, listing *models.Listing, tagNames []string) error
	SoftDelete(ctx context.Context, id uint) error
	UpdateStatus(ctx context.Context, id uint, status models.ListingStatus) error
	AddPhotos(ctx context.Context, listingID uint, photos []*models.Photo) error
	CompleteTrade(ctx context.Context, listingID uint, sellerUID, buyerUID string) (*models.TradeHistory, error)
	HasTrade(ctx context.Context, listingID uint, buyerUID string) (bool, error)
}

// listingRepository implements ListingRepository
type listingRepository struct {
	db *gorm.DB
}

// NewListingRepository creates a new listing repository
func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepository{db: db}
}

func photosInOrder(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC").Order("id ASC")
}

func tagsByName(db *gorm.DB) *gorm.DB {
	return db.Order("name ASC")
}

// escapeLike makes %, _ and \ match literally in a LIKE pattern.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *listingRepository) Search(ctx context.Context, keyword string) ([]*models.Listing, error) {
	var listings []*models.Listing
	q := r.db.WithContext(ctx).Preload("Photos", photosInOrder)

	if kw := strings.TrimSpace(keyword); kw != "" {
		pattern := "%" + escapeLike(strings.ToLower(kw)) + "%"
		q = q.Where(`LOWER(title) LIKE ? ESCAPE '\' OR LOWER(content) LIKE ? ESCAPE '\'`, pattern, pattern)
	}

	if err := q.Order("created_at DESC").Order("id DESC").Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

func (r *listingRepository) ListBySeller(ctx context.Context, sellerUID string) ([]*models.Listing, error) {
	var listings []*models.Listing
	err := r.db.WithContext(ctx).
		Preload("Photos", photosInOrder).
		Where("seller_uid = ?", sellerUID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&listings).Error
	if err != nil {
		return nil, err
	}
	return listings, nil
}

// ListPurchasedBy follows trade records back to their listings. Listings the
// seller deleted after the sale are included.
func (r *listingRepository) ListPurchasedBy(ctx context.Context, buyerUID string) ([]*models.Listing, error) {
	var listings []*models.Listing
	err := r.db.WithContext(ctx).
		Unscoped().
		Select("listings.*").
		Joins("JOIN trade_histories ON trade_histories.listing_id = listings.id").
		Where("trade_histories.buyer_uid = ?", buyerUID).
		Preload("Photos", photosInOrder).
		Order("trade_histories.created_at DESC").
		Order("trade_histories.id DESC").
		Find(&listings).Error
	if err != nil {
		return nil, err
	}
	return listings, nil
}

func (r *listingRepository) GetByID(ctx context.Context, id uint) (*models.Listing, error) {
	var listing models.Listing
	err := r.db.WithContext(ctx).
		Preload("Photos", photosInOrder).
		Preload("Tags", tagsByName).
		First(&listing, id).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// GetAnyByID loads a listing without relations, including soft-deleted ones.
func (r *listingRepository) GetAnyByID(ctx context.Context, id uint) (*models.Listing, error) {
	var listing models.Listing
	if err := r.db.WithContext(ctx).Unscoped().First(&listing, id).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

// Create inserts the listing and links it to tagNames, creating missing tags.
func (r *listingRepository) Create(ctx context.Context, listing *models.Listing, tagNames []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, name := range tagNames {
			tag := models.Tag{Name: name}
			if err := tx.Where(models.Tag{Name: name}).FirstOrCreate(&tag).Error; err != nil {
				return err
			}
			listing.Tags = append(listing.Tags, tag)
		}
		return tx.Create(listing).Error
	})
}

// SoftDelete marks the listing deleted. Deleting an already deleted listing is a no-op.
func (r *listingRepository) SoftDelete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Listing{}, id).Error
}

func (r *listingRepository) UpdateStatus(ctx context.Context, id uint, status models.ListingStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AddPhotos appends photos after the listing's existing ones, in slice order,
// inside one transaction.
func (r *listingRepository) AddPhotos(ctx context.Context, listingID uint, photos []*models.Photo) error {
	if len(photos) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxPos int
		err := tx.Model(&models.Photo{}).
			Where("listing_id = ?", listingID).
			Select("COALESCE(MAX(position), -1)").
			Row().
			Scan(&maxPos)
		if err != nil {
			return err
		}

		for i, p := range photos {
			p.ListingID = listingID
			p.Position = maxPos + 1 + i
		}
		return tx.Create(&photos).Error
	})
}

// CompleteTrade marks the listing sold and records the trade atomically.
func (r *listingRepository) CompleteTrade(ctx context.Context, listingID uint, sellerUID, buyerUID string) (*models.TradeHistory, error) {
	trade := &models.TradeHistory{
		ListingID: listingID,
		BuyerUID:  buyerUID,
		SellerUID: sellerUID,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Listing{}).
			Where("id = ? AND seller_uid = ? AND status <> ?", listingID, sellerUID, models.ListingStatusSold).
			Update("status", models.ListingStatusSold)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrListingUnavailable
		}
		return tx.Create(trade).Error
	})
	if err != nil {
		return nil, err
	}
	return trade, nil
}

func (r *listingRepository) HasTrade(ctx context.Context, listingID uint, buyerUID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.TradeHistory{}).
		Where("listing_id = ? AND buyer_uid = ?", listingID, buyerUID).
		Count(&count).Error
	return count > 0, err
}
