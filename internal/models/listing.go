// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// ListingStatus is the trade state of a listing.
type ListingStatus string

const (
	ListingStatusOnSale   ListingStatus = "on_sale"
	ListingStatusReserved ListingStatus = "reserved"
	ListingStatusSold     ListingStatus = "sold"
)

// Valid reports whether s is a known listing status.
func (s ListingStatus) Valid() bool {
	switch s {
	case ListingStatusOnSale, ListingStatusReserved, ListingStatusSold:
		return true
	}
	return false
}

// Listing is a single item offered for sale. Sellers are identity-provider
// users and are referenced by uid only.
type Listing struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Title     string         `gorm:"size:100;not null" json:"title"`
	Content   string         `gorm:"type:text;not null" json:"content"`
	Price     int64          `gorm:"not null" json:"price"`
	Town      string         `gorm:"size:100;not null" json:"town"`
	Status    ListingStatus  `gorm:"size:20;not null;default:on_sale;index" json:"status"`
	SellerUID string         `gorm:"size:128;not null;index" json:"seller_uid"`
	Photos    []Photo        `gorm:"foreignKey:ListingID" json:"photos,omitempty"`
	Tags      []Tag          `gorm:"many2many:listing_tags" json:"tags,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Thumbnail returns the path of the first photo, or "" when the listing has none.
// Photos are expected in position order.
func (l *Listing) Thumbnail() string {
	if len(l.Photos) == 0 {
		return ""
	}
	return l.Photos[0].Path
}

// TagNames returns the listing's tag names in stored order.
func (l *Listing) TagNames() []string {
	names := make([]string, 0, len(l.Tags))
	for _, t := range l.Tags {
		names = append(names, t.Name)
	}
	return names
}

// Photo is an uploaded picture attached to a listing. Position 0 is the thumbnail.
type Photo struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	ListingID        uint      `gorm:"not null;index" json:"listing_id"`
	Path             string    `gorm:"type:text;not null" json:"path"`
	OriginalFilename string    `gorm:"size:255" json:"original_filename"`
	ContentType      string    `gorm:"size:100" json:"content_type,omitempty"`
	SizeBytes        int64     `json:"size_bytes"`
	Width            int       `json:"width,omitempty"`
	Height           int       `json:"height,omitempty"`
	Position         int       `gorm:"not null;default:0" json:"position"`
	CreatedAt        time.Time `json:"created_at"`
}

// Tag is a free-form keyword attached to listings.
type Tag struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:30;not null;uniqueIndex" json:"name"`
}

// TradeHistory records a completed sale of a listing to a buyer.
type TradeHistory struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ListingID uint      `gorm:"not null;index" json:"listing_id"`
	Listing   Listing   `gorm:"foreignKey:ListingID" json:"-"`
	BuyerUID  string    `gorm:"size:128;not null;index" json:"buyer_uid"`
	SellerUID string    `gorm:"size:128;not null;index" json:"seller_uid"`
	CreatedAt time.Time `json:"created_at"`
}
