package models

import "time"

// Review is a buyer's note about a seller, written after a completed trade.
type Review struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ListingID uint      `gorm:"not null;uniqueIndex:idx_review_listing_buyer" json:"listing_id"`
	SellerUID string    `gorm:"size:128;not null;index" json:"seller_uid"`
	BuyerUID  string    `gorm:"size:128;not null;uniqueIndex:idx_review_listing_buyer" json:"buyer_uid"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
