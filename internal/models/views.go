package models

// ListingSummary is the row shape of every listing list endpoint.
type ListingSummary struct {
	ID        uint          `json:"id"`
	AfterDate string        `json:"after_date"`
	Thumbnail string        `json:"thumbnail"`
	Title     string        `json:"title"`
	Price     int64         `json:"price"`
	Content   string        `json:"content"`
	Region    string        `json:"region"`
	Status    ListingStatus `json:"status"`
}

// ListingDetail is the full view of one listing.
type ListingDetail struct {
	ID          uint          `json:"id"`
	CreatorID   string        `json:"creator_id"`
	CreatorName string        `json:"creator_name"`
	ProfileImg  string        `json:"profile_img"`
	AfterDate   string        `json:"after_date"`
	Photos      []Photo       `json:"photos"`
	Title       string        `json:"title"`
	Price       int64         `json:"price"`
	Content     string        `json:"content"`
	Region      string        `json:"region"`
	Status      ListingStatus `json:"status"`
	IsOwner     bool          `json:"is_owner"`
	Tags        []string      `json:"tags"`
}

// SellerInfo is a seller's public profile as known to the identity provider.
type SellerInfo struct {
	SellerUID         string `json:"seller_uid"`
	SellerDisplayName string `json:"seller_display_name"`
	SellerPhoto       string `json:"seller_photo"`
}

// ReviewView is a review enriched with the buyer's profile.
type ReviewView struct {
	ID               uint   `json:"id"`
	BuyerUID         string `json:"buyer_uid"`
	BuyerDisplayName string `json:"buyer_display_name"`
	BuyerPhoto       string `json:"buyer_photo"`
	Content          string `json:"content"`
	AfterDate        string `json:"after_date"`
}
