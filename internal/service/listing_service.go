// Package service holds the marketplace business logic. Services combine
// repository reads with identity lookups and photo storage into view records.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"marketplace/internal/identity"
	"marketplace/internal/middleware"
	"marketplace/internal/models"
	"marketplace/internal/observability"
	"marketplace/internal/reltime"
	"marketplace/internal/repository"
	"marketplace/internal/storage"

	"gorm.io/gorm"
)

const (
	maxTitleLen   = 100
	maxContentLen = 5000
	maxTownLen    = 100
	maxTags       = 10
	maxTagLen     = 30
	maxReviewLen  = 1000
)

type ListingService struct {
	listings repository.ListingRepository
	reviews  repository.ReviewRepository
	users    identity.Gateway
	photos   storage.Store
	now      func() time.Time
}

// PhotoFile is one uploaded file as received from the client.
type PhotoFile struct {
	Name string
	Data []byte
}

type DeleteListingInput struct {
	ListingID uint
	CallerUID string
}

type AttachPhotosInput struct {
	ListingID uint
	CallerUID string
	Files     []PhotoFile
}

type CreateListingInput struct {
	SellerUID string
	Title     string
	Content   string
	Price     int64
	Town      string
	Tags      []string
}

type UpdateStatusInput struct {
	ListingID uint
	CallerUID string
	Status    models.ListingStatus
}

type CompleteTradeInput struct {
	ListingID uint
	SellerUID string
	BuyerUID  string
}

type WriteReviewInput struct {
	ListingID uint
	BuyerUID  string
	Content   string
}

func NewListingService(
	listings repository.ListingRepository,
	reviews repository.ReviewRepository,
	users identity.Gateway,
	photos storage.Store,
) *ListingService {
	return &ListingService{
		listings: listings,
		reviews:  reviews,
		users:    users,
		photos:   photos,
		now:      time.Now,
	}
}

func (s *ListingService) ListAll(ctx context.Context, keyword string) ([]models.ListingSummary, error) {
	listings, err := s.listings.Search(ctx, keyword)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return s.summarize(listings), nil
}

func (s *ListingService) ListSelling(ctx context.Context, uid string) ([]models.ListingSummary, error) {
	listings, err := s.listings.ListBySeller(ctx, uid)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return s.summarize(listings), nil
}

// ListBuying returns the listings uid bought, most recent trade first.
func (s *ListingService) ListBuying(ctx context.Context, uid string) ([]models.ListingSummary, error) {
	listings, err := s.listings.ListPurchasedBy(ctx, uid)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return s.summarize(listings), nil
}

func (s *ListingService) GetSellerInfo(ctx context.Context, uid string) (*models.SellerInfo, error) {
	user, err := s.users.GetUser(ctx, uid)
	if err != nil {
		return nil, models.NewAuthLookupError(uid, err)
	}
	return &models.SellerInfo{
		SellerUID:         user.UID,
		SellerDisplayName: user.DisplayName,
		SellerPhoto:       user.PhotoURL,
	}, nil
}

// GetSellerReviews resolves every reviewer with a single batched lookup.
func (s *ListingService) GetSellerReviews(ctx context.Context, uid string) ([]models.ReviewView, error) {
	reviews, err := s.reviews.ListBySeller(ctx, uid)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	views := make([]models.ReviewView, 0, len(reviews))
	if len(reviews) == 0 {
		return views, nil
	}

	buyerUIDs := make([]string, 0, len(reviews))
	for _, r := range reviews {
		buyerUIDs = append(buyerUIDs, r.BuyerUID)
	}
	buyers, err := s.users.GetUsers(ctx, buyerUIDs)
	if err != nil {
		return nil, &models.AppError{
			Code:    models.CodeAuthLookup,
			Message: "Could not look up reviewers",
			Err:     err,
		}
	}

	now := s.now()
	for _, r := range reviews {
		view := models.ReviewView{
			ID:        r.ID,
			BuyerUID:  r.BuyerUID,
			Content:   r.Content,
			AfterDate: reltime.Format(now, r.CreatedAt),
		}
		if buyer, ok := buyers[r.BuyerUID]; ok {
			view.BuyerDisplayName = buyer.DisplayName
			view.BuyerPhoto = buyer.PhotoURL
		}
		views = append(views, view)
	}
	return views, nil
}

// GetOne returns the detail view of a live listing. callerUID may be empty.
func (s *ListingService) GetOne(ctx context.Context, listingID uint, callerUID string) (*models.ListingDetail, error) {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, notFoundOr(err, "Listing", listingID)
	}

	seller, err := s.sellerProfile(ctx, listing.SellerUID)
	if err != nil {
		return nil, models.NewAuthLookupError(listing.SellerUID, err)
	}
	return s.detail(listing, seller, callerUID), nil
}

// SoftDelete hides a listing. Deleting an already deleted listing succeeds.
func (s *ListingService) SoftDelete(ctx context.Context, in DeleteListingInput) error {
	listing, err := s.ownedListing(ctx, in.ListingID, in.CallerUID, true)
	if err != nil {
		return err
	}
	if listing.DeletedAt.Valid {
		return nil
	}
	if err := s.listings.SoftDelete(ctx, listing.ID); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// AttachPhotos stores each file and appends a photo row for every file that
// was stored. Files the storage backend rejects are logged and skipped.
func (s *ListingService) AttachPhotos(ctx context.Context, in AttachPhotosInput) ([]models.Photo, error) {
	if len(in.Files) == 0 {
		return []models.Photo{}, nil
	}

	listing, err := s.ownedListing(ctx, in.ListingID, in.CallerUID, false)
	if err != nil {
		return nil, err
	}

	backend := storage.BackendOf(s.photos)
	rows := make([]*models.Photo, 0, len(in.Files))
	for _, f := range in.Files {
		path, err := s.photos.Save(ctx, f.Data, f.Name)
		if err != nil {
			middleware.Logger.WarnContext(ctx, "Photo store failed, skipping file",
				slog.Uint64("listing_id", uint64(listing.ID)),
				slog.String("filename", f.Name),
				slog.String("backend", backend),
				slog.String("error", err.Error()),
			)
			observability.PhotoStoreFailures.WithLabelValues(backend).Inc()
			continue
		}

		width, height := storage.ImageDimensions(f.Data)
		rows = append(rows, &models.Photo{
			Path:             path,
			OriginalFilename: f.Name,
			ContentType:      storage.ContentType(f.Data),
			SizeBytes:        int64(len(f.Data)),
			Width:            width,
			Height:           height,
		})
	}

	if len(rows) == 0 {
		return []models.Photo{}, nil
	}
	if err := s.listings.AddPhotos(ctx, listing.ID, rows); err != nil {
		return nil, models.NewInternalError(err)
	}
	observability.PhotosAttached.Add(float64(len(rows)))

	created := make([]models.Photo, 0, len(rows))
	for _, p := range rows {
		created = append(created, *p)
	}
	return created, nil
}

func (s *ListingService) CreateListing(ctx context.Context, in CreateListingInput) (*models.ListingDetail, error) {
	if in.SellerUID == "" {
		return nil, models.NewUnauthorizedError("Authentication required")
	}

	title := strings.TrimSpace(in.Title)
	town := strings.TrimSpace(in.Town)
	switch {
	case title == "":
		return nil, models.NewValidationError("Title is required")
	case utf8.RuneCountInString(title) > maxTitleLen:
		return nil, models.NewValidationError("Title too long (max 100 characters)")
	case utf8.RuneCountInString(in.Content) > maxContentLen:
		return nil, models.NewValidationError("Content too long (max 5000 characters)")
	case in.Price < 0:
		return nil, models.NewValidationError("Price must not be negative")
	case town == "":
		return nil, models.NewValidationError("Town is required")
	case utf8.RuneCountInString(town) > maxTownLen:
		return nil, models.NewValidationError("Town too long (max 100 characters)")
	}

	tags, err := normalizeTags(in.Tags)
	if err != nil {
		return nil, err
	}

	listing := &models.Listing{
		Title:     title,
		Content:   in.Content,
		Price:     in.Price,
		Town:      town,
		Status:    models.ListingStatusOnSale,
		SellerUID: in.SellerUID,
	}
	if err := s.listings.Create(ctx, listing, tags); err != nil {
		return nil, models.NewInternalError(err)
	}

	// The listing exists now; a profile lookup failure only blanks the name.
	seller, err := s.sellerProfile(ctx, in.SellerUID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "Seller lookup failed after listing create",
			slog.String("seller_uid", in.SellerUID),
			slog.String("error", err.Error()),
		)
		seller = &identity.User{UID: in.SellerUID}
	}
	return s.detail(listing, seller, in.SellerUID), nil
}

// UpdateStatus moves a listing between on_sale and reserved. Sold is final
// and reachable only through CompleteTrade.
func (s *ListingService) UpdateStatus(ctx context.Context, in UpdateStatusInput) error {
	if !in.Status.Valid() {
		return models.NewValidationError("Invalid status")
	}
	if in.Status == models.ListingStatusSold {
		return models.NewValidationError("Listings are marked sold by completing a trade")
	}

	listing, err := s.ownedListing(ctx, in.ListingID, in.CallerUID, false)
	if err != nil {
		return err
	}
	if listing.Status == models.ListingStatusSold {
		return models.NewValidationError("Sold listings cannot change status")
	}
	if listing.Status == in.Status {
		return nil
	}

	if err := s.listings.UpdateStatus(ctx, listing.ID, in.Status); err != nil {
		return notFoundOr(err, "Listing", listing.ID)
	}
	return nil
}

// CompleteTrade marks the listing sold to BuyerUID and records the trade.
func (s *ListingService) CompleteTrade(ctx context.Context, in CompleteTradeInput) (*models.TradeHistory, error) {
	buyerUID := strings.TrimSpace(in.BuyerUID)
	if buyerUID == "" {
		return nil, models.NewValidationError("buyer_uid is required")
	}
	if buyerUID == in.SellerUID {
		return nil, models.NewValidationError("Sellers cannot buy their own listing")
	}

	listing, err := s.ownedListing(ctx, in.ListingID, in.SellerUID, false)
	if err != nil {
		return nil, err
	}
	if listing.Status == models.ListingStatusSold {
		return nil, models.NewValidationError("Listing is already sold")
	}

	if _, err := s.users.GetUser(ctx, buyerUID); err != nil {
		return nil, models.NewAuthLookupError(buyerUID, err)
	}

	trade, err := s.listings.CompleteTrade(ctx, listing.ID, listing.SellerUID, buyerUID)
	if err != nil {
		if errors.Is(err, repository.ErrListingUnavailable) {
			return nil, models.NewValidationError("Listing is no longer available")
		}
		return nil, models.NewInternalError(err)
	}
	observability.TradesCompleted.Inc()

	middleware.Logger.InfoContext(ctx, "Trade completed",
		slog.Uint64("listing_id", uint64(listing.ID)),
		slog.String("buyer_uid", buyerUID),
	)
	return trade, nil
}

// WriteReview records the buyer's review of the seller. Each buyer reviews a
// traded listing at most once. Reviews stay possible after the listing is deleted.
func (s *ListingService) WriteReview(ctx context.Context, in WriteReviewInput) (*models.Review, error) {
	if in.BuyerUID == "" {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Review content is required")
	}
	if utf8.RuneCountInString(content) > maxReviewLen {
		return nil, models.NewValidationError("Review too long (max 1000 characters)")
	}

	listing, err := s.listings.GetAnyByID(ctx, in.ListingID)
	if err != nil {
		return nil, notFoundOr(err, "Listing", in.ListingID)
	}

	bought, err := s.listings.HasTrade(ctx, listing.ID, in.BuyerUID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if !bought {
		return nil, models.NewForbiddenError("Only the buyer of this listing can review it")
	}

	exists, err := s.reviews.Exists(ctx, listing.ID, in.BuyerUID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if exists {
		return nil, models.NewValidationError("You already reviewed this trade")
	}

	review := &models.Review{
		ListingID: listing.ID,
		SellerUID: listing.SellerUID,
		BuyerUID:  in.BuyerUID,
		Content:   content,
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		// A concurrent request can insert the same review after Exists.
		if errors.Is(err, repository.ErrDuplicateReview) {
			return nil, models.NewValidationError("You already reviewed this trade")
		}
		return nil, models.NewInternalError(err)
	}
	return review, nil
}

// ownedListing loads a listing and checks that callerUID is its seller.
// Deleted listings are NotFound unless includeDeleted is set.
func (s *ListingService) ownedListing(ctx context.Context, listingID uint, callerUID string, includeDeleted bool) (*models.Listing, error) {
	if callerUID == "" {
		return nil, models.NewUnauthorizedError("Authentication required")
	}

	listing, err := s.listings.GetAnyByID(ctx, listingID)
	if err != nil {
		return nil, notFoundOr(err, "Listing", listingID)
	}
	if listing.DeletedAt.Valid && !includeDeleted {
		return nil, models.NewNotFoundError("Listing", listingID)
	}
	if listing.SellerUID != callerUID {
		return nil, models.NewForbiddenError("Only the seller can modify this listing")
	}
	return listing, nil
}

// sellerProfile treats a seller unknown to the provider as an empty profile.
func (s *ListingService) sellerProfile(ctx context.Context, uid string) (*identity.User, error) {
	user, err := s.users.GetUser(ctx, uid)
	if errors.Is(err, identity.ErrUserNotFound) {
		return &identity.User{UID: uid}, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *ListingService) summarize(listings []*models.Listing) []models.ListingSummary {
	now := s.now()
	out := make([]models.ListingSummary, 0, len(listings))
	for _, l := range listings {
		out = append(out, models.ListingSummary{
			ID:        l.ID,
			AfterDate: reltime.Format(now, l.CreatedAt),
			Thumbnail: l.Thumbnail(),
			Title:     l.Title,
			Price:     l.Price,
			Content:   l.Content,
			Region:    l.Town,
			Status:    l.Status,
		})
	}
	return out
}

func (s *ListingService) detail(l *models.Listing, seller *identity.User, callerUID string) *models.ListingDetail {
	photos := l.Photos
	if photos == nil {
		photos = []models.Photo{}
	}
	return &models.ListingDetail{
		ID:          l.ID,
		CreatorID:   l.SellerUID,
		CreatorName: seller.DisplayName,
		ProfileImg:  seller.PhotoURL,
		AfterDate:   reltime.Format(s.now(), l.CreatedAt),
		Photos:      photos,
		Title:       l.Title,
		Price:       l.Price,
		Content:     l.Content,
		Region:      l.Town,
		Status:      l.Status,
		IsOwner:     callerUID != "" && callerUID == l.SellerUID,
		Tags:        l.TagNames(),
	}
}

// normalizeTags trims, lowercases and de-duplicates tags, keeping first-seen order.
func normalizeTags(raw []string) ([]string, error) {
	seen := make(map[string]struct{}, len(raw))
	tags := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		if utf8.RuneCountInString(t) > maxTagLen {
			return nil, models.NewValidationError("Tag too long (max 30 characters)")
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	if len(tags) > maxTags {
		return nil, models.NewValidationError("Too many tags (max 10)")
	}
	return tags, nil
}

func notFoundOr(err error, resource string, id interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return models.NewInternalError(err)
}
