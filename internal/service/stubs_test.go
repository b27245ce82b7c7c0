package service

import (
	"context"
	"errors"
	"testing"

	"marketplace/internal/identity"
	"marketplace/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// listingRepoStub is a stub for repository.ListingRepository.
type listingRepoStub struct {
	searchFn        func(context.Context, string) ([]*models.Listing, error)
	listBySellerFn  func(context.Context, string) ([]*models.Listing, error)
	listPurchasedFn func(context.Context, string) ([]*models.Listing, error)
	getByIDFn       func(context.Context, uint) (*models.Listing, error)
	getAnyByIDFn    func(context.Context, uint) (*models.Listing, error)
	createFn        func(context.Context, *models.Listing, []string) error
	softDeleteFn    func(context.Context, uint) error
	updateStatusFn  func(context.Context, uint, models.ListingStatus) error
	addPhotosFn     func(context.Context, uint, []*models.Photo) error
	completeTradeFn func(context.Context, uint, string, string) (*models.TradeHistory, error)
	hasTradeFn      func(context.Context, uint, string) (bool, error)
}

func (s *listingRepoStub) Search(ctx context.Context, keyword string) ([]*models.Listing, error) {
	return s.searchFn(ctx, keyword)
}
func (s *listingRepoStub) ListBySeller(ctx context.Context, uid string) ([]*models.Listing, error) {
	return s.listBySellerFn(ctx, uid)
}
func (s *listingRepoStub) ListPurchasedBy(ctx context.Context, uid string) ([]*models.Listing, error) {
	return s.listPurchasedFn(ctx, uid)
}
func (s *listingRepoStub) GetByID(ctx context.Context, id uint) (*models.Listing, error) {
	return s.getByIDFn(ctx, id)
}
func (s *listingRepoStub) GetAnyByID(ctx context.Context, id uint) (*models.Listing, error) {
	return s.getAnyByIDFn(ctx, id)
}
func (s *listingRepoStub) Create(ctx context.Context, l *models.Listing, tags []string) error {
	return s.createFn(ctx, l, tags)
}
func (s *listingRepoStub) SoftDelete(ctx context.Context, id uint) error {
	return s.softDeleteFn(ctx, id)
}
func (s *listingRepoStub) UpdateStatus(ctx context.Context, id uint, status models.ListingStatus) error {
	return s.updateStatusFn(ctx, id, status)
}
func (s *listingRepoStub) AddPhotos(ctx context.Context, id uint, photos []*models.Photo) error {
	return s.addPhotosFn(ctx, id, photos)
}
func (s *listingRepoStub) CompleteTrade(ctx context.Context, id uint, seller, buyer string) (*models.TradeHistory, error) {
	return s.completeTradeFn(ctx, id, seller, buyer)
}
func (s *listingRepoStub) HasTrade(ctx context.Context, id uint, buyer string) (bool, error) {
	return s.hasTradeFn(ctx, id, buyer)
}

func failOnCall(t *testing.T, name string) {
	t.Helper()
	t.Fatalf("unexpected call to %s", name)
}

// strictListingRepo fails the test on any call that was not overridden.
func strictListingRepo(t *testing.T) *listingRepoStub {
	return &listingRepoStub{
		searchFn: func(context.Context, string) ([]*models.Listing, error) {
			failOnCall(t, "Search")
			return nil, nil
		},
		listBySellerFn: func(context.Context, string) ([]*models.Listing, error) {
			failOnCall(t, "ListBySeller")
			return nil, nil
		},
		listPurchasedFn: func(context.Context, string) ([]*models.Listing, error) {
			failOnCall(t, "ListPurchasedBy")
			return nil, nil
		},
		getByIDFn: func(context.Context, uint) (*models.Listing, error) {
			failOnCall(t, "GetByID")
			return nil, nil
		},
		getAnyByIDFn: func(context.Context, uint) (*models.Listing, error) {
			failOnCall(t, "GetAnyByID")
			return nil, nil
		},
		createFn: func(context.Context, *models.Listing, []string) error {
			failOnCall(t, "Create")
			return nil
		},
		softDeleteFn: func(context.Context, uint) error {
			failOnCall(t, "SoftDelete")
			return nil
		},
		updateStatusFn: func(context.Context, uint, models.ListingStatus) error {
			failOnCall(t, "UpdateStatus")
			return nil
		},
		addPhotosFn: func(context.Context, uint, []*models.Photo) error {
			failOnCall(t, "AddPhotos")
			return nil
		},
		completeTradeFn: func(context.Context, uint, string, string) (*models.TradeHistory, error) {
			failOnCall(t, "CompleteTrade")
			return nil, nil
		},
		hasTradeFn: func(context.Context, uint, string) (bool, error) {
			failOnCall(t, "HasTrade")
			return false, nil
		},
	}
}

// reviewRepoStub is a stub for repository.ReviewRepository.
type reviewRepoStub struct {
	listBySellerFn func(context.Context, string) ([]*models.Review, error)
	createFn       func(context.Context, *models.Review) error
	existsFn       func(context.Context, uint, string) (bool, error)
}

func (s *reviewRepoStub) ListBySeller(ctx context.Context, uid string) ([]*models.Review, error) {
	return s.listBySellerFn(ctx, uid)
}
func (s *reviewRepoStub) Create(ctx context.Context, r *models.Review) error {
	return s.createFn(ctx, r)
}
func (s *reviewRepoStub) Exists(ctx context.Context, id uint, buyer string) (bool, error) {
	return s.existsFn(ctx, id, buyer)
}

func noopReviewRepo() *reviewRepoStub {
	return &reviewRepoStub{
		listBySellerFn: func(context.Context, string) ([]*models.Review, error) { return nil, nil },
		createFn:       func(context.Context, *models.Review) error { return nil },
		existsFn:       func(context.Context, uint, string) (bool, error) { return false, nil },
	}
}

// gatewayStub is an in-memory identity.Gateway that counts calls.
type gatewayStub struct {
	users        map[string]*identity.User
	err          error
	getUserCalls int
	batchCalls   [][]string
}

func (g *gatewayStub) VerifyToken(_ context.Context, token string) (string, error) {
	if _, ok := g.users[token]; ok {
		return token, nil
	}
	return "", identity.ErrInvalidToken
}

func (g *gatewayStub) GetUser(_ context.Context, uid string) (*identity.User, error) {
	g.getUserCalls++
	if g.err != nil {
		return nil, g.err
	}
	u, ok := g.users[uid]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	return u, nil
}

func (g *gatewayStub) GetUsers(_ context.Context, uids []string) (map[string]*identity.User, error) {
	g.batchCalls = append(g.batchCalls, uids)
	if g.err != nil {
		return nil, g.err
	}
	out := make(map[string]*identity.User)
	for _, uid := range uids {
		if u, ok := g.users[uid]; ok {
			out[uid] = u
		}
	}
	return out, nil
}

func newGateway(users ...*identity.User) *gatewayStub {
	g := &gatewayStub{users: make(map[string]*identity.User)}
	for _, u := range users {
		g.users[u.UID] = u
	}
	return g
}

// storeStub is a storage.Store that fails for names listed in failFor.
type storeStub struct {
	failFor map[string]bool
	saved   []string
}

func (s *storeStub) Save(_ context.Context, _ []byte, name string) (string, error) {
	if s.failFor[name] {
		return "", errors.New("disk full")
	}
	s.saved = append(s.saved, name)
	return "/photos/uuid_" + name, nil
}

func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertAppErrorCode(t, err, models.CodeValidation)
}

func assertNotFoundError(t *testing.T, err error) {
	t.Helper()
	assertAppErrorCode(t, err, models.CodeNotFound)
}

func assertForbiddenError(t *testing.T, err error) {
	t.Helper()
	assertAppErrorCode(t, err, models.CodeForbidden)
}

func listingByID(listings map[uint]*models.Listing) func(context.Context, uint) (*models.Listing, error) {
	return func(_ context.Context, id uint) (*models.Listing, error) {
		l, ok := listings[id]
		if !ok {
			return nil, gorm.ErrRecordNotFound
		}
		return l, nil
	}
}
