package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"marketplace/internal/database"
	"marketplace/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	return gormDB, mock
}

func setupSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard, TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

func seedListing(t *testing.T, repo ListingRepository, title, content, seller string, createdAt time.Time, tags ...string) *models.Listing {
	t.Helper()
	l := &models.Listing{
		Title:     title,
		Content:   content,
		Price:     1000,
		Town:      "Mapo-gu",
		Status:    models.ListingStatusOnSale,
		SellerUID: seller,
		CreatedAt: createdAt,
	}
	require.NoError(t, repo.Create(context.Background(), l, tags))
	return l
}

func titles(listings []*models.Listing) []string {
	out := make([]string, 0, len(listings))
	for _, l := range listings {
		out = append(out, l.Title)
	}
	return out
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\%`, escapeLike("50%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `c:\\tmp`, escapeLike(`c:\tmp`))
	assert.Equal(t, "bike", escapeLike("bike"))
}

func TestListingRepository_SearchSQL(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewListingRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`LOWER(title) LIKE $1 ESCAPE '\' OR LOWER(content) LIKE $2 ESCAPE '\'`)).
		WithArgs(`%50\%%`, `%50\%%`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title"}))

	listings, err := repo.Search(context.Background(), "  50% ")
	require.NoError(t, err)
	assert.Empty(t, listings)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepository_SoftDeleteSQL(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewListingRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "listings" SET "deleted_at"=`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(t, repo.SoftDelete(context.Background(), 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepository_UpdateStatusSQL(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{"Updated", 1, nil},
		{"Missing", 0, gorm.ErrRecordNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			repo := NewListingRepository(db)

			mock.ExpectBegin()
			mock.ExpectExec(regexp.QuoteMeta(`UPDATE "listings" SET "status"=$1`)).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))
			mock.ExpectCommit()

			err := repo.UpdateStatus(context.Background(), 3, models.ListingStatusReserved)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestListingRepository_HasTradeSQL(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewListingRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "trade_histories" WHERE listing_id = $1 AND buyer_uid = $2`)).
		WithArgs(4, "buyer").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	ok, err := repo.HasTrade(context.Background(), 4, "buyer")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepository_Search(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewListingRepository(db)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	seedListing(t, repo, "Road Bike", "barely used", "s1", base)
	seedListing(t, repo, "Desk", "oak desk, fits a BIKE helmet", "s1", base.Add(time.Hour))
	seedListing(t, repo, "50% off lamp", "lamp", "s2", base.Add(2*time.Hour))
	gone := seedListing(t, repo, "Bike rack", "wall mount", "s2", base.Add(3*time.Hour))
	require.NoError(t, repo.SoftDelete(ctx, gone.ID))

	all, err := repo.Search(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"50% off lamp", "Desk", "Road Bike"}, titles(all))

	bikes, err := repo.Search(ctx, "bike")
	require.NoError(t, err)
	assert.Equal(t, []string{"Desk", "Road Bike"}, titles(bikes))

	pct, err := repo.Search(ctx, "50%")
	require.NoError(t, err)
	assert.Equal(t, []string{"50% off lamp"}, titles(pct))

	underscore, err := repo.Search(ctx, "_")
	require.NoError(t, err)
	assert.Empty(t, underscore)
}

func TestListingRepository_CreateWithTags(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewListingRepository(db)
	ctx := context.Background()
	now := time.Now()

	first := seedListing(t, repo, "Chair", "wooden", "s1", now, "furniture", "wood")
	seedListing(t, repo, "Table", "wooden", "s1", now, "wood")

	var tagCount int64
	require.NoError(t, db.Model(&models.Tag{}).Count(&tagCount).Error)
	assert.Equal(t, int64(2), tagCount)

	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"furniture", "wood"}, got.TagNames())
	assert.Equal(t, models.ListingStatusOnSale, got.Status)
}

func TestListingRepository_GetByID_Deleted(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewListingRepository(db)
	ctx := context.Background()

	l := seedListing(t, repo, "Lamp", "bright", "s1", time.Now())
	require.NoError(t, repo.SoftDelete(ctx, l.ID))
	require.NoError(t, repo.SoftDelete(ctx, l.ID))

	_, err := repo.GetByID(ctx, l.ID)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	stored, err := repo.GetAnyByID(ctx, l.ID)
	require.NoError(t, err)
	assert.True(t, stored.DeletedAt.Valid)

	_, err = repo.GetAnyByID(ctx, 9999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestListingRepository_AddPhotosAppends(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewListingRepository(db)
	ctx := context.Background()

	l := seedListing(t, repo, "Camera", "film", "s1", time.Now())

	require.NoError(t, repo.AddPhotos(ctx, l.ID, []*models.Photo{{Path: "/photos/a"}, {Path: "/photos/b"}}))
	require.NoError(t, repo.AddPhotos(ctx, l.ID, []*models.Photo{{Path: "/photos/c"}}))
	require.NoError(t, repo.AddPhotos(ctx, l.ID, nil))

	got, err := repo.GetByID(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, got.Photos, 3)
	for i, want := range []string{"/photos/a", "/photos/b", "/photos/c"} {
		assert.Equal(t, want, got.Photos[i].Path)
		assert.Equal(t, i, got.Photos[i].Position)
	}
	assert.Equal(t, "/photos/a", got.Thumbnail())
}

func TestListingRepository_CompleteTradeAndPurchases(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewListingRepository(db)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	older := seedListing(t, repo, "Older", "x", "seller", base)
	newer := seedListing(t, repo, "Newer", "x", "seller", base.Add(time.Hour))

	trade, err := repo.CompleteTrade(ctx, older.ID, "seller", "buyer")
	require.NoError(t, err)
	assert.NotZero(t, trade.ID)

	_, err = repo.CompleteTrade(ctx, older.ID, "seller", "other")
	assert.ErrorIs(t, err, ErrListingUnavailable)

	_, err = repo.CompleteTrade(ctx, newer.ID, "someone-else", "buyer")
	assert.ErrorIs(t, err, ErrListingUnavailable)

	_, err = repo.CompleteTrade(ctx, newer.ID, "seller", "buyer")
	require.NoError(t, err)

	sold, err := repo.GetByID(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ListingStatusSold, sold.Status)

	// Purchases stay visible after the seller deletes the listing.
	require.NoError(t, repo.SoftDelete(ctx, older.ID))

	bought, err := repo.ListPurchasedBy(ctx, "buyer")
	require.NoError(t, err)
	assert.Equal(t, []string{"Newer", "Older"}, titles(bought))

	has, err := repo.HasTrade(ctx, older.ID, "buyer")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = repo.HasTrade(ctx, older.ID, "other")
	require.NoError(t, err)
	assert.False(t, has)

	selling, err := repo.ListBySeller(ctx, "seller")
	require.NoError(t, err)
	assert.Equal(t, []string{"Newer"}, titles(selling))
}

func TestListingRepository_CompleteTradeDeleted(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewListingRepository(db)
	ctx := context.Background()

	l := seedListing(t, repo, "Gone", "x", "seller", time.Now())
	require.NoError(t, repo.SoftDelete(ctx, l.ID))

	_, err := repo.CompleteTrade(ctx, l.ID, "seller", "buyer")
	assert.ErrorIs(t, err, ErrListingUnavailable)
}
