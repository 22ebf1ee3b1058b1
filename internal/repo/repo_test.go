package repo

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vmarkelov/marketplace/internal/models"
)

func initTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Product{}, &models.Comment{}, &models.RefreshToken{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	return db
}

func createProduct(t *testing.T, db *gorm.DB, age time.Duration, active bool) *models.Product {
	t.Helper()

	prod := models.Product{
		Name:         "test_product",
		Price:        9.99,
		CreatorID:    1,
		CreatorEmail: "creator@example.com",
		IsActive:     active,
		CreatedAt:    time.Now().Add(-age),
	}
	require.NoError(t, db.Create(&prod).Error)
	return &prod
}

// The active flag must round-trip exactly as given: a snapshot saved with
// IsActive=false has to come back inactive, not silently flipped by a column
// default.
func TestCreateProductPersistsInactiveFlag(t *testing.T) {
	db := initTestDB(t)
	r := NewGormRepo(db)
	ctx := context.Background()

	prod := models.Product{
		Name:         "dormant",
		Price:        1,
		CreatorID:    1,
		CreatorEmail: "creator@example.com",
		IsActive:     false,
		CreatedAt:    time.Now(),
	}
	require.NoError(t, r.CreateProduct(ctx, &prod))

	got, err := r.GetProduct(ctx, prod.ID)
	require.NoError(t, err)
	require.False(t, got.IsActive)

	active := models.Product{
		Name:         "live",
		Price:        1,
		CreatorID:    1,
		CreatorEmail: "creator@example.com",
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
	require.NoError(t, r.CreateProduct(ctx, &active))

	got, err = r.GetProduct(ctx, active.ID)
	require.NoError(t, err)
	require.True(t, got.IsActive)
}

func TestFindExpiredActive(t *testing.T) {
	db := initTestDB(t)
	r := NewGormRepo(db)
	ctx := context.Background()
	window := 30 * 24 * time.Hour

	expired := createProduct(t, db, window+time.Second, true)
	createProduct(t, db, window-time.Second, true)  // too fresh
	createProduct(t, db, window+time.Second, false) // already inactive

	items, err := r.FindExpiredActive(ctx, window)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, expired.ID, items[0].ID)
}

func TestDeactivateIfExpired(t *testing.T) {
	db := initTestDB(t)
	r := NewGormRepo(db)
	ctx := context.Background()
	window := 30 * 24 * time.Hour

	prod := createProduct(t, db, window+time.Hour, true)

	flipped, err := r.DeactivateIfExpired(ctx, prod.ID, window)
	require.NoError(t, err)
	require.True(t, flipped)

	got, err := r.GetProduct(ctx, prod.ID)
	require.NoError(t, err)
	require.False(t, got.IsActive)

	// Second attempt is a no-op: the guard no longer matches.
	flipped, err = r.DeactivateIfExpired(ctx, prod.ID, window)
	require.NoError(t, err)
	require.False(t, flipped)
}

func TestDeactivateIfExpiredLeavesFreshProducts(t *testing.T) {
	db := initTestDB(t)
	r := NewGormRepo(db)
	ctx := context.Background()
	window := 30 * 24 * time.Hour

	prod := createProduct(t, db, window-time.Hour, true)

	flipped, err := r.DeactivateIfExpired(ctx, prod.ID, window)
	require.NoError(t, err)
	require.False(t, flipped)

	got, err := r.GetProduct(ctx, prod.ID)
	require.NoError(t, err)
	require.True(t, got.IsActive)
}

func TestActivateIfInactive(t *testing.T) {
	db := initTestDB(t)
	r := NewGormRepo(db)
	ctx := context.Background()

	prod := createProduct(t, db, time.Hour, false)

	flipped, err := r.ActivateIfInactive(ctx, prod.ID)
	require.NoError(t, err)
	require.True(t, flipped)

	got, err := r.GetProduct(ctx, prod.ID)
	require.NoError(t, err)
	require.True(t, got.IsActive)

	flipped, err = r.ActivateIfInactive(ctx, prod.ID)
	require.NoError(t, err)
	require.False(t, flipped)
}

func TestGetActiveProductsFiltersInactive(t *testing.T) {
	db := initTestDB(t)
	r := NewGormRepo(db)
	ctx := context.Background()

	createProduct(t, db, time.Hour, true)
	createProduct(t, db, time.Hour, false)
	createProduct(t, db, time.Hour, true)

	total, items, err := r.GetActiveProducts(ctx, 0, 10)
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, items, 2)
	for _, p := range items {
		require.True(t, p.IsActive)
	}
}

func TestRecentCommentsNewestFirst(t *testing.T) {
	db := initTestDB(t)
	r := NewGormRepo(db)
	ctx := context.Background()

	prod := createProduct(t, db, time.Hour, true)

	old := models.Comment{ProductID: prod.ID, UserEmail: "a@example.com", Text: "old", CreatedAt: time.Now().Add(-time.Hour)}
	recent := models.Comment{ProductID: prod.ID, UserEmail: "b@example.com", Text: "recent", CreatedAt: time.Now()}
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Create(&recent).Error)

	items, err := r.GetRecentComments(ctx, prod.ID, 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "recent", items[0].Text)
	require.Equal(t, "old", items[1].Text)
}
