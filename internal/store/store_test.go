package store_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"magewoo/internal/database"
	"magewoo/internal/logger"
	"magewoo/internal/models"
	"magewoo/internal/store"
)

func newTestStore(t *testing.T) (*store.Store, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("sqlite://file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := database.New(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return store.New(db.DB, logger.New("error")), db.DB
}

func TestUpsertProductIdempotent(t *testing.T) {
	s, db := newTestStore(t)

	product := func() *models.Product {
		return &models.Product{SKU: "WID-1", Name: "Widget", Slug: "widget", Price: 9.99}
	}

	first, err := s.UpsertProduct("1001", product())
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := s.UpsertProduct("1001", product())
	require.NoError(t, err)
	assert.Equal(t, first, second, "re-running converges on the same local record")

	var productCount, mappingCount int64
	require.NoError(t, db.Model(&models.Product{}).Count(&productCount).Error)
	require.NoError(t, db.Model(&models.ExternalIDMapping{}).Count(&mappingCount).Error)
	assert.EqualValues(t, 1, productCount)
	assert.EqualValues(t, 1, mappingCount)
}

func TestUpsertProductUpdatesInPlace(t *testing.T) {
	s, db := newTestStore(t)

	localID, err := s.UpsertProduct("1001", &models.Product{SKU: "WID-1", Name: "Widget", Slug: "widget"})
	require.NoError(t, err)

	updated, err := s.UpsertProduct("1001", &models.Product{SKU: "WID-1", Name: "Widget v2", Slug: "widget", Price: 12.50})
	require.NoError(t, err)
	assert.Equal(t, localID, updated)

	var got models.Product
	require.NoError(t, db.First(&got, "id = ?", localID).Error)
	assert.Equal(t, "Widget v2", got.Name)
	assert.Equal(t, 12.50, got.Price)
}

func TestUpsertValidation(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.UpsertProduct("1", &models.Product{Name: "No SKU"})
	assert.True(t, store.IsValidation(err), "missing sku is a validation error, got %v", err)

	_, err = s.UpsertProduct("2", &models.Product{SKU: "X"})
	assert.True(t, store.IsValidation(err))

	_, err = s.UpsertCustomer("3", &models.Customer{FirstName: "No Email"})
	assert.True(t, store.IsValidation(err))

	_, err = s.UpsertCategory("4", &models.Category{})
	assert.True(t, store.IsValidation(err))

	_, err = s.UpsertOrder("5", &models.Order{})
	assert.True(t, store.IsValidation(err))
}

func TestUpsertAllKindsIdempotent(t *testing.T) {
	s, _ := newTestStore(t)

	for i := 0; i < 2; i++ {
		_, err := s.UpsertProduct("p1", &models.Product{SKU: "S", Name: "P", Slug: "p"})
		require.NoError(t, err)
		_, err = s.UpsertCategory("c1", &models.Category{Name: "C", Slug: "c"})
		require.NoError(t, err)
		_, err = s.UpsertCustomer("u1", &models.Customer{Email: "u@example.com"})
		require.NoError(t, err)
		_, err = s.UpsertOrder("o1", &models.Order{IncrementID: "100000001"})
		require.NoError(t, err)
	}

	for _, kind := range models.AllEntityKinds() {
		n, err := s.MigratedCount(kind)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n, "kind %s", kind)
	}
}

func TestFindLocalID(t *testing.T) {
	s, _ := newTestStore(t)

	_, found, err := s.FindLocalID(models.KindProducts, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	localID, err := s.UpsertProduct("1001", &models.Product{SKU: "WID-1", Name: "Widget", Slug: "widget"})
	require.NoError(t, err)

	got, found, err := s.FindLocalID(models.KindProducts, "1001")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, localID, got)
}
