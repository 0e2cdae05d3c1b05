package migration_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"magewoo/internal/migration"
	"magewoo/internal/models"
	"magewoo/internal/services/magento"
)

// fakeRefs resolves external IDs from a fixed map keyed "kind/externalID".
type fakeRefs map[string]string

func (f fakeRefs) FindLocalID(kind models.EntityKind, externalID string) (string, bool, error) {
	localID, ok := f[string(kind)+"/"+externalID]
	return localID, ok, nil
}

func strptr(s string) *string { return &s }

func f64ptr(f float64) *float64 { return &f }

func i64ptr(i int64) *int64 { return &i }

func boolptr(b bool) *bool { return &b }

func TestProductImageDedup(t *testing.T) {
	n := migration.NewNormalizer(fakeRefs{})

	raw := &magento.RawProduct{
		EntityID: 1,
		SKU:      "WID-1",
		Name:     "Widget",
		Status:   1,
		MediaGallery: []magento.RawMediaEntry{
			{File: "/w/widget-front.jpg", Label: "Front", Position: 1},
			{File: "/w/widget-back.jpg", Label: "Back", Position: 2},
		},
		// image duplicates a gallery entry, thumbnail is gallery-only via
		// duplication, small_image exists only as a singular field.
		Image:      strptr("/w/widget-front.jpg"),
		SmallImage: strptr("/w/widget-small.jpg"),
		Thumbnail:  strptr("/w/widget-back.jpg"),
	}

	product, _ := n.Product(raw)

	paths := make([]string, len(product.Images))
	for i, img := range product.Images {
		paths[i] = img.Path
	}
	// Gallery order first, then the one genuinely new singular path.
	assert.Equal(t, []string{"/w/widget-front.jpg", "/w/widget-back.jpg", "/w/widget-small.jpg"}, paths)

	seen := map[string]int{}
	for _, p := range paths {
		seen[p]++
	}
	for p, count := range seen {
		assert.Equal(t, 1, count, "image %s attached more than once", p)
	}
}

func TestProductImageDedupWithinGallery(t *testing.T) {
	n := migration.NewNormalizer(fakeRefs{})

	raw := &magento.RawProduct{
		EntityID: 1, SKU: "X", Name: "X", Status: 1,
		MediaGallery: []magento.RawMediaEntry{
			{File: "/a.jpg", Position: 1},
			{File: "/a.jpg", Position: 2},
			{File: "", Position: 3},
		},
	}

	product, _ := n.Product(raw)
	require.Len(t, product.Images, 1)
	assert.Equal(t, "/a.jpg", product.Images[0].Path)
}

func TestProductCategoryResolution(t *testing.T) {
	n := migration.NewNormalizer(fakeRefs{"categories/10": "local-cat-10"})

	raw := &magento.RawProduct{
		EntityID:    1,
		SKU:         "WID-1",
		Name:        "Widget",
		Status:      1,
		CategoryIDs: []int64{10, 11},
	}

	product, warnings := n.Product(raw)

	assert.Equal(t, []string{"local-cat-10"}, product.CategoryIDs, "unresolved membership is dropped, not fatal")
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "category 11")
}

func TestProductDefaults(t *testing.T) {
	n := migration.NewNormalizer(fakeRefs{})

	product, warnings := n.Product(&magento.RawProduct{
		EntityID: 5,
		SKU:      "BARE-1",
		Name:     "Bare Product",
		Status:   1,
	})

	assert.Empty(t, warnings)
	assert.Equal(t, 0.0, product.Price, "absent price defaults to 0")
	assert.Equal(t, 0, product.StockQuantity)
	assert.False(t, product.InStock)
	assert.Equal(t, "bare-product", product.Slug, "slug derived from name")
	assert.Empty(t, product.Images)
}

func TestProductExplicitFields(t *testing.T) {
	n := migration.NewNormalizer(fakeRefs{})

	product, _ := n.Product(&magento.RawProduct{
		EntityID:   6,
		SKU:        "FULL-1",
		Name:       "Full Product",
		URLKey:     strptr("full-product-custom"),
		Price:      f64ptr(19.99),
		Qty:        f64ptr(7),
		IsInStock:  boolptr(true),
		Status:     1,
		Visibility: 4,
	})

	assert.Equal(t, "full-product-custom", product.Slug)
	assert.Equal(t, 19.99, product.Price)
	assert.Equal(t, 7, product.StockQuantity)
	assert.True(t, product.InStock)
	assert.True(t, product.Visible)
}

func TestProductDisabledNotVisible(t *testing.T) {
	n := migration.NewNormalizer(fakeRefs{})
	product, _ := n.Product(&magento.RawProduct{EntityID: 7, SKU: "D", Name: "D", Status: 2, Visibility: 4})
	assert.False(t, product.Visible)
}

func TestCategoryParentResolution(t *testing.T) {
	n := migration.NewNormalizer(fakeRefs{"categories/3": "local-parent"})

	child, warnings := n.Category(&magento.RawCategory{
		EntityID: 4, Name: "Shoes", ParentID: i64ptr(3),
	})
	assert.Empty(t, warnings)
	require.NotNil(t, child.ParentID)
	assert.Equal(t, "local-parent", *child.ParentID)

	// Magento root categories map to "no parent".
	top, warnings := n.Category(&magento.RawCategory{
		EntityID: 5, Name: "Clothing", ParentID: i64ptr(2),
	})
	assert.Empty(t, warnings)
	assert.Nil(t, top.ParentID)

	// Unresolved parent degrades to a warning.
	orphan, warnings := n.Category(&magento.RawCategory{
		EntityID: 6, Name: "Hats", ParentID: i64ptr(99),
	})
	assert.Nil(t, orphan.ParentID)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "parent category 99")
}

func TestCategoryFlagDefaults(t *testing.T) {
	n := migration.NewNormalizer(fakeRefs{})

	cat, _ := n.Category(&magento.RawCategory{EntityID: 4, Name: "Sale Items"})
	assert.True(t, cat.Active)
	assert.True(t, cat.IncludeInMenu)
	assert.Equal(t, "sale-items", cat.Slug)

	hidden, _ := n.Category(&magento.RawCategory{
		EntityID: 5, Name: "Archive", IsActive: boolptr(false), IncludeInMenu: boolptr(false),
	})
	assert.False(t, hidden.Active)
	assert.False(t, hidden.IncludeInMenu)
}

func TestCustomerNormalization(t *testing.T) {
	n := migration.NewNormalizer(fakeRefs{})

	customer, warnings := n.Customer(&magento.RawCustomer{
		EntityID:  9,
		Email:     "jo@example.com",
		Firstname: "Jo",
		Lastname:  "Bloggs",
		Group:     "General",
		Addresses: []magento.RawAddress{
			{City: "Leeds", DefaultBilling: true},
			{City: "York", DefaultShipping: true},
		},
	})

	assert.Empty(t, warnings)
	assert.Equal(t, "jo@example.com", customer.Email)
	require.Len(t, customer.Addresses, 2)
	assert.True(t, customer.Addresses[0].DefaultBilling)
	assert.True(t, customer.Addresses[1].DefaultShipping)
}

func TestOrderCustomerResolution(t *testing.T) {
	n := migration.NewNormalizer(fakeRefs{"customers/42": "local-cust-42"})

	linked, warnings := n.Order(&magento.RawOrder{
		EntityID: 100, IncrementID: "100000100", CustomerID: i64ptr(42),
		GrandTotal: f64ptr(55.50),
	})
	assert.Empty(t, warnings)
	require.NotNil(t, linked.CustomerID)
	assert.Equal(t, "local-cust-42", *linked.CustomerID)
	assert.Equal(t, 55.50, linked.GrandTotal)

	// Guest order: no customer reference, no warning.
	guest, warnings := n.Order(&magento.RawOrder{
		EntityID: 101, IncrementID: "100000101",
	})
	assert.Empty(t, warnings)
	assert.Nil(t, guest.CustomerID)
	assert.Equal(t, 0.0, guest.GrandTotal, "absent totals default to 0")

	// Unresolved customer: order still migrates, relationship omitted.
	unlinked, warnings := n.Order(&magento.RawOrder{
		EntityID: 102, IncrementID: "100000102", CustomerID: i64ptr(77),
	})
	assert.Nil(t, unlinked.CustomerID)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "customer 77")
}

func TestOrderLineItems(t *testing.T) {
	n := migration.NewNormalizer(fakeRefs{})

	order, _ := n.Order(&magento.RawOrder{
		EntityID:    103,
		IncrementID: "100000103",
		Items: []magento.RawOrderItem{
			{SKU: "WID-1", Name: "Widget", QtyOrdered: 2, Price: 9.99, RowTotal: 19.98},
		},
		BillingAddress: &magento.RawAddress{City: "Leeds"},
	})

	require.Len(t, order.Items, 1)
	assert.Equal(t, "WID-1", order.Items[0].SKU)
	assert.Equal(t, 2.0, order.Items[0].Quantity)
	require.NotNil(t, order.BillingAddress)
	assert.Equal(t, "Leeds", order.BillingAddress.City)
	assert.Nil(t, order.ShippingAddress)
}
