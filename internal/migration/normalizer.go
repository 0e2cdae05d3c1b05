package migration

import (
	"fmt"
	"strconv"

	"magewoo/internal/models"
	"magewoo/internal/services/magento"
)

// refResolver resolves external IDs of already-migrated entities. Satisfied
// by store.Store.
type refResolver interface {
	FindLocalID(kind models.EntityKind, externalID string) (string, bool, error)
}

// Normalizer maps raw Magento records into local catalog entities. Apart
// from cross-reference lookups it is side-effect free; unresolved references
// degrade to warnings so migrations can run out of dependency order.
type Normalizer struct {
	refs refResolver
}

func NewNormalizer(refs refResolver) *Normalizer {
	return &Normalizer{refs: refs}
}

// Product maps a raw product. Media references from the gallery and the
// singular image fields are merged into one list deduplicated by path:
// gallery entries keep their order, singular-field paths not already present
// are appended at the end. No image is ever attached twice.
func (n *Normalizer) Product(raw *magento.RawProduct) (*models.Product, []string) {
	var warnings []string

	qty := 0
	if raw.Qty != nil {
		qty = int(*raw.Qty)
	}
	inStock := qty > 0
	if raw.IsInStock != nil {
		inStock = *raw.IsInStock
	}

	price := 0.0
	if raw.Price != nil {
		price = *raw.Price
	}

	slug := ""
	if raw.URLKey != nil {
		slug = *raw.URLKey
	}
	if slug == "" {
		slug = Slugify(raw.Name)
	}

	var categoryIDs []string
	for _, catID := range raw.CategoryIDs {
		ext := strconv.FormatInt(catID, 10)
		localID, found, err := n.refs.FindLocalID(models.KindCategories, ext)
		if err != nil || !found {
			warnings = append(warnings, fmt.Sprintf("category %s not migrated yet, membership skipped", ext))
			continue
		}
		categoryIDs = append(categoryIDs, localID)
	}

	return &models.Product{
		SKU:              raw.SKU,
		Name:             raw.Name,
		Slug:             slug,
		Description:      raw.Description,
		ShortDescription: raw.ShortDescription,
		Price:            price,
		StockQuantity:    qty,
		InStock:          inStock,
		Visible:          raw.Status == 1 && raw.Visibility != 1,
		CategoryIDs:      categoryIDs,
		Images:           mergeImages(raw),
	}, warnings
}

// mergeImages is the dedup pass: gallery first in its own order, then any
// singular-field path (base, small, thumbnail) that the gallery did not
// already carry.
func mergeImages(raw *magento.RawProduct) []models.ProductImage {
	images := make([]models.ProductImage, 0, len(raw.MediaGallery))
	seen := make(map[string]bool, len(raw.MediaGallery))

	for _, entry := range raw.MediaGallery {
		if entry.File == "" || seen[entry.File] {
			continue
		}
		seen[entry.File] = true
		images = append(images, models.ProductImage{
			Path:     entry.File,
			Label:    entry.Label,
			Position: entry.Position,
			Disabled: entry.Disabled,
		})
	}

	for _, singular := range []*string{raw.Image, raw.SmallImage, raw.Thumbnail} {
		if singular == nil || *singular == "" || seen[*singular] {
			continue
		}
		seen[*singular] = true
		images = append(images, models.ProductImage{
			Path:     *singular,
			Position: len(images),
		})
	}

	return images
}

// magentoRootCategoryID is the highest entity ID of Magento's built-in root
// categories; parents at or below it map to "no parent" locally.
const magentoRootCategoryID = 2

func (n *Normalizer) Category(raw *magento.RawCategory) (*models.Category, []string) {
	var warnings []string

	slug := ""
	if raw.URLKey != nil {
		slug = *raw.URLKey
	}
	if slug == "" {
		slug = Slugify(raw.Name)
	}

	var parentID *string
	if raw.ParentID != nil && *raw.ParentID > magentoRootCategoryID {
		ext := strconv.FormatInt(*raw.ParentID, 10)
		localID, found, err := n.refs.FindLocalID(models.KindCategories, ext)
		if err != nil || !found {
			warnings = append(warnings, fmt.Sprintf("parent category %s not migrated yet", ext))
		} else {
			parentID = &localID
		}
	}

	active := true
	if raw.IsActive != nil {
		active = *raw.IsActive
	}
	inMenu := true
	if raw.IncludeInMenu != nil {
		inMenu = *raw.IncludeInMenu
	}

	return &models.Category{
		Name:          raw.Name,
		Slug:          slug,
		Description:   raw.Description,
		ParentID:      parentID,
		Active:        active,
		IncludeInMenu: inMenu,
		Position:      raw.Position,
	}, warnings
}

func (n *Normalizer) Customer(raw *magento.RawCustomer) (*models.Customer, []string) {
	addresses := make([]models.CustomerAddress, 0, len(raw.Addresses))
	for _, a := range raw.Addresses {
		addresses = append(addresses, convertAddress(a))
	}

	return &models.Customer{
		Email:         raw.Email,
		FirstName:     raw.Firstname,
		LastName:      raw.Lastname,
		CustomerGroup: raw.Group,
		Addresses:     addresses,
	}, nil
}

func (n *Normalizer) Order(raw *magento.RawOrder) (*models.Order, []string) {
	var warnings []string

	var customerID *string
	if raw.CustomerID != nil {
		ext := strconv.FormatInt(*raw.CustomerID, 10)
		localID, found, err := n.refs.FindLocalID(models.KindCustomers, ext)
		if err != nil || !found {
			warnings = append(warnings, fmt.Sprintf("customer %s not migrated yet, order left unlinked", ext))
		} else {
			customerID = &localID
		}
	}

	items := make([]models.OrderItem, 0, len(raw.Items))
	for _, it := range raw.Items {
		items = append(items, models.OrderItem{
			SKU:      it.SKU,
			Name:     it.Name,
			Quantity: it.QtyOrdered,
			Price:    it.Price,
			RowTotal: it.RowTotal,
		})
	}

	var billing, shipping *models.CustomerAddress
	if raw.BillingAddress != nil {
		a := convertAddress(*raw.BillingAddress)
		billing = &a
	}
	if raw.ShippingAddress != nil {
		a := convertAddress(*raw.ShippingAddress)
		shipping = &a
	}

	return &models.Order{
		IncrementID:     raw.IncrementID,
		Status:          raw.Status,
		State:           raw.State,
		Subtotal:        deref(raw.Subtotal),
		ShippingAmount:  deref(raw.ShippingAmount),
		TaxAmount:       deref(raw.TaxAmount),
		GrandTotal:      deref(raw.GrandTotal),
		CustomerID:      customerID,
		BillingAddress:  billing,
		ShippingAddress: shipping,
		Items:           items,
	}, warnings
}

func convertAddress(a magento.RawAddress) models.CustomerAddress {
	return models.CustomerAddress{
		FirstName:       a.Firstname,
		LastName:        a.Lastname,
		Street:          a.Street,
		City:            a.City,
		Region:          a.Region,
		Postcode:        a.Postcode,
		CountryID:       a.CountryID,
		Telephone:       a.Telephone,
		DefaultBilling:  a.DefaultBilling,
		DefaultShipping: a.DefaultShipping,
	}
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
