package magento

import "encoding/json"

// Raw records as served by the connector endpoint. Optional fields are
// pointers so "absent" and "zero" stay distinguishable until normalization.

// RawProduct is a Magento catalog product.
type RawProduct struct {
	EntityID         int64           `json:"entity_id"`
	SKU              string          `json:"sku"`
	Name             string          `json:"name"`
	Description      *string         `json:"description"`
	ShortDescription *string         `json:"short_description"`
	Price            *float64        `json:"price"`
	Qty              *float64        `json:"qty"`
	IsInStock        *bool           `json:"is_in_stock"`
	Status           int             `json:"status"`     // 1 enabled, 2 disabled
	Visibility       int             `json:"visibility"` // 1 not visible individually
	URLKey           *string         `json:"url_key"`
	CategoryIDs      []int64         `json:"category_ids"`
	MediaGallery     []RawMediaEntry `json:"media_gallery"`
	Image            *string         `json:"image"`
	SmallImage       *string         `json:"small_image"`
	Thumbnail        *string         `json:"thumbnail"`
}

// RawMediaEntry is one gallery image. The same file frequently also appears
// in the product's image/small_image/thumbnail fields.
type RawMediaEntry struct {
	File     string `json:"file"`
	Label    string `json:"label"`
	Position int    `json:"position"`
	Disabled bool   `json:"disabled"`
}

type RawCategory struct {
	EntityID      int64   `json:"entity_id"`
	Name          string  `json:"name"`
	URLKey        *string `json:"url_key"`
	Description   *string `json:"description"`
	ParentID      *int64  `json:"parent_id"`
	IsActive      *bool   `json:"is_active"`
	IncludeInMenu *bool   `json:"include_in_menu"`
	Position      int     `json:"position"`
}

type RawCustomer struct {
	EntityID  int64        `json:"entity_id"`
	Email     string       `json:"email"`
	Firstname string       `json:"firstname"`
	Lastname  string       `json:"lastname"`
	Group     string       `json:"group"`
	Addresses []RawAddress `json:"addresses"`
}

type RawAddress struct {
	Firstname       string `json:"firstname"`
	Lastname        string `json:"lastname"`
	Street          string `json:"street"`
	City            string `json:"city"`
	Region          string `json:"region"`
	Postcode        string `json:"postcode"`
	CountryID       string `json:"country_id"`
	Telephone       string `json:"telephone"`
	DefaultBilling  bool   `json:"default_billing"`
	DefaultShipping bool   `json:"default_shipping"`
}

type RawOrder struct {
	EntityID        int64          `json:"entity_id"`
	IncrementID     string         `json:"increment_id"`
	Status          string         `json:"status"`
	State           string         `json:"state"`
	Subtotal        *float64       `json:"subtotal"`
	ShippingAmount  *float64       `json:"shipping_amount"`
	TaxAmount       *float64       `json:"tax_amount"`
	GrandTotal      *float64       `json:"grand_total"`
	CustomerID      *int64         `json:"customer_id"` // nil for guest checkout
	CustomerEmail   string         `json:"customer_email"`
	BillingAddress  *RawAddress    `json:"billing_address"`
	ShippingAddress *RawAddress    `json:"shipping_address"`
	Items           []RawOrderItem `json:"items"`
}

type RawOrderItem struct {
	SKU        string  `json:"sku"`
	Name       string  `json:"name"`
	QtyOrdered float64 `json:"qty_ordered"`
	Price      float64 `json:"price"`
	RowTotal   float64 `json:"row_total"`
}

// envelope is the connector's common response shape: a success flag plus
// either an error message or a type-specific payload.
type envelope struct {
	Success    bool              `json:"success"`
	Message    string            `json:"message"`
	Total      int               `json:"total"`
	Count      int               `json:"count"`
	Counts     map[string]int    `json:"counts"`
	Store      string            `json:"store"`
	Version    string            `json:"version"`
	Accessible bool              `json:"accessible"`
	Products   []json.RawMessage `json:"products"`
	Categories []json.RawMessage `json:"categories"`
	Customers  []json.RawMessage `json:"customers"`
	Orders     []json.RawMessage `json:"orders"`
}
