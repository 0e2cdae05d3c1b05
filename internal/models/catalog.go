package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is the migrated local product record.
type Product struct {
	ID               string         `json:"id" gorm:"primary_key"`
	SKU              string         `json:"sku" gorm:"not null"`
	Name             string         `json:"name" gorm:"not null"`
	Slug             string         `json:"slug" gorm:"not null"`
	Description      *string        `json:"description"`
	ShortDescription *string        `json:"short_description"`
	Price            float64        `json:"price" gorm:"type:decimal(12,4)"`
	StockQuantity    int            `json:"stock_quantity"`
	InStock          bool           `json:"in_stock" gorm:"default:true"`
	Visible          bool           `json:"visible" gorm:"default:true"`
	CategoryIDs      []string       `json:"category_ids" gorm:"serializer:json"`
	Images           []ProductImage `json:"images" gorm:"serializer:json"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// ProductImage is one attached media reference. Path is the dedup key: a
// product never carries the same path twice.
type ProductImage struct {
	Path     string `json:"path"`
	Label    string `json:"label"`
	Position int    `json:"position"`
	Disabled bool   `json:"disabled"`
}

type Category struct {
	ID            string    `json:"id" gorm:"primary_key"`
	Name          string    `json:"name" gorm:"not null"`
	Slug          string    `json:"slug" gorm:"not null"`
	Description   *string   `json:"description"`
	ParentID      *string   `json:"parent_id"` // nil for top-level categories
	Active        bool      `json:"active" gorm:"default:true"`
	IncludeInMenu bool      `json:"include_in_menu" gorm:"default:true"`
	Position      int       `json:"position"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Customer struct {
	ID            string            `json:"id" gorm:"primary_key"`
	Email         string            `json:"email" gorm:"not null;index"`
	FirstName     string            `json:"first_name"`
	LastName      string            `json:"last_name"`
	CustomerGroup string            `json:"customer_group"`
	Addresses     []CustomerAddress `json:"addresses" gorm:"serializer:json"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

type CustomerAddress struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Street          string `json:"street"`
	City            string `json:"city"`
	Region          string `json:"region"`
	Postcode        string `json:"postcode"`
	CountryID       string `json:"country_id"`
	Telephone       string `json:"telephone"`
	DefaultBilling  bool   `json:"default_billing"`
	DefaultShipping bool   `json:"default_shipping"`
}

type Order struct {
	ID              string           `json:"id" gorm:"primary_key"`
	IncrementID     string           `json:"increment_id" gorm:"not null"`
	Status          string           `json:"status"`
	State           string           `json:"state"`
	Subtotal        float64          `json:"subtotal" gorm:"type:decimal(12,4)"`
	ShippingAmount  float64          `json:"shipping_amount" gorm:"type:decimal(12,4)"`
	TaxAmount       float64          `json:"tax_amount" gorm:"type:decimal(12,4)"`
	GrandTotal      float64          `json:"grand_total" gorm:"type:decimal(12,4)"`
	CustomerID      *string          `json:"customer_id"` // nil for guest orders
	BillingAddress  *CustomerAddress `json:"billing_address" gorm:"serializer:json"`
	ShippingAddress *CustomerAddress `json:"shipping_address" gorm:"serializer:json"`
	Items           []OrderItem      `json:"items" gorm:"serializer:json"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

type OrderItem struct {
	SKU      string  `json:"sku"`
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
	RowTotal float64 `json:"row_total"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	return nil
}
