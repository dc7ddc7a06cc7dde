package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductData datos del producto en la creación.
type ProductData struct {
	Name         string          `json:"name"`
	SKU          string          `json:"sku"`
	ProductType  string          `json:"product_type"`
	RegularPrice decimal.Decimal `json:"regular_price"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	Status       string          `json:"status,omitempty"`
}

// VariantRequest variante de un producto variable con su stock inicial.
type VariantRequest struct {
	Name          string          `json:"name"`
	SKU           string          `json:"sku"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity decimal.Decimal `json:"stock_quantity"`
}

// CreateProductRequest body para POST /api/products.
type CreateProductRequest struct {
	Product      ProductData      `json:"product_data"`
	InitialStock decimal.Decimal  `json:"initial_stock"`
	Variants     []VariantRequest `json:"variants,omitempty"`
}

// CreateProductResponse ids de todo lo creado en la transacción.
type CreateProductResponse struct {
	ProductID       string   `json:"product_id"`
	InventoryID     string   `json:"inventory_id"`
	InventoryIDs    []string `json:"inventory_ids"`
	LocationID      string   `json:"location_id"`
	LocationName    string   `json:"location_name"`
	VariantIDs      []string `json:"variant_ids,omitempty"`
	VariantsCreated int      `json:"variants_created"`
}

// VariantResponse salida de una variante.
type VariantResponse struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	SKU   string          `json:"sku"`
	Price decimal.Decimal `json:"price"`
}

// ProductResponse salida de un producto con variantes e inventario.
// Margin es null cuando el precio es cero.
type ProductResponse struct {
	ID           string              `json:"id"`
	VendorID     string              `json:"vendor_id"`
	Name         string              `json:"name"`
	SKU          string              `json:"sku"`
	ProductType  string              `json:"product_type"`
	RegularPrice decimal.Decimal     `json:"regular_price"`
	CostPrice    decimal.Decimal     `json:"cost_price"`
	Margin       decimal.NullDecimal `json:"margin"`
	Status       string              `json:"status"`
	Variants     []VariantResponse   `json:"variants,omitempty"`
	Inventory    []InventoryResponse `json:"inventory"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}
