package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de producto.
const (
	ProductTypeSimple   = "simple"
	ProductTypeVariable = "variable"
)

// Estados de producto.
const (
	ProductStatusActive   = "active"
	ProductStatusDraft    = "draft"
	ProductStatusArchived = "archived"
)

// Product representa un producto del catálogo de un vendedor.
// Un producto simple tiene una fila de inventario propia; uno variable la tiene por variante.
type Product struct {
	ID           string
	VendorID     string
	Name         string
	SKU          string // único por vendedor
	ProductType  string
	RegularPrice decimal.Decimal
	CostPrice    decimal.Decimal
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsVariable indica si el producto maneja inventario por variante.
func (p *Product) IsVariable() bool {
	return p.ProductType == ProductTypeVariable
}

// Variant es una unidad comprable de un producto variable (ej. un peso concreto).
type Variant struct {
	ID        string
	ProductID string
	VendorID  string
	Name      string
	SKU       string
	Price     decimal.Decimal
	CreatedAt time.Time
}
