package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Inventory es la cantidad actual de un producto (o variante) en una ubicación.
// Quantity es una caché materializada de la suma de sus StockMovement.
type Inventory struct {
	ID         string
	VendorID   string
	ProductID  string
	VariantID  *string
	LocationID string
	Quantity   decimal.Decimal
	UpdatedAt  time.Time
}

// StockKey identifica una fila de inventario por su clave natural.
type StockKey struct {
	ProductID  string
	VariantID  *string
	LocationID string
}

// Key devuelve la clave natural de la fila.
func (i *Inventory) Key() StockKey {
	return StockKey{ProductID: i.ProductID, VariantID: i.VariantID, LocationID: i.LocationID}
}
