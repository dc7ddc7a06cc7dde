package repository

import (
	"context"
	"time"

	"github.com/jhoicas/mercado-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// InventoryRepository define el puerto para las filas de inventario por (producto|variante, ubicación).
// Los métodos ForUpdate bloquean la fila hasta el fin de la transacción.
type InventoryRepository interface {
	Create(ctx context.Context, inv *entity.Inventory) error
	GetByID(ctx context.Context, id string) (*entity.Inventory, error)
	// GetForUpdate bloquea la fila por ID (SELECT FOR UPDATE); nil si no existe.
	GetForUpdate(ctx context.Context, id string) (*entity.Inventory, error)
	// FindForUpdate bloquea la fila por clave natural; nil si no existe.
	FindForUpdate(ctx context.Context, key entity.StockKey) (*entity.Inventory, error)
	// EnsureForUpdate crea la fila en cero si no existe y la devuelve bloqueada.
	EnsureForUpdate(ctx context.Context, vendorID string, key entity.StockKey) (*entity.Inventory, error)
	UpdateQuantity(ctx context.Context, id string, quantity decimal.Decimal, at time.Time) error
	ListByProduct(ctx context.Context, productID string) ([]*entity.Inventory, error)
}
