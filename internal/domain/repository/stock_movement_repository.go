package repository

import (
	"context"

	"github.com/jhoicas/mercado-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// StockMovementRepository define el puerto del libro de stock (solo inserción).
type StockMovementRepository interface {
	// Create devuelve domain.ErrDuplicate si ya existe (inventory_id, reference_type, reference_id).
	Create(ctx context.Context, movement *entity.StockMovement) error
	FindByReference(ctx context.Context, inventoryID, referenceType, referenceID string) (*entity.StockMovement, error)
	SumByInventory(ctx context.Context, inventoryID string) (decimal.Decimal, error)
	ListByInventory(ctx context.Context, inventoryID string, limit, offset int) ([]*entity.StockMovement, error)
}
