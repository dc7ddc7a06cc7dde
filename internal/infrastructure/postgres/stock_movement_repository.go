package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/mercado-ledger/internal/domain"
	"github.com/jhoicas/mercado-ledger/internal/domain/entity"
	"github.com/jhoicas/mercado-ledger/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

const movementColumns = `id, inventory_id, quantity_delta, quantity_before, quantity_after,
	reference_type, COALESCE(reference_id, ''), reason, COALESCE(created_by, ''), created_at`

// StockMovementRepo libro de movimientos (solo inserción; un trigger rechaza UPDATE/DELETE).
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador.
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

// Create inserta el movimiento. La clave (inventario, tipo, referencia) repetida
// viola stock_movements_reference_uq -> ErrDuplicate.
func (r *StockMovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO stock_movements (id, inventory_id, quantity_delta, quantity_before, quantity_after,
			reference_type, reference_id, reason, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, NULLIF($9, ''), $10)`,
		m.ID, m.InventoryID, m.QuantityDelta, m.QuantityBefore, m.QuantityAfter,
		m.ReferenceType, m.ReferenceID, m.Reason, m.CreatedBy, m.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert stock movement: %w", err)
	}
	return nil
}

// FindByReference busca el movimiento con la clave de idempotencia dada.
func (r *StockMovementRepo) FindByReference(ctx context.Context, inventoryID, referenceType, referenceID string) (*entity.StockMovement, error) {
	m, err := scanMovement(r.q.QueryRow(ctx, `
		SELECT `+movementColumns+` FROM stock_movements
		WHERE inventory_id = $1 AND reference_type = $2 AND reference_id = $3`,
		inventoryID, referenceType, referenceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find stock movement: %w", err)
	}
	return m, nil
}

// SumByInventory suma los deltas del inventario; debe igualar su cantidad.
func (r *StockMovementRepo) SumByInventory(ctx context.Context, inventoryID string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.q.QueryRow(ctx,
		`SELECT COALESCE(SUM(quantity_delta), 0) FROM stock_movements WHERE inventory_id = $1`, inventoryID,
	).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum stock movements: %w", err)
	}
	return sum, nil
}

// ListByInventory lista movimientos, más recientes primero. limit 0 = sin límite.
func (r *StockMovementRepo) ListByInventory(ctx context.Context, inventoryID string, limit, offset int) ([]*entity.StockMovement, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+movementColumns+` FROM stock_movements
		WHERE inventory_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT NULLIF($2, 0) OFFSET $3`, inventoryID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()

	var list []*entity.StockMovement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func scanMovement(row pgx.Row) (*entity.StockMovement, error) {
	var m entity.StockMovement
	err := row.Scan(&m.ID, &m.InventoryID, &m.QuantityDelta, &m.QuantityBefore, &m.QuantityAfter,
		&m.ReferenceType, &m.ReferenceID, &m.Reason, &m.CreatedBy, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
