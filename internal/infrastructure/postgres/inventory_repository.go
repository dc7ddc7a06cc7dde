package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/mercado-ledger/internal/domain"
	"github.com/jhoicas/mercado-ledger/internal/domain/entity"
	"github.com/jhoicas/mercado-ledger/internal/domain/repository"
)

var _ repository.InventoryRepository = (*InventoryRepo)(nil)

const inventoryColumns = `id, vendor_id, product_id, variant_id, location_id, quantity, updated_at`

// InventoryRepo implementación de InventoryRepository sobre PostgreSQL.
// Los métodos *ForUpdate solo tienen sentido dentro de una transacción.
type InventoryRepo struct {
	q Querier
}

// NewInventoryRepository construye el adaptador.
func NewInventoryRepository(q Querier) *InventoryRepo {
	return &InventoryRepo{q: q}
}

// Create inserta una fila. Clave natural repetida -> ErrDuplicate.
func (r *InventoryRepo) Create(ctx context.Context, inv *entity.Inventory) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO inventory (`+inventoryColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		inv.ID, inv.VendorID, inv.ProductID, inv.VariantID, inv.LocationID, inv.Quantity, inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: producto, variante o ubicación", domain.ErrNotFound)
		}
		return fmt.Errorf("insert inventory: %w", err)
	}
	return nil
}

// GetByID lee la fila sin bloquear.
func (r *InventoryRepo) GetByID(ctx context.Context, id string) (*entity.Inventory, error) {
	return r.scanOne(ctx, "get inventory", `SELECT `+inventoryColumns+` FROM inventory WHERE id = $1`, id)
}

// GetForUpdate lee la fila con SELECT FOR UPDATE.
func (r *InventoryRepo) GetForUpdate(ctx context.Context, id string) (*entity.Inventory, error) {
	return r.scanOne(ctx, "lock inventory", `SELECT `+inventoryColumns+` FROM inventory WHERE id = $1 FOR UPDATE`, id)
}

// FindForUpdate bloquea la fila por (producto, variante, ubicación).
func (r *InventoryRepo) FindForUpdate(ctx context.Context, key entity.StockKey) (*entity.Inventory, error) {
	return r.scanOne(ctx, "lock inventory by key", `
		SELECT `+inventoryColumns+` FROM inventory
		WHERE product_id = $1 AND COALESCE(variant_id, '') = COALESCE($2, '') AND location_id = $3
		FOR UPDATE`,
		key.ProductID, key.VariantID, key.LocationID)
}

// EnsureForUpdate crea la fila en cero si no existe y la devuelve bloqueada.
// Con dos transacciones concurrentes, una inserta y la otra espera el lock de
// la misma fila.
func (r *InventoryRepo) EnsureForUpdate(ctx context.Context, vendorID string, key entity.StockKey) (*entity.Inventory, error) {
	_, err := r.q.Exec(ctx, `
		INSERT INTO inventory (`+inventoryColumns+`)
		VALUES ($1, $2, $3, $4, $5, 0, $6)
		ON CONFLICT DO NOTHING`,
		uuid.New().String(), vendorID, key.ProductID, key.VariantID, key.LocationID, time.Now().UTC(),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: producto, variante o ubicación", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("ensure inventory: %w", err)
	}
	inv, err := r.FindForUpdate(ctx, key)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, fmt.Errorf("ensure inventory: fila no visible tras insertar")
	}
	return inv, nil
}

// UpdateQuantity reemplaza la cantidad materializada.
func (r *InventoryRepo) UpdateQuantity(ctx context.Context, id string, quantity decimal.Decimal, at time.Time) error {
	tag, err := r.q.Exec(ctx, `UPDATE inventory SET quantity = $2, updated_at = $3 WHERE id = $1`, id, quantity, at)
	if err != nil {
		return fmt.Errorf("update inventory: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByProduct lista las filas de un producto en todas sus ubicaciones.
func (r *InventoryRepo) ListByProduct(ctx context.Context, productID string) ([]*entity.Inventory, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+inventoryColumns+` FROM inventory
		WHERE product_id = $1
		ORDER BY location_id, COALESCE(variant_id, '')`, productID)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	defer rows.Close()

	var list []*entity.Inventory
	for rows.Next() {
		inv, err := scanInventory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inventory: %w", err)
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}

func (r *InventoryRepo) scanOne(ctx context.Context, op, query string, args ...any) (*entity.Inventory, error) {
	inv, err := scanInventory(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return inv, nil
}

func scanInventory(row pgx.Row) (*entity.Inventory, error) {
	var inv entity.Inventory
	if err := row.Scan(&inv.ID, &inv.VendorID, &inv.ProductID, &inv.VariantID, &inv.LocationID, &inv.Quantity, &inv.UpdatedAt); err != nil {
		return nil, err
	}
	return &inv, nil
}
