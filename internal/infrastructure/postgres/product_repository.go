package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/mercado-ledger/internal/domain"
	"github.com/jhoicas/mercado-ledger/internal/domain/entity"
	"github.com/jhoicas/mercado-ledger/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

const productColumns = `id, vendor_id, name, sku, product_type, regular_price, cost_price, status, created_at, updated_at`

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de persistencia para productos.
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

// Create persiste un producto. SKU repetido para el vendedor -> ErrDuplicate.
func (r *ProductRepo) Create(ctx context.Context, p *entity.Product) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO products (`+productColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.VendorID, p.Name, p.SKU, p.ProductType, p.RegularPrice, p.CostPrice, p.Status, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// CreateVariant persiste una variante. SKU repetido dentro del producto -> ErrDuplicate.
func (r *ProductRepo) CreateVariant(ctx context.Context, v *entity.Variant) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO product_variants (id, product_id, vendor_id, name, sku, price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		v.ID, v.ProductID, v.VendorID, v.Name, v.SKU, v.Price, v.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		if isForeignKeyViolation(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("insert variant: %w", err)
	}
	return nil
}

// GetByID obtiene un producto por ID.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	p, err := scanProduct(r.q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// ListVariants lista las variantes de un producto en orden de creación.
func (r *ProductRepo) ListVariants(ctx context.Context, productID string) ([]*entity.Variant, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, product_id, vendor_id, name, sku, price, created_at
		FROM product_variants WHERE product_id = $1
		ORDER BY created_at, sku`, productID)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	defer rows.Close()

	var list []*entity.Variant
	for rows.Next() {
		var v entity.Variant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.VendorID, &v.Name, &v.SKU, &v.Price, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		list = append(list, &v)
	}
	return list, rows.Err()
}

// ListByVendor lista productos del vendedor, más recientes primero. limit 0 = sin límite.
func (r *ProductRepo) ListByVendor(ctx context.Context, vendorID string, limit, offset int) ([]*entity.Product, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE vendor_id = $1
		ORDER BY created_at DESC, id
		LIMIT NULLIF($2, 0) OFFSET $3`, vendorID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var list []*entity.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func scanProduct(row pgx.Row) (*entity.Product, error) {
	var p entity.Product
	err := row.Scan(&p.ID, &p.VendorID, &p.Name, &p.SKU, &p.ProductType,
		&p.RegularPrice, &p.CostPrice, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
