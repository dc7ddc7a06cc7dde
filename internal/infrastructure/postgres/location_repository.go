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

var _ repository.LocationRepository = (*LocationRepo)(nil)

const locationColumns = `id, vendor_id, name, is_primary, created_at`

// LocationRepo implementación de LocationRepository sobre PostgreSQL.
type LocationRepo struct {
	q Querier
}

// NewLocationRepository construye el adaptador.
func NewLocationRepository(q Querier) *LocationRepo {
	return &LocationRepo{q: q}
}

// Create persiste una ubicación. Una segunda principal para el mismo vendedor
// viola locations_primary_uq y devuelve ErrDuplicate.
func (r *LocationRepo) Create(ctx context.Context, l *entity.Location) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO locations (`+locationColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		l.ID, l.VendorID, l.Name, l.IsPrimary, l.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: vendedor %s", domain.ErrNotFound, l.VendorID)
		}
		return fmt.Errorf("insert location: %w", err)
	}
	return nil
}

// GetByID obtiene una ubicación por ID.
func (r *LocationRepo) GetByID(ctx context.Context, id string) (*entity.Location, error) {
	return r.scanOne(ctx, "get location", `SELECT `+locationColumns+` FROM locations WHERE id = $1`, id)
}

// GetPrimary devuelve la ubicación principal del vendedor.
func (r *LocationRepo) GetPrimary(ctx context.Context, vendorID string) (*entity.Location, error) {
	return r.scanOne(ctx, "get primary location",
		`SELECT `+locationColumns+` FROM locations WHERE vendor_id = $1 AND is_primary`, vendorID)
}

func (r *LocationRepo) scanOne(ctx context.Context, op, query string, args ...any) (*entity.Location, error) {
	var l entity.Location
	err := r.q.QueryRow(ctx, query, args...).Scan(&l.ID, &l.VendorID, &l.Name, &l.IsPrimary, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &l, nil
}
