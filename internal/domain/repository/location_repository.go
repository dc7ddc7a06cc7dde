package repository

import (
	"context"

	"github.com/jhoicas/mercado-ledger/internal/domain/entity"
)

// LocationRepository define el puerto de persistencia para Location (solo lectura para el núcleo).
type LocationRepository interface {
	Create(ctx context.Context, location *entity.Location) error
	GetByID(ctx context.Context, id string) (*entity.Location, error)
	// GetPrimary devuelve la ubicación principal del vendedor o nil si no existe.
	GetPrimary(ctx context.Context, vendorID string) (*entity.Location, error)
}
