package repository

import (
	"context"

	"github.com/jhoicas/mercado-ledger/internal/domain/entity"
)

// VendorRepository define el puerto de persistencia para Vendor.
// El alta de vendedores es externa al núcleo; Create solo se usa para sembrar datos.
type VendorRepository interface {
	Create(ctx context.Context, vendor *entity.Vendor) error
	GetByID(ctx context.Context, id string) (*entity.Vendor, error)
}
