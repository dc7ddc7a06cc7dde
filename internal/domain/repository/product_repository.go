package repository

import (
	"context"

	"github.com/jhoicas/mercado-ledger/internal/domain/entity"
)

// ProductRepository define el puerto de persistencia para Product y sus variantes.
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	CreateVariant(ctx context.Context, variant *entity.Variant) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	ListVariants(ctx context.Context, productID string) ([]*entity.Variant, error)
	ListByVendor(ctx context.Context, vendorID string, limit, offset int) ([]*entity.Product, error)
}
