// Package seed carga un vendedor de demostración con sus ubicaciones.
package seed

import (
	"context"
	"time"

	"github.com/jhoicas/mercado-ledger/internal/application/ports"
	"github.com/jhoicas/mercado-ledger/internal/domain/entity"
	"github.com/jhoicas/mercado-ledger/internal/domain/repository"
)

// IDs fijos del vendedor de demostración.
const (
	DemoVendorID        = "11111111-1111-4111-8111-111111111111"
	DemoPrimaryLocation = "22222222-2222-4222-8222-222222222221"
	DemoStoreLocation   = "22222222-2222-4222-8222-222222222222"
)

// Demo crea el vendedor de demostración, su ubicación principal y una tienda.
// Es idempotente: lo que ya existe se deja como está.
func Demo(ctx context.Context, txRunner ports.TxRunner) error {
	now := time.Now().UTC()
	return txRunner.Run(ctx, func(repos repository.Repos) error {
		existing, err := repos.Vendors.GetByID(ctx, DemoVendorID)
		if err != nil {
			return err
		}
		if existing == nil {
			if err := repos.Vendors.Create(ctx, &entity.Vendor{
				ID: DemoVendorID, Name: "Mercado Demo", Status: entity.VendorStatusActive, CreatedAt: now,
			}); err != nil {
				return err
			}
		}
		for _, l := range []entity.Location{
			{ID: DemoPrimaryLocation, VendorID: DemoVendorID, Name: "Bodega central", IsPrimary: true, CreatedAt: now},
			{ID: DemoStoreLocation, VendorID: DemoVendorID, Name: "Tienda centro", CreatedAt: now},
		} {
			found, err := repos.Locations.GetByID(ctx, l.ID)
			if err != nil {
				return err
			}
			if found != nil {
				continue
			}
			if err := repos.Locations.Create(ctx, &l); err != nil {
				return err
			}
		}
		return nil
	})
}
