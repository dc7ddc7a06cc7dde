package inventory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/mercado-ledger/internal/application/catalog"
	"github.com/jhoicas/mercado-ledger/internal/application/dto"
	"github.com/jhoicas/mercado-ledger/internal/application/inventory"
	"github.com/jhoicas/mercado-ledger/internal/domain"
	"github.com/jhoicas/mercado-ledger/internal/domain/entity"
	"github.com/jhoicas/mercado-ledger/internal/domain/repository"
	"github.com/jhoicas/mercado-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/mercado-ledger/pkg/logger"
)

func transferIn(productID, from, to, q string) inventory.TransferInput {
	return inventory.TransferInput{
		VendorID:       vendorID,
		UserID:         userID,
		ProductID:      productID,
		FromLocationID: from,
		ToLocationID:   to,
		Quantity:       qty(q),
		Reason:         "reposición",
	}
}

// stockAt devuelve la cantidad del producto en la ubicación (cero si no hay fila).
func stockAt(t *testing.T, s *memory.Store, productID, locationID string) decimal.Decimal {
	t.Helper()
	out := decimal.Zero
	require.NoError(t, s.Run(context.Background(), func(r repository.Repos) error {
		rows, err := r.Inventory.ListByProduct(context.Background(), productID)
		for _, inv := range rows {
			if inv.LocationID == locationID {
				out = inv.Quantity
			}
		}
		return err
	}))
	return out
}

func TestTransfer_ConservesTotalAndCreatesDestination(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	p := newSimpleProduct(t, s, "TR-1", "10")
	uc := inventory.NewTransferUseCase(s, logger.Nop())

	out, err := uc.Transfer(ctx, transferIn(p.ProductID, locA, locB, "4.5"))
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.NotEmpty(t, out.TransferID)
	assert.True(t, out.FromQuantity.Equal(qty("5.5")))
	assert.True(t, out.ToQuantity.Equal(qty("4.5")))

	a, b := stockAt(t, s, p.ProductID, locA), stockAt(t, s, p.ProductID, locB)
	assert.True(t, a.Add(b).Equal(qty("10")), "conservación")

	// ambos movimientos comparten el id de transferencia
	require.NoError(t, s.Run(ctx, func(r repository.Repos) error {
		rows, err := r.Inventory.ListByProduct(ctx, p.ProductID)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		for _, inv := range rows {
			refType := entity.ReferenceTransferIn
			if inv.LocationID == locA {
				refType = entity.ReferenceTransferOut
			}
			m, err := r.Movements.FindByReference(ctx, inv.ID, refType, out.TransferID)
			require.NoError(t, err)
			require.NotNil(t, m, refType)
		}
		return nil
	}))
}

func TestTransfer_InsufficientStockChangesNothing(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	p := newSimpleProduct(t, s, "TR-2", "3")
	uc := inventory.NewTransferUseCase(s, logger.Nop())

	_, err := uc.Transfer(ctx, transferIn(p.ProductID, locA, locB, "3.5"))
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	assert.True(t, stockAt(t, s, p.ProductID, locA).Equal(qty("3")))
	assert.True(t, stockAt(t, s, p.ProductID, locB).IsZero())

	// sin fila en el origen también es stock insuficiente
	_, err = uc.Transfer(ctx, transferIn(p.ProductID, locB, locA, "1"))
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestTransfer_ConcurrentOppositeDirections(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	p := newSimpleProduct(t, s, "TR-3", "100")
	uc := inventory.NewTransferUseCase(s, logger.Nop())
	_, err := uc.Transfer(ctx, transferIn(p.ProductID, locA, locB, "50"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := uc.Transfer(ctx, transferIn(p.ProductID, locA, locB, "1"))
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := uc.Transfer(ctx, transferIn(p.ProductID, locB, locA, "2"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	a, b := stockAt(t, s, p.ProductID, locA), stockAt(t, s, p.ProductID, locB)
	assert.True(t, a.Add(b).Equal(qty("100")))
	assert.True(t, a.Equal(qty("70")))

	var ids []string
	require.NoError(t, s.Run(ctx, func(r repository.Repos) error {
		rows, err := r.Inventory.ListByProduct(ctx, p.ProductID)
		for _, inv := range rows {
			ids = append(ids, inv.ID)
		}
		return err
	}))
	ledger := inventory.NewLedgerUseCase(s, logger.Nop())
	for _, id := range ids {
		check, err := ledger.Verify(ctx, vendorID, id)
		require.NoError(t, err)
		assert.True(t, check.Consistent)
	}
}

func TestTransfer_Validation(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	p := newSimpleProduct(t, s, "TR-4", "5")
	uc := inventory.NewTransferUseCase(s, logger.Nop())

	_, err := uc.Transfer(ctx, transferIn(p.ProductID, locA, locA, "1"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = uc.Transfer(ctx, transferIn(p.ProductID, locA, locB, "0"))
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = uc.Transfer(ctx, transferIn(p.ProductID, locA, "loc-x", "1"))
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = uc.Transfer(ctx, transferIn("missing", locA, locB, "1"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	in := transferIn(p.ProductID, locA, locB, "1")
	in.VendorID = "vendor-2"
	_, err = uc.Transfer(ctx, in)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestTransfer_VariableProductNeedsVariant(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	created, err := catalog.NewCreateProductUseCase(s, logger.Nop()).CreateProduct(ctx, catalog.CreateProductInput{
		VendorID: vendorID,
		UserID:   userID,
		Product:  dto.ProductData{Name: "Flor", SKU: "FLOR", ProductType: entity.ProductTypeVariable},
		Variants: []dto.VariantRequest{
			{Name: "1/8", SKU: "FLOR-8", Price: qty("30"), StockQuantity: qty("7")},
			{Name: "1/4", SKU: "FLOR-4", Price: qty("55"), StockQuantity: qty("3")},
		},
	})
	require.NoError(t, err)
	uc := inventory.NewTransferUseCase(s, logger.Nop())

	_, err = uc.Transfer(ctx, transferIn(created.ProductID, locA, locB, "1"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	in := transferIn(created.ProductID, locA, locB, "2")
	in.VariantID = &created.VariantIDs[0]
	out, err := uc.Transfer(ctx, in)
	require.NoError(t, err)
	assert.True(t, out.FromQuantity.Equal(qty("5")))
	assert.True(t, out.ToQuantity.Equal(qty("2")))
}
