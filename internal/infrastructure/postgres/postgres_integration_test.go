package postgres_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/mercado-ledger/internal/application/catalog"
	"github.com/jhoicas/mercado-ledger/internal/application/dto"
	"github.com/jhoicas/mercado-ledger/internal/application/inventory"
	"github.com/jhoicas/mercado-ledger/internal/application/session"
	"github.com/jhoicas/mercado-ledger/internal/domain"
	"github.com/jhoicas/mercado-ledger/internal/domain/entity"
	"github.com/jhoicas/mercado-ledger/internal/domain/repository"
	"github.com/jhoicas/mercado-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/mercado-ledger/pkg/config"
	"github.com/jhoicas/mercado-ledger/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fixtures (requieren TEST_DATABASE_URL)
// ──────────────────────────────────────────────────────────────────────────────

type fixture struct {
	pool     *pgxpool.Pool
	runner   *postgres.TxRunner
	vendorID string
	primary  string
	second   string
}

func setup(t *testing.T) *fixture {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL no definido")
	}
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: url, MaxConns: 30})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, postgres.Migrate(ctx, pool, logger.Nop()))

	f := &fixture{
		pool:     pool,
		runner:   postgres.NewTxRunner(pool, config.LedgerConfig{TxTimeout: 5 * time.Second, LockTimeout: 5 * time.Second}),
		vendorID: uuid.NewString(),
		primary:  uuid.NewString(),
		second:   uuid.NewString(),
	}
	now := time.Now().UTC()
	require.NoError(t, f.runner.Run(ctx, func(r repository.Repos) error {
		if err := r.Vendors.Create(ctx, &entity.Vendor{ID: f.vendorID, Name: "Tienda test", Status: entity.VendorStatusActive, CreatedAt: now}); err != nil {
			return err
		}
		if err := r.Locations.Create(ctx, &entity.Location{ID: f.primary, VendorID: f.vendorID, Name: "Principal", IsPrimary: true, CreatedAt: now}); err != nil {
			return err
		}
		return r.Locations.Create(ctx, &entity.Location{ID: f.second, VendorID: f.vendorID, Name: "Bodega", CreatedAt: now})
	}))
	return f
}

func (f *fixture) product(t *testing.T, initial string) *dto.CreateProductResponse {
	t.Helper()
	out, err := catalog.NewCreateProductUseCase(f.runner, logger.Nop()).CreateProduct(context.Background(), catalog.CreateProductInput{
		VendorID:     f.vendorID,
		UserID:       "user-1",
		Product:      dto.ProductData{Name: "Harina", SKU: "HAR-" + uuid.NewString()[:8], ProductType: entity.ProductTypeSimple, RegularPrice: decimal.NewFromInt(5)},
		InitialStock: decimal.RequireFromString(initial),
	})
	require.NoError(t, err)
	return out
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests
// ──────────────────────────────────────────────────────────────────────────────

func TestPostgres_LocationsOnePrimaryPerVendor(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	err := f.runner.Run(ctx, func(r repository.Repos) error {
		return r.Locations.Create(ctx, &entity.Location{ID: uuid.NewString(), VendorID: f.vendorID, Name: "Otra", IsPrimary: true, CreatedAt: time.Now()})
	})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestPostgres_LedgerIdempotencyAndConsistency(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.product(t, "10.5")
	ledger := inventory.NewLedgerUseCase(f.runner, logger.Nop())

	in := inventory.MovementInput{
		VendorID:      f.vendorID,
		UserID:        "user-1",
		InventoryID:   p.InventoryID,
		Quantity:      decimal.RequireFromString("0.25"),
		ReferenceType: entity.ReferenceSale,
		ReferenceID:   "line-" + uuid.NewString(),
	}
	first, err := ledger.Decrement(ctx, in)
	require.NoError(t, err)
	assert.False(t, first.Replayed)
	assert.True(t, decimal.RequireFromString("10.25").Equal(first.Quantity))

	again, err := ledger.Decrement(ctx, in)
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.True(t, first.Quantity.Equal(again.Quantity))

	_, err = ledger.Decrement(ctx, inventory.MovementInput{
		VendorID: f.vendorID, InventoryID: p.InventoryID, Quantity: decimal.NewFromInt(100), ReferenceType: entity.ReferenceAdjustment,
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	check, err := ledger.Verify(ctx, f.vendorID, p.InventoryID)
	require.NoError(t, err)
	assert.True(t, check.Consistent)

	list, err := ledger.ListMovements(ctx, f.vendorID, p.InventoryID, dto.PageRequest{})
	require.NoError(t, err)
	assert.Len(t, list.Items, 2)
}

func TestPostgres_MovementsAreAppendOnly(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.product(t, "3")

	_, err := f.pool.Exec(ctx, `UPDATE stock_movements SET reason = 'x' WHERE inventory_id = $1`, p.InventoryID)
	assert.Error(t, err)
	_, err = f.pool.Exec(ctx, `DELETE FROM stock_movements WHERE inventory_id = $1`, p.InventoryID)
	assert.Error(t, err)
}

func TestPostgres_ConcurrentGetOrCreateYieldsOneSession(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	uc := session.NewUseCase(f.runner, nil, logger.Nop())
	register := "reg-" + uuid.NewString()

	const n = 20
	ids := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := uc.GetOrCreate(ctx, session.GetOrCreateInput{
				LocationID: f.primary, RegisterID: register, UserID: "cashier", VendorID: f.vendorID,
			})
			errs[i] = err
			if err == nil {
				ids[i] = out.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}

	var open int
	require.NoError(t, f.pool.QueryRow(ctx, `SELECT count(*) FROM pos_sessions WHERE register_id = $1 AND status = 'open'`, register).Scan(&open))
	assert.Equal(t, 1, open)
}

func TestPostgres_ConcurrentOppositeTransfers(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.product(t, "100")
	transfers := inventory.NewTransferUseCase(f.runner, logger.Nop())

	// sembrar la ubicación secundaria
	_, err := transfers.Transfer(ctx, inventory.TransferInput{
		VendorID: f.vendorID, UserID: "u", ProductID: p.ProductID,
		FromLocationID: f.primary, ToLocationID: f.second, Quantity: decimal.NewFromInt(50),
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := transfers.Transfer(ctx, inventory.TransferInput{VendorID: f.vendorID, ProductID: p.ProductID, FromLocationID: f.primary, ToLocationID: f.second, Quantity: decimal.NewFromInt(2)})
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := transfers.Transfer(ctx, inventory.TransferInput{VendorID: f.vendorID, ProductID: p.ProductID, FromLocationID: f.second, ToLocationID: f.primary, Quantity: decimal.NewFromInt(1)})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var total decimal.Decimal
	require.NoError(t, f.pool.QueryRow(ctx, `SELECT SUM(quantity) FROM inventory WHERE product_id = $1`, p.ProductID).Scan(&total))
	assert.True(t, decimal.NewFromInt(100).Equal(total))
}
