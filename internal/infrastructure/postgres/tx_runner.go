package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/mercado-ledger/internal/application/ports"
	"github.com/jhoicas/mercado-ledger/internal/domain/repository"
	"github.com/jhoicas/mercado-ledger/pkg/config"
	"github.com/jhoicas/mercado-ledger/pkg/metrics"
)

var _ ports.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL (read committed).
type TxRunner struct {
	pool *pgxpool.Pool
	cfg  config.LedgerConfig
}

// NewTxRunner construye el runner con el pool y los límites de cada transacción.
func NewTxRunner(pool *pgxpool.Pool, cfg config.LedgerConfig) *TxRunner {
	return &TxRunner{pool: pool, cfg: cfg}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// lock_timeout y statement_timeout se fijan con SET LOCAL; la contención se
// devuelve como domain.ErrConflict y los valores rechazados por tipo (clase 22)
// como domain.ErrInvalidInput.
func (r *TxRunner) Run(ctx context.Context, fn func(repos repository.Repos) error) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveTx(config.StoreDriverPostgres, start, err) }()

	if r.cfg.TxTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.TxTimeout)
		defer cancel()
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := setLocalTimeouts(ctx, tx, r.cfg); err != nil {
		return err
	}

	if err := fn(NewRepos(tx)); err != nil {
		return translateTxError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		if isContention(err) {
			return translateTxError(err)
		}
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func setLocalTimeouts(ctx context.Context, tx pgx.Tx, cfg config.LedgerConfig) error {
	if cfg.LockTimeout > 0 {
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = %d", cfg.LockTimeout.Milliseconds())); err != nil {
			return fmt.Errorf("set lock_timeout: %w", err)
		}
	}
	if cfg.TxTimeout > 0 {
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = %d", cfg.TxTimeout.Milliseconds())); err != nil {
			return fmt.Errorf("set statement_timeout: %w", err)
		}
	}
	return nil
}

// NewRepos construye todos los repositorios sobre q (pool o tx).
func NewRepos(q Querier) repository.Repos {
	return repository.Repos{
		Vendors:   NewVendorRepository(q),
		Locations: NewLocationRepository(q),
		Products:  NewProductRepository(q),
		Inventory: NewInventoryRepository(q),
		Movements: NewStockMovementRepository(q),
		Sessions:  NewSessionRepository(q),
	}
}
