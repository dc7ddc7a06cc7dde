package ports

import (
	"context"

	"github.com/jhoicas/mercado-ledger/internal/domain/repository"
)

// TxRunner ejecuta fn dentro de una única transacción, con repositorios atados a ella.
// Si fn devuelve error todo se revierte; si no, se hace Commit.
type TxRunner interface {
	Run(ctx context.Context, fn func(repos repository.Repos) error) error
}
