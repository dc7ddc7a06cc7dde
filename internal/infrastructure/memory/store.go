// Package memory implementa los repositorios sobre estado en proceso. Las
// transacciones se serializan con un mutex y trabajan sobre una copia del estado
// que solo reemplaza al original si fn termina sin error.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/mercado-ledger/internal/application/ports"
	"github.com/jhoicas/mercado-ledger/internal/domain/entity"
	"github.com/jhoicas/mercado-ledger/internal/domain/repository"
	"github.com/jhoicas/mercado-ledger/pkg/metrics"
)

var _ ports.TxRunner = (*Store)(nil)

type state struct {
	vendors   map[string]entity.Vendor
	locations map[string]entity.Location
	products  map[string]entity.Product
	variants  map[string]entity.Variant
	inventory map[string]entity.Inventory
	movements []entity.StockMovement
	refs      map[string]int // clave de idempotencia -> índice en movements
	sessions  map[string]entity.Session
}

func newState() *state {
	return &state{
		vendors:   map[string]entity.Vendor{},
		locations: map[string]entity.Location{},
		products:  map[string]entity.Product{},
		variants:  map[string]entity.Variant{},
		inventory: map[string]entity.Inventory{},
		refs:      map[string]int{},
		sessions:  map[string]entity.Session{},
	}
}

func (s *state) clone() *state {
	c := &state{
		vendors:   cloneMap(s.vendors),
		locations: cloneMap(s.locations),
		products:  cloneMap(s.products),
		variants:  cloneMap(s.variants),
		inventory: cloneMap(s.inventory),
		movements: append([]entity.StockMovement(nil), s.movements...),
		refs:      cloneMap(s.refs),
		sessions:  cloneMap(s.sessions),
	}
	return c
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	c := make(map[K]V, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// Store es el TxRunner en memoria.
type Store struct {
	mu sync.Mutex
	st *state
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{st: newState()}
}

// Run ejecuta fn con repositorios sobre una copia del estado; commit = reemplazo.
func (s *Store) Run(ctx context.Context, fn func(repos repository.Repos) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	defer func() { metrics.ObserveTx("memory", start, err) }()

	work := s.st.clone()
	if err := fn(reposFor(work)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.st = work
	return nil
}

func reposFor(st *state) repository.Repos {
	return repository.Repos{
		Vendors:   &vendorRepo{st: st},
		Locations: &locationRepo{st: st},
		Products:  &productRepo{st: st},
		Inventory: &inventoryRepo{st: st},
		Movements: &movementRepo{st: st},
		Sessions:  &sessionRepo{st: st},
	}
}
