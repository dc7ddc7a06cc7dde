package repository

import (
	"context"

	"github.com/jhoicas/mercado-ledger/internal/domain/entity"
)

// SessionRepository define el puerto de persistencia para sesiones de caja.
type SessionRepository interface {
	// FindOpenByRegister devuelve la sesión abierta de la caja o nil.
	FindOpenByRegister(ctx context.Context, registerID string) (*entity.Session, error)
	// NextSessionNumber devuelve el siguiente número correlativo para la caja.
	NextSessionNumber(ctx context.Context, registerID string) (int64, error)
	// CreateOpen inserta una sesión abierta; devuelve domain.ErrDuplicate si otra
	// sesión abierta ganó la carrera por la misma caja.
	CreateOpen(ctx context.Context, session *entity.Session) error
	GetByID(ctx context.Context, id string) (*entity.Session, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Session, error)
	Update(ctx context.Context, session *entity.Session) error
}
