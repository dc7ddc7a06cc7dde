package ports

import (
	"context"

	"github.com/jhoicas/mercado-ledger/internal/domain/entity"
)

// SessionReportGenerator genera el reporte Z (cierre de turno) de una sesión.
// Se invoca fuera de cualquier transacción.
type SessionReportGenerator interface {
	GenerateSessionReport(ctx context.Context, session *entity.Session, location *entity.Location) ([]byte, error)
}
