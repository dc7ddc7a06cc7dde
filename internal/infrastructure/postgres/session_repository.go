package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/mercado-ledger/internal/domain"
	"github.com/jhoicas/mercado-ledger/internal/domain/entity"
	"github.com/jhoicas/mercado-ledger/internal/domain/repository"
)

var _ repository.SessionRepository = (*SessionRepo)(nil)

const sessionColumns = `id, session_number, register_id, location_id, vendor_id, user_id, status,
	opening_cash, total_sales, total_transactions, total_cash, total_card, total_other,
	total_voids, void_count, total_refunds, refund_count,
	closing_cash, expected_cash, cash_difference,
	opened_at, closed_at, COALESCE(closed_by, ''), updated_at`

// SessionRepo sesiones de caja sobre PostgreSQL.
type SessionRepo struct {
	q Querier
}

// NewSessionRepository construye el adaptador.
func NewSessionRepository(q Querier) *SessionRepo {
	return &SessionRepo{q: q}
}

// FindOpenByRegister devuelve la sesión abierta de la caja.
func (r *SessionRepo) FindOpenByRegister(ctx context.Context, registerID string) (*entity.Session, error) {
	return r.scanOne(ctx, "find open session",
		`SELECT `+sessionColumns+` FROM pos_sessions WHERE register_id = $1 AND status = 'open'`, registerID)
}

// NextSessionNumber devuelve MAX(session_number)+1 de la caja. Dos llamadas
// concurrentes pueden obtener el mismo número; el índice único decide.
func (r *SessionRepo) NextSessionNumber(ctx context.Context, registerID string) (int64, error) {
	var n int64
	err := r.q.QueryRow(ctx,
		`SELECT COALESCE(MAX(session_number), 0) + 1 FROM pos_sessions WHERE register_id = $1`, registerID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("next session number: %w", err)
	}
	return n, nil
}

// CreateOpen inserta la sesión con ON CONFLICT DO NOTHING: si otra sesión abierta
// (o el mismo número) ganó la carrera no se inserta nada y devuelve ErrDuplicate.
func (r *SessionRepo) CreateOpen(ctx context.Context, s *entity.Session) error {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO pos_sessions (id, session_number, register_id, location_id, vendor_id, user_id, status,
			opening_cash, total_sales, total_transactions, total_cash, total_card, total_other,
			total_voids, void_count, total_refunds, refund_count, opened_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT DO NOTHING`,
		s.ID, s.SessionNumber, s.RegisterID, s.LocationID, s.VendorID, s.UserID, s.Status,
		s.OpeningCash, s.TotalSales, s.TotalTransactions, s.TotalCash, s.TotalCard, s.TotalOther,
		s.TotalVoids, s.VoidCount, s.TotalRefunds, s.RefundCount, s.OpenedAt, s.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: ubicación %s", domain.ErrNotFound, s.LocationID)
		}
		return fmt.Errorf("insert session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDuplicate
	}
	return nil
}

// GetByID lee la sesión sin bloquear.
func (r *SessionRepo) GetByID(ctx context.Context, id string) (*entity.Session, error) {
	return r.scanOne(ctx, "get session", `SELECT `+sessionColumns+` FROM pos_sessions WHERE id = $1`, id)
}

// GetForUpdate lee la sesión con SELECT FOR UPDATE.
func (r *SessionRepo) GetForUpdate(ctx context.Context, id string) (*entity.Session, error) {
	return r.scanOne(ctx, "lock session", `SELECT `+sessionColumns+` FROM pos_sessions WHERE id = $1 FOR UPDATE`, id)
}

// Update persiste totales, estado y arqueo.
func (r *SessionRepo) Update(ctx context.Context, s *entity.Session) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE pos_sessions SET
			status = $2,
			total_sales = $3, total_transactions = $4,
			total_cash = $5, total_card = $6, total_other = $7,
			total_voids = $8, void_count = $9,
			total_refunds = $10, refund_count = $11,
			closing_cash = $12, expected_cash = $13, cash_difference = $14,
			closed_at = $15, closed_by = NULLIF($16, ''), updated_at = $17
		WHERE id = $1`,
		s.ID, s.Status,
		s.TotalSales, s.TotalTransactions,
		s.TotalCash, s.TotalCard, s.TotalOther,
		s.TotalVoids, s.VoidCount,
		s.TotalRefunds, s.RefundCount,
		s.ClosingCash, s.ExpectedCash, s.CashDifference,
		s.ClosedAt, s.ClosedBy, s.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *SessionRepo) scanOne(ctx context.Context, op, query string, args ...any) (*entity.Session, error) {
	var s entity.Session
	err := r.q.QueryRow(ctx, query, args...).Scan(
		&s.ID, &s.SessionNumber, &s.RegisterID, &s.LocationID, &s.VendorID, &s.UserID, &s.Status,
		&s.OpeningCash, &s.TotalSales, &s.TotalTransactions, &s.TotalCash, &s.TotalCard, &s.TotalOther,
		&s.TotalVoids, &s.VoidCount, &s.TotalRefunds, &s.RefundCount,
		&s.ClosingCash, &s.ExpectedCash, &s.CashDifference,
		&s.OpenedAt, &s.ClosedAt, &s.ClosedBy, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &s, nil
}
