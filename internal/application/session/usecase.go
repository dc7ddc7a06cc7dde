// Package session implementa el ciclo de vida de las sesiones de caja (POS):
// (ninguna) -> open -> closed, sin reapertura.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jhoicas/mercado-ledger/internal/application/dto"
	"github.com/jhoicas/mercado-ledger/internal/application/ports"
	"github.com/jhoicas/mercado-ledger/internal/domain"
	"github.com/jhoicas/mercado-ledger/internal/domain/entity"
	"github.com/jhoicas/mercado-ledger/internal/domain/guard"
	"github.com/jhoicas/mercado-ledger/internal/domain/repository"
	"github.com/jhoicas/mercado-ledger/pkg/logger"
	"github.com/jhoicas/mercado-ledger/pkg/metrics"
	"github.com/jhoicas/mercado-ledger/pkg/precision"
	"github.com/jhoicas/mercado-ledger/pkg/tracing"
)

const tracerName = "github.com/jhoicas/mercado-ledger/internal/application/session"

// UseCase agrupa las operaciones sobre sesiones de caja.
type UseCase struct {
	txRunner ports.TxRunner
	reports  ports.SessionReportGenerator
	log      *logger.Logger
}

// NewUseCase construye el caso de uso. reports puede ser nil si no se exponen reportes.
func NewUseCase(txRunner ports.TxRunner, reports ports.SessionReportGenerator, log *logger.Logger) *UseCase {
	return &UseCase{txRunner: txRunner, reports: reports, log: log.Named("session")}
}

// GetOrCreateInput entrada de GetOrCreate.
type GetOrCreateInput struct {
	LocationID  string
	RegisterID  string
	UserID      string
	VendorID    string
	OpeningCash decimal.Decimal
}

// CloseInput entrada de Close. ClosingCash nil = sin arqueo.
type CloseInput struct {
	VendorID    string
	SessionID   string
	UserID      string
	ClosingCash *decimal.Decimal
}

// GetOrCreate devuelve la sesión abierta de la caja o abre una nueva.
// Si otra llamada concurrente gana la inserción, se reintenta una vez releyendo
// la sesión ganadora; el conflicto nunca llega al caller.
func (uc *UseCase) GetOrCreate(ctx context.Context, in GetOrCreateInput) (_ *dto.SessionResponse, err error) {
	if in.RegisterID == "" || in.LocationID == "" || in.VendorID == "" || in.UserID == "" {
		return nil, fmt.Errorf("%w: register_id, location_id, vendor_id y user_id requeridos", domain.ErrInvalidInput)
	}
	if in.OpeningCash.IsNegative() {
		return nil, fmt.Errorf("%w: opening_cash no puede ser negativo", domain.ErrInvalidInput)
	}

	ctx, span := tracing.Start(ctx, tracerName, "session.get_or_create",
		attribute.String("register.id", in.RegisterID),
	)
	defer func() { tracing.End(span, err) }()

	s, created, err := uc.openOrJoin(ctx, in)
	outcome := metrics.SessionJoined
	if created {
		outcome = metrics.SessionCreated
	}
	if errors.Is(err, domain.ErrDuplicate) {
		s, err = uc.findOpen(ctx, in)
		if err == nil && s == nil {
			err = fmt.Errorf("%w: no se encontró la sesión ganadora para la caja %s", domain.ErrConflict, in.RegisterID)
		}
		outcome = metrics.SessionConflictResolved
	}
	if err != nil {
		return nil, err
	}

	metrics.SessionGetOrCreateTotal.WithLabelValues(outcome).Inc()
	if created {
		uc.log.Info().
			Str("session_id", s.ID).
			Str("register_id", s.RegisterID).
			Int64("session_number", s.SessionNumber).
			Msg("sesión abierta")
	}
	resp := ToSessionResponse(s)
	resp.WasCreated = created
	return resp, nil
}

func (uc *UseCase) openOrJoin(ctx context.Context, in GetOrCreateInput) (*entity.Session, bool, error) {
	var (
		out     *entity.Session
		created bool
	)
	err := uc.txRunner.Run(ctx, func(repos repository.Repos) error {
		if err := checkLocation(ctx, repos, in); err != nil {
			return err
		}
		open, err := repos.Sessions.FindOpenByRegister(ctx, in.RegisterID)
		if err != nil {
			return err
		}
		if open != nil {
			if err := guard.Owner(open.VendorID, in.VendorID); err != nil {
				return err
			}
			out = open
			return nil
		}

		number, err := repos.Sessions.NextSessionNumber(ctx, in.RegisterID)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		s := &entity.Session{
			ID:            uuid.New().String(),
			SessionNumber: number,
			RegisterID:    in.RegisterID,
			LocationID:    in.LocationID,
			VendorID:      in.VendorID,
			UserID:        in.UserID,
			Status:        entity.SessionStatusOpen,
			OpeningCash:   in.OpeningCash,
			OpenedAt:      now,
			UpdatedAt:     now,
		}
		if err := repos.Sessions.CreateOpen(ctx, s); err != nil {
			return err
		}
		out, created = s, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, created, nil
}

func (uc *UseCase) findOpen(ctx context.Context, in GetOrCreateInput) (*entity.Session, error) {
	var out *entity.Session
	err := uc.txRunner.Run(ctx, func(repos repository.Repos) error {
		open, err := repos.Sessions.FindOpenByRegister(ctx, in.RegisterID)
		if err != nil {
			return err
		}
		if open != nil {
			if err := guard.Owner(open.VendorID, in.VendorID); err != nil {
				return err
			}
		}
		out = open
		return nil
	})
	return out, err
}

func checkLocation(ctx context.Context, repos repository.Repos, in GetOrCreateInput) error {
	loc, err := repos.Locations.GetByID(ctx, in.LocationID)
	if err != nil {
		return err
	}
	if loc == nil {
		return domain.ErrNotFound
	}
	return guard.Owner(loc.VendorID, in.VendorID)
}

// UpdateOnVoid descuenta una venta anulada: total_sales nunca baja de cero.
// Si se indica paymentMethod también se descuenta el total de ese medio, así
// el efectivo esperado al cierre no incluye ventas en efectivo anuladas. Vacío
// deja los totales por medio de pago como estaban.
func (uc *UseCase) UpdateOnVoid(ctx context.Context, vendorID, sessionID string, amount decimal.Decimal, paymentMethod string) (*dto.SessionResponse, error) {
	if paymentMethod != "" {
		if err := checkPaymentMethod(paymentMethod); err != nil {
			return nil, err
		}
	}
	return uc.mutate(ctx, "session.void", vendorID, sessionID, amount, func(s *entity.Session) error {
		s.TotalSales = precision.NonNegative(precision.Sub(s.TotalSales, amount))
		switch paymentMethod {
		case entity.PaymentCash:
			s.TotalCash = precision.NonNegative(precision.Sub(s.TotalCash, amount))
		case entity.PaymentCard:
			s.TotalCard = precision.NonNegative(precision.Sub(s.TotalCard, amount))
		case entity.PaymentOther:
			s.TotalOther = precision.NonNegative(precision.Sub(s.TotalOther, amount))
		}
		s.TotalVoids = precision.Add(s.TotalVoids, amount)
		s.VoidCount++
		return nil
	})
}

// UpdateForRefund registra un reembolso en la sesión.
func (uc *UseCase) UpdateForRefund(ctx context.Context, vendorID, sessionID string, amount decimal.Decimal) (*dto.SessionResponse, error) {
	return uc.mutate(ctx, "session.refund", vendorID, sessionID, amount, func(s *entity.Session) error {
		s.TotalRefunds = precision.Add(s.TotalRefunds, amount)
		s.RefundCount++
		return nil
	})
}

// RecordSale suma una venta al total general y al del medio de pago.
func (uc *UseCase) RecordSale(ctx context.Context, vendorID, sessionID string, amount decimal.Decimal, paymentMethod string) (*dto.SessionResponse, error) {
	if err := checkPaymentMethod(paymentMethod); err != nil {
		return nil, err
	}
	return uc.mutate(ctx, "session.sale", vendorID, sessionID, amount, func(s *entity.Session) error {
		s.TotalSales = precision.Add(s.TotalSales, amount)
		s.TotalTransactions++
		switch paymentMethod {
		case entity.PaymentCash:
			s.TotalCash = precision.Add(s.TotalCash, amount)
		case entity.PaymentCard:
			s.TotalCard = precision.Add(s.TotalCard, amount)
		default:
			s.TotalOther = precision.Add(s.TotalOther, amount)
		}
		return nil
	})
}

// Close cierra la sesión y calcula el efectivo esperado y la diferencia del arqueo.
// No toca inventario.
func (uc *UseCase) Close(ctx context.Context, in CloseInput) (*dto.SessionResponse, error) {
	if in.ClosingCash != nil && in.ClosingCash.IsNegative() {
		return nil, fmt.Errorf("%w: closing_cash no puede ser negativo", domain.ErrInvalidInput)
	}
	resp, err := uc.update(ctx, "session.close", in.VendorID, in.SessionID, func(s *entity.Session, now time.Time) error {
		expected := precision.Add(s.OpeningCash, s.TotalCash)
		s.Status = entity.SessionStatusClosed
		s.ClosedAt = &now
		s.ClosedBy = in.UserID
		s.ExpectedCash = &expected
		if in.ClosingCash != nil {
			closing := *in.ClosingCash
			diff := precision.Sub(closing, expected)
			s.ClosingCash = &closing
			s.CashDifference = &diff
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("session_id", resp.ID).Str("register_id", resp.RegisterID).Msg("sesión cerrada")
	return resp, nil
}

// Get devuelve la sesión si pertenece al vendedor.
func (uc *UseCase) Get(ctx context.Context, vendorID, sessionID string) (*dto.SessionResponse, error) {
	s, _, err := uc.load(ctx, vendorID, sessionID, false)
	if err != nil {
		return nil, err
	}
	return ToSessionResponse(s), nil
}

// Report genera el PDF del reporte Z. La lectura se hace en su propia
// transacción y el render ocurre después del commit.
func (uc *UseCase) Report(ctx context.Context, vendorID, sessionID string) ([]byte, error) {
	if uc.reports == nil {
		return nil, fmt.Errorf("reporte de sesión no configurado")
	}
	s, loc, err := uc.load(ctx, vendorID, sessionID, true)
	if err != nil {
		return nil, err
	}
	pdf, err := uc.reports.GenerateSessionReport(ctx, s, loc)
	if err != nil {
		return nil, fmt.Errorf("generar reporte de sesión: %w", err)
	}
	return pdf, nil
}

func (uc *UseCase) load(ctx context.Context, vendorID, sessionID string, withLocation bool) (*entity.Session, *entity.Location, error) {
	var (
		s   *entity.Session
		loc *entity.Location
	)
	err := uc.txRunner.Run(ctx, func(repos repository.Repos) error {
		var err error
		s, err = repos.Sessions.GetByID(ctx, sessionID)
		if err != nil {
			return err
		}
		if s == nil {
			return domain.ErrNotFound
		}
		if err := guard.Owner(s.VendorID, vendorID); err != nil {
			return err
		}
		if withLocation {
			loc, err = repos.Locations.GetByID(ctx, s.LocationID)
		}
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return s, loc, nil
}

func checkPaymentMethod(m string) error {
	switch m {
	case entity.PaymentCash, entity.PaymentCard, entity.PaymentOther:
		return nil
	}
	return fmt.Errorf("%w: medio de pago %q", domain.ErrInvalidInput, m)
}

func (uc *UseCase) mutate(ctx context.Context, op, vendorID, sessionID string, amount decimal.Decimal, fn func(*entity.Session) error) (*dto.SessionResponse, error) {
	if err := guard.PositiveAmount(amount); err != nil {
		return nil, err
	}
	return uc.update(ctx, op, vendorID, sessionID, func(s *entity.Session, _ time.Time) error {
		return fn(s)
	})
}

// update bloquea la fila de la sesión, exige que siga abierta y persiste fn.
func (uc *UseCase) update(ctx context.Context, op, vendorID, sessionID string, fn func(*entity.Session, time.Time) error) (_ *dto.SessionResponse, err error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session_id requerido", domain.ErrInvalidInput)
	}
	ctx, span := tracing.Start(ctx, tracerName, op, attribute.String("session.id", sessionID))
	defer func() { tracing.End(span, err) }()

	var out *entity.Session
	err = uc.txRunner.Run(ctx, func(repos repository.Repos) error {
		s, err := repos.Sessions.GetForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if s == nil {
			return domain.ErrNotFound
		}
		if err := guard.Owner(s.VendorID, vendorID); err != nil {
			return err
		}
		if err := guard.SessionOpen(s); err != nil {
			return err
		}
		now := time.Now().UTC()
		if err := fn(s, now); err != nil {
			return err
		}
		s.UpdatedAt = now
		if err := repos.Sessions.Update(ctx, s); err != nil {
			return err
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ToSessionResponse(out), nil
}

// ToSessionResponse mapea la entidad a su DTO.
func ToSessionResponse(s *entity.Session) *dto.SessionResponse {
	return &dto.SessionResponse{
		ID:                s.ID,
		SessionNumber:     s.SessionNumber,
		Status:            s.Status,
		RegisterID:        s.RegisterID,
		LocationID:        s.LocationID,
		VendorID:          s.VendorID,
		UserID:            s.UserID,
		OpeningCash:       s.OpeningCash,
		TotalSales:        s.TotalSales,
		TotalTransactions: s.TotalTransactions,
		TotalCash:         s.TotalCash,
		TotalCard:         s.TotalCard,
		TotalOther:        s.TotalOther,
		TotalVoids:        s.TotalVoids,
		VoidCount:         s.VoidCount,
		TotalRefunds:      s.TotalRefunds,
		RefundCount:       s.RefundCount,
		ClosingCash:       s.ClosingCash,
		ExpectedCash:      s.ExpectedCash,
		CashDifference:    s.CashDifference,
		OpenedAt:          s.OpenedAt,
		ClosedAt:          s.ClosedAt,
		ClosedBy:          s.ClosedBy,
	}
}
