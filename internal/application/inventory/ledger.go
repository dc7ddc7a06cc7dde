package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
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
	"github.com/jhoicas/mercado-ledger/pkg/tracing"
)

const tracerName = "github.com/jhoicas/mercado-ledger/internal/application/inventory"

// LedgerUseCase aplica incrementos y decrementos de stock. Cada llamada es una
// transacción: bloquea la fila de inventario, escribe el movimiento con la
// foto antes/después y actualiza la cantidad.
type LedgerUseCase struct {
	txRunner ports.TxRunner
	log      *logger.Logger
}

// NewLedgerUseCase construye el caso de uso.
func NewLedgerUseCase(txRunner ports.TxRunner, log *logger.Logger) *LedgerUseCase {
	return &LedgerUseCase{txRunner: txRunner, log: log.Named("ledger")}
}

// MovementInput entrada de Increment/Decrement.
// ReferenceID es la clave de idempotencia junto con (inventario, tipo de referencia).
// AllowNegative solo se respeta para ajustes y conciliaciones.
type MovementInput struct {
	VendorID      string
	UserID        string
	InventoryID   string
	Quantity      decimal.Decimal
	ReferenceType string
	ReferenceID   string
	Reason        string
	AllowNegative bool
}

// Movement es un cambio firmado a aplicar dentro de una transacción abierta.
type Movement struct {
	Delta         decimal.Decimal
	ReferenceType string
	ReferenceID   string
	Reason        string
	CreatedBy     string
	AllowNegative bool
}

// Increment suma Quantity al inventario.
func (uc *LedgerUseCase) Increment(ctx context.Context, in MovementInput) (*dto.InventoryResponse, error) {
	return uc.apply(ctx, in, false)
}

// Decrement resta Quantity al inventario. Falla con ErrInsufficientStock si la
// cantidad quedaría negativa, salvo AllowNegative en ajustes/conciliaciones.
func (uc *LedgerUseCase) Decrement(ctx context.Context, in MovementInput) (*dto.InventoryResponse, error) {
	return uc.apply(ctx, in, true)
}

func (uc *LedgerUseCase) apply(ctx context.Context, in MovementInput, negative bool) (_ *dto.InventoryResponse, err error) {
	if in.InventoryID == "" {
		return nil, fmt.Errorf("%w: inventory_id requerido", domain.ErrInvalidInput)
	}
	if err := guard.PositiveQuantity(in.Quantity); err != nil {
		return nil, err
	}
	if err := guard.ReferenceType(in.ReferenceType); err != nil {
		return nil, err
	}

	op := "ledger.increment"
	delta := in.Quantity
	if negative {
		op = "ledger.decrement"
		delta = in.Quantity.Neg()
	}
	ctx, span := tracing.Start(ctx, tracerName, op,
		attribute.String("inventory.id", in.InventoryID),
		attribute.String("reference.type", in.ReferenceType),
	)
	defer func() { tracing.End(span, err) }()

	var (
		out      *entity.Inventory
		written  *entity.StockMovement
		replayed bool
	)
	err = uc.txRunner.Run(ctx, func(repos repository.Repos) error {
		inv, err := lockOwned(ctx, repos, in.VendorID, in.InventoryID)
		if err != nil {
			return err
		}
		if in.ReferenceID != "" {
			prev, err := repos.Movements.FindByReference(ctx, inv.ID, in.ReferenceType, in.ReferenceID)
			if err != nil {
				return err
			}
			if prev != nil {
				out, replayed = inv, true
				return nil
			}
		}
		written, err = ApplyMovement(ctx, repos, inv, Movement{
			Delta:         delta,
			ReferenceType: in.ReferenceType,
			ReferenceID:   in.ReferenceID,
			Reason:        in.Reason,
			CreatedBy:     in.UserID,
			AllowNegative: in.AllowNegative && correctionReference(in.ReferenceType),
		}, time.Now().UTC())
		if err != nil {
			return err
		}
		out = inv
		return nil
	})
	if errors.Is(err, domain.ErrDuplicate) && in.ReferenceID != "" {
		// otra transacción escribió la misma referencia entre el lock y el insert
		return uc.replay(ctx, in)
	}
	if err != nil {
		return nil, err
	}

	if replayed {
		metrics.MovementReplaysTotal.WithLabelValues(in.ReferenceType).Inc()
		uc.log.Debug().Str("inventory_id", in.InventoryID).Str("reference_id", in.ReferenceID).Msg("movimiento repetido, sin cambios")
		resp := ToInventoryResponse(out)
		resp.Replayed = true
		return resp, nil
	}

	metrics.MovementsTotal.WithLabelValues(in.ReferenceType).Inc()
	uc.log.Info().
		Str("inventory_id", out.ID).
		Str("reference_type", in.ReferenceType).
		Str("delta", delta.String()).
		Str("quantity_after", out.Quantity.String()).
		Msg("movimiento de stock registrado")

	resp := ToInventoryResponse(out)
	resp.MovementID = written.ID
	return resp, nil
}

func (uc *LedgerUseCase) replay(ctx context.Context, in MovementInput) (*dto.InventoryResponse, error) {
	var out *entity.Inventory
	err := uc.txRunner.Run(ctx, func(repos repository.Repos) error {
		inv, err := repos.Inventory.GetByID(ctx, in.InventoryID)
		if err != nil {
			return err
		}
		if inv == nil {
			return domain.ErrNotFound
		}
		out = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.MovementReplaysTotal.WithLabelValues(in.ReferenceType).Inc()
	resp := ToInventoryResponse(out)
	resp.Replayed = true
	return resp, nil
}

// BatchLine una línea de un lote. ReferenceID es su clave de idempotencia.
type BatchLine struct {
	InventoryID string
	Quantity    decimal.Decimal
	ReferenceID string
}

// BatchInput movimientos del mismo tipo que se aplican todo o nada.
// Decrement=true resta cada Quantity; si no, la suma.
type BatchInput struct {
	VendorID      string
	UserID        string
	ReferenceType string
	Reason        string
	Decrement     bool
	Lines         []BatchLine
}

// BatchResult cuántas líneas se escribieron y cuántas ya estaban aplicadas.
type BatchResult struct {
	Applied  int
	Replayed int
}

// ApplyBatch aplica todas las líneas en una sola transacción. Si una línea
// falla (stock insuficiente, inventario ajeno...) no queda ninguna aplicada.
// Las líneas cuya referencia ya existe se cuentan como repetidas y no escriben.
func (uc *LedgerUseCase) ApplyBatch(ctx context.Context, in BatchInput) (_ *BatchResult, err error) {
	if len(in.Lines) == 0 {
		return nil, fmt.Errorf("%w: lote sin líneas", domain.ErrInvalidInput)
	}
	if err := guard.ReferenceType(in.ReferenceType); err != nil {
		return nil, err
	}
	for _, line := range in.Lines {
		if line.InventoryID == "" || line.ReferenceID == "" {
			return nil, fmt.Errorf("%w: inventory_id y reference_id requeridos", domain.ErrInvalidInput)
		}
		if err := guard.PositiveQuantity(line.Quantity); err != nil {
			return nil, err
		}
	}

	ctx, span := tracing.Start(ctx, tracerName, "ledger.batch",
		attribute.String("reference.type", in.ReferenceType),
		attribute.Int("batch.lines", len(in.Lines)),
	)
	defer func() { tracing.End(span, err) }()

	res, err := uc.applyBatch(ctx, in)
	if errors.Is(err, domain.ErrDuplicate) {
		// una transacción concurrente escribió alguna de las referencias:
		// al repetir, esas líneas se detectan como ya aplicadas
		res, err = uc.applyBatch(ctx, in)
	}
	if err != nil {
		return nil, err
	}

	metrics.MovementsTotal.WithLabelValues(in.ReferenceType).Add(float64(res.Applied))
	metrics.MovementReplaysTotal.WithLabelValues(in.ReferenceType).Add(float64(res.Replayed))
	uc.log.Info().
		Str("reference_type", in.ReferenceType).
		Int("applied", res.Applied).
		Int("replayed", res.Replayed).
		Msg("lote de movimientos registrado")
	return res, nil
}

func (uc *LedgerUseCase) applyBatch(ctx context.Context, in BatchInput) (*BatchResult, error) {
	// bloqueo en orden ascendente de inventory_id, igual que las transferencias
	lines := make([]BatchLine, len(in.Lines))
	copy(lines, in.Lines)
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].InventoryID < lines[j].InventoryID })

	res := &BatchResult{}
	err := uc.txRunner.Run(ctx, func(repos repository.Repos) error {
		res.Applied, res.Replayed = 0, 0
		locked := make(map[string]*entity.Inventory, len(lines))
		now := time.Now().UTC()
		for _, line := range lines {
			inv, ok := locked[line.InventoryID]
			if !ok {
				var err error
				if inv, err = lockOwned(ctx, repos, in.VendorID, line.InventoryID); err != nil {
					return fmt.Errorf("inventario %s: %w", line.InventoryID, err)
				}
				locked[line.InventoryID] = inv
			}
			prev, err := repos.Movements.FindByReference(ctx, inv.ID, in.ReferenceType, line.ReferenceID)
			if err != nil {
				return err
			}
			if prev != nil {
				res.Replayed++
				continue
			}
			delta := line.Quantity
			if in.Decrement {
				delta = delta.Neg()
			}
			if _, err := ApplyMovement(ctx, repos, inv, Movement{
				Delta:         delta,
				ReferenceType: in.ReferenceType,
				ReferenceID:   line.ReferenceID,
				Reason:        in.Reason,
				CreatedBy:     in.UserID,
			}, now); err != nil {
				return fmt.Errorf("línea %s: %w", line.ReferenceID, err)
			}
			res.Applied++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ApplyMovement escribe el movimiento y la nueva cantidad sobre una fila ya
// bloqueada por la transacción actual. Actualiza inv en memoria.
func ApplyMovement(ctx context.Context, repos repository.Repos, inv *entity.Inventory, m Movement, now time.Time) (*entity.StockMovement, error) {
	before := inv.Quantity
	after := before.Add(m.Delta)
	if after.IsNegative() && !m.AllowNegative {
		if err := guard.SufficientStock(before, m.Delta.Neg()); err != nil {
			return nil, err
		}
	}
	if err := guard.StorableQuantity(after); err != nil {
		return nil, err
	}

	mov := &entity.StockMovement{
		ID:             uuid.New().String(),
		InventoryID:    inv.ID,
		QuantityDelta:  m.Delta,
		QuantityBefore: before,
		QuantityAfter:  after,
		ReferenceType:  m.ReferenceType,
		ReferenceID:    m.ReferenceID,
		Reason:         m.Reason,
		CreatedBy:      m.CreatedBy,
		CreatedAt:      now,
	}
	if err := repos.Movements.Create(ctx, mov); err != nil {
		return nil, err
	}
	if err := repos.Inventory.UpdateQuantity(ctx, inv.ID, after, now); err != nil {
		return nil, err
	}
	inv.Quantity = after
	inv.UpdatedAt = now
	return mov, nil
}

// Verify compara la cantidad almacenada con la suma de deltas del libro.
func (uc *LedgerUseCase) Verify(ctx context.Context, vendorID, inventoryID string) (*dto.LedgerCheckResponse, error) {
	var out *dto.LedgerCheckResponse
	err := uc.txRunner.Run(ctx, func(repos repository.Repos) error {
		inv, err := readOwned(ctx, repos, vendorID, inventoryID)
		if err != nil {
			return err
		}
		sum, err := repos.Movements.SumByInventory(ctx, inv.ID)
		if err != nil {
			return err
		}
		out = &dto.LedgerCheckResponse{
			InventoryID: inv.ID,
			Quantity:    inv.Quantity,
			LedgerSum:   sum,
			Consistent:  inv.Quantity.Equal(sum),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !out.Consistent {
		uc.log.Error().Str("inventory_id", inventoryID).
			Str("quantity", out.Quantity.String()).Str("ledger_sum", out.LedgerSum.String()).
			Msg("inventario inconsistente con el libro de movimientos")
	}
	return out, nil
}

// ListMovements devuelve los movimientos de un inventario, más recientes primero.
func (uc *LedgerUseCase) ListMovements(ctx context.Context, vendorID, inventoryID string, page dto.PageRequest) (*dto.MovementListResponse, error) {
	page.DefaultPage()
	var items []*entity.StockMovement
	err := uc.txRunner.Run(ctx, func(repos repository.Repos) error {
		if _, err := readOwned(ctx, repos, vendorID, inventoryID); err != nil {
			return err
		}
		var err error
		items, err = repos.Movements.ListByInventory(ctx, inventoryID, page.Limit, page.Offset)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := &dto.MovementListResponse{
		Items: make([]dto.MovementResponse, 0, len(items)),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}
	for _, m := range items {
		out.Items = append(out.Items, ToMovementResponse(m))
	}
	return out, nil
}

func lockOwned(ctx context.Context, repos repository.Repos, vendorID, inventoryID string) (*entity.Inventory, error) {
	inv, err := repos.Inventory.GetForUpdate(ctx, inventoryID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	if err := guard.Owner(inv.VendorID, vendorID); err != nil {
		return nil, err
	}
	return inv, nil
}

func readOwned(ctx context.Context, repos repository.Repos, vendorID, inventoryID string) (*entity.Inventory, error) {
	inv, err := repos.Inventory.GetByID(ctx, inventoryID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	if err := guard.Owner(inv.VendorID, vendorID); err != nil {
		return nil, err
	}
	return inv, nil
}

func correctionReference(t string) bool {
	return t == entity.ReferenceAdjustment || t == entity.ReferenceReconciliation
}

// ToInventoryResponse mapea la entidad a su DTO.
func ToInventoryResponse(inv *entity.Inventory) *dto.InventoryResponse {
	return &dto.InventoryResponse{
		ID:         inv.ID,
		VendorID:   inv.VendorID,
		ProductID:  inv.ProductID,
		VariantID:  inv.VariantID,
		LocationID: inv.LocationID,
		Quantity:   inv.Quantity,
		UpdatedAt:  inv.UpdatedAt,
	}
}

// ToMovementResponse mapea un movimiento a su DTO.
func ToMovementResponse(m *entity.StockMovement) dto.MovementResponse {
	return dto.MovementResponse{
		ID:             m.ID,
		InventoryID:    m.InventoryID,
		QuantityDelta:  m.QuantityDelta,
		QuantityBefore: m.QuantityBefore,
		QuantityAfter:  m.QuantityAfter,
		ReferenceType:  m.ReferenceType,
		ReferenceID:    m.ReferenceID,
		Reason:         m.Reason,
		CreatedBy:      m.CreatedBy,
		CreatedAt:      m.CreatedAt,
	}
}
