package inventory

import (
	"context"
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
	"github.com/jhoicas/mercado-ledger/pkg/tracing"
)

// TransferUseCase mueve stock de un producto entre dos ubicaciones del mismo vendedor.
type TransferUseCase struct {
	txRunner ports.TxRunner
	log      *logger.Logger
}

// NewTransferUseCase construye el caso de uso.
func NewTransferUseCase(txRunner ports.TxRunner, log *logger.Logger) *TransferUseCase {
	return &TransferUseCase{txRunner: txRunner, log: log.Named("transfer")}
}

// TransferInput entrada de Transfer. VariantID es obligatorio para productos variables.
type TransferInput struct {
	VendorID       string
	UserID         string
	ProductID      string
	VariantID      *string
	FromLocationID string
	ToLocationID   string
	Quantity       decimal.Decimal
	Reason         string
}

// Transfer descuenta del origen (transfer_out) y suma al destino (transfer_in) en
// una sola transacción. Las dos filas se bloquean siempre en orden ascendente de
// location id, sin importar la dirección. Si el origen no alcanza, nada cambia.
func (uc *TransferUseCase) Transfer(ctx context.Context, in TransferInput) (_ *dto.TransferResponse, err error) {
	if in.ProductID == "" || in.VendorID == "" {
		return nil, fmt.Errorf("%w: product_id y vendor_id requeridos", domain.ErrInvalidInput)
	}
	if err := guard.PositiveQuantity(in.Quantity); err != nil {
		return nil, err
	}
	if err := guard.DistinctLocations(in.FromLocationID, in.ToLocationID); err != nil {
		return nil, err
	}

	transferID := uuid.New().String()
	ctx, span := tracing.Start(ctx, tracerName, "inventory.transfer",
		attribute.String("transfer.id", transferID),
		attribute.String("product.id", in.ProductID),
	)
	defer func() {
		metrics.TransfersTotal.WithLabelValues(metrics.Result(err)).Inc()
		tracing.End(span, err)
	}()

	var src, dst *entity.Inventory
	err = uc.txRunner.Run(ctx, func(repos repository.Repos) error {
		if err := uc.checkScope(ctx, repos, in); err != nil {
			return err
		}

		srcKey := entity.StockKey{ProductID: in.ProductID, VariantID: in.VariantID, LocationID: in.FromLocationID}
		dstKey := entity.StockKey{ProductID: in.ProductID, VariantID: in.VariantID, LocationID: in.ToLocationID}

		lockSrc := func() error {
			inv, err := repos.Inventory.FindForUpdate(ctx, srcKey)
			if err != nil {
				return err
			}
			if inv == nil {
				return guard.SufficientStock(decimal.Zero, in.Quantity)
			}
			src = inv
			return nil
		}
		lockDst := func() error {
			inv, err := repos.Inventory.EnsureForUpdate(ctx, in.VendorID, dstKey)
			if err != nil {
				return err
			}
			dst = inv
			return nil
		}

		first, second := lockSrc, lockDst
		if in.ToLocationID < in.FromLocationID {
			first, second = lockDst, lockSrc
		}
		if err := first(); err != nil {
			return err
		}
		if err := second(); err != nil {
			return err
		}

		if err := guard.SufficientStock(src.Quantity, in.Quantity); err != nil {
			return err
		}

		now := time.Now().UTC()
		if _, err := ApplyMovement(ctx, repos, src, Movement{
			Delta:         in.Quantity.Neg(),
			ReferenceType: entity.ReferenceTransferOut,
			ReferenceID:   transferID,
			Reason:        in.Reason,
			CreatedBy:     in.UserID,
		}, now); err != nil {
			return err
		}
		_, err := ApplyMovement(ctx, repos, dst, Movement{
			Delta:         in.Quantity,
			ReferenceType: entity.ReferenceTransferIn,
			ReferenceID:   transferID,
			Reason:        in.Reason,
			CreatedBy:     in.UserID,
		}, now)
		return err
	})
	if err != nil {
		uc.log.Warn().Err(err).Str("transfer_id", transferID).Str("product_id", in.ProductID).Msg("transferencia revertida")
		return nil, err
	}

	metrics.MovementsTotal.WithLabelValues(entity.ReferenceTransferOut).Inc()
	metrics.MovementsTotal.WithLabelValues(entity.ReferenceTransferIn).Inc()
	uc.log.Info().
		Str("transfer_id", transferID).
		Str("from", in.FromLocationID).
		Str("to", in.ToLocationID).
		Str("quantity", in.Quantity.String()).
		Msg("transferencia aplicada")

	return &dto.TransferResponse{
		Success:      true,
		TransferID:   transferID,
		ProductID:    in.ProductID,
		VariantID:    in.VariantID,
		FromLocation: in.FromLocationID,
		ToLocation:   in.ToLocationID,
		Quantity:     in.Quantity,
		FromQuantity: src.Quantity,
		ToQuantity:   dst.Quantity,
	}, nil
}

// checkScope valida producto, variante y que ambas ubicaciones sean del vendedor.
func (uc *TransferUseCase) checkScope(ctx context.Context, repos repository.Repos, in TransferInput) error {
	product, err := repos.Products.GetByID(ctx, in.ProductID)
	if err != nil {
		return err
	}
	if product == nil {
		return domain.ErrNotFound
	}
	if err := guard.Owner(product.VendorID, in.VendorID); err != nil {
		return err
	}
	if product.IsVariable() != (in.VariantID != nil) {
		return fmt.Errorf("%w: variant_id requerido solo para productos variables", domain.ErrInvalidInput)
	}
	if in.VariantID != nil {
		variants, err := repos.Products.ListVariants(ctx, product.ID)
		if err != nil {
			return err
		}
		found := false
		for _, v := range variants {
			if v.ID == *in.VariantID {
				found = true
				break
			}
		}
		if !found {
			return domain.ErrNotFound
		}
	}
	for _, id := range []string{in.FromLocationID, in.ToLocationID} {
		loc, err := repos.Locations.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if loc == nil {
			return domain.ErrNotFound
		}
		if err := guard.Owner(loc.VendorID, in.VendorID); err != nil {
			return err
		}
	}
	return nil
}
