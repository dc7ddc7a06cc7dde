// Package catalog orquesta la creación de productos con su inventario inicial.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jhoicas/mercado-ledger/internal/application/dto"
	"github.com/jhoicas/mercado-ledger/internal/application/inventory"
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

const tracerName = "github.com/jhoicas/mercado-ledger/internal/application/catalog"

// CreateProductUseCase crea producto, variantes, inventario y movimientos semilla
// en una única transacción: o se escribe todo o nada.
type CreateProductUseCase struct {
	txRunner ports.TxRunner
	log      *logger.Logger
}

// NewCreateProductUseCase construye el caso de uso.
func NewCreateProductUseCase(txRunner ports.TxRunner, log *logger.Logger) *CreateProductUseCase {
	return &CreateProductUseCase{txRunner: txRunner, log: log.Named("catalog")}
}

// CreateProductInput entrada de CreateProduct.
type CreateProductInput struct {
	VendorID     string
	UserID       string
	Product      dto.ProductData
	InitialStock decimal.Decimal
	Variants     []dto.VariantRequest
}

// CreateProduct valida fuera del store y luego, en la transacción, resuelve la
// ubicación principal antes de cualquier escritura.
func (uc *CreateProductUseCase) CreateProduct(ctx context.Context, in CreateProductInput) (_ *dto.CreateProductResponse, err error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	ctx, span := tracing.Start(ctx, tracerName, "catalog.create_product",
		attribute.String("vendor.id", in.VendorID),
		attribute.String("product.type", in.Product.ProductType),
	)
	defer func() { tracing.End(span, err) }()

	status := in.Product.Status
	if status == "" {
		status = entity.ProductStatusActive
	}

	out := &dto.CreateProductResponse{}
	err = uc.txRunner.Run(ctx, func(repos repository.Repos) error {
		loc, err := repos.Locations.GetPrimary(ctx, in.VendorID)
		if err != nil {
			return err
		}
		if err := guard.PrimaryLocation(loc, in.VendorID); err != nil {
			return err
		}
		out.LocationID, out.LocationName = loc.ID, loc.Name

		now := time.Now().UTC()
		product := &entity.Product{
			ID:           uuid.New().String(),
			VendorID:     in.VendorID,
			Name:         strings.TrimSpace(in.Product.Name),
			SKU:          strings.TrimSpace(in.Product.SKU),
			ProductType:  in.Product.ProductType,
			RegularPrice: in.Product.RegularPrice,
			CostPrice:    in.Product.CostPrice,
			Status:       status,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := repos.Products.Create(ctx, product); err != nil {
			return err
		}
		out.ProductID = product.ID

		if !product.IsVariable() {
			invID, err := seedInventory(ctx, repos, product, nil, loc.ID, in.InitialStock, in.UserID, now)
			if err != nil {
				return err
			}
			out.InventoryID = invID
			out.InventoryIDs = []string{invID}
			return nil
		}

		for _, vr := range in.Variants {
			variant := &entity.Variant{
				ID:        uuid.New().String(),
				ProductID: product.ID,
				VendorID:  in.VendorID,
				Name:      strings.TrimSpace(vr.Name),
				SKU:       strings.TrimSpace(vr.SKU),
				Price:     vr.Price,
				CreatedAt: now,
			}
			if err := repos.Products.CreateVariant(ctx, variant); err != nil {
				return err
			}
			invID, err := seedInventory(ctx, repos, product, &variant.ID, loc.ID, vr.StockQuantity, in.UserID, now)
			if err != nil {
				return err
			}
			out.VariantIDs = append(out.VariantIDs, variant.ID)
			out.InventoryIDs = append(out.InventoryIDs, invID)
		}
		out.InventoryID = out.InventoryIDs[0]
		out.VariantsCreated = len(out.VariantIDs)
		return nil
	})
	if err != nil {
		uc.log.Warn().Err(err).Str("vendor_id", in.VendorID).Str("sku", in.Product.SKU).Msg("creación de producto revertida")
		return nil, err
	}

	metrics.ProductsCreatedTotal.WithLabelValues(in.Product.ProductType).Inc()
	metrics.MovementsTotal.WithLabelValues(entity.ReferenceProductCreation).Add(float64(len(out.InventoryIDs)))
	uc.log.Info().
		Str("product_id", out.ProductID).
		Str("location_id", out.LocationID).
		Int("variants", out.VariantsCreated).
		Msg("producto creado")
	return out, nil
}

// seedInventory crea la fila de inventario en cero y registra la semilla como
// movimiento product_creation (referencia = id del inventario), aun si es cero.
func seedInventory(
	ctx context.Context,
	repos repository.Repos,
	product *entity.Product,
	variantID *string,
	locationID string,
	qty decimal.Decimal,
	userID string,
	now time.Time,
) (string, error) {
	inv := &entity.Inventory{
		ID:         uuid.New().String(),
		VendorID:   product.VendorID,
		ProductID:  product.ID,
		VariantID:  variantID,
		LocationID: locationID,
		Quantity:   decimal.Zero,
		UpdatedAt:  now,
	}
	if err := repos.Inventory.Create(ctx, inv); err != nil {
		return "", err
	}
	_, err := inventory.ApplyMovement(ctx, repos, inv, inventory.Movement{
		Delta:         qty,
		ReferenceType: entity.ReferenceProductCreation,
		ReferenceID:   inv.ID,
		Reason:        "stock inicial",
		CreatedBy:     userID,
	}, now)
	if err != nil {
		return "", err
	}
	return inv.ID, nil
}

func validate(in CreateProductInput) error {
	if in.VendorID == "" {
		return fmt.Errorf("%w: vendor_id requerido", domain.ErrInvalidInput)
	}
	p := in.Product
	if err := guard.ProductType(p.ProductType); err != nil {
		return err
	}
	if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.SKU) == "" {
		return fmt.Errorf("%w: nombre y sku requeridos", domain.ErrInvalidInput)
	}
	switch p.Status {
	case "", entity.ProductStatusActive, entity.ProductStatusDraft, entity.ProductStatusArchived:
	default:
		return fmt.Errorf("%w: estado %q", domain.ErrInvalidInput, p.Status)
	}
	if p.RegularPrice.IsNegative() || p.CostPrice.IsNegative() {
		return fmt.Errorf("%w: precios negativos", domain.ErrInvalidInput)
	}
	if err := guard.Variants(p.ProductType, len(in.Variants)); err != nil {
		return err
	}
	if p.ProductType == entity.ProductTypeSimple {
		if len(in.Variants) > 0 {
			return fmt.Errorf("%w: un producto simple no admite variantes", domain.ErrInvalidInput)
		}
		return guard.NonNegativeQuantity(in.InitialStock)
	}

	seen := make(map[string]struct{}, len(in.Variants))
	for _, v := range in.Variants {
		sku := strings.TrimSpace(v.SKU)
		if strings.TrimSpace(v.Name) == "" || sku == "" {
			return fmt.Errorf("%w: nombre y sku de variante requeridos", domain.ErrInvalidInput)
		}
		if _, dup := seen[sku]; dup {
			return fmt.Errorf("%w: sku de variante repetido %q", domain.ErrInvalidInput, sku)
		}
		seen[sku] = struct{}{}
		if err := guard.NonNegativeQuantity(v.StockQuantity); err != nil {
			return err
		}
		if v.Price.IsNegative() {
			return fmt.Errorf("%w: precio de variante negativo", domain.ErrInvalidInput)
		}
	}
	return nil
}

// GetProduct devuelve el producto con variantes, inventario y margen.
func (uc *CreateProductUseCase) GetProduct(ctx context.Context, vendorID, productID string) (*dto.ProductResponse, error) {
	var out *dto.ProductResponse
	err := uc.txRunner.Run(ctx, func(repos repository.Repos) error {
		p, err := repos.Products.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		if p == nil {
			return domain.ErrNotFound
		}
		if err := guard.Owner(p.VendorID, vendorID); err != nil {
			return err
		}
		variants, err := repos.Products.ListVariants(ctx, p.ID)
		if err != nil {
			return err
		}
		rows, err := repos.Inventory.ListByProduct(ctx, p.ID)
		if err != nil {
			return err
		}
		out = toProductResponse(p)
		for _, v := range variants {
			out.Variants = append(out.Variants, dto.VariantResponse{ID: v.ID, Name: v.Name, SKU: v.SKU, Price: v.Price})
		}
		for _, inv := range rows {
			out.Inventory = append(out.Inventory, *inventory.ToInventoryResponse(inv))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListProducts lista los productos del vendedor (sin variantes ni inventario).
func (uc *CreateProductUseCase) ListProducts(ctx context.Context, vendorID string, page dto.PageRequest) ([]dto.ProductResponse, error) {
	page.DefaultPage()
	var items []*entity.Product
	err := uc.txRunner.Run(ctx, func(repos repository.Repos) error {
		var err error
		items, err = repos.Products.ListByVendor(ctx, vendorID, page.Limit, page.Offset)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]dto.ProductResponse, 0, len(items))
	for _, p := range items {
		out = append(out, *toProductResponse(p))
	}
	return out, nil
}

func toProductResponse(p *entity.Product) *dto.ProductResponse {
	return &dto.ProductResponse{
		ID:           p.ID,
		VendorID:     p.VendorID,
		Name:         p.Name,
		SKU:          p.SKU,
		ProductType:  p.ProductType,
		RegularPrice: p.RegularPrice,
		CostPrice:    p.CostPrice,
		Margin:       precision.Margin(p.RegularPrice, p.CostPrice),
		Status:       p.Status,
		Inventory:    []dto.InventoryResponse{},
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}
