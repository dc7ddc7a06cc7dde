package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/mercado-ledger/internal/application/dto"
	"github.com/jhoicas/mercado-ledger/internal/application/inventory"
)

// InventoryHandler maneja el libro de stock y las transferencias (protegido).
type InventoryHandler struct {
	ledger    *inventory.LedgerUseCase
	transfers *inventory.TransferUseCase
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(ledger *inventory.LedgerUseCase, transfers *inventory.TransferUseCase) *InventoryHandler {
	return &InventoryHandler{ledger: ledger, transfers: transfers}
}

// Increment godoc
// @Summary      Sumar stock
// @Description  reference_id opcional actúa como clave de idempotencia; una repetición devuelve replayed=true.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string               true  "ID del inventario"
// @Param        body  body  dto.MovementRequest  true  "quantity, reference_type, reference_id"
// @Success      200   {object}  dto.InventoryResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/inventory/{id}/increment [post]
func (h *InventoryHandler) Increment(c *fiber.Ctx) error {
	return h.move(c, h.ledger.Increment)
}

// Decrement godoc
// @Summary      Restar stock
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string               true  "ID del inventario"
// @Param        body  body  dto.MovementRequest  true  "quantity, reference_type, reference_id"
// @Success      200   {object}  dto.InventoryResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/{id}/decrement [post]
func (h *InventoryHandler) Decrement(c *fiber.Ctx) error {
	return h.move(c, h.ledger.Decrement)
}

func (h *InventoryHandler) move(c *fiber.Ctx, apply func(context.Context, inventory.MovementInput) (*dto.InventoryResponse, error)) error {
	vendorID := GetVendorID(c)
	if vendorID == "" {
		return unauthorized(c)
	}
	var in dto.MovementRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := apply(c.UserContext(), inventory.MovementInput{
		VendorID:      vendorID,
		UserID:        GetUserID(c),
		InventoryID:   c.Params("id"),
		Quantity:      in.Quantity,
		ReferenceType: in.ReferenceType,
		ReferenceID:   in.ReferenceID,
		Reason:        in.Reason,
		AllowNegative: in.AllowNegative,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Movements godoc
// @Summary      Movimientos de un inventario
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id      path   string  true   "ID del inventario"
// @Param        limit   query  int     false  "máx. 100"
// @Param        offset  query  int     false  "desplazamiento"
// @Success      200  {object}  dto.MovementListResponse
// @Router       /api/inventory/{id}/movements [get]
func (h *InventoryHandler) Movements(c *fiber.Ctx) error {
	vendorID := GetVendorID(c)
	if vendorID == "" {
		return unauthorized(c)
	}
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badBody(c)
	}
	out, err := h.ledger.ListMovements(c.UserContext(), vendorID, c.Params("id"), page)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Verify godoc
// @Summary      Conciliar cantidad contra el libro
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del inventario"
// @Success      200  {object}  dto.LedgerCheckResponse
// @Router       /api/inventory/{id}/verify [get]
func (h *InventoryHandler) Verify(c *fiber.Ctx) error {
	vendorID := GetVendorID(c)
	if vendorID == "" {
		return unauthorized(c)
	}
	out, err := h.ledger.Verify(c.UserContext(), vendorID, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Transfer godoc
// @Summary      Transferir stock entre ubicaciones
// @Description  Salida y entrada en una sola transacción; los locks se toman en orden de id de ubicación.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TransferRequest  true  "product_id, from_location_id, to_location_id, quantity"
// @Success      200   {object}  dto.TransferResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/transfers [post]
func (h *InventoryHandler) Transfer(c *fiber.Ctx) error {
	vendorID := GetVendorID(c)
	if vendorID == "" {
		return unauthorized(c)
	}
	var in dto.TransferRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.transfers.Transfer(c.UserContext(), inventory.TransferInput{
		VendorID:       vendorID,
		UserID:         GetUserID(c),
		ProductID:      in.ProductID,
		VariantID:      in.VariantID,
		FromLocationID: in.FromLocationID,
		ToLocationID:   in.ToLocationID,
		Quantity:       in.Quantity,
		Reason:         in.Reason,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}
