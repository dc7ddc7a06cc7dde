package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/mercado-ledger/internal/application/catalog"
	"github.com/jhoicas/mercado-ledger/internal/application/dto"
)

// ProductHandler maneja las peticiones HTTP de productos (protegido).
type ProductHandler struct {
	uc *catalog.CreateProductUseCase
}

// NewProductHandler construye el handler.
func NewProductHandler(uc *catalog.CreateProductUseCase) *ProductHandler {
	return &ProductHandler{uc: uc}
}

// Create godoc
// @Summary      Crear producto con inventario inicial
// @Description  Crea el producto, sus variantes y el inventario en la ubicación principal en una sola transacción.
// @Tags         products
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateProductRequest  true  "product_data, initial_stock, variants"
// @Success      201   {object}  dto.CreateProductResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/products [post]
func (h *ProductHandler) Create(c *fiber.Ctx) error {
	vendorID := GetVendorID(c)
	if vendorID == "" {
		return unauthorized(c)
	}
	var in dto.CreateProductRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.CreateProduct(c.UserContext(), catalog.CreateProductInput{
		VendorID:     vendorID,
		UserID:       GetUserID(c),
		Product:      in.Product,
		InitialStock: in.InitialStock,
		Variants:     in.Variants,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID godoc
// @Summary      Obtener producto con variantes e inventario
// @Tags         products
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del producto"
// @Success      200  {object}  dto.ProductResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/products/{id} [get]
func (h *ProductHandler) GetByID(c *fiber.Ctx) error {
	vendorID := GetVendorID(c)
	if vendorID == "" {
		return unauthorized(c)
	}
	out, err := h.uc.GetProduct(c.UserContext(), vendorID, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// List godoc
// @Summary      Listar productos del vendedor
// @Tags         products
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "máx. 100"
// @Param        offset  query  int  false  "desplazamiento"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/products [get]
func (h *ProductHandler) List(c *fiber.Ctx) error {
	vendorID := GetVendorID(c)
	if vendorID == "" {
		return unauthorized(c)
	}
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badBody(c)
	}
	page.DefaultPage()
	items, err := h.uc.ListProducts(c.UserContext(), vendorID, page)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"items": items,
		"page":  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	})
}
