package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/mercado-ledger/internal/application/dto"
	"github.com/jhoicas/mercado-ledger/internal/application/session"
)

// SessionHandler maneja las sesiones de caja (protegido).
type SessionHandler struct {
	uc *session.UseCase
}

// NewSessionHandler construye el handler.
func NewSessionHandler(uc *session.UseCase) *SessionHandler {
	return &SessionHandler{uc: uc}
}

// GetOrCreate godoc
// @Summary      Obtener o abrir la sesión de una caja
// @Description  201 si se abrió una sesión nueva, 200 si ya había una abierta para la caja.
// @Tags         sessions
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.GetOrCreateSessionRequest  true  "location_id, register_id, opening_cash"
// @Success      200   {object}  dto.SessionResponse
// @Success      201   {object}  dto.SessionResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/sessions [post]
func (h *SessionHandler) GetOrCreate(c *fiber.Ctx) error {
	vendorID := GetVendorID(c)
	if vendorID == "" {
		return unauthorized(c)
	}
	var in dto.GetOrCreateSessionRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.GetOrCreate(c.UserContext(), session.GetOrCreateInput{
		LocationID:  in.LocationID,
		RegisterID:  in.RegisterID,
		UserID:      GetUserID(c),
		VendorID:    vendorID,
		OpeningCash: in.OpeningCash,
	})
	if err != nil {
		return respondError(c, err)
	}
	status := fiber.StatusOK
	if out.WasCreated {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(out)
}

// Get godoc
// @Summary      Obtener sesión
// @Tags         sessions
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la sesión"
// @Success      200  {object}  dto.SessionResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/sessions/{id} [get]
func (h *SessionHandler) Get(c *fiber.Ctx) error {
	vendorID := GetVendorID(c)
	if vendorID == "" {
		return unauthorized(c)
	}
	out, err := h.uc.Get(c.UserContext(), vendorID, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// RecordSale godoc
// @Summary      Registrar una venta en la sesión
// @Tags         sessions
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                 true  "ID de la sesión"
// @Param        body  body  dto.RecordSaleRequest  true  "amount, payment_method (cash|card|other)"
// @Success      200   {object}  dto.SessionResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/sessions/{id}/sales [post]
func (h *SessionHandler) RecordSale(c *fiber.Ctx) error {
	vendorID := GetVendorID(c)
	if vendorID == "" {
		return unauthorized(c)
	}
	var in dto.RecordSaleRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.RecordSale(c.UserContext(), vendorID, c.Params("id"), in.Amount, in.PaymentMethod)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Void godoc
// @Summary      Registrar una anulación
// @Tags         sessions
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                    true  "ID de la sesión"
// @Param        body  body  dto.SessionAmountRequest  true  "amount"
// @Success      200   {object}  dto.SessionResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/sessions/{id}/void [post]
func (h *SessionHandler) Void(c *fiber.Ctx) error {
	vendorID := GetVendorID(c)
	if vendorID == "" {
		return unauthorized(c)
	}
	var in dto.SessionAmountRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.UpdateOnVoid(c.UserContext(), vendorID, c.Params("id"), in.Amount, in.PaymentMethod)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Refund godoc
// @Summary      Registrar un reembolso
// @Tags         sessions
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                    true  "ID de la sesión"
// @Param        body  body  dto.SessionAmountRequest  true  "amount"
// @Success      200   {object}  dto.SessionResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/sessions/{id}/refund [post]
func (h *SessionHandler) Refund(c *fiber.Ctx) error {
	vendorID := GetVendorID(c)
	if vendorID == "" {
		return unauthorized(c)
	}
	var in dto.SessionAmountRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.UpdateForRefund(c.UserContext(), vendorID, c.Params("id"), in.Amount)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Close godoc
// @Summary      Cerrar la sesión con arqueo opcional
// @Tags         sessions
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                   true  "ID de la sesión"
// @Param        body  body  dto.CloseSessionRequest  false "closing_cash"
// @Success      200   {object}  dto.SessionResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/sessions/{id}/close [post]
func (h *SessionHandler) Close(c *fiber.Ctx) error {
	vendorID := GetVendorID(c)
	if vendorID == "" {
		return unauthorized(c)
	}
	var in dto.CloseSessionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
	}
	out, err := h.uc.Close(c.UserContext(), session.CloseInput{
		VendorID:    vendorID,
		SessionID:   c.Params("id"),
		UserID:      GetUserID(c),
		ClosingCash: in.ClosingCash,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Report godoc
// @Summary      Reporte Z de la sesión (PDF)
// @Tags         sessions
// @Security     Bearer
// @Produce      application/pdf
// @Param        id   path  string  true  "ID de la sesión"
// @Success      200  {file}  binary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/sessions/{id}/report [get]
func (h *SessionHandler) Report(c *fiber.Ctx) error {
	vendorID := GetVendorID(c)
	if vendorID == "" {
		return unauthorized(c)
	}
	id := c.Params("id")
	pdf, err := h.uc.Report(c.UserContext(), vendorID, id)
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`inline; filename="reporte-z-%s.pdf"`, id))
	return c.Send(pdf)
}
