package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrDuplicate          = errors.New("recurso duplicado")
	ErrForbidden          = errors.New("acceso denegado")
	ErrConflict           = errors.New("conflicto con el estado actual")
	ErrInsufficientStock  = errors.New("stock insuficiente")
	ErrNoPrimaryLocation  = errors.New("no se encontró una ubicación principal para el vendedor")
	ErrVariantsRequired   = errors.New("los productos variables requieren al menos una variante")
	ErrInvalidProductType = errors.New("tipo de producto inválido")
	ErrInvalidQuantity    = errors.New("cantidad inválida")
	ErrSessionClosed      = errors.New("la sesión de caja está cerrada")
)
