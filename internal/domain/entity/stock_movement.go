package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de referencia de un movimiento de stock.
const (
	ReferenceProductCreation = "product_creation"
	ReferenceSale            = "sale"
	ReferenceVoid            = "void"
	ReferenceRefund          = "refund"
	ReferenceTransferIn      = "transfer_in"
	ReferenceTransferOut     = "transfer_out"
	ReferenceAdjustment      = "adjustment"
	ReferenceReconciliation  = "reconciliation"
)

// ReferenceTypes lista los tipos de referencia aceptados por el libro de stock.
var ReferenceTypes = []string{
	ReferenceProductCreation,
	ReferenceSale,
	ReferenceVoid,
	ReferenceRefund,
	ReferenceTransferIn,
	ReferenceTransferOut,
	ReferenceAdjustment,
	ReferenceReconciliation,
}

// StockMovement es una entrada inmutable del libro de stock: un cambio con signo sobre
// una fila de inventario y la referencia al evento de negocio que lo causó.
type StockMovement struct {
	ID             string
	InventoryID    string
	QuantityDelta  decimal.Decimal // positivo entrada, negativo salida
	QuantityBefore decimal.Decimal
	QuantityAfter  decimal.Decimal
	ReferenceType  string
	ReferenceID    string // vacío = sin clave de idempotencia
	Reason         string
	CreatedBy      string
	CreatedAt      time.Time
}
