package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementRequest body para POST /api/inventory/:id/increment|decrement.
type MovementRequest struct {
	Quantity      decimal.Decimal `json:"quantity"`
	ReferenceType string          `json:"reference_type"`
	ReferenceID   string          `json:"reference_id,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	AllowNegative bool            `json:"allow_negative,omitempty"`
}

// InventoryResponse fila de inventario tras un movimiento.
// Replayed=true indica que la referencia ya estaba aplicada y no se escribió nada.
type InventoryResponse struct {
	ID         string          `json:"id"`
	VendorID   string          `json:"vendor_id"`
	ProductID  string          `json:"product_id"`
	VariantID  *string         `json:"variant_id,omitempty"`
	LocationID string          `json:"location_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	UpdatedAt  time.Time       `json:"updated_at"`
	MovementID string          `json:"movement_id,omitempty"`
	Replayed   bool            `json:"replayed"`
}

// MovementResponse entrada del libro de stock.
type MovementResponse struct {
	ID             string          `json:"id"`
	InventoryID    string          `json:"inventory_id"`
	QuantityDelta  decimal.Decimal `json:"quantity_delta"`
	QuantityBefore decimal.Decimal `json:"quantity_before"`
	QuantityAfter  decimal.Decimal `json:"quantity_after"`
	ReferenceType  string          `json:"reference_type"`
	ReferenceID    string          `json:"reference_id,omitempty"`
	Reason         string          `json:"reason,omitempty"`
	CreatedBy      string          `json:"created_by,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// MovementListResponse lista paginada de movimientos.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// LedgerCheckResponse compara la cantidad almacenada con la suma del libro.
type LedgerCheckResponse struct {
	InventoryID string          `json:"inventory_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	LedgerSum   decimal.Decimal `json:"ledger_sum"`
	Consistent  bool            `json:"consistent"`
}

// TransferRequest body para POST /api/inventory/transfers.
type TransferRequest struct {
	ProductID      string          `json:"product_id"`
	VariantID      *string         `json:"variant_id,omitempty"`
	FromLocationID string          `json:"from_location_id"`
	ToLocationID   string          `json:"to_location_id"`
	Quantity       decimal.Decimal `json:"quantity"`
	Reason         string          `json:"reason,omitempty"`
}

// TransferResponse resultado de una transferencia entre ubicaciones.
type TransferResponse struct {
	Success      bool            `json:"success"`
	TransferID   string          `json:"transfer_id"`
	ProductID    string          `json:"product_id"`
	VariantID    *string         `json:"variant_id,omitempty"`
	FromLocation string          `json:"from_location"`
	ToLocation   string          `json:"to_location"`
	Quantity     decimal.Decimal `json:"quantity"`
	FromQuantity decimal.Decimal `json:"from_quantity"`
	ToQuantity   decimal.Decimal `json:"to_quantity"`
}
