package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// GetOrCreateSessionRequest body para POST /api/sessions.
type GetOrCreateSessionRequest struct {
	LocationID  string          `json:"location_id"`
	RegisterID  string          `json:"register_id"`
	OpeningCash decimal.Decimal `json:"opening_cash"`
}

// SessionAmountRequest body para void/refund. PaymentMethod solo aplica a
// void y es opcional.
type SessionAmountRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method,omitempty"`
}

// RecordSaleRequest body para POST /api/sessions/:id/sales.
type RecordSaleRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
}

// CloseSessionRequest body para POST /api/sessions/:id/close.
type CloseSessionRequest struct {
	ClosingCash *decimal.Decimal `json:"closing_cash,omitempty"`
}

// SessionResponse estado y totales de una sesión de caja.
// WasCreated solo es true en la llamada que abrió la sesión.
type SessionResponse struct {
	ID                string           `json:"id"`
	SessionNumber     int64            `json:"session_number"`
	Status            string           `json:"status"`
	RegisterID        string           `json:"register_id"`
	LocationID        string           `json:"location_id"`
	VendorID          string           `json:"vendor_id"`
	UserID            string           `json:"user_id"`
	WasCreated        bool             `json:"was_created"`
	OpeningCash       decimal.Decimal  `json:"opening_cash"`
	TotalSales        decimal.Decimal  `json:"total_sales"`
	TotalTransactions int64            `json:"total_transactions"`
	TotalCash         decimal.Decimal  `json:"total_cash"`
	TotalCard         decimal.Decimal  `json:"total_card"`
	TotalOther        decimal.Decimal  `json:"total_other"`
	TotalVoids        decimal.Decimal  `json:"total_voids"`
	VoidCount         int64            `json:"void_count"`
	TotalRefunds      decimal.Decimal  `json:"total_refunds"`
	RefundCount       int64            `json:"refund_count"`
	ClosingCash       *decimal.Decimal `json:"closing_cash,omitempty"`
	ExpectedCash      *decimal.Decimal `json:"expected_cash,omitempty"`
	CashDifference    *decimal.Decimal `json:"cash_difference,omitempty"`
	OpenedAt          time.Time        `json:"opened_at"`
	ClosedAt          *time.Time       `json:"closed_at,omitempty"`
	ClosedBy          string           `json:"closed_by,omitempty"`
}
