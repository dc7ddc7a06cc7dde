package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de una sesión de caja.
const (
	SessionStatusOpen   = "open"
	SessionStatusClosed = "closed"
)

// Métodos de pago que alimentan los totales de la sesión.
const (
	PaymentCash  = "cash"
	PaymentCard  = "card"
	PaymentOther = "other"
)

// Session es el turno de una caja registradora (POS). Como máximo una sesión abierta por RegisterID.
type Session struct {
	ID                string
	SessionNumber     int64
	RegisterID        string
	LocationID        string
	VendorID          string
	UserID            string
	Status            string
	OpeningCash       decimal.Decimal
	TotalSales        decimal.Decimal
	TotalTransactions int64
	TotalCash         decimal.Decimal
	TotalCard         decimal.Decimal
	TotalOther        decimal.Decimal
	TotalVoids        decimal.Decimal
	VoidCount         int64
	TotalRefunds      decimal.Decimal
	RefundCount       int64
	ClosingCash       *decimal.Decimal
	ExpectedCash      *decimal.Decimal
	CashDifference    *decimal.Decimal
	OpenedAt          time.Time
	ClosedAt          *time.Time
	ClosedBy          string
	UpdatedAt         time.Time
}

// IsOpen indica si la sesión acepta movimientos.
func (s *Session) IsOpen() bool {
	return s.Status == SessionStatusOpen
}
