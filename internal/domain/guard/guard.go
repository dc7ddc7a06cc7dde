// Package guard concentra las validaciones de precondición que se ejecutan antes
// de cualquier escritura. Cada función devuelve un error centinela de domain
// (envuelto con detalle) o nil.
package guard

import (
	"fmt"

	"github.com/jhoicas/mercado-ledger/internal/domain"
	"github.com/jhoicas/mercado-ledger/internal/domain/entity"
	"github.com/jhoicas/mercado-ledger/pkg/precision"
	"github.com/shopspring/decimal"
)

// PrimaryLocation exige que el vendedor tenga una ubicación principal.
func PrimaryLocation(loc *entity.Location, vendorID string) error {
	if loc == nil {
		return fmt.Errorf("%w: vendor %s", domain.ErrNoPrimaryLocation, vendorID)
	}
	if loc.VendorID != vendorID {
		return fmt.Errorf("%w: la ubicación %s no pertenece al vendedor", domain.ErrForbidden, loc.ID)
	}
	return nil
}

// ProductType acepta solo simple o variable.
func ProductType(t string) error {
	switch t {
	case entity.ProductTypeSimple, entity.ProductTypeVariable:
		return nil
	}
	return fmt.Errorf("%w: %q", domain.ErrInvalidProductType, t)
}

// Variants exige al menos una variante cuando el producto es variable.
func Variants(productType string, count int) error {
	if productType == entity.ProductTypeVariable && count == 0 {
		return domain.ErrVariantsRequired
	}
	return nil
}

// PositiveQuantity exige q > 0 y que q quepa sin redondeo en almacenamiento.
func PositiveQuantity(q decimal.Decimal) error {
	if !q.IsPositive() {
		return fmt.Errorf("%w: %s", domain.ErrInvalidQuantity, q.String())
	}
	return StorableQuantity(q)
}

// NonNegativeQuantity exige q >= 0 y que q quepa sin redondeo en almacenamiento.
func NonNegativeQuantity(q decimal.Decimal) error {
	if q.IsNegative() {
		return fmt.Errorf("%w: %s", domain.ErrInvalidQuantity, q.String())
	}
	return StorableQuantity(q)
}

// StorableQuantity rechaza cantidades con más de 4 decimales o fuera de
// NUMERIC(20,4): la base las redondearía y el libro dejaría de cuadrar.
func StorableQuantity(q decimal.Decimal) error {
	if !precision.Storable(q) {
		return fmt.Errorf("%w: %s excede la precisión de almacenamiento", domain.ErrInvalidQuantity, q.String())
	}
	return nil
}

// SufficientStock exige available >= requested.
func SufficientStock(available, requested decimal.Decimal) error {
	if available.LessThan(requested) {
		return fmt.Errorf("%w: disponible %s, solicitado %s",
			domain.ErrInsufficientStock, available.String(), requested.String())
	}
	return nil
}

// DistinctLocations rechaza transferencias hacia la misma ubicación.
func DistinctLocations(from, to string) error {
	if from == "" || to == "" {
		return fmt.Errorf("%w: ubicaciones requeridas", domain.ErrInvalidInput)
	}
	if from == to {
		return fmt.Errorf("%w: origen y destino son la misma ubicación", domain.ErrInvalidInput)
	}
	return nil
}

// SessionOpen exige que la sesión exista y siga abierta.
func SessionOpen(s *entity.Session) error {
	if s == nil {
		return domain.ErrNotFound
	}
	if !s.IsOpen() {
		return fmt.Errorf("%w: sesión %d", domain.ErrSessionClosed, s.SessionNumber)
	}
	return nil
}

// PositiveAmount exige un monto > 0.
func PositiveAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: el monto debe ser mayor a cero", domain.ErrInvalidInput)
	}
	if !precision.Storable(amount) {
		return fmt.Errorf("%w: monto %s excede la precisión de almacenamiento", domain.ErrInvalidInput, amount.String())
	}
	return nil
}

// ReferenceType valida el tipo de referencia de un movimiento.
func ReferenceType(t string) error {
	for _, rt := range entity.ReferenceTypes {
		if rt == t {
			return nil
		}
	}
	return fmt.Errorf("%w: tipo de referencia %q", domain.ErrInvalidInput, t)
}

// Owner exige que el recurso pertenezca al vendedor cuando se indica uno.
func Owner(resourceVendorID, vendorID string) error {
	if vendorID != "" && resourceVendorID != vendorID {
		return domain.ErrForbidden
	}
	return nil
}
