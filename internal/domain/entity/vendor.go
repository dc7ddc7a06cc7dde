package entity

import "time"

// Estados de un vendedor.
const (
	VendorStatusActive    = "active"
	VendorStatusSuspended = "suspended"
)

// Vendor es el límite de tenencia: todas las demás entidades se acotan por VendorID.
type Vendor struct {
	ID        string
	Name      string
	Status    string
	CreatedAt time.Time
}
