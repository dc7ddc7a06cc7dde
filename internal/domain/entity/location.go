package entity

import "time"

// Location es una sede (física o virtual) de un vendedor. Exactamente una por vendedor
// tiene IsPrimary; es la que recibe el inventario inicial de los productos nuevos.
type Location struct {
	ID        string
	VendorID  string
	Name      string
	IsPrimary bool
	CreatedAt time.Time
}
