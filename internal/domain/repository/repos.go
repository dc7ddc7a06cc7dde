package repository

// Repos agrupa los repositorios atados a una misma transacción.
type Repos struct {
	Vendors   VendorRepository
	Locations LocationRepository
	Products  ProductRepository
	Inventory InventoryRepository
	Movements StockMovementRepository
	Sessions  SessionRepository
}
