package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/mercado-ledger/internal/domain"
	"github.com/jhoicas/mercado-ledger/internal/domain/entity"
	"github.com/jhoicas/mercado-ledger/internal/domain/repository"
)

var (
	_ repository.VendorRepository        = (*vendorRepo)(nil)
	_ repository.LocationRepository      = (*locationRepo)(nil)
	_ repository.ProductRepository       = (*productRepo)(nil)
	_ repository.InventoryRepository     = (*inventoryRepo)(nil)
	_ repository.StockMovementRepository = (*movementRepo)(nil)
	_ repository.SessionRepository       = (*sessionRepo)(nil)
)

// ── Vendors ──────────────────────────────────────────────────────────────────

type vendorRepo struct{ st *state }

func (r *vendorRepo) Create(_ context.Context, v *entity.Vendor) error {
	if _, ok := r.st.vendors[v.ID]; ok {
		return domain.ErrDuplicate
	}
	r.st.vendors[v.ID] = *v
	return nil
}

func (r *vendorRepo) GetByID(_ context.Context, id string) (*entity.Vendor, error) {
	v, ok := r.st.vendors[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

// ── Locations ────────────────────────────────────────────────────────────────

type locationRepo struct{ st *state }

func (r *locationRepo) Create(_ context.Context, l *entity.Location) error {
	if _, ok := r.st.locations[l.ID]; ok {
		return domain.ErrDuplicate
	}
	if l.IsPrimary {
		for _, other := range r.st.locations {
			if other.VendorID == l.VendorID && other.IsPrimary {
				return domain.ErrDuplicate
			}
		}
	}
	r.st.locations[l.ID] = *l
	return nil
}

func (r *locationRepo) GetByID(_ context.Context, id string) (*entity.Location, error) {
	l, ok := r.st.locations[id]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (r *locationRepo) GetPrimary(_ context.Context, vendorID string) (*entity.Location, error) {
	for _, l := range r.st.locations {
		if l.VendorID == vendorID && l.IsPrimary {
			return &l, nil
		}
	}
	return nil, nil
}

// ── Products ─────────────────────────────────────────────────────────────────

type productRepo struct{ st *state }

func (r *productRepo) Create(_ context.Context, p *entity.Product) error {
	if _, ok := r.st.products[p.ID]; ok {
		return domain.ErrDuplicate
	}
	for _, other := range r.st.products {
		if other.VendorID == p.VendorID && other.SKU == p.SKU {
			return domain.ErrDuplicate
		}
	}
	r.st.products[p.ID] = *p
	return nil
}

func (r *productRepo) CreateVariant(_ context.Context, v *entity.Variant) error {
	if _, ok := r.st.products[v.ProductID]; !ok {
		return domain.ErrNotFound
	}
	for _, other := range r.st.variants {
		if other.ID == v.ID || (other.ProductID == v.ProductID && other.SKU == v.SKU) {
			return domain.ErrDuplicate
		}
	}
	r.st.variants[v.ID] = *v
	return nil
}

func (r *productRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	p, ok := r.st.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *productRepo) ListVariants(_ context.Context, productID string) ([]*entity.Variant, error) {
	var out []*entity.Variant
	for _, v := range r.st.variants {
		if v.ProductID == productID {
			v := v
			out = append(out, &v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].SKU < out[j].SKU
	})
	return out, nil
}

func (r *productRepo) ListByVendor(_ context.Context, vendorID string, limit, offset int) ([]*entity.Product, error) {
	var all []*entity.Product
	for _, p := range r.st.products {
		if p.VendorID == vendorID {
			p := p
			all = append(all, &p)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	return page(all, limit, offset), nil
}

// ── Inventory ────────────────────────────────────────────────────────────────

type inventoryRepo struct{ st *state }

func sameKey(inv entity.Inventory, key entity.StockKey) bool {
	return inv.ProductID == key.ProductID && inv.LocationID == key.LocationID && variantKey(inv.VariantID) == variantKey(key.VariantID)
}

func variantKey(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func (r *inventoryRepo) find(key entity.StockKey) *entity.Inventory {
	for _, inv := range r.st.inventory {
		if sameKey(inv, key) {
			return &inv
		}
	}
	return nil
}

func (r *inventoryRepo) Create(_ context.Context, inv *entity.Inventory) error {
	if _, ok := r.st.inventory[inv.ID]; ok {
		return domain.ErrDuplicate
	}
	if r.find(inv.Key()) != nil {
		return domain.ErrDuplicate
	}
	r.st.inventory[inv.ID] = *inv
	return nil
}

func (r *inventoryRepo) GetByID(_ context.Context, id string) (*entity.Inventory, error) {
	inv, ok := r.st.inventory[id]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

// GetForUpdate no necesita bloquear: la transacción ya tiene el store en exclusiva.
func (r *inventoryRepo) GetForUpdate(ctx context.Context, id string) (*entity.Inventory, error) {
	return r.GetByID(ctx, id)
}

func (r *inventoryRepo) FindForUpdate(_ context.Context, key entity.StockKey) (*entity.Inventory, error) {
	return r.find(key), nil
}

func (r *inventoryRepo) EnsureForUpdate(ctx context.Context, vendorID string, key entity.StockKey) (*entity.Inventory, error) {
	if inv := r.find(key); inv != nil {
		return inv, nil
	}
	inv := &entity.Inventory{
		ID:         uuid.New().String(),
		VendorID:   vendorID,
		ProductID:  key.ProductID,
		VariantID:  key.VariantID,
		LocationID: key.LocationID,
		Quantity:   decimal.Zero,
		UpdatedAt:  time.Now().UTC(),
	}
	if err := r.Create(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *inventoryRepo) UpdateQuantity(_ context.Context, id string, quantity decimal.Decimal, at time.Time) error {
	inv, ok := r.st.inventory[id]
	if !ok {
		return domain.ErrNotFound
	}
	inv.Quantity = quantity
	inv.UpdatedAt = at
	r.st.inventory[id] = inv
	return nil
}

func (r *inventoryRepo) ListByProduct(_ context.Context, productID string) ([]*entity.Inventory, error) {
	var out []*entity.Inventory
	for _, inv := range r.st.inventory {
		if inv.ProductID == productID {
			inv := inv
			out = append(out, &inv)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LocationID != out[j].LocationID {
			return out[i].LocationID < out[j].LocationID
		}
		return variantKey(out[i].VariantID) < variantKey(out[j].VariantID)
	})
	return out, nil
}

// ── Stock movements ──────────────────────────────────────────────────────────

type movementRepo struct{ st *state }

func refKey(inventoryID, referenceType, referenceID string) string {
	return inventoryID + "\x00" + referenceType + "\x00" + referenceID
}

func (r *movementRepo) Create(_ context.Context, m *entity.StockMovement) error {
	if _, ok := r.st.inventory[m.InventoryID]; !ok {
		return domain.ErrNotFound
	}
	if m.ReferenceID != "" {
		k := refKey(m.InventoryID, m.ReferenceType, m.ReferenceID)
		if _, ok := r.st.refs[k]; ok {
			return domain.ErrDuplicate
		}
		r.st.refs[k] = len(r.st.movements)
	}
	r.st.movements = append(r.st.movements, *m)
	return nil
}

func (r *movementRepo) FindByReference(_ context.Context, inventoryID, referenceType, referenceID string) (*entity.StockMovement, error) {
	i, ok := r.st.refs[refKey(inventoryID, referenceType, referenceID)]
	if !ok {
		return nil, nil
	}
	m := r.st.movements[i]
	return &m, nil
}

func (r *movementRepo) SumByInventory(_ context.Context, inventoryID string) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, m := range r.st.movements {
		if m.InventoryID == inventoryID {
			sum = sum.Add(m.QuantityDelta)
		}
	}
	return sum, nil
}

func (r *movementRepo) ListByInventory(_ context.Context, inventoryID string, limit, offset int) ([]*entity.StockMovement, error) {
	var all []*entity.StockMovement
	for i := len(r.st.movements) - 1; i >= 0; i-- {
		if m := r.st.movements[i]; m.InventoryID == inventoryID {
			all = append(all, &m)
		}
	}
	return page(all, limit, offset), nil
}

// ── Sessions ─────────────────────────────────────────────────────────────────

type sessionRepo struct{ st *state }

func (r *sessionRepo) FindOpenByRegister(_ context.Context, registerID string) (*entity.Session, error) {
	for _, s := range r.st.sessions {
		if s.RegisterID == registerID && s.IsOpen() {
			return &s, nil
		}
	}
	return nil, nil
}

func (r *sessionRepo) NextSessionNumber(_ context.Context, registerID string) (int64, error) {
	var max int64
	for _, s := range r.st.sessions {
		if s.RegisterID == registerID && s.SessionNumber > max {
			max = s.SessionNumber
		}
	}
	return max + 1, nil
}

func (r *sessionRepo) CreateOpen(_ context.Context, s *entity.Session) error {
	for _, other := range r.st.sessions {
		if other.ID == s.ID || other.RegisterID != s.RegisterID {
			continue
		}
		if other.IsOpen() || other.SessionNumber == s.SessionNumber {
			return domain.ErrDuplicate
		}
	}
	if _, ok := r.st.sessions[s.ID]; ok {
		return domain.ErrDuplicate
	}
	r.st.sessions[s.ID] = *s
	return nil
}

func (r *sessionRepo) GetByID(_ context.Context, id string) (*entity.Session, error) {
	s, ok := r.st.sessions[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *sessionRepo) GetForUpdate(ctx context.Context, id string) (*entity.Session, error) {
	return r.GetByID(ctx, id)
}

func (r *sessionRepo) Update(_ context.Context, s *entity.Session) error {
	if _, ok := r.st.sessions[s.ID]; !ok {
		return domain.ErrNotFound
	}
	r.st.sessions[s.ID] = *s
	return nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
