package product

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

var ErrNotFound = errors.New("product not found")

// Repository provides read access to the catalog. Stock mutation is owned
// by the order repository so the decrement shares the order transaction.
type Repository interface {
	List(f Filter) ([]Product, error)
	GetByID(id int) (Product, error)
	ListByIDs(ids []int) ([]Product, error)
}

// InMemoryRepository is used for tests and local scenarios.
type InMemoryRepository struct {
	mu       sync.RWMutex
	products []Product
}

func NewInMemoryRepository(seed []Product) *InMemoryRepository {
	r := &InMemoryRepository{products: make([]Product, 0, len(seed))}
	r.products = append(r.products, seed...)
	return r
}

func (r *InMemoryRepository) List(f Filter) ([]Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Product, 0, len(r.products))
	for _, p := range r.products {
		if f.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Search)) {
			continue
		}
		if f.Category != "" && (p.Category == nil || *p.Category != f.Category) {
			continue
		}
		if f.InStock && p.Stock <= 0 {
			continue
		}
		out = append(out, p)
	}

	switch f.Sort {
	case "price_asc":
		sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	case "price_desc":
		sort.Slice(out, func(i, j int) bool { return out[i].Price > out[j].Price })
	case "name":
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	}
	return out, nil
}

func (r *InMemoryRepository) GetByID(id int) (Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.products {
		if p.ID == id {
			return p, nil
		}
	}
	return Product{}, ErrNotFound
}

// DecrementStock subtracts qty from the product's stock and fails when
// the remainder would go negative. A negative qty restores stock. Only
// the in-memory repository exposes this; the Postgres decrement runs
// inside the order transaction.
func (r *InMemoryRepository) DecrementStock(id, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.products {
		if r.products[i].ID == id {
			if r.products[i].Stock < qty {
				return errors.New("insufficient stock")
			}
			r.products[i].Stock -= qty
			return nil
		}
	}
	return ErrNotFound
}

func (r *InMemoryRepository) ListByIDs(ids []int) ([]Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Product, 0, len(ids))
	for _, id := range ids {
		for _, p := range r.products {
			if p.ID == id {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}
