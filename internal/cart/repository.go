package cart

import (
	"sync"

	"github.com/sirichaiw/supermarket-backend/internal/product"
)

// Repository provides access to per-user cart rows.
type Repository interface {
	Add(userID, productID, qty int) error
	Get(userID int) ([]CartItem, error)
	UpdateQuantity(userID, cartID, qty int) error
	Remove(userID, cartID int) error
	Clear(userID int) error
}

// InMemoryRepository backs tests and local scenarios with a product
// repository supplying prices and stock.
type InMemoryRepository struct {
	mu       sync.Mutex
	products product.Repository
	nextID   int
	rows     map[int][]row // keyed by userID
}

type row struct {
	cartID    int
	productID int
	qty       int
}

func NewInMemoryRepository(products product.Repository) *InMemoryRepository {
	return &InMemoryRepository{products: products, nextID: 1, rows: make(map[int][]row)}
}

func (r *InMemoryRepository) Add(userID, productID, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, rw := range r.rows[userID] {
		if rw.productID == productID {
			r.rows[userID][i].qty += qty
			return nil
		}
	}
	r.rows[userID] = append(r.rows[userID], row{cartID: r.nextID, productID: productID, qty: qty})
	r.nextID++
	return nil
}

func (r *InMemoryRepository) Get(userID int) ([]CartItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]CartItem, 0, len(r.rows[userID]))
	for _, rw := range r.rows[userID] {
		p, err := r.products.GetByID(rw.productID)
		if err != nil {
			continue
		}
		out = append(out, CartItem{
			CartID:         rw.cartID,
			ProductID:      p.ID,
			ProductName:    p.Name,
			Price:          p.Price,
			Image:          p.Image,
			Quantity:       rw.qty,
			StockAvailable: p.Stock,
		})
	}
	return out, nil
}

func (r *InMemoryRepository) UpdateQuantity(userID, cartID, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, rw := range r.rows[userID] {
		if rw.cartID == cartID {
			r.rows[userID][i].qty = qty
			return nil
		}
	}
	return ErrNotFound
}

func (r *InMemoryRepository) Remove(userID, cartID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := r.rows[userID]
	for i, rw := range rows {
		if rw.cartID == cartID {
			r.rows[userID] = append(rows[:i], rows[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (r *InMemoryRepository) Clear(userID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, userID)
	return nil
}
