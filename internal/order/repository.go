package order

import (
	"errors"
	"sync"

	"github.com/sirichaiw/supermarket-backend/internal/product"
)

var (
	ErrNotFound = errors.New("order not found")
	// ErrInsufficientStock aborts order creation when any line cannot be
	// covered by the remaining stock. Nothing is persisted in that case.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Repository defines persistence operations for orders.
type Repository interface {
	// CreateWithItems persists the order (payment status and reference
	// included), its items and the matching stock decrement atomically.
	// If any product lacks stock the whole creation is rolled back and
	// ErrInsufficientStock is returned. The unique index on payment_ref
	// makes a duplicate creation for the same payment fail outright.
	CreateWithItems(ord Order, items []OrderItem) (Order, error)
	// FindByReference looks an order up by gateway payment reference.
	// Used to keep reconciliation idempotent across duplicate callbacks.
	FindByReference(reference string) (Order, bool, error)
	GetByID(id int) (Order, error)
	ItemsByOrderID(orderID int) ([]OrderItem, error)
	ListByUser(userID int) ([]Order, error)
}

// InMemoryRepository is used for tests and local scenarios. It borrows
// the in-memory product repository so stock decrements stay visible to
// the rest of the app.
type InMemoryRepository struct {
	mu       sync.Mutex
	orders   []Order
	items    map[int][]OrderItem
	products *product.InMemoryRepository
	nextID   int
}

func NewInMemoryRepository(products *product.InMemoryRepository) *InMemoryRepository {
	return &InMemoryRepository{
		items:    make(map[int][]OrderItem),
		products: products,
		nextID:   1,
	}
}

func (r *InMemoryRepository) CreateWithItems(ord Order, items []OrderItem) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// reserve stock up-front; undo on failure so the repo stays consistent
	taken := make([]OrderItem, 0, len(items))
	for _, it := range items {
		if err := r.products.DecrementStock(it.ProductID, it.Quantity); err != nil {
			for _, t := range taken {
				r.products.DecrementStock(t.ProductID, -t.Quantity)
			}
			if err == product.ErrNotFound {
				return Order{}, err
			}
			return Order{}, ErrInsufficientStock
		}
		taken = append(taken, it)
	}

	ord.OrderID = r.nextID
	r.nextID++
	r.orders = append(r.orders, ord)

	stored := make([]OrderItem, 0, len(items))
	for _, it := range items {
		it.OrderID = ord.OrderID
		stored = append(stored, it)
	}
	r.items[ord.OrderID] = stored
	return ord, nil
}

func (r *InMemoryRepository) FindByReference(reference string) (Order, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ord := range r.orders {
		if ord.PaymentRef != nil && *ord.PaymentRef == reference {
			return ord, true, nil
		}
	}
	return Order{}, false, nil
}

func (r *InMemoryRepository) GetByID(id int) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ord := range r.orders {
		if ord.OrderID == id {
			return ord, nil
		}
	}
	return Order{}, ErrNotFound
}

func (r *InMemoryRepository) ItemsByOrderID(orderID int) ([]OrderItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]OrderItem, 0, len(r.items[orderID]))
	items = append(items, r.items[orderID]...)
	return items, nil
}

func (r *InMemoryRepository) ListByUser(userID int) ([]Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Order, 0)
	for i := len(r.orders) - 1; i >= 0; i-- {
		if r.orders[i].UserID == userID {
			out = append(out, r.orders[i])
		}
	}
	return out, nil
}
