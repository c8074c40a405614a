package cart

import "errors"

var (
	ErrNotFound = errors.New("cart item not found")
	// ErrStockAdvisory is the add/update-time stock check. It is advisory
	// only: the authoritative check happens at order time, inside the
	// order transaction.
	ErrStockAdvisory = errors.New("requested quantity exceeds available stock")
)

// CartItem is a cart row joined with its product, carrying the live price
// and stock at read time. Checkout snapshots these values; the cart itself
// always reflects the current catalog.
type CartItem struct {
	CartID         int     `json:"cartId"`
	ProductID      int     `json:"productId"`
	ProductName    string  `json:"productName"`
	Price          float64 `json:"price"`
	Image          *string `json:"image,omitempty"`
	Quantity       int     `json:"quantity"`
	StockAvailable int     `json:"stockAvailable"`
}

// Subtotal sums price*quantity over the cart lines.
func Subtotal(items []CartItem) float64 {
	var sum float64
	for _, it := range items {
		sum += it.Price * float64(it.Quantity)
	}
	return sum
}
