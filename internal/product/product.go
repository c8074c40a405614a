package product

// Product maps to the `products` table. Price is in store currency with
// two-decimal precision; Stock is the live quantity shared by concurrent
// checkouts, so it is only ever decremented inside the order transaction.
type Product struct {
	ID          int     `json:"productId"`
	Name        string  `json:"productName"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Image       *string `json:"image,omitempty"`
	Stock       int     `json:"stock"`
	Category    *string `json:"category,omitempty"`
}

// Filter narrows and orders catalog listings.
type Filter struct {
	Search   string
	Category string
	Sort     string // "price_asc", "price_desc", "name", or empty
	InStock  bool
}
