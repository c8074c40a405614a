package category

// Category is a catalog grouping used by the product list filters.
type Category struct {
	CategoryID int     `json:"categoryId"`
	Name       string  `json:"name"`
	Image      *string `json:"image,omitempty"`
}
