package order

// Invoice bundles an order with its line items for display.
type Invoice struct {
	Order Order       `json:"order"`
	Items []OrderItem `json:"items"`
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// PlacePaid creates the order, its items, the stock decrement and the
// PAID flip with the gateway reference in one transaction. Writing the
// reference atomically with the order is what keeps reconciliation
// idempotent: a retry either finds the order by reference or trips the
// unique index, never both creating and decrementing twice.
func (s *Service) PlacePaid(ord Order, reference string, items []OrderItem) (Order, error) {
	ord.PaymentStatus = StatusPaid
	ord.PaymentRef = &reference
	return s.repo.CreateWithItems(ord, items)
}

func (s *Service) FindByReference(reference string) (Order, bool, error) {
	return s.repo.FindByReference(reference)
}

// Invoice returns the order and its items, scoped to the owning user.
// A foreign order is reported as not found rather than forbidden.
func (s *Service) Invoice(userID, orderID int) (Invoice, error) {
	ord, err := s.repo.GetByID(orderID)
	if err != nil {
		return Invoice{}, err
	}
	if ord.UserID != userID {
		return Invoice{}, ErrNotFound
	}
	items, err := s.repo.ItemsByOrderID(orderID)
	if err != nil {
		return Invoice{}, err
	}
	return Invoice{Order: ord, Items: items}, nil
}

func (s *Service) ListByUser(userID int) ([]Order, error) {
	return s.repo.ListByUser(userID)
}
