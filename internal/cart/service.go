package cart

import (
	"fmt"

	"github.com/sirichaiw/supermarket-backend/internal/product"
)

// Service orchestrates cart operations. Stock checks here are advisory
// and exist for early user feedback; the order transaction is the only
// authoritative stock gate.
type Service struct {
	repo     Repository
	products *product.Service
}

func NewService(repo Repository, products *product.Service) *Service {
	return &Service{repo: repo, products: products}
}

func (s *Service) Add(userID, productID, qty int) ([]CartItem, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}

	p, err := s.products.GetByID(productID)
	if err != nil {
		return nil, err
	}
	if p.Stock <= 0 {
		return nil, ErrStockAdvisory
	}

	existing := 0
	items, err := s.repo.Get(userID)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if it.ProductID == productID {
			existing = it.Quantity
			break
		}
	}
	if existing+qty > p.Stock {
		return nil, ErrStockAdvisory
	}

	if err := s.repo.Add(userID, productID, qty); err != nil {
		return nil, err
	}
	return s.repo.Get(userID)
}

func (s *Service) Get(userID int) ([]CartItem, error) {
	return s.repo.Get(userID)
}

func (s *Service) UpdateQuantity(userID, cartID, qty int) ([]CartItem, error) {
	if qty <= 0 {
		if err := s.repo.Remove(userID, cartID); err != nil {
			return nil, err
		}
		return s.repo.Get(userID)
	}

	items, err := s.repo.Get(userID)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if it.CartID == cartID && qty > it.StockAvailable {
			return nil, ErrStockAdvisory
		}
	}

	if err := s.repo.UpdateQuantity(userID, cartID, qty); err != nil {
		return nil, err
	}
	return s.repo.Get(userID)
}

func (s *Service) Remove(userID, cartID int) error {
	return s.repo.Remove(userID, cartID)
}

func (s *Service) Clear(userID int) error {
	return s.repo.Clear(userID)
}
