package address

import "errors"

// Service orchestrates address book operations. Checkout reads from
// here when the shopper picks a saved address instead of typing one.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetAddresses(userID int) ([]Address, error) {
	if userID <= 0 {
		return nil, ErrNotFound
	}
	return s.repo.GetAddresses(userID)
}

func (s *Service) AddAddress(userID int, desc, phone, name string) (Address, error) {
	if userID <= 0 {
		return Address{}, ErrNotFound
	}
	if desc == "" && name == "" {
		return Address{}, errors.New("addressDesc or addressName required")
	}
	return s.repo.AddAddress(userID, desc, phone, name)
}

func (s *Service) UpdateAddress(userID, addressID int, desc, phone, name string) (Address, error) {
	if userID <= 0 || addressID <= 0 {
		return Address{}, ErrNotFound
	}
	if desc == "" && name == "" {
		return Address{}, errors.New("addressDesc or addressName required")
	}
	return s.repo.UpdateAddress(userID, addressID, desc, phone, name)
}

func (s *Service) DeleteAddress(userID, addressID int) error {
	if userID <= 0 || addressID <= 0 {
		return ErrNotFound
	}
	return s.repo.DeleteAddress(userID, addressID)
}
