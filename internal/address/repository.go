package address

import (
	"errors"
	"sync"
)

var ErrNotFound = errors.New("address not found")

type Repository interface {
	GetAddresses(userID int) ([]Address, error)
	AddAddress(userID int, addressDesc, phone, addressName string) (Address, error)
	UpdateAddress(userID int, addressID int, addressDesc, phone, addressName string) (Address, error)
	DeleteAddress(userID int, addressID int) error
}

// InMemoryRepository for tests
type InMemoryRepository struct {
	mu     sync.Mutex
	data   map[int][]Address // keyed by userID
	nextID int
}

func NewInMemoryRepository(seed map[int][]Address) *InMemoryRepository {
	if seed == nil {
		seed = make(map[int][]Address)
	}
	maxID := 0
	for _, addrs := range seed {
		for _, a := range addrs {
			if a.AddressID > maxID {
				maxID = a.AddressID
			}
		}
	}
	return &InMemoryRepository{data: seed, nextID: maxID + 1}
}

func (r *InMemoryRepository) GetAddresses(userID int) ([]Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Address, 0, len(r.data[userID]))
	out = append(out, r.data[userID]...)
	return out, nil
}

func (r *InMemoryRepository) AddAddress(userID int, addressDesc, phone, addressName string) (Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	addr := Address{
		AddressID:   r.nextID,
		UserID:      userID,
		AddressDesc: addressDesc,
		Phone:       phone,
		AddressName: addressName,
	}
	r.nextID++
	r.data[userID] = append(r.data[userID], addr)
	return addr, nil
}

func (r *InMemoryRepository) UpdateAddress(userID int, addressID int, addressDesc, phone, addressName string) (Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, a := range r.data[userID] {
		if a.AddressID == addressID {
			a.AddressDesc = addressDesc
			a.Phone = phone
			a.AddressName = addressName
			r.data[userID][i] = a
			return a, nil
		}
	}
	return Address{}, ErrNotFound
}

func (r *InMemoryRepository) DeleteAddress(userID int, addressID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	addrs := r.data[userID]
	for i, a := range addrs {
		if a.AddressID == addressID {
			r.data[userID] = append(addrs[:i], addrs[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}
