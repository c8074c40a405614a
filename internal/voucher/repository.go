package voucher

import (
	"errors"
	"strings"
	"sync"
	"time"
)

var ErrNotFound = errors.New("voucher not found")

// Repository provides read access to vouchers. FindByCode only returns
// vouchers that have not expired; the publish window is checked by the
// admin-facing listing, matching the original lookup.
type Repository interface {
	FindByCode(code string, now time.Time) (Voucher, error)
}

// InMemoryRepository is used for tests and local scenarios.
type InMemoryRepository struct {
	mu       sync.RWMutex
	vouchers []Voucher
}

func NewInMemoryRepository(seed []Voucher) *InMemoryRepository {
	r := &InMemoryRepository{vouchers: make([]Voucher, 0, len(seed))}
	r.vouchers = append(r.vouchers, seed...)
	return r
}

func (r *InMemoryRepository) FindByCode(code string, now time.Time) (Voucher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, v := range r.vouchers {
		if strings.EqualFold(v.Code, code) && !v.ExpireAt.Before(now) {
			return v, nil
		}
	}
	return Voucher{}, ErrNotFound
}
