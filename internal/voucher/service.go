package voucher

import (
	"time"

	"github.com/sirichaiw/supermarket-backend/internal/payment"
)

// Applied is the outcome of a successful voucher application.
type Applied struct {
	Code     string  `json:"code"`
	Discount float64 `json:"discount"`
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Apply resolves the voucher code against the given cart subtotal.
// The discount never exceeds the subtotal and is rounded to cents.
func (s *Service) Apply(subtotal float64, code string) (Applied, error) {
	v, err := s.repo.FindByCode(code, s.now())
	if err != nil {
		if err == ErrNotFound {
			return Applied{}, &Rejected{Reason: InvalidOrExpired}
		}
		return Applied{}, err
	}

	if subtotal < v.MinSpend {
		return Applied{}, &Rejected{Reason: MinSpendNotMet, MinSpend: v.MinSpend}
	}

	var discount float64
	if v.Type == Percent {
		discount = subtotal * (v.Amount / 100)
	} else {
		discount = v.Amount
	}
	if discount > subtotal {
		discount = subtotal
	}
	return Applied{Code: v.Code, Discount: payment.Round2(discount)}, nil
}
