package payment

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// RecordStatus is the lifecycle of a pending-payment record:
// PENDING -> COMPLETED | FAILED, terminal states are sticky.
type RecordStatus string

const (
	RecordPending   RecordStatus = "PENDING"
	RecordCompleted RecordStatus = "COMPLETED"
	RecordFailed    RecordStatus = "FAILED"
)

func (s RecordStatus) Terminal() bool {
	return s == RecordCompleted || s == RecordFailed
}

// RecordStatusFor maps a normalized confirmation into the record lifecycle.
func RecordStatusFor(s Status) RecordStatus {
	switch s {
	case StatusSucceeded:
		return RecordCompleted
	case StatusFailed:
		return RecordFailed
	default:
		return RecordPending
	}
}

// PendingPayment is in-flight payment state keyed by the provider-issued
// payment id. It lives outside the user's session so a webhook can still
// be recorded after the browser is gone.
type PendingPayment struct {
	ProviderPaymentID string          `json:"providerPaymentId"`
	Gateway           string          `json:"gateway"`
	Status            RecordStatus    `json:"status"`
	RawPayload        json.RawMessage `json:"rawPayload,omitempty"`
	LastUpdated       time.Time       `json:"lastUpdated"`
}

// PendingStore persists pending payments. Put is idempotent; once a record
// is terminal, a put with a different terminal status is dropped (and
// logged), because webhook delivery order is not guaranteed.
type PendingStore interface {
	Put(ctx context.Context, providerPaymentID, gateway string, status RecordStatus, raw []byte) error
	Get(ctx context.Context, providerPaymentID string) (PendingPayment, bool, error)
}

// InMemoryPendingStore is used for tests and local scenarios.
type InMemoryPendingStore struct {
	mu   sync.RWMutex
	data map[string]PendingPayment
}

func NewInMemoryPendingStore() *InMemoryPendingStore {
	return &InMemoryPendingStore{data: make(map[string]PendingPayment)}
}

func (s *InMemoryPendingStore) Put(ctx context.Context, id, gateway string, status RecordStatus, raw []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.data[id]
	if ok && existing.Status.Terminal() && existing.Status != status {
		slog.Warn("dropping conflicting terminal payment status",
			"paymentId", id, "have", existing.Status, "got", status)
		return nil
	}

	s.data[id] = PendingPayment{
		ProviderPaymentID: id,
		Gateway:           gateway,
		Status:            status,
		RawPayload:        raw,
		LastUpdated:       time.Now().UTC(),
	}
	return nil
}

func (s *InMemoryPendingStore) Get(ctx context.Context, id string) (PendingPayment, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.data[id]
	return p, ok, nil
}
