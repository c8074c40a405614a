package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sirichaiw/supermarket-backend/internal/voucher"
)

// StagingTTL bounds how long a checkout attempt may sit between the
// checkout submit and the gateway callback.
const StagingTTL = 30 * time.Minute

// SessionStore holds per-user checkout state across the redirect to the
// external provider and back.
type SessionStore interface {
	GetStaging(ctx context.Context, userID int) (Staging, bool, error)
	SetStaging(ctx context.Context, userID int, st Staging) error
	ClearStaging(ctx context.Context, userID int) error

	GetVoucher(ctx context.Context, userID int) (voucher.Applied, bool, error)
	SetVoucher(ctx context.Context, userID int, v voucher.Applied) error
	ClearVoucher(ctx context.Context, userID int) error
}

// RedisStore keeps staging as JSON values with a TTL so an abandoned
// checkout expires on its own.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, ttl: StagingTTL}
}

func stagingKey(userID int) string { return fmt.Sprintf("checkout:staging:%d", userID) }
func voucherKey(userID int) string { return fmt.Sprintf("checkout:voucher:%d", userID) }

func (s *RedisStore) GetStaging(ctx context.Context, userID int) (Staging, bool, error) {
	raw, err := s.client.Get(ctx, stagingKey(userID)).Bytes()
	if err == redis.Nil {
		return Staging{}, false, nil
	}
	if err != nil {
		return Staging{}, false, err
	}
	var st Staging
	if err := json.Unmarshal(raw, &st); err != nil {
		return Staging{}, false, err
	}
	return st, true, nil
}

func (s *RedisStore) SetStaging(ctx context.Context, userID int, st Staging) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, stagingKey(userID), raw, s.ttl).Err()
}

func (s *RedisStore) ClearStaging(ctx context.Context, userID int) error {
	return s.client.Del(ctx, stagingKey(userID)).Err()
}

func (s *RedisStore) GetVoucher(ctx context.Context, userID int) (voucher.Applied, bool, error) {
	raw, err := s.client.Get(ctx, voucherKey(userID)).Bytes()
	if err == redis.Nil {
		return voucher.Applied{}, false, nil
	}
	if err != nil {
		return voucher.Applied{}, false, err
	}
	var v voucher.Applied
	if err := json.Unmarshal(raw, &v); err != nil {
		return voucher.Applied{}, false, err
	}
	return v, true, nil
}

func (s *RedisStore) SetVoucher(ctx context.Context, userID int, v voucher.Applied) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, voucherKey(userID), raw, s.ttl).Err()
}

func (s *RedisStore) ClearVoucher(ctx context.Context, userID int) error {
	return s.client.Del(ctx, voucherKey(userID)).Err()
}

// InMemoryStore is used for tests and local scenarios.
type InMemoryStore struct {
	mu       sync.Mutex
	staging  map[int]stagedEntry
	vouchers map[int]voucher.Applied
	ttl      time.Duration
	now      func() time.Time
}

type stagedEntry struct {
	st      Staging
	expires time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		staging:  make(map[int]stagedEntry),
		vouchers: make(map[int]voucher.Applied),
		ttl:      StagingTTL,
		now:      time.Now,
	}
}

func (s *InMemoryStore) GetStaging(_ context.Context, userID int) (Staging, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.staging[userID]
	if !ok || s.now().After(e.expires) {
		delete(s.staging, userID)
		return Staging{}, false, nil
	}
	return e.st, true, nil
}

func (s *InMemoryStore) SetStaging(_ context.Context, userID int, st Staging) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staging[userID] = stagedEntry{st: st, expires: s.now().Add(s.ttl)}
	return nil
}

func (s *InMemoryStore) ClearStaging(_ context.Context, userID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.staging, userID)
	return nil
}

func (s *InMemoryStore) GetVoucher(_ context.Context, userID int) (voucher.Applied, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vouchers[userID]
	return v, ok, nil
}

func (s *InMemoryStore) SetVoucher(_ context.Context, userID int, v voucher.Applied) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vouchers[userID] = v
	return nil
}

func (s *InMemoryStore) ClearVoucher(_ context.Context, userID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.vouchers, userID)
	return nil
}
