package payment

import (
	"context"
	"database/sql"
	"log/slog"
)

// PostgresPendingStore keeps pending payments in the database so webhook
// confirmations survive server restarts and dead sessions.
type PostgresPendingStore struct {
	db *sql.DB
}

func NewPostgresPendingStore(db *sql.DB) *PostgresPendingStore {
	return &PostgresPendingStore{db: db}
}

// Put upserts the record. The WHERE clause on the conflict update makes
// the first terminal status win: a terminal row only accepts writes that
// keep the same status.
func (s *PostgresPendingStore) Put(ctx context.Context, id, gateway string, status RecordStatus, raw []byte) error {
	res, err := s.db.ExecContext(ctx, `
        INSERT INTO pending_payments (provider_payment_id, gateway, status, raw_payload, last_updated)
        VALUES ($1, $2, $3, $4, NOW())
        ON CONFLICT (provider_payment_id) DO UPDATE
        SET status = EXCLUDED.status, raw_payload = EXCLUDED.raw_payload, last_updated = NOW()
        WHERE pending_payments.status = 'PENDING' OR pending_payments.status = EXCLUDED.status`,
		id, gateway, string(status), raw)
	if err != nil {
		return err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		slog.Warn("dropping conflicting terminal payment status",
			"paymentId", id, "got", status)
	}
	return nil
}

func (s *PostgresPendingStore) Get(ctx context.Context, id string) (PendingPayment, bool, error) {
	var p PendingPayment
	var raw []byte
	err := s.db.QueryRowContext(ctx, `
        SELECT provider_payment_id, gateway, status, raw_payload, last_updated
        FROM pending_payments WHERE provider_payment_id = $1`, id).
		Scan(&p.ProviderPaymentID, &p.Gateway, &p.Status, &raw, &p.LastUpdated)
	if err == sql.ErrNoRows {
		return PendingPayment{}, false, nil
	}
	if err != nil {
		return PendingPayment{}, false, err
	}
	p.RawPayload = raw
	return p, true, nil
}
