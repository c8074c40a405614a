package voucher

import (
	"database/sql"
	"time"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindByCode(code string, now time.Time) (Voucher, error) {
	var v Voucher
	var typ string
	err := r.db.QueryRow(`
        SELECT id, code, type, amount, min_spend, publish_at, expire_at
        FROM vouchers
        WHERE code = $1 AND expire_at >= $2`, code, now).
		Scan(&v.ID, &v.Code, &typ, &v.Amount, &v.MinSpend, &v.PublishAt, &v.ExpireAt)
	if err == sql.ErrNoRows {
		return Voucher{}, ErrNotFound
	}
	if err != nil {
		return Voucher{}, err
	}
	v.Type = DiscountType(typ)
	return v, nil
}
