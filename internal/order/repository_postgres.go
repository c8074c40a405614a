package order

import (
	"database/sql"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateWithItems(ord Order, items []OrderItem) (Order, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return Order{}, err
	}
	defer tx.Rollback()

	err = tx.QueryRow(`INSERT INTO orders (user_id, delivery_method, address, payment_method, payment_status, payment_ref, total)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING order_id, created_at`,
		ord.UserID, ord.DeliveryMethod, ord.Address, ord.PaymentMethod, ord.PaymentStatus, ord.PaymentRef, ord.Total).
		Scan(&ord.OrderID, &ord.CreatedAt)
	if err != nil {
		return Order{}, err
	}

	for _, it := range items {
		res, err := tx.Exec(`UPDATE products SET stock = stock - $1 WHERE product_id = $2 AND stock >= $1`,
			it.Quantity, it.ProductID)
		if err != nil {
			return Order{}, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return Order{}, err
		}
		if n == 0 {
			return Order{}, ErrInsufficientStock
		}

		if _, err := tx.Exec(`INSERT INTO order_items (order_id, product_id, product_name, quantity, price_at_purchase)
            VALUES ($1,$2,$3,$4,$5)`,
			ord.OrderID, it.ProductID, it.ProductName, it.Quantity, it.PriceAtPurchase); err != nil {
			return Order{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Order{}, err
	}
	return ord, nil
}

const orderColumns = `order_id, user_id, delivery_method, address, payment_method, payment_status, payment_ref, total, created_at`

func scanOrder(row interface {
	Scan(dest ...interface{}) error
}) (Order, error) {
	var ord Order
	err := row.Scan(&ord.OrderID, &ord.UserID, &ord.DeliveryMethod, &ord.Address,
		&ord.PaymentMethod, &ord.PaymentStatus, &ord.PaymentRef, &ord.Total, &ord.CreatedAt)
	return ord, err
}

func (r *PostgresRepository) FindByReference(reference string) (Order, bool, error) {
	ord, err := scanOrder(r.db.QueryRow(`SELECT `+orderColumns+` FROM orders WHERE payment_ref = $1`, reference))
	if err == sql.ErrNoRows {
		return Order{}, false, nil
	}
	if err != nil {
		return Order{}, false, err
	}
	return ord, true, nil
}

func (r *PostgresRepository) GetByID(id int) (Order, error) {
	ord, err := scanOrder(r.db.QueryRow(`SELECT `+orderColumns+` FROM orders WHERE order_id = $1`, id))
	if err == sql.ErrNoRows {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	return ord, nil
}

func (r *PostgresRepository) ItemsByOrderID(orderID int) ([]OrderItem, error) {
	rows, err := r.db.Query(`SELECT order_id, product_id, product_name, quantity, price_at_purchase
        FROM order_items WHERE order_id = $1 ORDER BY product_id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]OrderItem, 0)
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.PriceAtPurchase); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *PostgresRepository) ListByUser(userID int) ([]Order, error) {
	rows, err := r.db.Query(`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		ord, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, ord)
	}
	return orders, rows.Err()
}
