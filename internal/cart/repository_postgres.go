package cart

import (
	"database/sql"
)

type PostgresRepository struct {
	db *sql.DB
}

const getCartQuery = `
    SELECT c.cart_id, c.quantity,
           p.product_id, p.name, p.price, p.image_url, p.stock
    FROM cart c
    JOIN products p ON c.product_id = p.product_id
    WHERE c.user_id = $1
    ORDER BY c.cart_id`

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Add(userID, productID, qty int) error {
	_, err := r.db.Exec(`
        INSERT INTO cart (user_id, product_id, quantity)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id, product_id) DO UPDATE
        SET quantity = cart.quantity + EXCLUDED.quantity`,
		userID, productID, qty)
	return err
}

func (r *PostgresRepository) Get(userID int) ([]CartItem, error) {
	rows, err := r.db.Query(getCartQuery, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]CartItem, 0)
	for rows.Next() {
		var it CartItem
		if err := rows.Scan(&it.CartID, &it.Quantity, &it.ProductID, &it.ProductName, &it.Price, &it.Image, &it.StockAvailable); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) UpdateQuantity(userID, cartID, qty int) error {
	res, err := r.db.Exec(`UPDATE cart SET quantity = $1 WHERE cart_id = $2 AND user_id = $3`, qty, cartID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Remove(userID, cartID int) error {
	res, err := r.db.Exec(`DELETE FROM cart WHERE cart_id = $1 AND user_id = $2`, cartID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Clear(userID int) error {
	_, err := r.db.Exec(`DELETE FROM cart WHERE user_id = $1`, userID)
	return err
}
