package category

import (
	"database/sql"
)

// Repository provides access to category rows.
type Repository interface {
	List(limit int) ([]Category, error)
}

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// List returns category rows ordered by sort_order then id.
func (r *PostgresRepository) List(limit int) ([]Category, error) {
	rows, err := r.db.Query(`SELECT category_id, name, image FROM category ORDER BY COALESCE(sort_order, 0), category_id LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Category, 0)
	for rows.Next() {
		var (
			c   Category
			img sql.NullString
		)
		if err := rows.Scan(&c.CategoryID, &c.Name, &img); err != nil {
			return nil, err
		}
		if img.Valid {
			c.Image = &img.String
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
