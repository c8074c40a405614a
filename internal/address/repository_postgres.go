package address

import (
	"database/sql"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	addressColumns = `address_id, user_id, address_desc, phone, address_name, created_at, updated_at`

	insertAddressQuery = `
        INSERT INTO addresses (user_id, address_desc, phone, address_name)
        VALUES ($1,$2,$3,$4)
        RETURNING ` + addressColumns + `
    `
	updateAddressQuery = `
        UPDATE addresses
        SET address_desc=$3, phone=$4, address_name=$5, updated_at=now()
        WHERE user_id=$1 AND address_id=$2
        RETURNING ` + addressColumns + `
    `
	deleteAddressQuery = `DELETE FROM addresses WHERE user_id=$1 AND address_id=$2`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetAddresses(userID int) ([]Address, error) {
	rows, err := r.db.Query(`SELECT `+addressColumns+` FROM addresses WHERE user_id = $1 ORDER BY address_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Address, 0)
	for rows.Next() {
		var a Address
		if err := rows.Scan(&a.AddressID, &a.UserID, &a.AddressDesc, &a.Phone, &a.AddressName, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) AddAddress(userID int, addressDesc, phone, addressName string) (Address, error) {
	var a Address
	if err := r.db.QueryRow(insertAddressQuery, userID, addressDesc, phone, addressName).
		Scan(&a.AddressID, &a.UserID, &a.AddressDesc, &a.Phone, &a.AddressName, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return a, err
	}
	return a, nil
}

func (r *PostgresRepository) UpdateAddress(userID int, addressID int, addressDesc, phone, addressName string) (Address, error) {
	var a Address
	if err := r.db.QueryRow(updateAddressQuery, userID, addressID, addressDesc, phone, addressName).
		Scan(&a.AddressID, &a.UserID, &a.AddressDesc, &a.Phone, &a.AddressName, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return a, ErrNotFound
		}
		return a, err
	}
	return a, nil
}

func (r *PostgresRepository) DeleteAddress(userID int, addressID int) error {
	res, err := r.db.Exec(deleteAddressQuery, userID, addressID)
	if err != nil {
		return err
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if cnt == 0 {
		return ErrNotFound
	}
	return nil
}
