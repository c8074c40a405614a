package user

import "time"

type User struct {
	ID            int       `json:"userId"`
	Email         string    `json:"email"`
	Password      string    `json:"password,omitempty"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	Phone         string    `json:"phone"`
	Gender        string    `json:"gender"`
	MainAddressID *int      `json:"mainAddressId,omitempty"`
	CreatedAt     time.Time `json:"createdAt,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt,omitempty"`
}
