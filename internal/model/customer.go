// internal/model/customer.go
package model

import "time"

type Customer struct {
	ID         int        `db:"id" json:"id"`
	Name       string     `db:"name" json:"name"`
	Email      string     `db:"email" json:"email"`
	Phone      string     `db:"phone" json:"phone"`
	Address    string     `db:"address" json:"address"`
	Country    string     `db:"country" json:"country"`
	TotalSpent float64    `db:"total_spent" json:"total_spent"`
	Visits     int        `db:"visits" json:"visits"`
	LastActive *time.Time `db:"last_active" json:"last_active,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}
