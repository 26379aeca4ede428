package repository

import (
	"database/sql"

	"github.com/campaignify/xenocrm-backend/internal/model"
)

// CustomerRepositoryInterface defines methods used by services. The core
// only reads customers; UpsertByEmail exists for the import path.
type CustomerRepositoryInterface interface {
	GetByID(id int) (*model.Customer, error)
	ListAll() ([]model.Customer, error)
	FindByPredicate(p Predicate) ([]model.Customer, error)
	CountByPredicate(p Predicate) (int, error)
	UpsertByEmail(c *model.Customer) (created bool, err error)
}

// CustomerRepository is the concrete implementation
type CustomerRepository struct {
	DB *sql.DB
}

const customerColumns = "id, name, email, phone, address, country, total_spent, visits, last_active, created_at"

func scanCustomer(row interface{ Scan(...interface{}) error }, c *model.Customer) error {
	return row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.Country,
		&c.TotalSpent, &c.Visits, &c.LastActive, &c.CreatedAt)
}

// GetByID fetches a customer by ID
func (r *CustomerRepository) GetByID(id int) (*model.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`
	var c model.Customer
	if err := scanCustomer(r.DB.QueryRow(query, id), &c); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // not found
		}
		return nil, err
	}
	return &c, nil
}

// ListAll fetches all customers
func (r *CustomerRepository) ListAll() ([]model.Customer, error) {
	return r.FindByPredicate(Predicate{})
}

// FindByPredicate returns the customers matching every condition of p,
// ordered by id so audiences come back in a stable order.
func (r *CustomerRepository) FindByPredicate(p Predicate) ([]model.Customer, error) {
	where, args := p.where()
	query := `SELECT ` + customerColumns + ` FROM customers` + where + ` ORDER BY id`

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := []model.Customer{}
	for rows.Next() {
		var c model.Customer
		if err := scanCustomer(rows, &c); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

// CountByPredicate counts the customers matching every condition of p.
func (r *CustomerRepository) CountByPredicate(p Predicate) (int, error) {
	where, args := p.where()
	var count int
	err := r.DB.QueryRow(`SELECT COUNT(*) FROM customers`+where, args...).Scan(&count)
	return count, err
}

// UpsertByEmail inserts a customer or, when the email already exists,
// updates it keeping any existing value the incoming record leaves blank.
// Used by the CSV import path. Reports whether a new row was created.
func (r *CustomerRepository) UpsertByEmail(c *model.Customer) (bool, error) {
	query := `
        INSERT INTO customers (name, email, phone, address, country, total_spent, visits, last_active, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
        ON CONFLICT (email) DO UPDATE SET
            name        = COALESCE(NULLIF(EXCLUDED.name, ''), customers.name),
            phone       = COALESCE(NULLIF(EXCLUDED.phone, ''), customers.phone),
            address     = COALESCE(NULLIF(EXCLUDED.address, ''), customers.address),
            country     = COALESCE(NULLIF(EXCLUDED.country, ''), customers.country),
            total_spent = COALESCE(NULLIF(EXCLUDED.total_spent, 0), customers.total_spent),
            visits      = COALESCE(NULLIF(EXCLUDED.visits, 0), customers.visits),
            last_active = COALESCE(EXCLUDED.last_active, customers.last_active)
        RETURNING id, (xmax = 0)
    `
	var created bool
	err := r.DB.QueryRow(query, c.Name, c.Email, c.Phone, c.Address, c.Country,
		c.TotalSpent, c.Visits, c.LastActive).Scan(&c.ID, &created)
	if err != nil {
		return false, err
	}
	return created, nil
}

var _ CustomerRepositoryInterface = (*CustomerRepository)(nil)
