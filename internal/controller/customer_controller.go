// internal/controller/customer_controller.go
package controller

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/campaignify/xenocrm-backend/internal/model"
	"github.com/campaignify/xenocrm-backend/internal/repository"
)

type CustomerController struct {
	CustomerRepo repository.CustomerRepositoryInterface
}

func (c *CustomerController) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := c.CustomerRepo.ListAll()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

func (c *CustomerController) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid customer id", http.StatusBadRequest)
		return
	}

	customer, err := c.CustomerRepo.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if customer == nil {
		http.Error(w, "customer not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

type importResults struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}

// ImportCustomers upserts customers from an uploaded CSV file keyed by
// email. Rows fail independently; one bad row never aborts the import.
func (c *CustomerController) ImportCustomers(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "no file provided", http.StatusBadRequest)
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		http.Error(w, "invalid CSV: "+err.Error(), http.StatusBadRequest)
		return
	}

	col := map[string]int{}
	for i, name := range header {
		col[name] = i
	}

	field := func(record []string, name string) string {
		if i, ok := col[name]; ok && i < len(record) {
			return record[i]
		}
		return ""
	}

	results := importResults{Errors: []string{}}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			results.Failed++
			results.Errors = append(results.Errors, "unreadable row: "+err.Error())
			continue
		}

		email := field(record, "email")
		if email == "" {
			results.Failed++
			results.Errors = append(results.Errors, "row skipped: email is required")
			continue
		}

		customer := model.Customer{
			Name:    field(record, "name"),
			Email:   email,
			Phone:   field(record, "phone"),
			Address: field(record, "address"),
			Country: field(record, "country"),
		}
		if v := field(record, "total_spent"); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				customer.TotalSpent = f
			}
		}
		if v := field(record, "visits"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				customer.Visits = n
			}
		}
		if v := field(record, "last_purchase_date"); v != "" {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				customer.LastActive = &t
			} else if t, err := time.Parse("2006-01-02", v); err == nil {
				customer.LastActive = &t
			}
		}

		created, err := c.CustomerRepo.UpsertByEmail(&customer)
		if err != nil {
			results.Failed++
			results.Errors = append(results.Errors, fmt.Sprintf("failed to process record: %s - %v", email, err))
			continue
		}
		if created {
			results.Created++
		} else {
			results.Updated++
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Import completed",
		"results": results,
	})
}
