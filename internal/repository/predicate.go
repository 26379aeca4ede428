// internal/repository/predicate.go
package repository

import (
	"fmt"
	"strings"
	"time"
)

// Predicate narrows customer queries. Fields are optional and conjunctive:
// a nil field places no constraint, the zero value matches every customer.
// The segment evaluator owns the policy that an empty rule set resolves to
// an empty audience, so an empty Predicate never reaches the store from
// that path.
type Predicate struct {
	NameContains  *string
	Country       *string
	MaxVisits     *int
	MinTotalSpent *float64
	ActiveBefore  *time.Time // last_active <= ActiveBefore; NULL last_active never matches
}

func (p Predicate) Empty() bool {
	return p.NameContains == nil && p.Country == nil && p.MaxVisits == nil &&
		p.MinTotalSpent == nil && p.ActiveBefore == nil
}

// where renders the predicate as a WHERE clause with positional args.
func (p Predicate) where() (string, []interface{}) {
	conds := []string{}
	args := []interface{}{}
	argPos := 1

	if p.NameContains != nil {
		conds = append(conds, fmt.Sprintf("position($%d in name) > 0", argPos))
		args = append(args, *p.NameContains)
		argPos++
	}
	if p.Country != nil {
		conds = append(conds, fmt.Sprintf("country = $%d", argPos))
		args = append(args, *p.Country)
		argPos++
	}
	if p.MaxVisits != nil {
		conds = append(conds, fmt.Sprintf("visits <= $%d", argPos))
		args = append(args, *p.MaxVisits)
		argPos++
	}
	if p.MinTotalSpent != nil {
		conds = append(conds, fmt.Sprintf("total_spent >= $%d", argPos))
		args = append(args, *p.MinTotalSpent)
		argPos++
	}
	if p.ActiveBefore != nil {
		conds = append(conds, fmt.Sprintf("last_active IS NOT NULL AND last_active <= $%d", argPos))
		args = append(args, *p.ActiveBefore)
		argPos++
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
