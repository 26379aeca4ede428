// internal/model/segment.go
package model

import (
	"encoding/json"
	"time"
)

// Segment is a named, rule-defined dynamic subset of customers. Its
// audience is never materialized: the rules document is re-evaluated
// against the customer store every time the audience is needed.
type Segment struct {
	ID          int             `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description"`
	Rules       json.RawMessage `db:"rules" json:"rules"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// SegmentRules is the recognized rule grammar. Fields are optional and
// conjunctive: every present field must hold for a customer to match.
// Keys outside this set are ignored when a document is evaluated.
type SegmentRules struct {
	Name            *string  `json:"name,omitempty"`             // name contains substring (case-sensitive)
	Country         *string  `json:"country,omitempty"`          // country equals
	MaxVisits       *int     `json:"max_visits,omitempty"`       // visits <= value
	MinTotalSpent   *float64 `json:"min_total_spent,omitempty"`  // total_spent >= value
	MinDaysInactive *int     `json:"min_days_inactive,omitempty"` // last_active <= now - days; null last_active never matches
}

// Empty reports whether no recognized rule is present. An empty rule set
// targets nobody until configured.
func (r SegmentRules) Empty() bool {
	return r.Name == nil && r.Country == nil && r.MaxVisits == nil &&
		r.MinTotalSpent == nil && r.MinDaysInactive == nil
}
