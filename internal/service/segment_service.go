// internal/service/segment_service.go
package service

import (
	"encoding/json"
	"fmt"
	"time"

	appErrors "github.com/campaignify/xenocrm-backend/internal/errors"
	"github.com/campaignify/xenocrm-backend/internal/model"
	"github.com/campaignify/xenocrm-backend/internal/repository"
)

// SegmentService resolves a segment's rule document into its current
// audience. Segments are live filters: the same segment can resolve to
// different audiences at different times as customers change.
type SegmentService struct {
	SegmentRepo  repository.SegmentRepositoryInterface
	CustomerRepo repository.CustomerRepositoryInterface
}

// parseRules decodes a stored rule document leniently. A recognized key
// whose value has the wrong shape is skipped and reported as a warning so
// that one bad rule degrades the audience instead of blocking the whole
// campaign.
func parseRules(raw json.RawMessage) (model.SegmentRules, []string) {
	var rules model.SegmentRules
	if len(raw) == 0 || string(raw) == "null" {
		return rules, nil
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return rules, []string{appErrors.NewValidation("rules", "not a JSON object").Error()}
	}

	warnings := []string{}
	warn := func(key string) {
		warnings = append(warnings, appErrors.NewValidation(key, "unexpected value shape, rule skipped").Error())
	}

	if v, ok := doc["name"]; ok {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			warn("name")
		} else {
			rules.Name = &s
		}
	}
	if v, ok := doc["country"]; ok {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			warn("country")
		} else {
			rules.Country = &s
		}
	}
	if v, ok := doc["max_visits"]; ok {
		var n int
		if err := json.Unmarshal(v, &n); err != nil {
			warn("max_visits")
		} else {
			rules.MaxVisits = &n
		}
	}
	if v, ok := doc["min_total_spent"]; ok {
		var f float64
		if err := json.Unmarshal(v, &f); err != nil {
			warn("min_total_spent")
		} else {
			rules.MinTotalSpent = &f
		}
	}
	if v, ok := doc["min_days_inactive"]; ok {
		var n int
		if err := json.Unmarshal(v, &n); err != nil {
			warn("min_days_inactive")
		} else {
			rules.MinDaysInactive = &n
		}
	}
	return rules, warnings
}

// ValidateRules is the strict counterpart of parseRules, used where a
// rule document enters storage. It rejects the first malformed value.
func ValidateRules(raw json.RawMessage) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return appErrors.NewValidation("rules", "not a JSON object")
	}
	_, warnings := parseRules(raw)
	if len(warnings) > 0 {
		return appErrors.NewValidation("rules", warnings[0])
	}
	return nil
}

// buildPredicate translates parsed rules into a store predicate.
// min_days_inactive is anchored to the wall clock at this call.
func buildPredicate(rules model.SegmentRules, now time.Time) repository.Predicate {
	p := repository.Predicate{
		NameContains:  rules.Name,
		Country:       rules.Country,
		MaxVisits:     rules.MaxVisits,
		MinTotalSpent: rules.MinTotalSpent,
	}
	if rules.MinDaysInactive != nil {
		cutoff := now.AddDate(0, 0, -*rules.MinDaysInactive)
		p.ActiveBefore = &cutoff
	}
	return p
}

// ResolveAudience returns the customers the segment currently matches,
// plus warnings for any rule that had to be skipped. A segment with no
// effective rules resolves to an empty audience, never the full customer
// set.
func (s *SegmentService) ResolveAudience(segment *model.Segment) ([]model.Customer, []string, error) {
	rules, warnings := parseRules(segment.Rules)
	if rules.Empty() {
		return []model.Customer{}, warnings, nil
	}
	audience, err := s.CustomerRepo.FindByPredicate(buildPredicate(rules, time.Now()))
	if err != nil {
		return nil, warnings, fmt.Errorf("resolve audience for segment %d: %w", segment.ID, err)
	}
	return audience, warnings, nil
}

// CountAudience returns the size of the segment's current audience.
func (s *SegmentService) CountAudience(segment *model.Segment) (int, []string, error) {
	rules, warnings := parseRules(segment.Rules)
	if rules.Empty() {
		return 0, warnings, nil
	}
	count, err := s.CustomerRepo.CountByPredicate(buildPredicate(rules, time.Now()))
	if err != nil {
		return 0, warnings, fmt.Errorf("count audience for segment %d: %w", segment.ID, err)
	}
	return count, warnings, nil
}

// GetSegment loads one segment by ID.
func (s *SegmentService) GetSegment(id int) (*model.Segment, error) {
	return s.SegmentRepo.GetByID(id)
}

// CreateSegment validates the rule document and stores the segment.
func (s *SegmentService) CreateSegment(name, description string, rules json.RawMessage) (*model.Segment, error) {
	if err := ValidateRules(rules); err != nil {
		return nil, err
	}
	seg := &model.Segment{
		Name:        name,
		Description: description,
		Rules:       rules,
	}
	if err := s.SegmentRepo.Create(seg); err != nil {
		return nil, err
	}
	return seg, nil
}

// ListSegments returns all segments.
func (s *SegmentService) ListSegments() ([]model.Segment, error) {
	return s.SegmentRepo.ListAll()
}
