// internal/errors/errors.go
package appErrors

import "fmt"

// NotFoundError signals that a campaign, segment or customer does not
// exist. The operation is aborted and nothing is mutated.
type NotFoundError struct {
	Resource string
	ID       int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %d not found", e.Resource, e.ID)
}

// Helper constructors
func NewCampaignNotFound(id int) error {
	return &NotFoundError{Resource: "campaign", ID: id}
}

func NewSegmentNotFound(id int) error {
	return &NotFoundError{Resource: "segment", ID: id}
}

func NewCustomerNotFound(id int) error {
	return &NotFoundError{Resource: "customer", ID: id}
}

// StateConflictError signals an execution attempt on a campaign that is
// not in the scheduled state. The stored status is left untouched.
type StateConflictError struct {
	CampaignID int
	Status     string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("campaign %d cannot be executed in status %q", e.CampaignID, e.Status)
}

func NewStateConflict(campaignID int, status string) error {
	return &StateConflictError{CampaignID: campaignID, Status: status}
}

// ValidationError signals a malformed rule value or request field.
// During audience resolution it is captured as a warning, never thrown
// past the caller.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func NewValidation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// DispatchError is a per-message transport failure. It is recorded on the
// failed message and does not abort the batch.
type DispatchError struct {
	CustomerID int
	Err        error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch to customer %d failed: %v", e.CustomerID, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

func NewDispatchError(customerID int, err error) error {
	return &DispatchError{CustomerID: customerID, Err: err}
}

// SystemFailure wraps a persistence or orchestration fault that aborts a
// campaign run and forces the failed transition.
type SystemFailure struct {
	Op  string
	Err error
}

func (e *SystemFailure) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SystemFailure) Unwrap() error { return e.Err }

func NewSystemFailure(op string, err error) error {
	return &SystemFailure{Op: op, Err: err}
}
