package models

import (
	"fmt"
	"time"
)

// RequestStatus is the decision state of a gate pass request.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// Valid reports whether the status is one of the enumerated states.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Decided reports whether an admin has acted on the request.
func (s RequestStatus) Decided() bool {
	return s == StatusApproved || s == StatusRejected
}

// Recognised purposes for a gate pass.
const (
	PurposePersonal = "Personal"
	PurposeOfficial = "Official"
)

// ValidPurpose reports whether the purpose is one of the enumerated values.
func ValidPurpose(p string) bool {
	return p == PurposePersonal || p == PurposeOfficial
}

// GatePassRequest is a single gate pass application with its full
// approval/allow lifecycle. FacultyEmail is a point-in-time snapshot of the
// submitter's account email, taken when the request is created.
type GatePassRequest struct {
	ID           string        `db:"id" json:"id"`
	FacultyID    string        `db:"faculty_id" json:"faculty_id"`
	FacultyEmail string        `db:"faculty_email" json:"faculty_email"`
	Date         string        `db:"date" json:"date"`
	TimeOut      string        `db:"time_out" json:"time_out"`
	TimeIn       string        `db:"time_in" json:"time_in"`
	Purpose      string        `db:"purpose" json:"purpose"`
	Reason       string        `db:"reason" json:"reason"`
	Status       RequestStatus `db:"status" json:"status"`
	Allowed      bool          `db:"allowed" json:"allowed"`
	AllowedBy    *string       `db:"allowed_by" json:"allowed_by,omitempty"`
	AllowedAt    *time.Time    `db:"allowed_at" json:"allowed_at,omitempty"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

// SubmitRequest is the faculty submission payload.
type SubmitRequest struct {
	FacultyID string `json:"faculty_id" validate:"required"`
	Date      string `json:"date" validate:"required"`
	TimeOut   string `json:"time_out" validate:"required"`
	TimeIn    string `json:"time_in" validate:"required"`
	Purpose   string `json:"purpose" validate:"required"`
	Reason    string `json:"reason" validate:"required"`
}

// DecisionRequest carries an admin decision.
type DecisionRequest struct {
	RequestID string        `json:"request_id" validate:"required"`
	Status    RequestStatus `json:"status" validate:"required"`
}

// ReopenRequest moves a decided request back to pending.
type ReopenRequest struct {
	RequestID string `json:"request_id" validate:"required"`
}

// RequestScope is a named query shape restricting results per role's
// primary view.
type RequestScope string

const (
	ScopeAll         RequestScope = "all"
	ScopePendingOnly RequestScope = "pending-only"
	ScopeDecidedOnly RequestScope = "decided-only"
	ScopeAllowedOnly RequestScope = "allowed-only"
)

// RequestFilter captures the multi-criteria query options. Date matches the
// canonical calendar date exactly; FacultyEmail is a case-insensitive
// substring match.
type RequestFilter struct {
	Status       *RequestStatus
	Date         string
	FacultyEmail string
	FacultyID    string
	Scope        RequestScope
}

// StatusCounts aggregates request counts by status. Counts cover the full
// set matching the non-status criteria regardless of any status filter.
type StatusCounts struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

// RequestList bundles filtered items with the aggregate counts.
type RequestList struct {
	Items  []GatePassRequest `json:"requests"`
	Counts StatusCounts      `json:"counts"`
}

// DateLayout is the canonical calendar date representation. Dates are
// normalized to this layout at write time so queries can use plain string
// equality.
const DateLayout = "2006-01-02"

var acceptedDateLayouts = []string{
	DateLayout,
	"2006/01/02",
	"02-01-2006",
	"02/01/2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// NormalizeDate parses a submitted calendar date and renders it in the
// canonical layout.
func NormalizeDate(raw string) (string, error) {
	for _, layout := range acceptedDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(DateLayout), nil
		}
	}
	return "", fmt.Errorf("unrecognised date %q", raw)
}
