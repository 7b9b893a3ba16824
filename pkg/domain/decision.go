package domain

import "time"

// DecisionStatus is the outcome of a limit-change request.
type DecisionStatus string

const (
	StatusApproved              DecisionStatus = "approved"
	StatusRejected              DecisionStatus = "rejected"
	StatusRequestedBelowCurrent DecisionStatus = "requested_below_current"
)

// Valid reports whether s is one of the known statuses.
func (s DecisionStatus) Valid() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusRequestedBelowCurrent:
		return true
	}
	return false
}

// Decision is the structured result of a credit limit evaluation.
type Decision struct {
	Identifier     string         `json:"identifier"`
	CurrentLimit   float64        `json:"current_limit"`
	RequestedLimit float64        `json:"requested_limit"`
	MaxAllowed     float64        `json:"max_allowed"`
	Status         DecisionStatus `json:"status"`
}

// LedgerEntry is the immutable audit record of one decision.
type LedgerEntry struct {
	ID             string         `json:"id"`
	Identifier     string         `json:"identifier"`
	Timestamp      time.Time      `json:"timestamp"`
	CurrentLimit   float64        `json:"current_limit"` // Limit at decision time
	RequestedLimit float64        `json:"requested_limit"`
	MaxAllowed     float64        `json:"max_allowed"`
	Status         DecisionStatus `json:"status"`
}

// Decision projects the entry back to its decision.
func (e LedgerEntry) Decision() Decision {
	return Decision{
		Identifier:     e.Identifier,
		CurrentLimit:   e.CurrentLimit,
		RequestedLimit: e.RequestedLimit,
		MaxAllowed:     e.MaxAllowed,
		Status:         e.Status,
	}
}
