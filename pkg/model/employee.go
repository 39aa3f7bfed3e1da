package model

import "github.com/google/uuid"

// Employee is a stable scheduling unit bound to one matrix.
type Employee struct {
	ID             uuid.UUID          `json:"id"`
	Name           string             `json:"name"`
	ContractHours  float64            `json:"contract_hours"` // weekly
	ExcludedShifts map[ShiftID]bool   `json:"excluded_shifts,omitempty"`
	MatrixID       uuid.UUID          `json:"matrix_id,omitempty"` // zero value means default matrix
}

// Excludes reports whether the employee cannot work the given shift,
// honouring the variant-prefix matching rule.
func (e Employee) Excludes(id ShiftID) bool {
	for excluded := range e.ExcludedShifts {
		if id.Matches(excluded) {
			return true
		}
	}
	return false
}

// ExpectedHours returns the employee's expected monthly hours, derived
// from their weekly contract hours and the number of days in the month.
func (e Employee) ExpectedHours(daysInMonth int) float64 {
	return e.ContractHours * float64(daysInMonth) / 7.0
}
