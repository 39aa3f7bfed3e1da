package model

import "github.com/google/uuid"

// ConstraintKind tags the seven rule kinds the constraint checker supports.
type ConstraintKind string

const (
	KindMustFollow           ConstraintKind = "must_follow"
	KindCannotFollow         ConstraintKind = "cannot_follow"
	KindMustPrecede          ConstraintKind = "must_precede"
	KindCannotPrecede        ConstraintKind = "cannot_precede"
	KindMaxConsecutive       ConstraintKind = "max_consecutive"
	KindMaxConsecutiveWithout ConstraintKind = "max_consecutive_without"
	KindMinGap               ConstraintKind = "min_gap"
)

// Constraint is a tagged variant: the payload fields that matter depend on
// Kind. ShiftA/ShiftB hold one or two shift ids; Days holds the integer
// argument for kinds that need one (max_consecutive, max_consecutive_without,
// min_gap). Unused fields are left zero for a given Kind — no optional soup,
// the checker matches on Kind alone.
type Constraint struct {
	ID      uuid.UUID      `json:"id"`
	Kind    ConstraintKind `json:"kind"`
	ShiftA  ShiftID        `json:"shift_a"`
	ShiftB  ShiftID        `json:"shift_b,omitempty"`
	Days    int            `json:"days,omitempty"` // days >= 1 where applicable
	Enabled bool           `json:"enabled"`
}

// CoverageRule requires that, for each day, the exact total count of
// assignments whose shift is in Shifts equals Min (both under- and
// over-coverage are penalised — see evaluator).
type CoverageRule struct {
	ID     uuid.UUID `json:"id"`
	Min    int       `json:"min"` // >= 1
	Shifts []ShiftID `json:"shifts"`
}

// Contains reports whether id is in the rule's shift set, honouring the
// variant-prefix matching rule.
func (r CoverageRule) Contains(id ShiftID) bool {
	for _, s := range r.Shifts {
		if id.Matches(s) {
			return true
		}
	}
	return false
}
