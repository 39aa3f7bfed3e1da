// Package constraint validates shift sequences against the seven rule
// kinds and answers which shifts may legally follow a given position.
package constraint

import (
	"fmt"

	"github.com/shiftcycle/shiftopt/pkg/model"
)

// Violation is one rule breach found by Validate, anchored to the day it
// occurred on.
type Violation struct {
	Day            int              `json:"day"`
	ConstraintID   string           `json:"constraint_id"`
	ConstraintKind model.ConstraintKind `json:"constraint_kind"`
	Message        string           `json:"message"`
}

// Validate checks sequence against every enabled constraint and returns
// every violation found. When cyclic is false the sequence is treated as
// linear (the last index has no successor, the first has no predecessor);
// when true the sequence wraps, so index len-1's successor is index 0.
//
// Violations are returned grouped by constraint, in the order the
// constraints appear in the list; reordering the list reorders the
// result, but the set of violations found is order-insensitive.
func Validate(sequence []model.ShiftID, constraints []model.Constraint, cyclic bool) []Violation {
	var out []Violation
	for _, c := range constraints {
		if !c.Enabled {
			continue
		}
		out = append(out, validateOne(sequence, c, cyclic)...)
	}
	return out
}

func validateOne(sequence []model.ShiftID, c model.Constraint, cyclic bool) []Violation {
	switch c.Kind {
	case model.KindMustFollow:
		return checkFollow(sequence, c, cyclic, true)
	case model.KindCannotFollow:
		return checkFollow(sequence, c, cyclic, false)
	case model.KindMustPrecede:
		return checkPrecede(sequence, c, cyclic, true)
	case model.KindCannotPrecede:
		return checkPrecede(sequence, c, cyclic, false)
	case model.KindMaxConsecutive:
		return checkMaxRun(sequence, c, cyclic, true)
	case model.KindMaxConsecutiveWithout:
		return checkMaxRun(sequence, c, cyclic, false)
	case model.KindMinGap:
		return checkMinGap(sequence, c, cyclic)
	default:
		return nil
	}
}

// nextIndex returns the successor of i, or -1 if i has no successor
// (linear mode, i is the last index).
func nextIndex(i, n int, cyclic bool) int {
	if i == n-1 {
		if !cyclic {
			return -1
		}
		return 0
	}
	return i + 1
}

// prevIndex returns the predecessor of i, or -1 if i has no predecessor
// (linear mode, i is the first index).
func prevIndex(i, n int, cyclic bool) int {
	if i == 0 {
		if !cyclic {
			return -1
		}
		return n - 1
	}
	return i - 1
}

func checkFollow(sequence []model.ShiftID, c model.Constraint, cyclic, must bool) []Violation {
	n := len(sequence)
	var out []Violation
	for i := 0; i < n; i++ {
		if !sequence[i].Matches(c.ShiftA) {
			continue
		}
		j := nextIndex(i, n, cyclic)
		if j == -1 {
			continue
		}
		followsB := sequence[j].Matches(c.ShiftB)
		if must && !followsB {
			out = append(out, violationAt(j, c, fmt.Sprintf("%s must be followed by %s", c.ShiftA, c.ShiftB)))
		}
		if !must && followsB {
			out = append(out, violationAt(j, c, fmt.Sprintf("%s must not be followed by %s", c.ShiftA, c.ShiftB)))
		}
	}
	return out
}

func checkPrecede(sequence []model.ShiftID, c model.Constraint, cyclic, must bool) []Violation {
	n := len(sequence)
	var out []Violation
	for i := 0; i < n; i++ {
		if !sequence[i].Matches(c.ShiftA) {
			continue
		}
		j := prevIndex(i, n, cyclic)
		if j == -1 {
			continue
		}
		precededByB := sequence[j].Matches(c.ShiftB)
		if must && !precededByB {
			out = append(out, violationAt(j, c, fmt.Sprintf("%s must be preceded by %s", c.ShiftA, c.ShiftB)))
		}
		if !must && precededByB {
			out = append(out, violationAt(j, c, fmt.Sprintf("%s must not be preceded by %s", c.ShiftA, c.ShiftB)))
		}
	}
	return out
}

// checkMaxRun enforces max_consecutive (matching=true, runs of cells
// matching ShiftA) or max_consecutive_without (matching=false, runs of
// cells NOT matching ShiftA).
func checkMaxRun(sequence []model.ShiftID, c model.Constraint, cyclic, matching bool) []Violation {
	n := len(sequence)
	if n == 0 || c.Days < 1 {
		return nil
	}
	inRun := func(i int) bool {
		return sequence[i].Matches(c.ShiftA) == matching
	}

	if !cyclic {
		var out []Violation
		run := 0
		for i := 0; i < n; i++ {
			if inRun(i) {
				run++
				if run > c.Days {
					out = append(out, violationAt(i, c, maxRunMessage(c, matching)))
				}
			} else {
				run = 0
			}
		}
		return out
	}

	// Cyclic: rotate the starting point to a run boundary (a cell that
	// breaks the run) so a run that wraps past index n-1 is scored as one
	// contiguous run instead of being cut in two. If every cell is part
	// of the same run, the whole ring is one run of length n.
	cut := -1
	for i := 0; i < n; i++ {
		if !inRun(i) {
			cut = i
			break
		}
	}
	if cut == -1 {
		if n > c.Days {
			return []Violation{violationAt(0, c, maxRunMessage(c, matching))}
		}
		return nil
	}

	var out []Violation
	run := 0
	for k := 0; k < n; k++ {
		idx := (cut + k) % n
		if inRun(idx) {
			run++
			if run > c.Days {
				out = append(out, violationAt(idx, c, maxRunMessage(c, matching)))
			}
		} else {
			run = 0
		}
	}
	return out
}

func maxRunMessage(c model.Constraint, matching bool) string {
	if matching {
		return fmt.Sprintf("more than %d consecutive %s", c.Days, c.ShiftA)
	}
	return fmt.Sprintf("more than %d consecutive shifts without %s", c.Days, c.ShiftA)
}

func checkMinGap(sequence []model.ShiftID, c model.Constraint, cyclic bool) []Violation {
	n := len(sequence)
	if n == 0 || c.Days < 1 {
		return nil
	}
	var out []Violation
	for i := 0; i < n; i++ {
		if !sequence[i].Matches(c.ShiftA) {
			continue
		}
		for k := 1; k <= c.Days; k++ {
			j := i + k
			if !cyclic {
				if j >= n {
					break
				}
			} else {
				j = j % n
			}
			if sequence[j].Matches(c.ShiftB) {
				out = append(out, violationAt(j, c, fmt.Sprintf("%s within %d days of %s", c.ShiftB, c.Days, c.ShiftA)))
			}
		}
	}
	return out
}

func violationAt(day int, c model.Constraint, msg string) Violation {
	return Violation{Day: day, ConstraintID: c.ID.String(), ConstraintKind: c.Kind, Message: msg}
}
