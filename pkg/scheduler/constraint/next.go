package constraint

import "github.com/shiftcycle/shiftopt/pkg/model"

// ValidNextShifts returns the subset of candidates that may be placed at
// position in sequence without producing a violation within ±1 of
// position, tested in a window of width min(2*len(sequence), 14) centred
// on position. The sequence is treated as linear. Returns an empty slice
// when every candidate is excluded — callers fall back to uniform-random
// choice in that case.
func ValidNextShifts(sequence []model.ShiftID, position int, candidates []model.ShiftID, constraints []model.Constraint) []model.ShiftID {
	return validNextShifts(sequence, position, candidates, constraints, false)
}

// ValidNextShiftsCyclic is ValidNextShifts with the sequence treated as a
// ring: the test window wraps across both ends.
func ValidNextShiftsCyclic(sequence []model.ShiftID, position int, candidates []model.ShiftID, constraints []model.Constraint) []model.ShiftID {
	return validNextShifts(sequence, position, candidates, constraints, true)
}

func validNextShifts(sequence []model.ShiftID, position int, candidates []model.ShiftID, constraints []model.Constraint, cyclic bool) []model.ShiftID {
	n := len(sequence)
	if n == 0 {
		return nil
	}
	width := 2 * n
	if width > 14 {
		width = 14
	}
	lo, hi := windowBounds(position, width, n, cyclic)

	var out []model.ShiftID
	for _, candidate := range candidates {
		trial := append([]model.ShiftID(nil), sequence...)
		trial[position] = candidate
		if windowIsClean(trial, position, lo, hi, n, cyclic, constraints) {
			out = append(out, candidate)
		}
	}
	return out
}

// windowBounds returns the [lo,hi] index range (inclusive, may be
// negative/overflowing when cyclic — callers must mod) of width cells
// centred on position.
func windowBounds(position, width, n int, cyclic bool) (int, int) {
	half := width / 2
	lo := position - half
	hi := position + half
	if !cyclic {
		if lo < 0 {
			lo = 0
		}
		if hi > n-1 {
			hi = n - 1
		}
	}
	return lo, hi
}

func windowIsClean(trial []model.ShiftID, position, lo, hi, n int, cyclic bool, constraints []model.Constraint) bool {
	violations := Validate(trial, constraints, cyclic)
	for _, v := range violations {
		if withinWindow(v.Day, lo, hi, n, cyclic) && withinOne(v.Day, position, n, cyclic) {
			return false
		}
	}
	return true
}

func withinWindow(day, lo, hi, n int, cyclic bool) bool {
	if !cyclic {
		return day >= lo && day <= hi
	}
	if hi-lo >= n-1 {
		return true // window spans the whole ring
	}
	lo = ((lo % n) + n) % n
	hi = ((hi % n) + n) % n
	if lo <= hi {
		return day >= lo && day <= hi
	}
	return day >= lo || day <= hi
}

// withinOne reports whether day is within ±1 of position, honouring the
// cyclic wrap when requested.
func withinOne(day, position, n int, cyclic bool) bool {
	d := day - position
	if cyclic {
		d = ((d % n) + n) % n
		if d > n/2 {
			d -= n
		}
	}
	if d < 0 {
		d = -d
	}
	return d <= 1
}
