package matrixga

import (
	"github.com/google/uuid"
	"github.com/shiftcycle/shiftopt/pkg/model"
)

// allowedShiftsForMatrix returns every declared shift id that no employee
// bound to this matrix excludes. Because a matrix's rows are shared across
// whichever employees cycle through them, a shift is only safe to place if
// it is safe for all of them.
func allowedShiftsForMatrix(cfg *model.Config, matrixID uuid.UUID) []model.ShiftID {
	shiftSet := cfg.ShiftSetLookup()
	bound := boundEmployees(cfg, matrixID)

	var out []model.ShiftID
	for _, id := range shiftSet.IDs() {
		excluded := false
		for _, e := range bound {
			if e.Excludes(id) {
				excluded = true
				break
			}
		}
		if !excluded {
			out = append(out, id)
		}
	}
	return out
}

func boundEmployees(cfg *model.Config, matrixID uuid.UUID) []model.Employee {
	var out []model.Employee
	for _, e := range cfg.Employees {
		if cfg.EmployeeMatrixID(e) == matrixID {
			out = append(out, e)
		}
	}
	return out
}

// rowEmployee approximates which employee a matrix row "belongs to" for
// initialization purposes, using the same round-robin assignment the
// baseline builder falls back to for employees with no history. The real
// row each employee lands in is only settled once the baseline is built;
// this is a best-effort guide to keep smart initialization from seeding
// shifts an employee is known to exclude.
func rowEmployee(cfg *model.Config, matrixID uuid.UUID, row, rowCount int) (model.Employee, bool) {
	bound := boundEmployees(cfg, matrixID)
	for i, e := range bound {
		if i%rowCount == row {
			return e, true
		}
	}
	return model.Employee{}, false
}

// mustFollowMap builds a lookup of enabled must_follow constraints, keyed
// by the shift that triggers the rule.
func mustFollowMap(constraints []model.Constraint) map[model.ShiftID]model.ShiftID {
	out := make(map[model.ShiftID]model.ShiftID)
	for _, c := range constraints {
		if c.Enabled && c.Kind == model.KindMustFollow {
			out[c.ShiftA] = c.ShiftB
		}
	}
	return out
}

func isExcludedFromAllowed(allowed []model.ShiftID, shift model.ShiftID) bool {
	for _, a := range allowed {
		if a == shift {
			return false
		}
	}
	return true
}
