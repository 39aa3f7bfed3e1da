package baseline

import (
	"github.com/google/uuid"
	"github.com/shiftcycle/shiftopt/pkg/model"
	"github.com/shiftcycle/shiftopt/pkg/rng"
)

// swapForExclusions walks every day of the month looking for assignments
// that land an employee on a shift they've excluded, and repairs them by
// swapping with a same-day partner (preserving that day's coverage
// balance) or, failing that, replacing with the employee's first allowed
// shift.
func swapForExclusions(schedule model.Schedule, employees []model.Employee, daysInMonth int, shiftSet *model.ShiftSet, source *rng.Source) {
	for day := 0; day < daysInMonth; day++ {
		conflicted := conflictedEmployees(schedule, employees, day)
		if len(conflicted) == 0 {
			continue
		}
		if source != nil {
			source.Shuffle(len(conflicted), func(i, j int) { conflicted[i], conflicted[j] = conflicted[j], conflicted[i] })
		}

		used := make(map[uuid.UUID]bool, len(conflicted))
		for _, focal := range conflicted {
			if used[focal.ID] {
				continue
			}
			focalShift := schedule[focal.ID].Shifts[day]
			if !focal.Excludes(focalShift) {
				continue // already resolved by an earlier swap this day
			}

			partner, ok := findSwapPartner(schedule, employees, focal, day, used)
			if ok {
				focalEs := schedule[focal.ID]
				partnerEs := schedule[partner.ID]
				focalEs.Shifts[day], partnerEs.Shifts[day] = partnerEs.Shifts[day], focalEs.Shifts[day]
				schedule[focal.ID] = focalEs
				schedule[partner.ID] = partnerEs
				used[focal.ID] = true
				used[partner.ID] = true
				continue
			}

			if fallback, ok := firstAllowedShift(shiftSet, focal); ok {
				focalEs := schedule[focal.ID]
				focalEs.Shifts[day] = fallback
				schedule[focal.ID] = focalEs
			}
			used[focal.ID] = true
		}
	}
}

func conflictedEmployees(schedule model.Schedule, employees []model.Employee, day int) []model.Employee {
	var out []model.Employee
	for _, e := range employees {
		es, ok := schedule[e.ID]
		if !ok || day >= len(es.Shifts) {
			continue
		}
		if e.Excludes(es.Shifts[day]) {
			out = append(out, e)
		}
	}
	return out
}

// findSwapPartner looks for another employee, not yet used this day, who
// can take focal's shift while focal takes theirs.
func findSwapPartner(schedule model.Schedule, employees []model.Employee, focal model.Employee, day int, used map[uuid.UUID]bool) (model.Employee, bool) {
	focalShift := schedule[focal.ID].Shifts[day]
	for _, candidate := range employees {
		if candidate.ID == focal.ID || used[candidate.ID] {
			continue
		}
		candidateEs, ok := schedule[candidate.ID]
		if !ok || day >= len(candidateEs.Shifts) {
			continue
		}
		candidateShift := candidateEs.Shifts[day]
		if focal.Excludes(candidateShift) {
			continue
		}
		if candidate.Excludes(focalShift) {
			continue
		}
		return candidate, true
	}
	return model.Employee{}, false
}

// firstAllowedShift returns the first declared shift id the employee does
// not exclude, in declaration order.
func firstAllowedShift(shiftSet *model.ShiftSet, e model.Employee) (model.ShiftID, bool) {
	for _, id := range shiftSet.IDs() {
		if !e.Excludes(id) {
			return id, true
		}
	}
	return "", false
}
