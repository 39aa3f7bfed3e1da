package schedulega

import (
	"github.com/google/uuid"
	"github.com/shiftcycle/shiftopt/pkg/model"
	"github.com/shiftcycle/shiftopt/pkg/rng"
)

// mutate applies the configured mutation operator in place. Guided mode
// (the default) replaces plain point mutation with swap mutation followed
// by guided reversion toward baseline; point mode applies plain point
// mutation only.
func mutate(child model.Schedule, baseline model.Schedule, allowed map[uuid.UUID][]model.ShiftID, employeeIDs []uuid.UUID, rate float64, mode string, baselineAdherence float64, source *rng.Source) {
	if mode == MutationPoint {
		pointMutation(child, allowed, employeeIDs, rate, source)
		return
	}
	swapMutation(child, allowed, employeeIDs, rate, source)
	guidedMutation(child, baseline, employeeIDs, rate, baselineAdherence, source)
}

// swapMutation: per day, with probability rate, pick two distinct
// employees and swap their day's shift, but only if neither resulting
// assignment violates either employee's exclusions.
func swapMutation(child model.Schedule, allowed map[uuid.UUID][]model.ShiftID, employeeIDs []uuid.UUID, rate float64, source *rng.Source) {
	if len(employeeIDs) < 2 {
		return
	}
	days := scheduleLength(child, employeeIDs)
	for day := 0; day < days; day++ {
		if !source.Bool(rate) {
			continue
		}
		i := source.Intn(len(employeeIDs))
		j := source.Intn(len(employeeIDs))
		if i == j {
			continue
		}
		idA, idB := employeeIDs[i], employeeIDs[j]
		esA, esB := child[idA], child[idB]
		if day >= len(esA.Shifts) || day >= len(esB.Shifts) {
			continue
		}
		shiftA, shiftB := esA.Shifts[day], esB.Shifts[day]
		if !isAllowed(allowed[idA], shiftB) || !isAllowed(allowed[idB], shiftA) {
			continue
		}
		esA.Shifts[day], esB.Shifts[day] = shiftB, shiftA
		child[idA], child[idB] = esA, esB
	}
}

func isAllowed(candidates []model.ShiftID, shift model.ShiftID) bool {
	for _, c := range candidates {
		if c == shift {
			return true
		}
	}
	return false
}

// pointMutation: per cell, with probability rate, replace with a
// different allowed shift for that employee.
func pointMutation(child model.Schedule, allowed map[uuid.UUID][]model.ShiftID, employeeIDs []uuid.UUID, rate float64, source *rng.Source) {
	for _, id := range employeeIDs {
		candidates := allowed[id]
		if len(candidates) == 0 {
			continue
		}
		es := child[id]
		for day := range es.Shifts {
			if !source.Bool(rate) {
				continue
			}
			others := make([]model.ShiftID, 0, len(candidates))
			for _, c := range candidates {
				if c != es.Shifts[day] {
					others = append(others, c)
				}
			}
			if len(others) > 0 {
				es.Shifts[day] = rng.Pick(source, others)
			}
		}
		child[id] = es
	}
}

// guidedMutation: per cell, with probability rate, if the current shift
// differs from baseline, revert it to baseline with probability
// baselineAdherence. This is what keeps evolved schedules close to the
// cyclic pattern.
func guidedMutation(child model.Schedule, baseline model.Schedule, employeeIDs []uuid.UUID, rate, baselineAdherence float64, source *rng.Source) {
	for _, id := range employeeIDs {
		es := child[id]
		be, ok := baseline[id]
		if !ok {
			continue
		}
		for day := range es.Shifts {
			if day >= len(be.Shifts) {
				continue
			}
			if !source.Bool(rate) {
				continue
			}
			if es.Shifts[day] == be.Shifts[day] {
				continue
			}
			if source.Bool(baselineAdherence) {
				es.Shifts[day] = be.Shifts[day]
			}
		}
		child[id] = es
	}
}
