package schedulega

import (
	"github.com/google/uuid"
	"github.com/shiftcycle/shiftopt/pkg/model"
	"github.com/shiftcycle/shiftopt/pkg/rng"
)

// crossover dispatches to the selected operator. Both parents are assumed
// to carry the same employee set.
func crossover(a, b model.Schedule, employeeIDs []uuid.UUID, mode string, source *rng.Source) model.Schedule {
	switch mode {
	case CrossoverSinglePoint:
		return crossoverSinglePoint(a, b, employeeIDs, source)
	case CrossoverUniform:
		return crossoverUniform(a, b, employeeIDs, source)
	default:
		return crossoverEmployee(a, b, employeeIDs, source)
	}
}

// crossoverEmployee takes each employee's whole row from parent A or B
// with probability ½.
func crossoverEmployee(a, b model.Schedule, employeeIDs []uuid.UUID, source *rng.Source) model.Schedule {
	child := make(model.Schedule, len(employeeIDs))
	for _, id := range employeeIDs {
		if source.Bool(0.5) {
			child[id] = cloneEmployeeSchedule(a[id])
		} else {
			child[id] = cloneEmployeeSchedule(b[id])
		}
	}
	return child
}

// crossoverSinglePoint draws one day cut point; A supplies days before it,
// B the rest, for every employee.
func crossoverSinglePoint(a, b model.Schedule, employeeIDs []uuid.UUID, source *rng.Source) model.Schedule {
	child := make(model.Schedule, len(employeeIDs))
	days := scheduleLength(a, employeeIDs)
	cut := 0
	if days > 0 {
		cut = source.Intn(days)
	}
	for _, id := range employeeIDs {
		ea, eb := a[id], b[id]
		shifts := make([]model.ShiftID, len(ea.Shifts))
		for day := range shifts {
			if day < cut {
				shifts[day] = ea.Shifts[day]
			} else {
				shifts[day] = eb.Shifts[day]
			}
		}
		child[id] = model.EmployeeSchedule{
			Shifts: shifts, MatrixRow: ea.MatrixRow, DayOffset: ea.DayOffset,
			ContinuityScore: ea.ContinuityScore, Source: model.SourceGA,
		}
	}
	return child
}

// crossoverUniform picks A or B per day per employee with probability ½.
func crossoverUniform(a, b model.Schedule, employeeIDs []uuid.UUID, source *rng.Source) model.Schedule {
	child := make(model.Schedule, len(employeeIDs))
	for _, id := range employeeIDs {
		ea, eb := a[id], b[id]
		shifts := make([]model.ShiftID, len(ea.Shifts))
		for day := range shifts {
			if source.Bool(0.5) {
				shifts[day] = ea.Shifts[day]
			} else {
				shifts[day] = eb.Shifts[day]
			}
		}
		child[id] = model.EmployeeSchedule{
			Shifts: shifts, MatrixRow: ea.MatrixRow, DayOffset: ea.DayOffset,
			ContinuityScore: ea.ContinuityScore, Source: model.SourceGA,
		}
	}
	return child
}

func cloneEmployeeSchedule(es model.EmployeeSchedule) model.EmployeeSchedule {
	return model.EmployeeSchedule{
		Shifts:          append([]model.ShiftID(nil), es.Shifts...),
		MatrixRow:       es.MatrixRow,
		DayOffset:       es.DayOffset,
		ContinuityScore: es.ContinuityScore,
		Source:          model.SourceGA,
	}
}

func scheduleLength(s model.Schedule, employeeIDs []uuid.UUID) int {
	for _, id := range employeeIDs {
		if es, ok := s[id]; ok {
			return len(es.Shifts)
		}
	}
	return 0
}
