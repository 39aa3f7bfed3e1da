package model

import "github.com/google/uuid"

// ScheduleSource records which component produced an employee's shift
// sequence — the greedy baseline, or a generation of the schedule GA.
type ScheduleSource string

const (
	SourceGreedy ScheduleSource = "greedy"
	SourceGA     ScheduleSource = "ga"
)

// EmployeeSchedule is one employee's assignment for every day of the
// target month, plus the provenance metadata the baseline builder and GA
// attach.
type EmployeeSchedule struct {
	Shifts          []ShiftID      `json:"shifts"` // len == daysInMonth
	MatrixRow       int            `json:"matrix_row"`
	DayOffset       int            `json:"day_offset"`
	ContinuityScore float64        `json:"continuity_score"`
	Source          ScheduleSource `json:"source"`
}

// Schedule maps each employee to their monthly shift sequence.
type Schedule map[uuid.UUID]EmployeeSchedule

// Clone returns a deep copy of the schedule.
func (s Schedule) Clone() Schedule {
	out := make(Schedule, len(s))
	for id, es := range s {
		out[id] = EmployeeSchedule{
			Shifts:          append([]ShiftID(nil), es.Shifts...),
			MatrixRow:       es.MatrixRow,
			DayOffset:       es.DayOffset,
			ContinuityScore: es.ContinuityScore,
			Source:          es.Source,
		}
	}
	return out
}

// PreviousMonthSchedule is the subset of last month's data the baseline
// builder needs for continuity scoring: a tail of recent shifts per
// employee (most recent last).
type PreviousMonthSchedule map[uuid.UUID][]ShiftID
