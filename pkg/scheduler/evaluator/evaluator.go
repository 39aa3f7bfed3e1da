// Package evaluator aggregates constraint violations, coverage deviations,
// exclusion breaches, hours deviation and matrix deviation into a single
// weighted fitness score for a schedule.
package evaluator

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shiftcycle/shiftopt/pkg/model"
	"github.com/shiftcycle/shiftopt/pkg/scheduler/constraint"
)

// Default fitness weights. Every term is individually overridable via
// model.Weights — see resolveWeights.
const (
	DefaultConstraintWeight = 10000.0
	DefaultCoverageWeight   = 10000.0
	DefaultExclusionWeight  = 10000.0
	DefaultMatrixWeight     = 3.0
	DefaultHoursUnderWeight = 15.0
	DefaultHoursOverWeight  = 8.0
)

// CoverageViolation describes a single day/rule mismatch between required
// and actual headcount.
type CoverageViolation struct {
	Day        int       `json:"day"`
	RuleID     string    `json:"rule_id"`
	Required   int       `json:"required"`
	Actual     int       `json:"actual"`
	Deviation  int       `json:"deviation"` // actual - required
	Over       bool      `json:"over"`
}

// EmployeeReport is the per-employee breakdown the evaluator produces.
type EmployeeReport struct {
	EmployeeID          uuid.UUID `json:"employee_id"`
	ConstraintViolations int      `json:"constraint_violations"`
	ExclusionViolations  int      `json:"exclusion_violations"`
	WorkedHours          float64  `json:"worked_hours"`
	ExpectedHours        float64  `json:"expected_hours"`
	HoursDeviation       float64  `json:"hours_deviation"` // worked - expected, signed
	MatrixDeviations     int      `json:"matrix_deviations"`
}

// Report is the complete evaluation result for one schedule.
type Report struct {
	Employees  map[uuid.UUID]EmployeeReport `json:"employees"`
	Coverage   []CoverageViolation          `json:"coverage"`
	Fitness    float64                      `json:"fitness"`
	IsValid    bool                         `json:"is_valid"`

	ConstraintViolationTotal int `json:"constraint_violation_total"`
	CoverageViolationTotal   int `json:"coverage_violation_total"`
	ExclusionViolationTotal  int `json:"exclusion_violation_total"`
	MatrixDeviationTotal     int `json:"matrix_deviation_total"`
}

func resolveWeights(w *model.Weights) model.Weights {
	out := model.Weights{
		ConstraintViolation: DefaultConstraintWeight,
		CoverageViolation:   DefaultCoverageWeight,
		ExclusionViolation:  DefaultExclusionWeight,
		HoursUnder:          DefaultHoursUnderWeight,
		HoursOver:           DefaultHoursOverWeight,
		MatrixChange:        DefaultMatrixWeight,
	}
	if w == nil {
		return out
	}
	if w.ConstraintViolation != 0 {
		out.ConstraintViolation = w.ConstraintViolation
	}
	if w.CoverageViolation != 0 {
		out.CoverageViolation = w.CoverageViolation
	}
	if w.ExclusionViolation != 0 {
		out.ExclusionViolation = w.ExclusionViolation
	}
	if w.HoursUnder != 0 {
		out.HoursUnder = w.HoursUnder
	}
	if w.HoursOver != 0 {
		out.HoursOver = w.HoursOver
	}
	if w.MatrixChange != 0 {
		out.MatrixChange = w.MatrixChange
	}
	return out
}

// Evaluate scores schedule against cfg. baseline, if non-nil, is used to
// count per-cell matrix deviations (cells that differ from the baseline
// shift in the same employee/day slot); pass nil to skip matrix-deviation
// scoring entirely (the schedule GA supplies its greedy baseline; the
// matrix GA and the orchestrator's final reports pass nil).
func Evaluate(schedule model.Schedule, cfg *model.Config, baseline model.Schedule, weights *model.Weights) Report {
	w := resolveWeights(weights)
	daysInMonth := cfg.DaysInMonth()

	report := Report{Employees: make(map[uuid.UUID]EmployeeReport, len(cfg.Employees))}

	employeeByID := make(map[uuid.UUID]model.Employee, len(cfg.Employees))
	for _, e := range cfg.Employees {
		employeeByID[e.ID] = e
	}

	for _, e := range cfg.Employees {
		es, ok := schedule[e.ID]
		if !ok {
			continue
		}
		rep := scoreEmployee(e, es.Shifts, cfg, daysInMonth)
		if baseline != nil {
			if be, ok := baseline[e.ID]; ok {
				rep.MatrixDeviations = countMatrixDeviations(es.Shifts, be.Shifts)
			}
		}
		report.Employees[e.ID] = rep
		report.ConstraintViolationTotal += rep.ConstraintViolations
		report.ExclusionViolationTotal += rep.ExclusionViolations
		report.MatrixDeviationTotal += rep.MatrixDeviations
	}

	report.Coverage = scoreCoverage(schedule, cfg, daysInMonth)
	report.CoverageViolationTotal = len(report.Coverage)

	report.IsValid = report.ConstraintViolationTotal == 0 &&
		report.CoverageViolationTotal == 0 &&
		report.ExclusionViolationTotal == 0

	report.Fitness = fitness(report, w)
	return report
}

func scoreEmployee(e model.Employee, shifts []model.ShiftID, cfg *model.Config, daysInMonth int) EmployeeReport {
	violations := constraint.Validate(shifts, cfg.Constraints, false)

	exclusions := 0
	var hours float64
	shiftSet := cfg.ShiftSetLookup()
	for _, id := range shifts {
		if e.Excludes(id) {
			exclusions++
		}
		hours += shiftSet.Hours(id)
	}

	expected := e.ExpectedHours(daysInMonth)
	return EmployeeReport{
		EmployeeID:           e.ID,
		ConstraintViolations: len(violations),
		ExclusionViolations:  exclusions,
		WorkedHours:          hours,
		ExpectedHours:        expected,
		HoursDeviation:       hours - expected,
	}
}

func countMatrixDeviations(actual, baseline []model.ShiftID) int {
	n := len(actual)
	if len(baseline) < n {
		n = len(baseline)
	}
	count := 0
	for i := 0; i < n; i++ {
		if !actual[i].Matches(baseline[i]) {
			count++
		}
	}
	return count
}

func scoreCoverage(schedule model.Schedule, cfg *model.Config, daysInMonth int) []CoverageViolation {
	var out []CoverageViolation
	for _, rule := range cfg.CoverageRules {
		for day := 0; day < daysInMonth; day++ {
			actual := 0
			for _, es := range schedule {
				if day >= len(es.Shifts) {
					continue
				}
				if rule.Contains(es.Shifts[day]) {
					actual++
				}
			}
			if actual != rule.Min {
				out = append(out, CoverageViolation{
					Day:       day,
					RuleID:    rule.ID.String(),
					Required:  rule.Min,
					Actual:    actual,
					Deviation: actual - rule.Min,
					Over:      actual > rule.Min,
				})
			}
		}
	}
	return out
}

func fitness(r Report, w model.Weights) float64 {
	var hoursPenalty float64
	var matrixDeviations float64
	for _, rep := range r.Employees {
		if rep.HoursDeviation < 0 {
			hoursPenalty += -rep.HoursDeviation * w.HoursUnder
		} else {
			hoursPenalty += rep.HoursDeviation * w.HoursOver
		}
		matrixDeviations += float64(rep.MatrixDeviations)
	}

	return float64(r.ConstraintViolationTotal)*w.ConstraintViolation +
		float64(r.CoverageViolationTotal)*w.CoverageViolation +
		float64(r.ExclusionViolationTotal)*w.ExclusionViolation +
		hoursPenalty +
		matrixDeviations*w.MatrixChange
}

// Summary renders a one-line human summary of a report.
func Summary(r Report) string {
	return fmt.Sprintf("fitness=%.2f valid=%t cv=%d cov=%d ex=%d md=%d",
		r.Fitness, r.IsValid, r.ConstraintViolationTotal, r.CoverageViolationTotal,
		r.ExclusionViolationTotal, r.MatrixDeviationTotal)
}
