package model

import (
	"time"

	"github.com/google/uuid"
)

// Config is the immutable configuration forest for one optimisation job:
// employees reference matrices by id, nothing points back. No cyclic
// object graph.
type Config struct {
	Year            int
	Month           int // 0..11
	Employees       []Employee
	ShiftTypes      []ShiftType
	Matrices        []Matrix
	CoverageRules   []CoverageRule
	Constraints     []Constraint
	DefaultMatrixID uuid.UUID // matrix bound to employees with a zero MatrixID
}

// MatrixByID looks up a matrix by id within the config.
func (c *Config) MatrixByID(id uuid.UUID) (Matrix, bool) {
	for _, m := range c.Matrices {
		if m.ID == id {
			return m, true
		}
	}
	return Matrix{}, false
}

// EmployeeMatrixID resolves the matrix an employee is bound to, falling
// back to DefaultMatrixID.
func (c *Config) EmployeeMatrixID(e Employee) uuid.UUID {
	if e.MatrixID == uuid.Nil {
		return c.DefaultMatrixID
	}
	return e.MatrixID
}

// ShiftSetLookup builds a lookup of the config's declared shift types.
func (c *Config) ShiftSetLookup() *ShiftSet {
	return NewShiftSet(c.ShiftTypes)
}

// DaysInMonth returns the number of days in (Year, Month), Gregorian.
func (c *Config) DaysInMonth() int {
	return DaysInMonth(c.Year, c.Month)
}

// DaysInMonth computes the day count for a (year, 0-based month) pair.
func DaysInMonth(year, month int) int {
	firstOfNext := time.Date(year, time.Month(month+2), 1, 0, 0, 0, 0, time.UTC)
	lastOfMonth := firstOfNext.AddDate(0, 0, -1)
	return lastOfMonth.Day()
}

// FirstWeekdayIndex returns the Monday-based index (0=Mon..6=Sun) of the
// first day of (year, 0-based month).
func FirstWeekdayIndex(year, month int) int {
	first := time.Date(year, time.Month(month+1), 1, 0, 0, 0, 0, time.UTC)
	wd := int(first.Weekday()) // time.Sunday == 0
	return (wd + 6) % 7
}

// WeeksInMonth returns the fractional number of weeks in the month.
func WeeksInMonth(year, month int) float64 {
	return float64(DaysInMonth(year, month)) / 7.0
}

// Weights overrides the evaluator's fitness weights. Zero fields fall back
// to the package defaults — see the evaluator's Default*Weight constants.
type Weights struct {
	ConstraintViolation float64 `json:"constraint_violation,omitempty"`
	CoverageViolation   float64 `json:"coverage_violation,omitempty"`
	ExclusionViolation  float64 `json:"exclusion_violation,omitempty"`
	HoursUnder          float64 `json:"hours_under,omitempty"`
	HoursOver           float64 `json:"hours_over,omitempty"`
	MatrixChange        float64 `json:"matrix_change,omitempty"`
}

// OptimizerOptions is the complete enumeration of recognised job options
// from spec §6. All fields are optional; zero values mean "use the
// default" (see the Default* constants in schedulega and matrixga).
type OptimizerOptions struct {
	UseGA             *bool          `json:"use_ga,omitempty"`
	GreedyFallback    *bool          `json:"greedy_fallback,omitempty"`
	GATimeout         *time.Duration `json:"ga_timeout,omitempty"`
	PopulationSize    *int           `json:"population_size,omitempty"`
	MaxGenerations    *int           `json:"max_generations,omitempty"`
	StagnationLimit   *int           `json:"stagnation_limit,omitempty"`
	EliteCount        *int           `json:"elite_count,omitempty"`
	MutationRate      *float64       `json:"mutation_rate,omitempty"`
	CrossoverRate     *float64       `json:"crossover_rate,omitempty"`
	TournamentSize    *int           `json:"tournament_size,omitempty"`
	BaselineAdherence *float64       `json:"baseline_adherence,omitempty"`
	Weights           *Weights       `json:"weights,omitempty"`
	UseCurrentAsSeed  *bool          `json:"use_current_as_seed,omitempty"`

	// CrossoverMode and MutationMode select the operator variant used by
	// whichever GA the option set is passed to ("employee", "single_point",
	// "uniform" for crossover; "guided", "point" for mutation — "guided"
	// implies swap+guided per the design, "point" is plain point mutation).
	// Both are optional; zero value means "use the component's default".
	CrossoverMode *string `json:"crossover_mode,omitempty"`
	MutationMode  *string `json:"mutation_mode,omitempty"`
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func floatOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func durationOr(p *time.Duration, def time.Duration) time.Duration {
	if p == nil {
		return def
	}
	return *p
}

// UseGAOr returns the configured UseGA flag or def.
func (o *OptimizerOptions) UseGAOr(def bool) bool {
	if o == nil {
		return def
	}
	return boolOr(o.UseGA, def)
}

// GreedyFallbackOr returns the configured fallback flag or def.
func (o *OptimizerOptions) GreedyFallbackOr(def bool) bool {
	if o == nil {
		return def
	}
	return boolOr(o.GreedyFallback, def)
}

// GATimeoutOr returns the configured GA timeout or def.
func (o *OptimizerOptions) GATimeoutOr(def time.Duration) time.Duration {
	if o == nil {
		return def
	}
	return durationOr(o.GATimeout, def)
}

// PopulationSizeOr returns the configured population size or def.
func (o *OptimizerOptions) PopulationSizeOr(def int) int {
	if o == nil {
		return def
	}
	return intOr(o.PopulationSize, def)
}

// MaxGenerationsOr returns the configured generation budget or def.
func (o *OptimizerOptions) MaxGenerationsOr(def int) int {
	if o == nil {
		return def
	}
	return intOr(o.MaxGenerations, def)
}

// StagnationLimitOr returns the configured stagnation limit or def.
func (o *OptimizerOptions) StagnationLimitOr(def int) int {
	if o == nil {
		return def
	}
	return intOr(o.StagnationLimit, def)
}

// EliteCountOr returns the configured elite count or def.
func (o *OptimizerOptions) EliteCountOr(def int) int {
	if o == nil {
		return def
	}
	return intOr(o.EliteCount, def)
}

// MutationRateOr returns the configured mutation rate or def.
func (o *OptimizerOptions) MutationRateOr(def float64) float64 {
	if o == nil {
		return def
	}
	return floatOr(o.MutationRate, def)
}

// CrossoverRateOr returns the configured crossover rate or def.
func (o *OptimizerOptions) CrossoverRateOr(def float64) float64 {
	if o == nil {
		return def
	}
	return floatOr(o.CrossoverRate, def)
}

// TournamentSizeOr returns the configured tournament size or def.
func (o *OptimizerOptions) TournamentSizeOr(def int) int {
	if o == nil {
		return def
	}
	return intOr(o.TournamentSize, def)
}

// BaselineAdherenceOr returns the configured baseline adherence or def.
func (o *OptimizerOptions) BaselineAdherenceOr(def float64) float64 {
	if o == nil {
		return def
	}
	return floatOr(o.BaselineAdherence, def)
}

// UseCurrentAsSeedOr returns the configured seeding flag or def.
func (o *OptimizerOptions) UseCurrentAsSeedOr(def bool) bool {
	if o == nil {
		return def
	}
	return boolOr(o.UseCurrentAsSeed, def)
}

// CrossoverModeOr returns the configured crossover mode or def.
func (o *OptimizerOptions) CrossoverModeOr(def string) string {
	if o == nil || o.CrossoverMode == nil {
		return def
	}
	return *o.CrossoverMode
}

// MutationModeOr returns the configured mutation mode or def.
func (o *OptimizerOptions) MutationModeOr(def string) string {
	if o == nil || o.MutationMode == nil {
		return def
	}
	return *o.MutationMode
}
