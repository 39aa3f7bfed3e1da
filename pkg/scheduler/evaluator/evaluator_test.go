package evaluator

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/shiftcycle/shiftopt/pkg/model"
)

func makeCfg() *model.Config {
	return &model.Config{
		Year:  2026,
		Month: 0,
		ShiftTypes: []model.ShiftType{
			{ID: "M", Hours: 8},
			{ID: "P", Hours: 8},
			{ID: "RP", Hours: 0},
		},
	}
}

func seq(codes ...string) []model.ShiftID {
	out := make([]model.ShiftID, len(codes))
	for i, c := range codes {
		out[i] = model.ShiftID(c)
	}
	return out
}

func TestEvaluate_CoverageExactness(t *testing.T) {
	cfg := makeCfg()
	emp1, emp2 := uuid.New(), uuid.New()
	cfg.Employees = []model.Employee{{ID: emp1, ContractHours: 40}, {ID: emp2, ContractHours: 40}}
	cfg.CoverageRules = []model.CoverageRule{
		{ID: uuid.New(), Min: 1, Shifts: []model.ShiftID{"M"}},
		{ID: uuid.New(), Min: 1, Shifts: []model.ShiftID{"P"}},
	}
	days := cfg.DaysInMonth()
	mShifts := make([]model.ShiftID, days)
	pShifts := make([]model.ShiftID, days)
	for i := range mShifts {
		mShifts[i] = "M"
		pShifts[i] = "P"
	}
	schedule := model.Schedule{
		emp1: {Shifts: mShifts},
		emp2: {Shifts: pShifts},
	}

	report := Evaluate(schedule, cfg, nil, nil)
	assert.Equal(t, 0, report.CoverageViolationTotal)
	assert.Equal(t, 0, report.ConstraintViolationTotal)
	assert.True(t, report.IsValid)
}

func TestEvaluate_CoverageOvercoveragePenalised(t *testing.T) {
	cfg := makeCfg()
	emp1, emp2 := uuid.New(), uuid.New()
	cfg.Employees = []model.Employee{{ID: emp1, ContractHours: 40}, {ID: emp2, ContractHours: 40}}
	cfg.CoverageRules = []model.CoverageRule{{ID: uuid.New(), Min: 1, Shifts: []model.ShiftID{"M"}}}
	days := cfg.DaysInMonth()
	mShifts := make([]model.ShiftID, days)
	for i := range mShifts {
		mShifts[i] = "M"
	}
	schedule := model.Schedule{emp1: {Shifts: append([]model.ShiftID(nil), mShifts...)}, emp2: {Shifts: append([]model.ShiftID(nil), mShifts...)}}

	report := Evaluate(schedule, cfg, nil, nil)
	assert.False(t, report.IsValid)
	assert.Greater(t, report.CoverageViolationTotal, 0)
	for _, v := range report.Coverage {
		assert.True(t, v.Over)
	}
}

func TestEvaluate_AsymmetricHoursPenalty(t *testing.T) {
	cfg := makeCfg()
	emp := uuid.New()
	cfg.Employees = []model.Employee{{ID: emp, ContractHours: 40}}
	days := cfg.DaysInMonth()
	expected := cfg.Employees[0].ExpectedHours(days)

	under := make([]model.ShiftID, days) // all rest, 0 hours worked
	underReport := Evaluate(model.Schedule{emp: {Shifts: under}}, cfg, nil, nil)
	assert.InDelta(t, expected*DefaultHoursUnderWeight, underReport.Fitness, 0.01)

	cfgOver := makeCfg()
	cfgOver.Employees = []model.Employee{{ID: emp, ContractHours: 7}} // small contract, full-hours schedule
	over := make([]model.ShiftID, days)
	for i := range over {
		over[i] = "M"
	}
	overReport := Evaluate(model.Schedule{emp: {Shifts: over}}, cfgOver, nil, nil)
	deviation := overReport.Employees[emp].HoursDeviation
	assert.Greater(t, deviation, 0.0)
	assert.InDelta(t, deviation*DefaultHoursOverWeight, overReport.Fitness, 0.01)
}

func TestEvaluate_MatrixDeviationCounted(t *testing.T) {
	cfg := makeCfg()
	emp := uuid.New()
	cfg.Employees = []model.Employee{{ID: emp, ContractHours: 40}}
	baseline := model.Schedule{emp: {Shifts: seq("M", "M", "M")}}
	actual := model.Schedule{emp: {Shifts: seq("M", "P", "M")}}

	report := Evaluate(actual, cfg, baseline, nil)
	assert.Equal(t, 1, report.Employees[emp].MatrixDeviations)
	assert.InDelta(t, DefaultMatrixWeight, fitnessDeltaForOneDeviation(report), 0.001)
}

func fitnessDeltaForOneDeviation(r Report) float64 {
	return float64(r.MatrixDeviationTotal) * DefaultMatrixWeight
}

func TestEvaluate_Deterministic(t *testing.T) {
	cfg := makeCfg()
	emp := uuid.New()
	cfg.Employees = []model.Employee{{ID: emp, ContractHours: 40}}
	schedule := model.Schedule{emp: {Shifts: seq("M", "P", "M")}}

	r1 := Evaluate(schedule, cfg, nil, nil)
	r2 := Evaluate(schedule, cfg, nil, nil)
	assert.Equal(t, r1.Fitness, r2.Fitness)
}

func TestEvaluate_WeightsOverride(t *testing.T) {
	cfg := makeCfg()
	emp := uuid.New()
	cfg.Employees = []model.Employee{{ID: emp, ContractHours: 40}}
	cfg.CoverageRules = []model.CoverageRule{{ID: uuid.New(), Min: 5, Shifts: []model.ShiftID{"M"}}}
	schedule := model.Schedule{emp: {Shifts: seq("M")}}
	cfg.Month = 0

	defaultReport := Evaluate(schedule, cfg, nil, nil)
	customReport := Evaluate(schedule, cfg, nil, &model.Weights{CoverageViolation: 1})
	assert.NotEqual(t, defaultReport.Fitness, customReport.Fitness)
}
