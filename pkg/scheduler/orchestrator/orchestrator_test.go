package orchestrator

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/shiftcycle/shiftopt/pkg/errors"
	"github.com/shiftcycle/shiftopt/pkg/model"
	"github.com/shiftcycle/shiftopt/pkg/rng"
	"github.com/shiftcycle/shiftopt/pkg/scheduler/matrixga"
)

func simpleShiftTypes() []model.ShiftType {
	return []model.ShiftType{
		{ID: "M", Hours: 7}, {ID: "P", Hours: 7}, {ID: "RP", Hours: 0},
	}
}

func simpleConfig() (employees []model.Employee, matrixID uuid.UUID, matrix model.Matrix) {
	matrixID = uuid.New()
	matrix = model.Matrix{ID: matrixID, Rows: [][]model.ShiftID{
		{"M", "P"}, {"P", "RP"},
	}}
	for i := 0; i < 2; i++ {
		employees = append(employees, model.Employee{ID: uuid.New(), ContractHours: 37.5, MatrixID: matrixID})
	}
	return employees, matrixID, matrix
}

func TestGenerateSchedule_RejectsConfigWithUndeclaredMatrix(t *testing.T) {
	employees, _, matrix := simpleConfig()
	employees[0].MatrixID = uuid.New() // points at nothing declared

	req := &GenerateScheduleRequest{
		Year: 2024, Month: 0,
		Employees: employees, ShiftTypes: simpleShiftTypes(),
		Matrices: []model.Matrix{matrix}, DefaultMatrixID: matrix.ID,
	}
	result, appErr := GenerateSchedule(req, rng.New(1), nil, nil)
	require.Nil(t, result)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.CodeConfigInvalid, appErr.Code)
}

func TestGenerateSchedule_RejectsUndeclaredShiftInCoverageRule(t *testing.T) {
	employees, matrixID, matrix := simpleConfig()
	req := &GenerateScheduleRequest{
		Year: 2024, Month: 0,
		Employees: employees, ShiftTypes: simpleShiftTypes(),
		Matrices: []model.Matrix{matrix}, DefaultMatrixID: matrixID,
		CoverageRules: []model.CoverageRule{{ID: uuid.New(), Min: 1, Shifts: []model.ShiftID{"NOPE"}}},
	}
	result, appErr := GenerateSchedule(req, rng.New(1), nil, nil)
	require.Nil(t, result)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.CodeConfigInvalid, appErr.Code)
}

func TestGenerateSchedule_GreedyOnlySkipsGA(t *testing.T) {
	employees, matrixID, matrix := simpleConfig()
	useGA := false
	req := &GenerateScheduleRequest{
		Year: 2024, Month: 0,
		Employees: employees, ShiftTypes: simpleShiftTypes(),
		Matrices: []model.Matrix{matrix}, DefaultMatrixID: matrixID,
		OptimizerOptions: &model.OptimizerOptions{UseGA: &useGA},
	}
	result, appErr := GenerateSchedule(req, rng.New(1), nil, nil)
	require.Nil(t, appErr)
	require.NotNil(t, result)
	assert.Equal(t, "greedy", result.Metadata.Source)
	assert.Len(t, result.Schedule, len(employees))
}

func TestGenerateSchedule_RunsGAWhenEnabled(t *testing.T) {
	employees, matrixID, matrix := simpleConfig()
	popSize, maxGen := 6, 2
	req := &GenerateScheduleRequest{
		Year: 2024, Month: 0,
		Employees: employees, ShiftTypes: simpleShiftTypes(),
		Matrices: []model.Matrix{matrix}, DefaultMatrixID: matrixID,
		OptimizerOptions: &model.OptimizerOptions{PopulationSize: &popSize, MaxGenerations: &maxGen},
	}
	result, appErr := GenerateSchedule(req, rng.New(2), nil, nil)
	require.Nil(t, appErr)
	require.NotNil(t, result)
	assert.Equal(t, "ga", result.Metadata.Source)
	assert.NotNil(t, result.Metadata.Stats)
}

func TestGenerateMatrix_SingleMode_RejectsUnknownTarget(t *testing.T) {
	employees, _, matrix := simpleConfig()
	req := &GenerateMatrixRequest{
		Mode: matrixga.ModeSingle, TargetMatrixID: uuid.New(),
		AllMatrices: []model.Matrix{matrix}, ShiftTypes: simpleShiftTypes(),
		Employees: employees, Year: 2024, Month: 0, DefaultMatrixID: matrix.ID,
	}
	result, appErr := GenerateMatrix(req, rng.New(3), nil, nil)
	require.Nil(t, result)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.CodeConfigInvalid, appErr.Code)
}

func TestGenerateMatrix_SingleMode_ReturnsEvolvedMatrix(t *testing.T) {
	employees, matrixID, matrix := simpleConfig()
	popSize, maxGen := 6, 2
	req := &GenerateMatrixRequest{
		Mode: matrixga.ModeSingle, TargetMatrixID: matrixID,
		AllMatrices: []model.Matrix{matrix}, ShiftTypes: simpleShiftTypes(),
		Employees: employees, Year: 2024, Month: 0, DefaultMatrixID: matrixID,
		OptimizerOptions: &model.OptimizerOptions{PopulationSize: &popSize, MaxGenerations: &maxGen},
	}
	result, appErr := GenerateMatrix(req, rng.New(4), nil, nil)
	require.Nil(t, appErr)
	require.NotNil(t, result)
	_, ok := result.Matrices[matrixID]
	assert.True(t, ok)
}

func TestGenerateAllMatrices_ReturnsOneResultPerMatrix(t *testing.T) {
	employees, matrixID, matrix := simpleConfig()
	popSize, maxGen := 6, 2
	req := &GenerateAllMatricesRequest{
		AllMatrices: []model.Matrix{matrix}, ShiftTypes: simpleShiftTypes(),
		Employees: employees, Year: 2024, Month: 0, DefaultMatrixID: matrixID,
		OptimizerOptions: &model.OptimizerOptions{PopulationSize: &popSize, MaxGenerations: &maxGen},
	}
	results, appErr := GenerateAllMatrices(req, rng.New(5), nil, nil)
	require.Nil(t, appErr)
	require.Len(t, results, 1)
	assert.Contains(t, results, matrixID)
}
