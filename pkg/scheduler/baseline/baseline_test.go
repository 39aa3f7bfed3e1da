package baseline

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/shiftcycle/shiftopt/pkg/model"
)

func row(codes ...string) []model.ShiftID {
	out := make([]model.ShiftID, len(codes))
	for i, c := range codes {
		out[i] = model.ShiftID(c)
	}
	return out
}

func TestBuild_DeterministicSnakeUnravel(t *testing.T) {
	matrixID := uuid.New()
	empID := uuid.New()
	cfg := &model.Config{
		Year:  2021,
		Month: 1, // February, starts on a Monday, 28 days
		ShiftTypes: []model.ShiftType{
			{ID: "M"}, {ID: "P"}, {ID: "N"}, {ID: "SN"}, {ID: "RP"},
		},
		Employees: []model.Employee{{ID: empID, MatrixID: matrixID}},
		Matrices: []model.Matrix{
			{ID: matrixID, Rows: [][]model.ShiftID{row("M", "P", "N", "SN", "RP", "M", "P")}},
		},
		DefaultMatrixID: matrixID,
	}

	schedule, err := Build(cfg, nil, nil)
	require.NoError(t, err)

	expected := append(append(append(row("M", "P", "N", "SN", "RP", "M", "P"),
		row("M", "P", "N", "SN", "RP", "M", "P")...),
		row("M", "P", "N", "SN", "RP", "M", "P")...),
		row("M", "P", "N", "SN", "RP", "M", "P")...)

	assert.Equal(t, expected, schedule[empID].Shifts)
}

func TestBuild_ExclusionDrivenSwap(t *testing.T) {
	matrixID := uuid.New()
	emp1, emp2 := uuid.New(), uuid.New()
	cfg := &model.Config{
		Year:  2021,
		Month: 1,
		ShiftTypes: []model.ShiftType{{ID: "M"}, {ID: "N"}},
		Employees: []model.Employee{
			{ID: emp1, MatrixID: matrixID},
			{ID: emp2, MatrixID: matrixID, ExcludedShifts: map[model.ShiftID]bool{"N": true}},
		},
		Matrices: []model.Matrix{
			{ID: matrixID, Rows: [][]model.ShiftID{row("M", "N")}},
		},
		DefaultMatrixID: matrixID,
	}
	// Force a Monday-start phase shift of 0 so day 0 lines up with each
	// employee's starting offset: both sit on row 0 since R=1, emp1 at
	// column 0 ("M") and emp2 staggered to column 1 ("N"), which emp2
	// excludes.
	cfg.Year, cfg.Month = 2021, 1

	schedule, err := Build(cfg, nil, nil)
	require.NoError(t, err)

	assert.NotEqual(t, model.ShiftID("N"), schedule[emp2].Shifts[0])
	assert.False(t, cfg.Employees[1].Excludes(schedule[emp2].Shifts[0]))
}

func TestBuild_MatrixRowOneBoundary(t *testing.T) {
	matrixID := uuid.New()
	emp1, emp2, emp3 := uuid.New(), uuid.New(), uuid.New()
	cfg := &model.Config{
		Year:       2021,
		Month:      1,
		ShiftTypes: []model.ShiftType{{ID: "M"}, {ID: "P"}},
		Employees: []model.Employee{
			{ID: emp1, MatrixID: matrixID},
			{ID: emp2, MatrixID: matrixID},
			{ID: emp3, MatrixID: matrixID},
		},
		Matrices:        []model.Matrix{{ID: matrixID, Rows: [][]model.ShiftID{row("M", "P")}}},
		DefaultMatrixID: matrixID,
	}

	schedule, err := Build(cfg, nil, nil)
	require.NoError(t, err)
	for _, e := range cfg.Employees {
		assert.Equal(t, 0, schedule[e.ID].MatrixRow)
	}
}

func TestBuild_EmptyMatrixIsNoValidBaseline(t *testing.T) {
	matrixID := uuid.New()
	emp := uuid.New()
	cfg := &model.Config{
		Year:            2021,
		Month:           1,
		ShiftTypes:      []model.ShiftType{{ID: "M"}},
		Employees:       []model.Employee{{ID: emp, MatrixID: matrixID}},
		Matrices:        []model.Matrix{{ID: matrixID, Rows: nil}},
		DefaultMatrixID: matrixID,
	}

	_, err := Build(cfg, nil, nil)
	assert.ErrorIs(t, err, ErrNoValidBaseline)
}

func TestBuild_CrossMatrixDominantPhaseVote(t *testing.T) {
	matrix1ID, matrix2ID, matrix3ID := uuid.New(), uuid.New(), uuid.New()
	emp1, emp2, emp3 := uuid.New(), uuid.New(), uuid.New()

	cfg := &model.Config{
		Year:  2021,
		Month: 1,
		ShiftTypes: []model.ShiftType{
			{ID: "A"}, {ID: "B"}, {ID: "C"}, {ID: "D"}, {ID: "E"},
			{ID: "P"}, {ID: "Q"}, {ID: "R"}, {ID: "S"}, {ID: "T"},
		},
		Employees: []model.Employee{
			{ID: emp1, MatrixID: matrix1ID},
			{ID: emp2, MatrixID: matrix2ID},
			{ID: emp3, MatrixID: matrix3ID},
		},
		Matrices: []model.Matrix{
			{ID: matrix1ID, Rows: [][]model.ShiftID{row("A", "B", "C", "D", "E")}},
			{ID: matrix2ID, Rows: [][]model.ShiftID{row("P", "Q", "R", "S", "T")}},
			{ID: matrix3ID, Rows: [][]model.ShiftID{row("A", "B", "A", "B")}},
		},
		DefaultMatrixID: matrix1ID,
	}

	// emp1 and emp2 each have exactly one qualifying history match, on
	// separate matrices, that both project forward to the same weekday
	// phase (4). Neither matrix alone ever reaches the two-vote dominance
	// threshold on its own — the vote only clears it once pooled across
	// both matrices. emp3's own matrix ties two equally-good offsets, one
	// landing on phase 2 (its natural, first-found pick) and one on phase
	// 4; if the cross-matrix vote is honoured, emp3 gets forced onto the
	// phase-4 offset even though its own matrix never independently voted
	// for phase 4.
	previous := model.PreviousMonthSchedule{
		emp1: row("D"),
		emp2: row("S"),
		emp3: row("A", "B"),
	}

	schedule, err := Build(cfg, previous, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, schedule[emp1].DayOffset)
	assert.Equal(t, 3, schedule[emp2].DayOffset)
	assert.Equal(t, 2, schedule[emp3].DayOffset, "emp3 must be resynced onto the phase shared by emp1 and emp2, pooled across matrices")
}

func TestBuild_NoHistoryUsesCalendarPhase(t *testing.T) {
	matrixID := uuid.New()
	emp := uuid.New()
	cfg := &model.Config{
		Year:            2021,
		Month:           1,
		ShiftTypes:      []model.ShiftType{{ID: "M"}, {ID: "P"}, {ID: "N"}},
		Employees:       []model.Employee{{ID: emp, MatrixID: matrixID}},
		Matrices:        []model.Matrix{{ID: matrixID, Rows: [][]model.ShiftID{row("M", "P", "N")}}},
		DefaultMatrixID: matrixID,
	}

	schedule, err := Build(cfg, model.PreviousMonthSchedule{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, schedule[emp].MatrixRow)
	assert.Equal(t, 0, schedule[emp].DayOffset)
}
