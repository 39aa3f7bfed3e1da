package model

import "github.com/google/uuid"

// Matrix is a cyclic base pattern: R rows by C columns of shift ids.
// Flattened row-major it becomes the "snake" — a cyclic sequence of length
// R*C that the baseline builder unravels into a monthly schedule.
type Matrix struct {
	ID   uuid.UUID   `json:"id"`
	Rows [][]ShiftID `json:"rows"` // len(Rows) == R, len(Rows[i]) == C
}

// R returns the row count.
func (m Matrix) R() int { return len(m.Rows) }

// C returns the column count (0 if the matrix has no rows).
func (m Matrix) C() int {
	if len(m.Rows) == 0 {
		return 0
	}
	return len(m.Rows[0])
}

// Snake flattens the matrix row-major into its cyclic sequence.
func (m Matrix) Snake() []ShiftID {
	snake := make([]ShiftID, 0, m.R()*m.C())
	for _, row := range m.Rows {
		snake = append(snake, row...)
	}
	return snake
}

// At returns the shift at snake index i, treated cyclically (negative i
// wraps too). Panics if the matrix is empty — callers must reject empty
// matrices as NoValidBaseline before calling this.
func (m Matrix) At(i int) ShiftID {
	snake := m.Snake()
	n := len(snake)
	idx := ((i % n) + n) % n
	return snake[idx]
}

// Len returns R*C, the snake length.
func (m Matrix) Len() int {
	return m.R() * m.C()
}

// Clone returns a deep copy of the matrix.
func (m Matrix) Clone() Matrix {
	rows := make([][]ShiftID, len(m.Rows))
	for i, row := range m.Rows {
		rows[i] = append([]ShiftID(nil), row...)
	}
	return Matrix{ID: m.ID, Rows: rows}
}
