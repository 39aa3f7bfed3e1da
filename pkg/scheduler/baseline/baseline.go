// Package baseline deterministically derives one month of shifts per
// employee from a set of cyclic matrices, previous-month history and the
// target calendar month.
package baseline

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shiftcycle/shiftopt/pkg/model"
	"github.com/shiftcycle/shiftopt/pkg/rng"
)

// ErrNoValidBaseline is returned when a matrix bound to at least one
// employee has zero rows or zero columns — there is no snake to unravel.
var ErrNoValidBaseline = errors.New("baseline: matrix has zero dimension")

// ErrInsufficientCapacity names a matrix whose rows cannot seat the
// employees bound to it. Build does not check for this and never returns
// it.
var ErrInsufficientCapacity = errors.New("baseline: matrix rows insufficient for bound employees")

// minRawScoreForVote is the continuity-score floor an employee's
// preliminary assignment must clear to count toward the dominant-phase
// vote tally.
const minRawScoreForVote = 0.4

// minVotesForDominance is how many qualifying votes a phase needs to
// force a global resynchronisation pass.
const minVotesForDominance = 2

// candidate is one (row, offset) hypothesis for an employee, scored
// against their previous-month history tail.
type candidate struct {
	row    int
	offset int
	score  float64
}

// Build produces a deterministic monthly schedule from cfg's matrices and
// employees, using previous as continuity history (nil or empty entries
// are treated as "no history" for that employee). source drives the only
// randomised step, the contemporaneous exclusion-swap shuffle.
func Build(cfg *model.Config, previous model.PreviousMonthSchedule, source *rng.Source) (model.Schedule, error) {
	if err := validateMatrices(cfg); err != nil {
		return nil, err
	}

	byMatrix := groupByMatrix(cfg)
	daysInMonth := cfg.DaysInMonth()
	phaseShift := model.FirstWeekdayIndex(cfg.Year, cfg.Month)
	shiftSet := cfg.ShiftSetLookup()

	schedule := make(model.Schedule, len(cfg.Employees))

	// Dominant-phase votes are tallied across every matrix, not per matrix:
	// a matrix with one qualifying vote has nothing to resync against on its
	// own, but two single-vote matrices agreeing on the same phase must
	// still force a global resync.
	groups := make([]*matrixGroup, 0, len(byMatrix))
	for matrixID, employees := range byMatrix {
		matrix, _ := cfg.MatrixByID(matrixID)
		groups = append(groups, &matrixGroup{
			matrix:      matrix,
			employees:   employees,
			assignments: assignRows(matrix, employees, previous),
		})
	}

	votes := make(map[int]int)
	for _, g := range groups {
		collectPhaseVotes(g.matrix, g.employees, previous, g.assignments, votes)
	}
	dominant, dominantVotes := -1, 0
	for phase, v := range votes {
		if v > dominantVotes {
			dominant, dominantVotes = phase, v
		}
	}
	if dominantVotes >= minVotesForDominance {
		for _, g := range groups {
			resyncToPhase(g.matrix, g.employees, previous, g.assignments, dominant)
		}
	}

	for _, g := range groups {
		for empIdx, e := range g.employees {
			a := g.assignments[empIdx]
			shifts := unravel(g.matrix, a, daysInMonth, phaseShift)
			schedule[e.ID] = model.EmployeeSchedule{
				Shifts:          shifts,
				MatrixRow:       a.row,
				DayOffset:       a.offset,
				ContinuityScore: a.score,
				Source:          model.SourceGreedy,
			}
		}
	}

	swapForExclusions(schedule, cfg.Employees, daysInMonth, shiftSet, source)
	return schedule, nil
}

// matrixGroup is one matrix's employees and their in-progress assignments,
// pending the cross-matrix phase resync pass.
type matrixGroup struct {
	matrix      model.Matrix
	employees   []model.Employee
	assignments []assignment
}

func validateMatrices(cfg *model.Config) error {
	used := make(map[uuid.UUID]bool)
	for _, e := range cfg.Employees {
		used[cfg.EmployeeMatrixID(e)] = true
	}
	for id := range used {
		m, ok := cfg.MatrixByID(id)
		if !ok || m.R() == 0 || m.C() == 0 {
			return fmt.Errorf("%w: matrix %s", ErrNoValidBaseline, id)
		}
	}
	return nil
}

func groupByMatrix(cfg *model.Config) map[uuid.UUID][]model.Employee {
	out := make(map[uuid.UUID][]model.Employee)
	for _, e := range cfg.Employees {
		mid := cfg.EmployeeMatrixID(e)
		out[mid] = append(out[mid], e)
	}
	return out
}

// assignment is the final (row, offset, score) an employee receives
// within their matrix, plus whether it came from history-based scoring.
type assignment struct {
	row        int
	offset     int
	score      float64
	hasHistory bool
}

// assignRows runs the greedy capacity-bounded row assignment for one
// matrix's employees. The cross-matrix phase resync pass runs separately,
// once every matrix's greedy assignments are in hand.
func assignRows(matrix model.Matrix, employees []model.Employee, previous model.PreviousMonthSchedule) []assignment {
	r, c := matrix.R(), matrix.C()
	capacity := ceilDiv(len(employees), r)
	used := make([]int, r)

	assignments := make([]assignment, len(employees))
	type scored struct {
		idx        int
		candidates []candidate // descending by score, one best per row
		best       float64
	}
	var withHistory []scored

	for i, e := range employees {
		history := previous[e.ID]
		if len(history) == 0 {
			// Employees sharing a row are staggered across it by their
			// rotation slot (their rank among employees sharing the row)
			// rather than all starting at offset 0 — otherwise every
			// employee sharing a row would receive an identical schedule.
			slot := i / r
			assignments[i] = assignment{row: i % r, offset: slot % c, score: 0, hasHistory: false}
			continue
		}
		cands := bestPerRow(matrix, history, nil)
		best := 0.0
		for _, cd := range cands {
			if cd.score > best {
				best = cd.score
			}
		}
		withHistory = append(withHistory, scored{idx: i, candidates: cands, best: best})
	}

	sort.SliceStable(withHistory, func(a, b int) bool {
		return withHistory[a].best > withHistory[b].best
	})

	rowsByScore := func(cands []candidate) []candidate {
		out := append([]candidate(nil), cands...)
		sort.SliceStable(out, func(a, b int) bool { return out[a].score > out[b].score })
		return out
	}

	for _, sc := range withHistory {
		ranked := rowsByScore(sc.candidates)
		placed := false
		for _, cd := range ranked {
			if used[cd.row] < capacity {
				used[cd.row]++
				assignments[sc.idx] = assignment{row: cd.row, offset: cd.offset, score: cd.score, hasHistory: true}
				placed = true
				break
			}
		}
		if !placed {
			// every row at capacity (shouldn't happen given capacity
			// derivation) — fall back to the globally best row regardless.
			cd := ranked[0]
			assignments[sc.idx] = assignment{row: cd.row, offset: cd.offset, score: cd.score, hasHistory: true}
		}
	}

	for i, e := range employees {
		if assignments[i].hasHistory {
			continue
		}
		if len(previous[e.ID]) == 0 {
			used[assignments[i].row]++
		}
	}

	return assignments
}

// bestPerRow scores every (row, offset) combination against history and
// returns the best-scoring offset per row. If phaseFilter is non-nil,
// offsets are restricted to those whose projected next-offset matches the
// filter mod 7.
func bestPerRow(matrix model.Matrix, history []model.ShiftID, phaseFilter *int) []candidate {
	r, c := matrix.R(), matrix.C()
	k := len(history)
	if k > 28 {
		k = 28
	}
	tail := history[len(history)-k:]

	out := make([]candidate, 0, r)
	for row := 0; row < r; row++ {
		bestScore := -1.0
		bestOffset := 0
		found := false
		for offset := 0; offset < c; offset++ {
			if phaseFilter != nil {
				next := (row*c + offset + k) % 7
				if next != *phaseFilter {
					continue
				}
			}
			score := continuityScore(matrix, row, offset, tail)
			if score > bestScore {
				bestScore = score
				bestOffset = offset
				found = true
			}
		}
		if !found {
			// phase filter excluded every offset in this row — fall back
			// to the row's unfiltered best so resync never drops a row
			// from contention entirely.
			for offset := 0; offset < c; offset++ {
				score := continuityScore(matrix, row, offset, tail)
				if score > bestScore {
					bestScore = score
					bestOffset = offset
				}
			}
		}
		out = append(out, candidate{row: row, offset: bestOffset, score: bestScore})
	}
	return out
}

func continuityScore(matrix model.Matrix, row, offset int, tail []model.ShiftID) float64 {
	c := matrix.C()
	k := len(tail)
	if k == 0 {
		return 0
	}
	matches := 0
	for i := 0; i < k; i++ {
		predicted := matrix.At(row*c + offset + i)
		if tail[i].Matches(predicted) {
			matches++
		}
	}
	return float64(matches) / float64(k)
}

// collectPhaseVotes tallies this matrix's qualifying history-bearing
// employees into the shared cross-matrix vote map, keyed by the weekday
// phase their current assignment projects forward to.
func collectPhaseVotes(matrix model.Matrix, employees []model.Employee, previous model.PreviousMonthSchedule, assignments []assignment, votes map[int]int) {
	c := matrix.C()
	for i, e := range employees {
		a := assignments[i]
		if !a.hasHistory || a.score < minRawScoreForVote {
			continue
		}
		k := len(previous[e.ID])
		if k > 28 {
			k = 28
		}
		next := (a.row*c + a.offset + k) % 7
		votes[next]++
	}
}

// resyncToPhase re-scores every history-bearing employee in one matrix
// restricted to the given dominant weekday phase, once that phase has won
// the cross-matrix vote.
func resyncToPhase(matrix model.Matrix, employees []model.Employee, previous model.PreviousMonthSchedule, assignments []assignment, dominant int) {
	for i, e := range employees {
		if !assignments[i].hasHistory {
			continue
		}
		history := previous[e.ID]
		cands := bestPerRow(matrix, history, &dominant)
		best := cands[0]
		for _, cd := range cands[1:] {
			if cd.score > best.score {
				best = cd
			}
		}
		assignments[i] = assignment{row: best.row, offset: best.offset, score: best.score, hasHistory: true}
	}
}

// unravel produces the daysInMonth-long shift sequence for one employee's
// assignment. History-bearing employees already have the phase baked into
// their offset, so their effective phase shift is zero; history-less
// employees use the calendar phase shift.
func unravel(matrix model.Matrix, a assignment, daysInMonth int, phaseShift int) []model.ShiftID {
	c := matrix.C()
	effectivePhase := phaseShift
	if a.hasHistory {
		effectivePhase = 0
	}
	out := make([]model.ShiftID, daysInMonth)
	for d := 0; d < daysInMonth; d++ {
		idx := a.row*c + a.offset + d + effectivePhase
		out[d] = matrix.At(idx)
	}
	return out
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return a
	}
	return (a + b - 1) / b
}
