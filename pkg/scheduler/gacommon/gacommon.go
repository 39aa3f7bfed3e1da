// Package gacommon holds the state machine, progress reporting and
// termination bookkeeping shared by the schedule GA and the matrix GA —
// the two genetic-algorithm skeletons differ in chromosome and operators,
// not in how they report progress or decide when to stop.
package gacommon

import "time"

// State is one node of the GA state machine:
// INITIALISING -> EVALUATING -> EVOLVING <-> EVALUATING -> terminal.
type State string

const (
	StateInitialising State = "INITIALISING"
	StateEvaluating   State = "EVALUATING"
	StateEvolving     State = "EVOLVING"
	StateDone         State = "DONE"
	StateTimedOut     State = "TIMED_OUT"
	StateStagnated    State = "STAGNATED"
)

// Progress is emitted every Stride generations while a GA runs.
type Progress struct {
	Generation     int     `json:"generation"`
	MaxGenerations int     `json:"max_generations"`
	BestFitness    float64 `json:"best_fitness"`
	Stagnation     int     `json:"stagnation"`
	AvgFitness     float64 `json:"avg_fitness,omitempty"`
	IsValid        bool    `json:"is_valid,omitempty"`
	TimeMs         int64   `json:"time_ms,omitempty"`
}

// Stride is the generation interval between progress events.
const Stride = 5

// Reporter receives progress events and is free to drop or coalesce them
// if the consumer drains slowly — see internal/handler's channel-backed
// implementation.
type Reporter interface {
	Report(Progress)
}

// ReporterFunc adapts a plain function to Reporter.
type ReporterFunc func(Progress)

// Report implements Reporter.
func (f ReporterFunc) Report(p Progress) { f(p) }

// NoopReporter discards every progress event.
var NoopReporter Reporter = ReporterFunc(func(Progress) {})

// Clock abstracts wall-clock timeout checks so tests can inject a fake.
type Clock func() time.Time

// Stats is the terminal bookkeeping returned alongside a GA's best
// individual.
type Stats struct {
	State          State         `json:"state"`
	Generations    int           `json:"generations"`
	BestFitness    float64       `json:"best_fitness"`
	Stagnation     int           `json:"stagnation"`
	Elapsed        time.Duration `json:"elapsed"`
	TerminationReason string     `json:"termination_reason"`
}

// Termination reason tags surfaced to the host, per the error-handling
// design's user-visible failure vocabulary.
const (
	ReasonTargetReached       = "target_reached"
	ReasonGenerationsExhausted = "generations_exhausted"
	ReasonTimeout             = "timeout"
	ReasonStagnation          = "stagnation"
	ReasonCancelled           = "cancelled"
)

// Cancel is a cooperative cancellation flag checked at generation
// boundaries only — the GA never yields mid-generation.
type Cancel func() bool
