// Package handler exposes the optimisation engine over HTTP: job
// submission endpoints that stream newline-delimited JSON progress
// events, and a read-only constraint library listing.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/shiftcycle/shiftopt/pkg/errors"
	"github.com/shiftcycle/shiftopt/pkg/logger"
	"github.com/shiftcycle/shiftopt/pkg/model"
	"github.com/shiftcycle/shiftopt/pkg/rng"
	"github.com/shiftcycle/shiftopt/pkg/scheduler/gacommon"
	"github.com/shiftcycle/shiftopt/pkg/scheduler/matrixga"
	"github.com/shiftcycle/shiftopt/pkg/scheduler/orchestrator"

	"github.com/shiftcycle/shiftopt/internal/metrics"
	"github.com/shiftcycle/shiftopt/internal/repository"
	"github.com/shiftcycle/shiftopt/internal/validation"
)

// auditSink is the subset of OptimizationRunRepository the handler
// needs — letting tests stub it without a real database.
type auditSink interface {
	Append(ctx context.Context, run *repository.OptimizationRun) error
}

// JobHandler serves the job-submission and introspection endpoints.
type JobHandler struct {
	runs    auditSink
	metrics *metrics.Registry
}

// NewJobHandler builds a handler. runs may be nil, in which case jobs
// simply aren't audited — useful for local runs with no database.
func NewJobHandler(runs auditSink, metricsRegistry *metrics.Registry) *JobHandler {
	return &JobHandler{runs: runs, metrics: metricsRegistry}
}

// ndjsonEnvelope is one line of a job's streamed response.
type ndjsonEnvelope struct {
	Type     string      `json:"type"` // "progress", "success", "error"
	Progress interface{} `json:"progress,omitempty"`
	Payload  interface{} `json:"payload,omitempty"`
	Error    interface{} `json:"error,omitempty"`
}

// ndjsonWriter flushes one JSON object per line as soon as it is
// written, so a slow-draining caller sees progress events as they
// happen rather than buffered until the job ends.
type ndjsonWriter struct {
	flusher http.Flusher
	enc     *json.Encoder
}

func newNDJSONWriter(w http.ResponseWriter) *ndjsonWriter {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	return &ndjsonWriter{flusher: flusher, enc: json.NewEncoder(w)}
}

func (n *ndjsonWriter) writeProgress(p gacommon.Progress) {
	n.enc.Encode(ndjsonEnvelope{Type: "progress", Progress: p})
	if n.flusher != nil {
		n.flusher.Flush()
	}
}

func (n *ndjsonWriter) writeSuccess(payload interface{}) {
	n.enc.Encode(ndjsonEnvelope{Type: "success", Payload: payload})
	if n.flusher != nil {
		n.flusher.Flush()
	}
}

func (n *ndjsonWriter) writeError(err *apperrors.AppError) {
	n.enc.Encode(ndjsonEnvelope{Type: "error", Error: err})
	if n.flusher != nil {
		n.flusher.Flush()
	}
}

// channelReporter bridges the orchestrator's synchronous Reporter
// interface to a channel the HTTP handler drains on its own goroutine,
// so a slow writer never blocks the GA's generation loop.
type channelReporter struct {
	ch chan gacommon.Progress
}

func newChannelReporter(buffer int) *channelReporter {
	return &channelReporter{ch: make(chan gacommon.Progress, buffer)}
}

// Report implements gacommon.Reporter. It drops the event rather than
// block if the channel is full — progress is best-effort, never a
// correctness requirement.
func (r *channelReporter) Report(p gacommon.Progress) {
	select {
	case r.ch <- p:
	default:
	}
}

func (r *channelReporter) close() {
	close(r.ch)
}

// decodeAndValidate decodes the request body into dst and runs struct
// validation, writing a 400 response and returning false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, apperrors.New(apperrors.CodeInvalidInput, "malformed request body").WithDetails(err.Error()))
		return false
	}
	if verr := validation.Struct(dst); verr != nil {
		respondError(w, verr)
		return false
	}
	return true
}

// GenerateSchedule handles POST /api/v1/schedule/generate.
func (h *JobHandler) GenerateSchedule(w http.ResponseWriter, r *http.Request) {
	var req orchestrator.GenerateScheduleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	jobID := uuid.New()
	log := logger.NewSchedulerLogger(jobID.String())
	log.StartJob("schedule", len(req.Employees), len(req.Matrices))

	reporter := newChannelReporter(8)
	nd := newNDJSONWriter(w)
	done := make(chan struct{})
	go drainProgress(reporter.ch, nd, done)

	start := time.Now()
	result, appErr := orchestrator.GenerateSchedule(&req, rng.New(time.Now().UnixNano()), reporter, nil)
	reporter.close()
	<-done
	duration := time.Since(start)

	if appErr != nil {
		nd.writeError(appErr)
		h.recordOutcome(r.Context(), jobID, "schedule", "", 0, false, string(appErr.Code), "", 0, len(req.Employees), len(req.Matrices), 0, duration)
		return
	}

	nd.writeSuccess(result)
	generations, terminationReason := 0, ""
	if result.Metadata.Stats != nil {
		generations = result.Metadata.Stats.Generations
		terminationReason = result.Metadata.Stats.TerminationReason
	}
	log.JobComplete(duration, result.Metadata.Fitness, result.Failed, result.Reason)
	h.recordOutcome(r.Context(), jobID, "schedule", result.Metadata.Source, result.Metadata.Fitness, result.Metadata.IsValid, result.Reason, terminationReason, result.Metadata.CoverageRate, len(req.Employees), len(req.Matrices), generations, duration)
}

// GenerateMatrix handles POST /api/v1/matrix/generate (mode single).
func (h *JobHandler) GenerateMatrix(w http.ResponseWriter, r *http.Request) {
	h.generateMatrix(w, r, matrixga.ModeSingle)
}

// GenerateMatrixJoint handles POST /api/v1/matrix/generate-joint.
func (h *JobHandler) GenerateMatrixJoint(w http.ResponseWriter, r *http.Request) {
	h.generateMatrix(w, r, matrixga.ModeJoint)
}

func (h *JobHandler) generateMatrix(w http.ResponseWriter, r *http.Request, mode matrixga.Mode) {
	var req orchestrator.GenerateMatrixRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	req.Mode = mode

	jobID := uuid.New()
	log := logger.NewSchedulerLogger(jobID.String())
	log.StartJob("matrix:"+string(mode), len(req.Employees), len(req.AllMatrices))

	reporter := newChannelReporter(8)
	nd := newNDJSONWriter(w)
	done := make(chan struct{})
	go drainProgress(reporter.ch, nd, done)

	start := time.Now()
	result, appErr := orchestrator.GenerateMatrix(&req, rng.New(time.Now().UnixNano()), reporter, nil)
	reporter.close()
	<-done
	duration := time.Since(start)

	if appErr != nil {
		nd.writeError(appErr)
		h.recordOutcome(r.Context(), jobID, "matrix", "", 0, false, string(appErr.Code), "", 0, len(req.Employees), len(req.AllMatrices), 0, duration)
		return
	}

	nd.writeSuccess(result)
	log.JobComplete(duration, result.Metadata.Fitness, result.Failed, result.Reason)
	h.recordOutcome(r.Context(), jobID, "matrix", string(mode), result.Metadata.Fitness, result.Metadata.IsValid, result.Reason, result.Metadata.Stats.TerminationReason, result.Metadata.CoverageRate, len(req.Employees), len(req.AllMatrices), result.Metadata.Stats.Generations, duration)
}

// GenerateAllMatrices handles POST /api/v1/matrix/generate-all: one
// independent single-mode run per declared matrix.
func (h *JobHandler) GenerateAllMatrices(w http.ResponseWriter, r *http.Request) {
	var req orchestrator.GenerateAllMatricesRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	jobID := uuid.New()
	log := logger.NewSchedulerLogger(jobID.String())
	log.StartJob("matrix:all", len(req.Employees), len(req.AllMatrices))

	nd := newNDJSONWriter(w)
	start := time.Now()
	results, appErr := orchestrator.GenerateAllMatrices(&req, rng.New(time.Now().UnixNano()), gacommon.NoopReporter, nil)
	duration := time.Since(start)

	if appErr != nil {
		nd.writeError(appErr)
		h.recordOutcome(r.Context(), jobID, "matrix_all", "", 0, false, string(appErr.Code), "", 0, len(req.Employees), len(req.AllMatrices), 0, duration)
		return
	}

	nd.writeSuccess(results)
	allValid := true
	var coverageSum float64
	for _, res := range results {
		allValid = allValid && res.Metadata.IsValid
		coverageSum += res.Metadata.CoverageRate
	}
	meanCoverage := 0.0
	if len(results) > 0 {
		meanCoverage = coverageSum / float64(len(results))
	}
	log.JobComplete(duration, 0, !allValid, "")
	h.recordOutcome(r.Context(), jobID, "matrix_all", "single", 0, allValid, "", "", meanCoverage, len(req.Employees), len(req.AllMatrices), 0, duration)
}

func drainProgress(ch <-chan gacommon.Progress, nd *ndjsonWriter, done chan<- struct{}) {
	for p := range ch {
		nd.writeProgress(p)
	}
	close(done)
}

func (h *JobHandler) recordOutcome(ctx context.Context, jobID uuid.UUID, operation, source string, fitness float64, isValid bool, reason, terminationReason string, coverageRate float64, employees, matrices, generations int, duration time.Duration) {
	if h.metrics != nil {
		h.metrics.RecordJob(operation, !isValid, duration)
		h.metrics.SetSolutionFitness(operation, fitness)
		h.metrics.SetCoverageRate(operation, coverageRate)
		if generations > 0 {
			h.metrics.RecordGATermination(operation, generations, terminationReason)
		}
	}
	if h.runs == nil {
		return
	}
	run := &repository.OptimizationRun{
		JobID: jobID, Operation: operation, Source: source, Fitness: fitness,
		IsValid: isValid, Failed: !isValid, Reason: reason,
		EmployeeCount: employees, MatrixCount: matrices, Generations: generations,
		Duration: duration,
	}
	if err := h.runs.Append(ctx, run); err != nil {
		logger.WithError(err).Error().Str("job_id", jobID.String()).Msg("failed to append audit record")
	}
}

// constraintKindDescriptor describes one constraint kind's parameter
// shape, for the read-only introspection endpoint below.
type constraintKindDescriptor struct {
	Kind        model.ConstraintKind `json:"kind"`
	Params      []string             `json:"params"`
	Description string               `json:"description"`
}

var constraintLibrary = []constraintKindDescriptor{
	{model.KindMustFollow, []string{"shift_a", "shift_b"}, "shift_b must immediately follow shift_a"},
	{model.KindCannotFollow, []string{"shift_a", "shift_b"}, "shift_b must never immediately follow shift_a"},
	{model.KindMustPrecede, []string{"shift_a", "shift_b"}, "shift_a must be immediately preceded by shift_b"},
	{model.KindCannotPrecede, []string{"shift_a", "shift_b"}, "shift_a must never be immediately preceded by shift_b"},
	{model.KindMaxConsecutive, []string{"shift_a", "days"}, "shift_a may not repeat more than days times in a row"},
	{model.KindMaxConsecutiveWithout, []string{"shift_a", "days"}, "a run without shift_a may not exceed days"},
	{model.KindMinGap, []string{"shift_a", "shift_b", "days"}, "shift_b may not occur within days after shift_a"},
}

// ConstraintLibrary handles GET /api/v1/constraints/library.
func ConstraintLibrary(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, constraintLibrary)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, err *apperrors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"code":    err.Code,
		"message": err.Message,
		"details": err.Details,
	})
}
