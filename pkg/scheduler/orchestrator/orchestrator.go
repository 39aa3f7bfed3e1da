// Package orchestrator wires the baseline builder and both genetic
// algorithms into the two job operations the external interface exposes:
// generating a monthly schedule and generating one or more cyclic
// matrices. It owns the fatal/non-fatal error propagation policy and the
// progress/cancellation plumbing shared by every job.
package orchestrator

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/shiftcycle/shiftopt/pkg/errors"
	"github.com/shiftcycle/shiftopt/pkg/model"
	"github.com/shiftcycle/shiftopt/pkg/rng"
	"github.com/shiftcycle/shiftopt/pkg/scheduler/baseline"
	"github.com/shiftcycle/shiftopt/pkg/scheduler/constraint"
	"github.com/shiftcycle/shiftopt/pkg/scheduler/evaluator"
	"github.com/shiftcycle/shiftopt/pkg/scheduler/gacommon"
	"github.com/shiftcycle/shiftopt/pkg/scheduler/matrixga"
	"github.com/shiftcycle/shiftopt/pkg/scheduler/schedulega"
)

// GenerateScheduleRequest is the generate_monthly_schedule job payload.
type GenerateScheduleRequest struct {
	Year                  int                         `json:"year" validate:"required,gte=1900,lte=2200"`
	Month                 int                         `json:"month" validate:"gte=0,lte=11"`
	Employees             []model.Employee            `json:"employees" validate:"required,min=1"`
	ShiftTypes            []model.ShiftType           `json:"shift_types" validate:"required,min=1"`
	Matrices              []model.Matrix              `json:"matrices" validate:"required,min=1"`
	CoverageRules         []model.CoverageRule         `json:"coverage_rules"`
	Constraints           []model.Constraint           `json:"constraints"`
	DefaultMatrixID       uuid.UUID                    `json:"default_matrix_id,omitempty"`
	PreviousMonthSchedule model.PreviousMonthSchedule  `json:"previous_month_schedule,omitempty"`
	OptimizerOptions      *model.OptimizerOptions      `json:"optimizer_options,omitempty"`
}

func (r *GenerateScheduleRequest) toConfig() *model.Config {
	return &model.Config{
		Year: r.Year, Month: r.Month,
		Employees: r.Employees, ShiftTypes: r.ShiftTypes,
		Matrices: r.Matrices, CoverageRules: r.CoverageRules,
		Constraints: r.Constraints, DefaultMatrixID: r.DefaultMatrixID,
	}
}

// GenerateMatrixRequest is the generate_matrix job payload. TargetMatrixID
// is only consulted in ModeSingle.
type GenerateMatrixRequest struct {
	Mode                  matrixga.Mode               `json:"mode" validate:"required,oneof=single joint"`
	TargetMatrixID        uuid.UUID                   `json:"target_matrix_id,omitempty"`
	AllMatrices           []model.Matrix              `json:"all_matrices" validate:"required,min=1"`
	ShiftTypes            []model.ShiftType           `json:"shift_types" validate:"required,min=1"`
	Constraints           []model.Constraint          `json:"constraints"`
	CoverageRules         []model.CoverageRule        `json:"coverage_rules"`
	Employees             []model.Employee            `json:"employees" validate:"required,min=1"`
	Year                  int                         `json:"year" validate:"required,gte=1900,lte=2200"`
	Month                 int                         `json:"month" validate:"gte=0,lte=11"`
	DefaultMatrixID       uuid.UUID                   `json:"default_matrix_id,omitempty"`
	PreviousMonthSchedule model.PreviousMonthSchedule  `json:"previous_month_schedule,omitempty"`
	OptimizerOptions      *model.OptimizerOptions      `json:"optimizer_options,omitempty"`
}

func (r *GenerateMatrixRequest) toConfig() *model.Config {
	return &model.Config{
		Year: r.Year, Month: r.Month,
		Employees: r.Employees, ShiftTypes: r.ShiftTypes,
		Matrices: r.AllMatrices, CoverageRules: r.CoverageRules,
		Constraints: r.Constraints, DefaultMatrixID: r.DefaultMatrixID,
	}
}

// GenerateAllMatricesRequest runs ModeSingle independently for every
// declared matrix, each holding every sibling matrix fixed at its
// originally declared shape — siblings are not cross-pollinated with one
// another's in-flight results, so the N runs stay independent and safe to
// execute in any order (or in parallel, by a caller that chooses to).
type GenerateAllMatricesRequest struct {
	AllMatrices           []model.Matrix               `json:"all_matrices" validate:"required,min=1"`
	ShiftTypes            []model.ShiftType            `json:"shift_types" validate:"required,min=1"`
	Constraints           []model.Constraint           `json:"constraints"`
	CoverageRules         []model.CoverageRule         `json:"coverage_rules"`
	Employees             []model.Employee             `json:"employees" validate:"required,min=1"`
	Year                  int                          `json:"year" validate:"required,gte=1900,lte=2200"`
	Month                 int                          `json:"month" validate:"gte=0,lte=11"`
	DefaultMatrixID       uuid.UUID                    `json:"default_matrix_id,omitempty"`
	PreviousMonthSchedule model.PreviousMonthSchedule  `json:"previous_month_schedule,omitempty"`
	OptimizerOptions      *model.OptimizerOptions      `json:"optimizer_options,omitempty"`
}

// ScheduleMetadata describes how a schedule result was produced.
type ScheduleMetadata struct {
	Source       string          `json:"source"` // "ga", "greedy" or "greedy_fallback"
	Stats        *gacommon.Stats `json:"stats,omitempty"`
	Fitness      float64         `json:"fitness"`
	IsValid      bool            `json:"is_valid"`
	CoverageRate float64         `json:"coverage_rate"`
}

// ScheduleSuccess is the generate_monthly_schedule job's Success payload.
type ScheduleSuccess struct {
	Schedule model.Schedule    `json:"schedule"`
	Metadata ScheduleMetadata  `json:"metadata"`
	Failed   bool              `json:"failed,omitempty"`
	Reason   string            `json:"reason,omitempty"`
}

// MatrixMetadata describes how a matrix result was produced.
type MatrixMetadata struct {
	Stats        gacommon.Stats `json:"stats"`
	Fitness      float64        `json:"fitness"`
	IsValid      bool           `json:"is_valid"`
	CoverageRate float64        `json:"coverage_rate"`
}

// MatrixSuccess is the generate_matrix job's Success payload.
type MatrixSuccess struct {
	Matrices map[uuid.UUID]model.Matrix `json:"matrices"`
	Schedule model.Schedule             `json:"schedule"`
	Metadata MatrixMetadata             `json:"metadata"`
	Failed   bool                       `json:"failed,omitempty"`
	Reason   string                     `json:"reason,omitempty"`
}

// GenerateSchedule runs generate_monthly_schedule: build the greedy
// baseline (C3), optionally refine it with the schedule GA (C4) seeded
// from that baseline, and fall back to the baseline itself if the GA's
// incumbent is invalid and greedyFallback is set. reporter and cancel may
// be nil; deadline is computed from opts.GATimeout (or the component
// default) relative to call time.
func GenerateSchedule(req *GenerateScheduleRequest, source *rng.Source, reporter gacommon.Reporter, cancel gacommon.Cancel) (result *ScheduleSuccess, appErr *apperrors.AppError) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			appErr = apperrors.New(apperrors.CodeExecutionError, fmt.Sprintf("panic during schedule generation: %v", r))
		}
	}()

	cfg := req.toConfig()
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	opts := req.OptimizerOptions
	weights := optionsWeights(opts)

	greedy, err := baseline.Build(cfg, req.PreviousMonthSchedule, source)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeNoValidBaseline, "baseline builder could not produce a schedule")
	}

	if !opts.UseGAOr(true) {
		report := evaluator.Evaluate(greedy, cfg, nil, weights)
		return &ScheduleSuccess{
			Schedule: greedy,
			Metadata: ScheduleMetadata{Source: "greedy", Fitness: report.Fitness, IsValid: report.IsValid, CoverageRate: coverageRate(report, cfg)},
			Failed:   !report.IsValid,
			Reason:   failureReasonIfInvalid(report.IsValid, gacommon.Stats{}),
		}, nil
	}

	deadline := time.Now().Add(opts.GATimeoutOr(schedulega.DefaultGATimeout))
	gaResult := schedulega.Run(cfg, greedy, opts, source, reporter, cancel, deadline)

	finalSchedule, finalReport, sourceTag := gaResult.Schedule, gaResult.Report, "ga"
	if !finalReport.IsValid && opts.GreedyFallbackOr(false) {
		greedyReport := evaluator.Evaluate(greedy, cfg, nil, weights)
		if greedyReport.Fitness <= finalReport.Fitness {
			finalSchedule, finalReport, sourceTag = greedy, greedyReport, "greedy_fallback"
		}
	}

	return &ScheduleSuccess{
		Schedule: finalSchedule,
		Metadata: ScheduleMetadata{Source: sourceTag, Stats: &gaResult.Stats, Fitness: finalReport.Fitness, IsValid: finalReport.IsValid, CoverageRate: coverageRate(finalReport, cfg)},
		Failed:   !finalReport.IsValid,
		Reason:   failureReasonIfInvalid(finalReport.IsValid, gaResult.Stats),
	}, nil
}

// GenerateMatrix runs generate_matrix: evolve one matrix (mode single,
// holding the rest fixed) or every matrix jointly (mode joint), scoring
// each candidate by nesting the baseline builder and evaluator.
func GenerateMatrix(req *GenerateMatrixRequest, source *rng.Source, reporter gacommon.Reporter, cancel gacommon.Cancel) (result *MatrixSuccess, appErr *apperrors.AppError) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			appErr = apperrors.New(apperrors.CodeExecutionError, fmt.Sprintf("panic during matrix generation: %v", r))
		}
	}()

	cfg := req.toConfig()
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if req.Mode == matrixga.ModeSingle {
		if err := validateTargetMatrix(cfg, req.TargetMatrixID); err != nil {
			return nil, err
		}
	}

	opts := req.OptimizerOptions
	weights := optionsWeights(opts)
	deadline := time.Now().Add(opts.GATimeoutOr(matrixga.DefaultGATimeout))

	var gaResult matrixga.Result
	if req.Mode == matrixga.ModeJoint {
		gaResult = matrixga.RunJoint(cfg, req.PreviousMonthSchedule, opts, source, reporter, cancel, deadline)
	} else {
		gaResult = matrixga.RunSingle(cfg, req.TargetMatrixID, req.PreviousMonthSchedule, opts, source, reporter, cancel, deadline)
	}

	finalCfg := mergeEvolvedMatrices(cfg, gaResult.Matrices)
	isValid, report := matrixResultValidity(finalCfg, gaResult, weights)

	return &MatrixSuccess{
		Matrices: gaResult.Matrices,
		Schedule: gaResult.Schedule,
		Metadata: MatrixMetadata{Stats: gaResult.Stats, Fitness: report.Fitness, IsValid: isValid, CoverageRate: coverageRate(report, finalCfg)},
		Failed:   !isValid,
		Reason:   failureReasonIfInvalid(isValid, gaResult.Stats),
	}, nil
}

// GenerateAllMatrices runs GenerateMatrix in ModeSingle for every
// declared matrix in turn, against the original config — see
// GenerateAllMatricesRequest's doc comment for why runs don't chain.
func GenerateAllMatrices(req *GenerateAllMatricesRequest, source *rng.Source, reporter gacommon.Reporter, cancel gacommon.Cancel) (map[uuid.UUID]*MatrixSuccess, *apperrors.AppError) {
	out := make(map[uuid.UUID]*MatrixSuccess, len(req.AllMatrices))
	for _, m := range req.AllMatrices {
		single := &GenerateMatrixRequest{
			Mode: matrixga.ModeSingle, TargetMatrixID: m.ID,
			AllMatrices: req.AllMatrices, ShiftTypes: req.ShiftTypes,
			Constraints: req.Constraints, CoverageRules: req.CoverageRules,
			Employees: req.Employees, Year: req.Year, Month: req.Month,
			DefaultMatrixID: req.DefaultMatrixID, PreviousMonthSchedule: req.PreviousMonthSchedule,
			OptimizerOptions: req.OptimizerOptions,
		}
		result, appErr := GenerateMatrix(single, source, reporter, cancel)
		if appErr != nil {
			return nil, appErr
		}
		out[m.ID] = result
	}
	return out, nil
}

func optionsWeights(opts *model.OptimizerOptions) *model.Weights {
	if opts == nil {
		return nil
	}
	return opts.Weights
}

func mergeEvolvedMatrices(cfg *model.Config, evolved matrixga.Chromosome) *model.Config {
	matrices := make([]model.Matrix, len(cfg.Matrices))
	for i, m := range cfg.Matrices {
		if updated, ok := evolved[m.ID]; ok {
			matrices[i] = updated
		} else {
			matrices[i] = m
		}
	}
	clone := *cfg
	clone.Matrices = matrices
	return &clone
}

// matrixResultValidity recomputes validity from the merged config rather
// than trusting the GA's internal nested fitness score directly — that
// score also carries the per-row structural penalty, which must be zero
// in addition to the evaluator reporting no violations.
func matrixResultValidity(finalCfg *model.Config, gaResult matrixga.Result, weights *model.Weights) (bool, evaluator.Report) {
	var rowViolations int
	for _, m := range gaResult.Matrices {
		for _, row := range m.Rows {
			rowViolations += len(constraint.Validate(row, finalCfg.Constraints, true))
		}
	}
	report := evaluator.Evaluate(gaResult.Schedule, finalCfg, nil, weights)
	return rowViolations == 0 && report.IsValid, report
}

// coverageRate derives the fraction of rule/day slots that were exactly
// satisfied from a report's already-computed violation count — cfg's
// coverage rules times the month's day count gives the total slots
// checked. A config with no coverage rules declared is trivially fully
// covered.
func coverageRate(report evaluator.Report, cfg *model.Config) float64 {
	total := len(cfg.CoverageRules) * cfg.DaysInMonth()
	if total == 0 {
		return 1.0
	}
	return 1.0 - float64(report.CoverageViolationTotal)/float64(total)
}

// failureReasonIfInvalid maps a GA's termination reason (or a plain
// invalid-baseline result with no GA run at all) onto the user-visible
// failure-reason vocabulary.
func failureReasonIfInvalid(isValid bool, stats gacommon.Stats) string {
	if isValid {
		return ""
	}
	switch stats.TerminationReason {
	case gacommon.ReasonTimeout:
		return apperrors.CodeTimeoutReached.Reason()
	case gacommon.ReasonStagnation:
		return apperrors.CodeStagnationReached.Reason()
	default:
		return apperrors.CodeConstraintsViolated.Reason()
	}
}
