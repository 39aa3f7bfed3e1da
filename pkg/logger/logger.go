// Package logger provides the engine's zerolog-backed logging setup.
package logger

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Level aliases zerolog's level type.
type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	FatalLevel = zerolog.FatalLevel
)

// Config controls the global logger's level, format and destination.
type Config struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"` // json/console
	Output     string `yaml:"output" json:"output"` // stdout/stderr/file
	FilePath   string `yaml:"file_path,omitempty" json:"file_path,omitempty"`
	TimeFormat string `yaml:"time_format,omitempty" json:"time_format,omitempty"`
}

// DefaultConfig returns sane defaults for local development.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// Init sets up the global logger. Only the first call takes effect.
func Init(cfg Config) {
	once.Do(func() {
		level := parseLevel(cfg.Level)
		zerolog.SetGlobalLevel(level)

		var output io.Writer
		switch cfg.Output {
		case "stderr":
			output = os.Stderr
		case "file":
			if cfg.FilePath != "" {
				f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
				if err == nil {
					output = f
				} else {
					output = os.Stdout
				}
			} else {
				output = os.Stdout
			}
		default:
			output = os.Stdout
		}

		if cfg.Format == "console" {
			output = zerolog.ConsoleWriter{
				Out:        output,
				TimeFormat: cfg.TimeFormat,
			}
		}

		logger = zerolog.New(output).With().Timestamp().Logger()
	})
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Get returns the global logger, initialising it with defaults if no one
// has called Init yet.
func Get() *zerolog.Logger {
	Init(DefaultConfig())
	return &logger
}

// WithContext attaches the request id carried on ctx, if any, to a
// derived logger. There is no tenant concept in this engine — every job
// is scoped by its own job id instead, carried the same way.
func WithContext(ctx context.Context) *zerolog.Logger {
	l := Get().With().Logger()

	if reqID, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		l = l.With().Str("request_id", reqID).Logger()
	}
	if jobID, ok := ctx.Value(ctxKeyJobID).(string); ok {
		l = l.With().Str("job_id", jobID).Logger()
	}

	return &l
}

type ctxKey int

const (
	ctxKeyRequestID ctxKey = iota
	ctxKeyJobID
)

// WithRequestID returns a context carrying the given request id, for
// WithContext to pick up later in the call chain.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

// WithJobID returns a context carrying the given job id.
func WithJobID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyJobID, id)
}

// Debug logs at debug level.
func Debug() *zerolog.Event {
	return Get().Debug()
}

// Info logs at info level.
func Info() *zerolog.Event {
	return Get().Info()
}

// Warn logs at warn level.
func Warn() *zerolog.Event {
	return Get().Warn()
}

// Error logs at error level.
func Error() *zerolog.Event {
	return Get().Error()
}

// Fatal logs at fatal level and exits.
func Fatal() *zerolog.Event {
	return Get().Fatal()
}

// WithError starts an error-level event carrying err.
func WithError(err error) *zerolog.Event {
	return Get().Error().Err(err)
}

// WithField returns a logger with one extra field attached.
func WithField(key string, value interface{}) *zerolog.Logger {
	l := Get().With().Interface(key, value).Logger()
	return &l
}

// WithFields returns a logger with several extra fields attached.
func WithFields(fields map[string]interface{}) *zerolog.Logger {
	ctx := Get().With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	l := ctx.Logger()
	return &l
}

// SchedulerLogger is the optimisation engine's job-lifecycle logger: one
// job (schedule or matrix generation) gets one SchedulerLogger scoped to
// its id.
type SchedulerLogger struct {
	base *zerolog.Logger
}

// NewSchedulerLogger creates a logger scoped to one job id.
func NewSchedulerLogger(jobID string) *SchedulerLogger {
	l := Get().With().Str("component", "orchestrator").Str("job_id", jobID).Logger()
	return &SchedulerLogger{base: &l}
}

// StartJob records a job's acceptance and input size.
func (l *SchedulerLogger) StartJob(operation string, employees, matrices int) {
	l.base.Info().
		Str("operation", operation).
		Int("employees", employees).
		Int("matrices", matrices).
		Msg("job started")
}

// Progress records one GA progress tick.
func (l *SchedulerLogger) Progress(generation, maxGenerations int, bestFitness float64, stagnation int) {
	l.base.Debug().
		Int("generation", generation).
		Int("max_generations", maxGenerations).
		Float64("best_fitness", bestFitness).
		Int("stagnation", stagnation).
		Msg("generation progress")
}

// ConstraintViolation records a single constraint violation surfaced
// during evaluation.
func (l *SchedulerLogger) ConstraintViolation(constraint, details string) {
	l.base.Warn().
		Str("constraint", constraint).
		Str("details", details).
		Msg("constraint violation")
}

// GreedyFallback records that a GA's invalid incumbent was replaced by
// the greedy baseline.
func (l *SchedulerLogger) GreedyFallback(reason string) {
	l.base.Warn().
		Str("reason", reason).
		Msg("falling back to greedy baseline")
}

// JobComplete records a job's terminal outcome.
func (l *SchedulerLogger) JobComplete(duration time.Duration, fitness float64, failed bool, reason string) {
	event := l.base.Info()
	if failed {
		event = l.base.Warn()
	}
	event.
		Dur("duration", duration).
		Float64("fitness", fitness).
		Bool("failed", failed).
		Str("reason", reason).
		Msg("job complete")
}
