// shiftopt server entry point.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/google/uuid"

	appconfig "github.com/shiftcycle/shiftopt/internal/config"
	"github.com/shiftcycle/shiftopt/internal/handler"
	appmetrics "github.com/shiftcycle/shiftopt/internal/metrics"
	"github.com/shiftcycle/shiftopt/internal/repository"
	"github.com/shiftcycle/shiftopt/pkg/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := appconfig.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Format: "console",
	})

	fmt.Printf("shiftopt v%s\n", Version)
	fmt.Printf("build: %s (%s)\n", BuildTime, GitCommit)
	fmt.Println()

	metricsRegistry := appmetrics.Get()

	var runs *repository.OptimizationRunRepository
	var dbConn *sql.DB
	if db, err := openDatabase(cfg.Database); err != nil {
		logger.Warn().Err(err).Msg("job-history audit log disabled: database unavailable")
	} else {
		if _, err := db.Exec(repository.Schema); err != nil {
			logger.Warn().Err(err).Msg("job-history audit log disabled: schema bootstrap failed")
		} else {
			runs = repository.NewOptimizationRunRepository(db)
			dbConn = db
		}
	}

	if dbConn != nil {
		go pollDBConnections(dbConn, metricsRegistry)
	}

	// runs is a concrete *repository.OptimizationRunRepository; passed
	// through an explicit nil literal when unset so the handler's
	// interface-typed field is a true nil, not a non-nil interface
	// wrapping a nil pointer.
	var jobHandler *handler.JobHandler
	if runs != nil {
		jobHandler = handler.NewJobHandler(runs, metricsRegistry)
	} else {
		jobHandler = handler.NewJobHandler(nil, metricsRegistry)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"shiftopt"}`))
	})

	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"version":"%s","build_time":"%s","git_commit":"%s"}`, Version, BuildTime, GitCommit)
	})

	mux.HandleFunc("/api/v1/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"message": "shiftopt optimisation engine API v1",
			"endpoints": {
				"schedule": {
					"generate": "POST /api/v1/schedule/generate"
				},
				"matrix": {
					"generate": "POST /api/v1/matrix/generate",
					"generate_joint": "POST /api/v1/matrix/generate-joint",
					"generate_all": "POST /api/v1/matrix/generate-all"
				},
				"constraints": {
					"library": "GET /api/v1/constraints/library"
				}
			}
		}`))
	})

	mux.HandleFunc("/api/v1/schedule/generate", jobHandler.GenerateSchedule)
	mux.HandleFunc("/api/v1/matrix/generate", jobHandler.GenerateMatrix)
	mux.HandleFunc("/api/v1/matrix/generate-joint", jobHandler.GenerateMatrixJoint)
	mux.HandleFunc("/api/v1/matrix/generate-all", jobHandler.GenerateAllMatrices)
	mux.HandleFunc("/api/v1/constraints/library", handler.ConstraintLibrary)

	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, metricsRegistry.Handler())
	}

	rateLimiter := NewRateLimiter(float64(cfg.API.RateLimit))
	wrapped := requestIDMiddleware(rateLimitMiddleware(rateLimiter, corsMiddleware(loggingMiddleware(metricsRegistry, mux))))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      wrapped,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info().
			Int("port", cfg.App.Port).
			Str("version", Version).
			Str("url", fmt.Sprintf("http://localhost:%d", cfg.App.Port)).
			Str("api_docs", fmt.Sprintf("http://localhost:%d/api/v1/", cfg.App.Port)).
			Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("server failed to start")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		os.Exit(1)
	}

	logger.Info().Msg("server shut down cleanly")
}

func openDatabase(cfg appconfig.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// pollDBConnections samples the job-history pool's connection counts
// periodically so shiftopt_db_connections reflects live pool pressure
// rather than a one-time snapshot at startup.
func pollDBConnections(db *sql.DB, metricsRegistry *appmetrics.Registry) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		stats := db.Stats()
		metricsRegistry.DBConnections.WithLabelValues("in_use").Set(float64(stats.InUse))
		metricsRegistry.DBConnections.WithLabelValues("idle").Set(float64(stats.Idle))
	}
}

type ctxKey string

const ctxKeyRequestID ctxKey = "request_id"

// requestIDMiddleware assigns or propagates a request id so downstream
// logs and the job-history audit log can be correlated with a single
// caller-visible HTTP exchange.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), ctxKeyRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(ctx, requestID)))
	})
}

// loggingMiddleware logs each request's outcome and records it to the
// HTTP-layer metrics (distinct from the per-job metrics the handler
// records itself).
func loggingMiddleware(metricsRegistry *appmetrics.Registry, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID, _ := r.Context().Value(ctxKeyRequestID).(string)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.statusCode).
			Dur("duration", duration).
			Msg("request handled")

		metricsRegistry.RecordRequest(r.Method, r.URL.Path, rw.statusCode, duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
// written, for logging and metrics.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// RateLimiter is a simple token-bucket limiter.
type RateLimiter struct {
	tokens     float64
	maxTokens  float64
	refillRate float64
	lastRefill time.Time
	mu         sync.Mutex
}

// NewRateLimiter builds a limiter allowing requestsPerSecond sustained,
// with burst capacity of double that.
func NewRateLimiter(requestsPerSecond float64) *RateLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 100
	}
	return &RateLimiter{
		tokens:     requestsPerSecond,
		maxTokens:  requestsPerSecond * 2,
		refillRate: requestsPerSecond,
		lastRefill: time.Now(),
	}
}

// Allow reports whether the caller may proceed, consuming one token if so.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	rl.tokens += elapsed * rl.refillRate
	if rl.tokens > rl.maxTokens {
		rl.tokens = rl.maxTokens
	}
	rl.lastRefill = now

	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

func rateLimitMiddleware(rl *RateLimiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow() {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error":   true,
				"code":    "RATE_LIMITED",
				"message": "too many requests, please retry later",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
