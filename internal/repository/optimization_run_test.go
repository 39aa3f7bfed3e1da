package repository

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultListFilter(t *testing.T) {
	f := DefaultListFilter()
	assert.Equal(t, 0, f.Offset)
	assert.Equal(t, 20, f.Limit)
	assert.Empty(t, f.Operation)
	assert.Nil(t, f.Failed)
}

func TestSchemaDeclaresExpectedColumns(t *testing.T) {
	for _, col := range []string{
		"job_id", "operation", "source", "fitness", "is_valid", "failed",
		"reason", "employee_count", "matrix_count", "generations",
		"duration_ms", "request_digest", "created_at",
	} {
		assert.Contains(t, Schema, col)
	}
	assert.Contains(t, Schema, "optimization_runs")
}

func TestMarshalExtra(t *testing.T) {
	out := marshalExtra(map[string]int{"a": 1})
	assert.True(t, strings.Contains(out, `"a":1`))

	out = marshalExtra(make(chan int))
	assert.Equal(t, "", out)
}

func TestOptimizationRunDurationRoundTrip(t *testing.T) {
	run := &OptimizationRun{Duration: 2500 * time.Millisecond}
	assert.Equal(t, int64(2500), run.Duration.Milliseconds())
}
