package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiftcycle/shiftopt/internal/repository"
	"github.com/shiftcycle/shiftopt/pkg/model"
)

type fakeAuditSink struct {
	runs []*repository.OptimizationRun
}

func (f *fakeAuditSink) Append(ctx context.Context, run *repository.OptimizationRun) error {
	f.runs = append(f.runs, run)
	return nil
}

func simpleShiftTypes() []model.ShiftType {
	return []model.ShiftType{{ID: "M", Hours: 7}, {ID: "P", Hours: 7}, {ID: "RP", Hours: 0}}
}

func simpleScheduleRequestBody(t *testing.T) []byte {
	t.Helper()
	matrixID := uuid.New()
	req := map[string]interface{}{
		"year":        2026,
		"month":       0,
		"employees":   []map[string]interface{}{{"id": uuid.New(), "contract_hours": 37.5, "matrix_id": matrixID}},
		"shift_types": simpleShiftTypes(),
		"matrices":    []map[string]interface{}{{"id": matrixID, "rows": [][]string{{"M", "P"}, {"P", "RP"}}}},
		"optimizer_options": map[string]interface{}{
			"use_ga": false,
		},
	}
	body, err := json.Marshal(req)
	require.NoError(t, err)
	return body
}

func decodeNDJSONLines(t *testing.T, body string) []ndjsonEnvelope {
	t.Helper()
	var out []ndjsonEnvelope
	for _, line := range strings.Split(strings.TrimSpace(body), "\n") {
		if line == "" {
			continue
		}
		var env ndjsonEnvelope
		require.NoError(t, json.Unmarshal([]byte(line), &env))
		out = append(out, env)
	}
	return out
}

func TestGenerateSchedule_RejectsMalformedBody(t *testing.T) {
	h := NewJobHandler(nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/schedule/generate", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()

	h.GenerateSchedule(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateSchedule_RejectsMissingRequiredFields(t *testing.T) {
	h := NewJobHandler(nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/schedule/generate", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()

	h.GenerateSchedule(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateSchedule_GreedyOnlyStreamsSuccess(t *testing.T) {
	sink := &fakeAuditSink{}
	h := NewJobHandler(sink, nil)
	body := simpleScheduleRequestBody(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/schedule/generate", bytes.NewBuffer(body))
	rec := httptest.NewRecorder()

	h.GenerateSchedule(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	envelopes := decodeNDJSONLines(t, rec.Body.String())
	require.NotEmpty(t, envelopes)
	last := envelopes[len(envelopes)-1]
	assert.Equal(t, "success", last.Type)
	require.Len(t, sink.runs, 1)
	assert.Equal(t, "schedule", sink.runs[0].Operation)
}

func TestConstraintLibrary_ListsAllSevenKinds(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/constraints/library", nil)
	rec := httptest.NewRecorder()

	ConstraintLibrary(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var out []constraintKindDescriptor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Len(t, out, 7)
}
