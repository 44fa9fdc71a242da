package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seaward/base-api/internal/task"
)

func TestMonitorGetStats(t *testing.T) {
	t.Parallel()

	results := &fakeResults{records: map[uuid.UUID]task.Record{
		uuid.New(): {Status: task.StatusCompleted},
		uuid.New(): {Status: task.StatusCompleted},
		uuid.New(): {Status: task.StatusFailed},
	}}
	handler := NewMonitorHandler(results, discardLogger())

	rec := httptest.NewRecorder()
	handler.GetStats(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Tasks[task.StatusCompleted])
	assert.Equal(t, 1, resp.Tasks[task.StatusFailed])
}

func TestMonitorGetStatsFailure(t *testing.T) {
	t.Parallel()

	results := &fakeResults{err: fmt.Errorf("connection reset")}
	handler := NewMonitorHandler(results, discardLogger())

	rec := httptest.NewRecorder()
	handler.GetStats(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestMonitorGetTask(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	results := &fakeResults{records: map[uuid.UUID]task.Record{
		id: {ID: id, Type: "send_email", Status: task.StatusProcessing},
	}}
	handler := NewMonitorHandler(results, discardLogger())

	rec := getTask(t, handler.GetTask, id.String())

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp TaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(task.StatusProcessing), resp.Status)
}

func TestMonitorGetTaskNotFound(t *testing.T) {
	t.Parallel()

	handler := NewMonitorHandler(&fakeResults{}, discardLogger())

	rec := getTask(t, handler.GetTask, uuid.NewString())

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
