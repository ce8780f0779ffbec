package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edfsim"
)

func newTestRouter() (*server, *httprouter.Router) {
	s := newServer(edfsim.DefaultConfig(), logr.Discard())
	return s, s.routes()
}

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

type runResult struct {
	Policy         string                `json:"policy"`
	OperatingPoint edfsim.OperatingPoint `json:"operating_point"`
	Energy         float64               `json:"energy"`
	Missed         int                   `json:"missed"`
	Trace          []json.RawMessage     `json:"trace"`
}

func TestPing(t *testing.T) {
	_, router := newTestRouter()
	rec := do(t, router, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Pong "))
}

func TestGetConfig(t *testing.T) {
	_, router := newTestRouter()
	rec := do(t, router, http.MethodGet, "/config", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var cfg edfsim.Config
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))
	assert.Equal(t, *edfsim.DefaultConfig(), cfg)
}

func TestSetConfigKeepsOmittedFields(t *testing.T) {
	s, router := newTestRouter()
	rec := do(t, router, http.MethodPut, "/config", `{"duration_seconds": 60, "miss_policy": "rearm"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	cfg := s.snapshot()
	assert.Equal(t, 60.0, cfg.DurationSeconds)
	assert.Equal(t, edfsim.MISS_REARM, cfg.MissPolicy)
	assert.Equal(t, edfsim.DefaultConfig().Tasks, cfg.Tasks)

	rec = do(t, router, http.MethodPut, "/config", `{"time_quantum": 0}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, edfsim.TIME_QUANTUM, s.snapshot().TimeQuantum)

	rec = do(t, router, http.MethodPut, "/config", `{"duration_seconds": `)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSetConfigRejectsPartialArrayElements(t *testing.T) {
	s, router := newTestRouter()
	rec := do(t, router, http.MethodPut, "/config", `{"tasks": [{"name": "A", "period_sec": 40}]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, edfsim.DefaultConfig().Tasks, s.snapshot().Tasks)

	rec = do(t, router, http.MethodPut, "/config", `{"frequencies": [{"frequency": 3.0}]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Len(t, s.snapshot().Frequencies, 4)

	rec = do(t, router, http.MethodPut, "/config", `{"frequencies": [{"frequency": 3.0, "power": 100}]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, edfsim.FreqTable{{Frequency: 3.0, Power: 100}}, s.snapshot().Frequencies)
}

func TestTaskSetRoutes(t *testing.T) {
	s, router := newTestRouter()
	rec := do(t, router, http.MethodPut, "/taskset",
		`[{"name": "A", "execution_time_sec": 1, "period_sec": 4}, {"name": "B", "execution_time_sec": 2, "period_sec": 8}]`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodGet, "/taskset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var ts edfsim.TaskSet
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ts))
	assert.Equal(t, edfsim.TaskSet{{Name: "A", ExecutionTime: 1, Period: 4}, {Name: "B", ExecutionTime: 2, Period: 8}}, ts)

	rec = do(t, router, http.MethodPut, "/taskset",
		`[{"name": "A", "execution_time_sec": 1, "period_sec": 4}, {"name": "A", "execution_time_sec": 1, "period_sec": 4}]`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "duplicate task name")
	assert.Len(t, s.snapshot().Tasks, 2)
	assert.Equal(t, "B", s.snapshot().Tasks[1].Name)
}

func TestFrequencyRoutes(t *testing.T) {
	s, router := newTestRouter()
	rec := do(t, router, http.MethodPost, "/frequencies", `{"frequency": 2.5, "power": 120}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, edfsim.OperatingPoint{Frequency: 2.5, Power: 120}, s.snapshot().Frequencies.Max())

	rec = do(t, router, http.MethodPost, "/frequencies", `{"frequency": -1, "power": 10}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, router, http.MethodDelete, "/frequencies/2.5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var table edfsim.FreqTable
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &table))
	assert.Len(t, table, 4)

	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodDelete, "/frequencies/3", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodDelete, "/frequencies/fast", "").Code)
}

func TestRemovingLastFrequencyIsRejected(t *testing.T) {
	s, router := newTestRouter()
	for _, f := range []string{"1", "1.5", "1.75"} {
		require.Equal(t, http.StatusOK, do(t, router, http.MethodDelete, "/frequencies/"+f, "").Code)
	}
	rec := do(t, router, http.MethodDelete, "/frequencies/2", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Len(t, s.snapshot().Frequencies, 1)
}

func TestRunRoute(t *testing.T) {
	_, router := newTestRouter()
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPut, "/config", `{"duration_seconds": 60}`).Code)

	rec := do(t, router, http.MethodPost, "/runs/basic", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var res runResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "basic", res.Policy)
	assert.Equal(t, 0, res.Missed)
	assert.InDelta(t, 4650.0, res.Energy, 1e-6)
	assert.Len(t, res.Trace, 600)

	rec = do(t, router, http.MethodPost, "/runs/static?trace=false", "")
	require.Equal(t, http.StatusOK, rec.Code)
	res = runResult{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, edfsim.OperatingPoint{Frequency: 1.75, Power: 60}, res.OperatingPoint)
	assert.Empty(t, res.Trace)

	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodPost, "/runs/rms", "").Code)
}

func TestCompareRoute(t *testing.T) {
	_, router := newTestRouter()
	rec := do(t, router, http.MethodPost, "/compare?trace=false", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var cmp struct {
		Utilization float64     `json:"utilization"`
		Hyperperiod int         `json:"hyperperiod"`
		Results     []runResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cmp))
	assert.Equal(t, 600, cmp.Hyperperiod)
	require.Len(t, cmp.Results, 3)
	for i, key := range []string{"basic", "static", "cc"} {
		assert.Equal(t, key, cmp.Results[i].Policy)
		assert.Empty(t, cmp.Results[i].Trace)
	}
}
