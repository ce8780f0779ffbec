package edfsim

import (
	"encoding/json"
	"testing"

	"github.com/markphelps/optional"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceRowCells(t *testing.T) {
	busy := TraceRow{Tick: 12, Time: 1.2, Task: "Task1", Power: 90, Deadline: optional.NewFloat64(20)}
	assert.Equal(t, []string{"1.20s", "Task1", "20.00s"}, busy.Cells())

	busy.Frequency = optional.NewFloat64(1.75)
	assert.Equal(t, []string{"1.20s", "Task1", "1.75GHz", "20.00s"}, busy.Cells())

	idle := TraceRow{Tick: 3, Time: 0.3, Task: IDLE_TASK, Power: 15}
	assert.True(t, idle.Idle())
	assert.Equal(t, []string{"0.30s", "Idle", "N/A"}, idle.Cells())
}

func TestTraceRowJSON(t *testing.T) {
	row := TraceRow{Tick: 5, Time: 0.5, Task: "Task2", Frequency: optional.NewFloat64(2), Power: 90,
		Deadline: optional.NewFloat64(15), Completed: true}
	data, err := json.Marshal(row)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tick":5,"time":0.5,"task":"Task2","frequency":2,"power":90,"deadline":15,"completed":true}`, string(data))

	idle := TraceRow{Tick: 6, Time: 0.6, Task: IDLE_TASK, Power: 15}
	data, err = json.Marshal(idle)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tick":6,"time":0.6,"task":"Idle","power":15,"deadline":null}`, string(data))
}

func TestSummaryRowCells(t *testing.T) {
	s := SummaryRow{IdleTime: 10, Missed: 2}
	assert.Equal(t, []string{"Idle Time: 10.00s", "Missed: 2"}, s.Cells())
}

func TestTaskStats(t *testing.T) {
	task := mkTask("Task2", 50, 150)
	task.completions = 4
	task.misses = 1
	task.responses = []float64{50, 50, 50, 100}

	ts := newTaskStats(task, 10)
	assert.Equal(t, "Task2", ts.Name)
	assert.Equal(t, 4, ts.Completions)
	assert.Equal(t, 1, ts.Misses)
	assert.InDelta(t, 6.25, ts.MeanResponse, 1e-9)
	assert.InDelta(t, 2.5, ts.StdResponse, 1e-9)
	assert.InDelta(t, 10.0, ts.MaxResponse, 1e-9)

	none := newTaskStats(mkTask("Task1", 10, 20), 10)
	assert.Equal(t, TaskStats{Name: "Task1"}, none)

	one := mkTask("Task3", 10, 20)
	one.responses = []float64{12}
	assert.Equal(t, 0.0, newTaskStats(one, 10).StdResponse)
}

func TestResidency(t *testing.T) {
	res, avg := residency(map[float64]Ttick{2.0: 100, 1.75: 300})
	assert.Equal(t, []FreqResidency{{1.75, 300}, {2.0, 100}}, res)
	assert.InDelta(t, 1.8125, avg, 1e-9)

	res, avg = residency(map[float64]Ttick{})
	assert.Empty(t, res)
	assert.Equal(t, 0.0, avg)
}
