package edfsim

import (
	"encoding/json"
	"fmt"

	"github.com/markphelps/optional"
)

const IDLE_TASK = "Idle"

// one tick of a schedule. Frequency is only set when the run scales frequency, Deadline is
// unset on idle ticks.
type TraceRow struct {
	Tick      Ttick
	Time      float64 // seconds
	Task      string
	Frequency optional.Float64 // GHz
	Power     float64          // W drawn during the tick
	Deadline  optional.Float64 // seconds
	Completed bool
}

func (r TraceRow) Idle() bool {
	return r.Task == IDLE_TASK
}

// Cells renders the row the way a schedule table shows it.
func (r TraceRow) Cells() []string {
	cells := []string{fmt.Sprintf("%.2fs", r.Time), r.Task}
	r.Frequency.If(func(f float64) {
		cells = append(cells, fmt.Sprintf("%.2fGHz", f))
	})
	deadline := "N/A"
	r.Deadline.If(func(d float64) {
		deadline = fmt.Sprintf("%.2fs", d)
	})
	return append(cells, deadline)
}

func optFloat(o optional.Float64) *float64 {
	if v, err := o.Get(); err == nil {
		return &v
	}
	return nil
}

func (r TraceRow) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Tick      Ttick    `json:"tick"`
		Time      float64  `json:"time"`
		Task      string   `json:"task"`
		Frequency *float64 `json:"frequency,omitempty"`
		Power     float64  `json:"power"`
		Deadline  *float64 `json:"deadline"`
		Completed bool     `json:"completed,omitempty"`
	}{r.Tick, r.Time, r.Task, optFloat(r.Frequency), r.Power, optFloat(r.Deadline), r.Completed})
}

// closing row of a run
type SummaryRow struct {
	IdleTime float64 `json:"idle_time"` // seconds
	Missed   int     `json:"missed"`
}

func (s SummaryRow) Cells() []string {
	return []string{fmt.Sprintf("Idle Time: %.2fs", s.IdleTime), fmt.Sprintf("Missed: %d", s.Missed)}
}

// receives the rows of a run as they are produced
type TraceSink interface {
	Row(p Policy, r TraceRow)
	Summary(p Policy, s SummaryRow)
}
