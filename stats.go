package edfsim

import (
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// per-task outcome of a run; response times are release to completion, in seconds
type TaskStats struct {
	Name         string  `json:"name"`
	Completions  int     `json:"completions"`
	Misses       int     `json:"misses"`
	MeanResponse float64 `json:"mean_response"`
	StdResponse  float64 `json:"std_response"`
	MaxResponse  float64 `json:"max_response"`
}

func (ts TaskStats) String() string {
	return fmt.Sprintf("%s: done %d, missed %d, response avg %.2fs std %.2fs max %.2fs",
		ts.Name, ts.Completions, ts.Misses, ts.MeanResponse, ts.StdResponse, ts.MaxResponse)
}

func newTaskStats(t *Task, ticksPerSecond int) TaskStats {
	ts := TaskStats{
		Name:        t.name,
		Completions: t.completions,
		Misses:      t.misses,
	}
	if len(t.responses) == 0 {
		return ts
	}
	secs := make([]float64, len(t.responses))
	floats.ScaleTo(secs, 1/float64(ticksPerSecond), t.responses)
	ts.MeanResponse = stat.Mean(secs, nil)
	if len(secs) > 1 {
		ts.StdResponse = stat.StdDev(secs, nil)
	}
	ts.MaxResponse = floats.Max(secs)
	return ts
}

// busy ticks spent at one frequency
type FreqResidency struct {
	Frequency float64 `json:"frequency"`
	Ticks     Ttick   `json:"ticks"`
}

// residency in ascending frequency order and the tick-weighted average busy frequency
func residency(busy map[float64]Ttick) ([]FreqResidency, float64) {
	freqs := maps.Keys(busy)
	slices.Sort(freqs)
	res := make([]FreqResidency, 0, len(freqs))
	weights := make([]float64, 0, len(freqs))
	for _, f := range freqs {
		res = append(res, FreqResidency{f, busy[f]})
		weights = append(weights, float64(busy[f]))
	}
	if len(freqs) == 0 {
		return res, 0
	}
	return res, stat.Mean(freqs, weights)
}
