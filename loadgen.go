package edfsim

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// one periodic task as the caller describes it, in seconds
type TaskDef struct {
	Name          string  `json:"name"`
	ExecutionTime float64 `json:"execution_time_sec"`
	Period        float64 `json:"period_sec"`
}

func (td TaskDef) String() string {
	return fmt.Sprintf("%s: Period=%vs, Execution Time=%vs", td.Name, td.Period, td.ExecutionTime)
}

func (td TaskDef) utilization() float64 {
	return td.ExecutionTime / td.Period
}

func (td TaskDef) validate(ticksPerSecond int) error {
	if td.Name == "" {
		return fmt.Errorf("task with no name: %w", ErrBadTask)
	}
	if !(td.ExecutionTime > 0) || !(td.Period > 0) {
		return fmt.Errorf("task %s (exec %vs, period %vs): %w", td.Name, td.ExecutionTime, td.Period, ErrBadTask)
	}
	if secondsToTicks(td.ExecutionTime, ticksPerSecond) < 1 || secondsToTicks(td.Period, ticksPerSecond) < 1 {
		return fmt.Errorf("task %s is shorter than one tick: %w", td.Name, ErrBadTask)
	}
	return nil
}

// ordered task definitions for one run
type TaskSet []TaskDef

func defaultTaskSet() TaskSet {
	return TaskSet{
		{"Task1", 10, 20},
		{"Task2", 5, 15},
	}
}

// Utilization is the sum of execution time over period.
func (ts TaskSet) Utilization() float64 {
	u := 0.0
	for _, td := range ts {
		u += td.utilization()
	}
	return u
}

// utilization after rounding to whole ticks, which is what a run actually schedules
func (ts TaskSet) tickUtilization(ticksPerSecond int) float64 {
	u := 0.0
	for _, td := range ts {
		u += float64(secondsToTicks(td.ExecutionTime, ticksPerSecond)) / float64(secondsToTicks(td.Period, ticksPerSecond))
	}
	return u
}

// Add appends a task named after its position in the set.
func (ts TaskSet) Add(execSec, periodSec float64) TaskSet {
	name := fmt.Sprintf("Task%d", len(ts)+1)
	return append(ts, TaskDef{name, execSec, periodSec})
}

func (ts TaskSet) Remove(i int) (TaskSet, error) {
	if i < 0 || i >= len(ts) {
		return ts, fmt.Errorf("no task at index %d: %w", i, ErrBadTask)
	}
	out := make(TaskSet, 0, len(ts)-1)
	out = append(out, ts[:i]...)
	return append(out, ts[i+1:]...), nil
}

func (ts TaskSet) validate(ticksPerSecond int) error {
	seen := make(map[string]bool, len(ts))
	for _, td := range ts {
		if err := td.validate(ticksPerSecond); err != nil {
			return err
		}
		if seen[td.Name] {
			return fmt.Errorf("duplicate task name %s: %w", td.Name, ErrBadTask)
		}
		seen[td.Name] = true
	}
	return nil
}

// ------------------------------------------------------------------------------------------------
// RANDOM TASK SETS
// ------------------------------------------------------------------------------------------------

// RandomTaskSet generates n tasks whose utilizations sum to util (UUniFast). periods are
// picked uniformly from the given list and execution times are floored to whole quanta,
// never below one quantum.
func RandomTaskSet(n int, util float64, periods []float64, quantum float64, src rand.Source) (TaskSet, error) {
	if n < 1 || len(periods) == 0 || !(util > 0) || !(quantum > 0) {
		return nil, fmt.Errorf("random task set (n %d, util %v, %d periods): %w", n, util, len(periods), ErrBadTask)
	}
	unif := distuv.Uniform{Min: 0, Max: 1, Src: src}

	utils := make([]float64, n)
	sumU := util
	for i := 0; i < n-1; i++ {
		next := sumU * math.Pow(unif.Rand(), 1/float64(n-i-1))
		utils[i] = sumU - next
		sumU = next
	}
	utils[n-1] = sumU

	ts := make(TaskSet, 0, n)
	for i, u := range utils {
		idx := int(unif.Rand() * float64(len(periods)))
		if idx >= len(periods) {
			idx = len(periods) - 1
		}
		period := periods[idx]
		exec := math.Max(quantum, math.Floor(u*period/quantum)*quantum)
		ts = append(ts, TaskDef{fmt.Sprintf("Task%d", i+1), exec, period})
	}
	return ts, nil
}
