package edfsim

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// one periodic task; the same record is re-armed in place for every instance of the run
type Task struct {
	name   string
	wcet   Ttick
	period Ttick
	fmax   float64 // work is measured in ticks at this frequency

	deadline    Ttick // absolute deadline of the current instance
	nextArrival Ttick // absolute release of the current instance
	actual      Ttick // execution ticks of the current instance, drawn once per instance
	remaining   Tftick

	src rand.Source

	completions int
	misses      int
	responses   []float64 // completion minus release, in ticks
}

func newTask(def TaskDef, ticksPerSecond int, fmax float64, src rand.Source) (*Task, error) {
	if err := def.validate(ticksPerSecond); err != nil {
		return nil, err
	}
	wcet := secondsToTicks(def.ExecutionTime, ticksPerSecond)
	period := secondsToTicks(def.Period, ticksPerSecond)
	return &Task{
		name:        def.Name,
		wcet:        wcet,
		period:      period,
		fmax:        fmax,
		deadline:    period,
		nextArrival: 0,
		actual:      wcet,
		remaining:   Tftick(wcet),
		src:         src,
	}, nil
}

func (t *Task) String() string {
	return fmt.Sprintf("{%s wcet %v period %v dl %v arrival %v actual %v remaining %v}",
		t.name, t.wcet, t.period, t.deadline, t.nextArrival, t.actual, t.remaining)
}

// sets the execution ticks of the current instance. at 100%/100% the instance takes its full
// WCET, otherwise it is drawn uniformly from [minPct, maxPct] of the WCET, never below 1 tick.
func (t *Task) drawActualExecution(minPct, maxPct float64) {
	var exec float64
	if minPct >= NO_SLACK_PERCENT && maxPct >= NO_SLACK_PERCENT {
		exec = float64(t.wcet)
	} else {
		u := distuv.Uniform{Min: minPct / 100, Max: maxPct / 100, Src: t.src}
		exec = u.Rand() * float64(t.wcet)
	}
	t.actual = Ttick(math.Max(1, math.RoundToEven(exec)))
	t.remaining = Tftick(t.actual)
}

// runs the task for the given ticks at frequency freq. at fmax one tick retires one tick of
// work, at fmax/2 half of one. returns whether the instance completed.
func (t *Task) execute(ticks Tftick, freq float64) bool {
	workDone := ticks * Tftick(freq/t.fmax)
	t.remaining -= workDone
	if t.remaining <= 0 {
		t.remaining = 0
		return true
	}
	return false
}

// re-arms the task for its next period
func (t *Task) reset(minPct, maxPct float64) {
	t.drawActualExecution(minPct, maxPct)
	t.deadline += t.period
	t.nextArrival += t.period
}

func (t *Task) hasSlack() bool {
	return t.actual < t.wcet
}

func (t *Task) release() Ttick {
	return t.deadline - t.period
}

// EDF order
func (t *Task) before(other *Task) bool {
	return t.deadline < other.deadline
}
