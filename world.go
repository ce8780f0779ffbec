package edfsim

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/markphelps/optional"
	"golang.org/x/exp/rand"
)

// the three schedules a task set is compared under
type Policy int

const (
	BASIC_EDF  Policy = iota // EDF at the max operating point
	STATIC_EDF               // EDF at the slowest operating point that keeps the set schedulable
	CC_EDF                   // cycle-conserving EDF, frequency picked every tick
)

var ALL_POLICIES = []Policy{BASIC_EDF, STATIC_EDF, CC_EDF}

func (p Policy) String() string {
	return []string{"Basic EDF", "Static EDF", "Cycle-Conserving EDF"}[p]
}

func (p Policy) key() string {
	return []string{"basic", "static", "cc"}[p]
}

func ParsePolicy(s string) (Policy, error) {
	for _, p := range ALL_POLICIES {
		if s == p.key() {
			return p, nil
		}
	}
	return 0, fmt.Errorf("policy %q: %w", s, ErrUnknownPolicy)
}

func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.key()), nil
}

func (p *Policy) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ------------------------------------------------------------------------------------------------
// WORLD
// ------------------------------------------------------------------------------------------------

type World struct {
	cfg      *Config
	policy   Policy
	tps      int
	endTick  Ttick
	tasks    []*Task // in task set order
	machine  *EDFMachine
	op       OperatingPoint // operating point when no frequency policy is consulted
	safeFreq float64
	fp       FreqPolicy
	minPct   float64
	maxPct   float64

	energy    float64
	idleTicks Ttick
	busyFreqs map[float64]Ttick
	trace     []TraceRow

	sink TraceSink
	log  logr.Logger
}

type Option func(*World)

func WithLogger(log logr.Logger) Option {
	return func(w *World) {
		w.log = log
	}
}

func WithSink(sink TraceSink) Option {
	return func(w *World) {
		w.sink = sink
	}
}

// NewWorld sets up one run of policy over a private copy of cfg. configuration errors are
// reported here; a world that was built always runs to the end of its horizon.
func NewWorld(cfg *Config, policy Policy, opts ...Option) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if policy < BASIC_EDF || policy > CC_EDF {
		return nil, fmt.Errorf("policy %d: %w", int(policy), ErrUnknownPolicy)
	}
	w := &World{
		cfg:       cfg.Clone(),
		policy:    policy,
		tps:       cfg.TicksPerSecond(),
		endTick:   cfg.DurationTicks(),
		tasks:     make([]*Task, 0, len(cfg.Tasks)),
		busyFreqs: make(map[float64]Ttick),
		trace:     make([]TraceRow, 0, cfg.DurationTicks()),
		log:       logr.Discard(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = w.log.WithName("world").WithValues("policy", policy.key())
	w.machine = newEDFMachine(w.log.WithName("edf"))

	table := w.cfg.Frequencies
	maxOp := table.Max()
	w.minPct, w.maxPct = NO_SLACK_PERCENT, NO_SLACK_PERCENT

	switch policy {
	case BASIC_EDF:
		w.op = maxOp
	case STATIC_EDF:
		w.op = selectStaticFrequency(w.cfg.Tasks, table, w.log)
	case CC_EDF:
		w.op = maxOp
		w.minPct, w.maxPct = w.cfg.MinPercent, w.cfg.MaxPercent
		w.safeFreq = safeFrequency(w.cfg.Tasks, table, w.log)
		w.fp = newCCEDF(table, w.cfg.IdlePower, w.safeFreq, w.log.WithName("ccedf"))
	}

	src := rand.NewSource(w.cfg.Seed)
	for _, td := range w.cfg.Tasks {
		t, err := newTask(td, w.tps, maxOp.Frequency, src)
		if err != nil {
			return nil, err
		}
		t.drawActualExecution(w.minPct, w.maxPct)
		w.tasks = append(w.tasks, t)
		w.machine.addPeriodicTask(t)
	}
	return w, nil
}

func (w *World) String() string {
	return fmt.Sprintf("%v: %v energy %.2fJ idle %v missed %d", w.policy, w.machine, w.energy, w.idleTicks, w.machine.numMissed)
}

func (w *World) seconds(t Ttick) float64 {
	return ticksToSeconds(t, w.tps)
}

// one quantum: arrivals, deadline misses, frequency, dispatch, execution, bookkeeping
func (w *World) Tick() {
	now := w.machine.currTick

	w.machine.admitArrivals(now)
	w.handleMisses(w.machine.retireMissed(now))

	op := w.op
	if w.fp != nil {
		op = w.fp.computeFrequency(w.machine, now)
	}

	row := TraceRow{Tick: now, Time: w.seconds(now)}
	if w.fp != nil {
		row.Frequency = optional.NewFloat64(op.Frequency)
	}

	if next := w.machine.dispatch(); next != nil {
		w.machine.running = next
		row.Task = next.name
		row.Deadline = optional.NewFloat64(w.seconds(next.deadline))
		row.Power = op.Power
		w.energy += op.Power * w.cfg.TimeQuantum
		w.busyFreqs[op.Frequency] += 1

		if next.execute(1, op.Frequency) {
			row.Completed = true
			w.complete(next, now)
		}
	} else {
		w.idleTicks += 1
		row.Task = IDLE_TASK
		row.Power = w.cfg.IdlePower
		w.energy += w.cfg.IdlePower * w.cfg.TimeQuantum
	}

	w.trace = append(w.trace, row)
	if w.sink != nil {
		w.sink.Row(w.policy, row)
	}
	w.machine.advance(1)
}

// the running task finished its instance during tick now
func (w *World) complete(t *Task, now Ttick) {
	t.completions += 1
	t.responses = append(t.responses, float64(now+1-t.release()))
	if w.fp != nil {
		w.fp.completed(t)
	}
	w.log.V(1).Info("task completed", "tick", now, "task", t.name, "actual", t.actual, "wcet", t.wcet)
	t.reset(w.minPct, w.maxPct)
	w.machine.addPeriodicTask(t)
	w.machine.running = nil
}

func (w *World) handleMisses(missed []*Task) {
	if w.cfg.MissPolicy == MISS_DROP {
		return
	}
	for _, t := range missed {
		t.reset(w.minPct, w.maxPct)
		w.machine.addPeriodicTask(t)
	}
}

// Run ticks until the horizon and returns the run's totals and trace.
func (w *World) Run() *Result {
	w.log.Info("simulation starting", "operatingPoint", w.op.String(), "ticks", w.endTick, "tasks", len(w.tasks))
	for w.machine.currTick < w.endTick {
		w.Tick()
	}
	res := w.result()
	if w.sink != nil {
		w.sink.Summary(w.policy, res.Summary())
	}
	w.log.Info("simulation done", "energy", res.Energy, "idle", res.IdleTime, "missed", res.Missed)
	return res
}

func (w *World) result() *Result {
	res := &Result{
		Policy:         w.policy,
		OperatingPoint: w.op,
		SafeFrequency:  w.safeFreq,
		Utilization:    w.cfg.Tasks.Utilization(),
		Energy:         w.energy,
		IdleTicks:      w.idleTicks,
		IdleTime:       float64(w.idleTicks) * w.cfg.TimeQuantum,
		Missed:         w.machine.numMissed,
		Tasks:          make([]TaskStats, 0, len(w.tasks)),
		Trace:          w.trace,
	}
	res.Residency, res.AvgFrequency = residency(w.busyFreqs)
	for _, t := range w.tasks {
		res.Tasks = append(res.Tasks, newTaskStats(t, w.tps))
	}
	return res
}

// ------------------------------------------------------------------------------------------------
// RESULTS
// ------------------------------------------------------------------------------------------------

type Result struct {
	Policy         Policy          `json:"policy"`
	OperatingPoint OperatingPoint  `json:"operating_point"`
	SafeFrequency  float64         `json:"safe_frequency,omitempty"`
	Utilization    float64         `json:"utilization"`
	Energy         float64         `json:"energy"` // J
	IdleTicks      Ttick           `json:"idle_ticks"`
	IdleTime       float64         `json:"idle_time"` // seconds
	Missed         int             `json:"missed"`
	AvgFrequency   float64         `json:"avg_frequency"` // over busy ticks
	Residency      []FreqResidency `json:"residency"`
	Tasks          []TaskStats     `json:"tasks"`
	Trace          []TraceRow      `json:"trace,omitempty"`
}

func (r *Result) Summary() SummaryRow {
	return SummaryRow{IdleTime: r.IdleTime, Missed: r.Missed}
}

func (r *Result) String() string {
	return fmt.Sprintf("%v: E=%.2fJ, Idle=%.2fs, Missed=%d", r.Policy, r.Energy, r.IdleTime, r.Missed)
}

// Simulate runs one policy over cfg.
func Simulate(cfg *Config, policy Policy, opts ...Option) (*Result, error) {
	w, err := NewWorld(cfg, policy, opts...)
	if err != nil {
		return nil, err
	}
	return w.Run(), nil
}

type Comparison struct {
	Utilization float64   `json:"utilization"`
	Hyperperiod Ttick     `json:"hyperperiod"`
	Results     []*Result `json:"results"`
}

// Compare runs every policy over the same configuration, each on its own copy of the task set.
func Compare(cfg *Config, opts ...Option) (*Comparison, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cmp := &Comparison{
		Utilization: cfg.Tasks.Utilization(),
		Hyperperiod: Hyperperiod(cfg.Tasks, cfg.TicksPerSecond()),
		Results:     make([]*Result, 0, len(ALL_POLICIES)),
	}
	for _, p := range ALL_POLICIES {
		res, err := Simulate(cfg, p, opts...)
		if err != nil {
			return nil, err
		}
		cmp.Results = append(cmp.Results, res)
	}
	return cmp, nil
}
