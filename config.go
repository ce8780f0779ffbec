package edfsim

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// defaults for a run; a Config built by DefaultConfig starts from these
const (
	TIME_QUANTUM                = 0.1 // seconds per tick
	SIMULATION_DURATION_SECONDS = 100
	IDLE_POWER                  = 15 // W

	// range of the actual execution time, as a percentage of WCET, drawn per instance under CC-EDF
	CC_EDF_MIN_PERCENT = 50
	CC_EDF_MAX_PERCENT = 80

	// percentages that disable the actual execution time draw
	NO_SLACK_PERCENT = 100
)

var (
	ErrEmptyFreqTable  = errors.New("frequency table is empty")
	ErrBadFrequency    = errors.New("invalid operating point")
	ErrBadPercentRange = errors.New("invalid execution time percentage range")
	ErrBadTask         = errors.New("invalid task")
	ErrBadQuantum      = errors.New("invalid time quantum")
	ErrBadDuration     = errors.New("invalid simulation duration")
	ErrUnknownPolicy   = errors.New("unknown scheduling policy")
)

// ------------------------------------------------------------------------------------------------
// FREQUENCY TABLE
// ------------------------------------------------------------------------------------------------

type OperatingPoint struct {
	Frequency float64 `json:"frequency"` // GHz
	Power     float64 `json:"power"`     // W
}

func (op OperatingPoint) String() string {
	return fmt.Sprintf("%v GHz @ %v W", op.Frequency, op.Power)
}

// available (frequency, power) pairs; order does not matter, a later entry for the same
// frequency wins
type FreqTable []OperatingPoint

func defaultFreqTable() FreqTable {
	return FreqTable{
		{1.0, 30},
		{1.5, 45},
		{1.75, 60},
		{2.0, 90},
	}
}

func (ft FreqTable) powerByFreq() map[float64]float64 {
	m := make(map[float64]float64, len(ft))
	for _, op := range ft {
		m[op.Frequency] = op.Power
	}
	return m
}

// Sorted returns the table deduplicated and in ascending frequency order.
func (ft FreqTable) Sorted() FreqTable {
	power := ft.powerByFreq()
	freqs := maps.Keys(power)
	slices.Sort(freqs)
	sorted := make(FreqTable, 0, len(freqs))
	for _, f := range freqs {
		sorted = append(sorted, OperatingPoint{f, power[f]})
	}
	return sorted
}

func (ft FreqTable) Max() OperatingPoint {
	sorted := ft.Sorted()
	return sorted[len(sorted)-1]
}

func (ft FreqTable) Min() OperatingPoint {
	return ft.Sorted()[0]
}

// lowest entry whose frequency is at least f, scanning in ascending order
func (ft FreqTable) lowestAtLeast(f float64) (OperatingPoint, bool) {
	for _, op := range ft.Sorted() {
		if op.Frequency >= f {
			return op, true
		}
	}
	return OperatingPoint{}, false
}

// With returns a copy of the table with op added, replacing any entry at the same frequency.
func (ft FreqTable) With(op OperatingPoint) FreqTable {
	return append(ft.Without(op.Frequency), op)
}

// Without returns a copy of the table with the entry at freq removed.
func (ft FreqTable) Without(freq float64) FreqTable {
	out := make(FreqTable, 0, len(ft))
	for _, op := range ft {
		if op.Frequency != freq {
			out = append(out, op)
		}
	}
	return out
}

func (ft FreqTable) Validate() error {
	if len(ft) == 0 {
		return ErrEmptyFreqTable
	}
	for _, op := range ft {
		if !(op.Frequency > 0) || !(op.Power > 0) {
			return fmt.Errorf("operating point %v: %w", op, ErrBadFrequency)
		}
	}
	return nil
}

// ------------------------------------------------------------------------------------------------
// MISS POLICY
// ------------------------------------------------------------------------------------------------

// what happens to a task whose ready instance is found past its deadline
type MissPolicy int

const (
	MISS_DROP  MissPolicy = iota // the task takes no further part in the run
	MISS_REARM                   // discard the instance, re-arm the task for its next period
)

func (mp MissPolicy) String() string {
	if mp < MISS_DROP || mp > MISS_REARM {
		return fmt.Sprintf("MissPolicy(%d)", int(mp))
	}
	return []string{"drop", "rearm"}[mp]
}

func (mp MissPolicy) MarshalText() ([]byte, error) {
	return []byte(mp.String()), nil
}

func (mp *MissPolicy) UnmarshalText(text []byte) error {
	switch string(text) {
	case "drop", "":
		*mp = MISS_DROP
	case "rearm":
		*mp = MISS_REARM
	default:
		return fmt.Errorf("miss policy %q: %w", text, ErrUnknownPolicy)
	}
	return nil
}

// ------------------------------------------------------------------------------------------------
// RUN CONFIGURATION
// ------------------------------------------------------------------------------------------------

// Config is read once per run. Edits between runs go through a new value.
type Config struct {
	TimeQuantum     float64    `json:"time_quantum"`
	DurationSeconds float64    `json:"duration_seconds"`
	Frequencies     FreqTable  `json:"frequencies"`
	IdlePower       float64    `json:"idle_power"`
	MinPercent      float64    `json:"min_percent"`
	MaxPercent      float64    `json:"max_percent"`
	Seed            uint64     `json:"seed"`
	MissPolicy      MissPolicy `json:"miss_policy"`
	Tasks           TaskSet    `json:"tasks"`
}

func DefaultConfig() *Config {
	return &Config{
		TimeQuantum:     TIME_QUANTUM,
		DurationSeconds: SIMULATION_DURATION_SECONDS,
		Frequencies:     defaultFreqTable(),
		IdlePower:       IDLE_POWER,
		MinPercent:      CC_EDF_MIN_PERCENT,
		MaxPercent:      CC_EDF_MAX_PERCENT,
		Seed:            1,
		MissPolicy:      MISS_DROP,
		Tasks:           defaultTaskSet(),
	}
}

// LoadConfig reads a JSON file on top of the defaults and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// UnmarshalJSON overlays data on c. a key that is present replaces the whole field, so an
// array element never inherits values from the element it replaces; frequencies and tasks
// keep their current value only when the key is absent.
func (c *Config) UnmarshalJSON(data []byte) error {
	type plain Config
	frequencies, tasks := c.Frequencies, c.Tasks
	c.Frequencies, c.Tasks = nil, nil
	err := json.Unmarshal(data, (*plain)(c))
	if c.Frequencies == nil {
		c.Frequencies = frequencies
	}
	if c.Tasks == nil {
		c.Tasks = tasks
	}
	return err
}

func (c *Config) TicksPerSecond() int {
	return int(math.RoundToEven(1 / c.TimeQuantum))
}

func (c *Config) DurationTicks() Ttick {
	return secondsToTicks(c.DurationSeconds, c.TicksPerSecond())
}

func (c *Config) Validate() error {
	if !(c.TimeQuantum > 0) || c.TicksPerSecond() < 1 {
		return fmt.Errorf("quantum %v: %w", c.TimeQuantum, ErrBadQuantum)
	}
	if !(c.DurationSeconds > 0) || c.DurationTicks() < 1 {
		return fmt.Errorf("duration %vs: %w", c.DurationSeconds, ErrBadDuration)
	}
	if err := c.Frequencies.Validate(); err != nil {
		return err
	}
	if c.IdlePower < 0 || math.IsNaN(c.IdlePower) {
		return fmt.Errorf("idle power %v: %w", c.IdlePower, ErrBadFrequency)
	}
	if math.IsNaN(c.MinPercent) || math.IsNaN(c.MaxPercent) ||
		c.MinPercent < 0 || c.MaxPercent > NO_SLACK_PERCENT || c.MinPercent > c.MaxPercent {
		return fmt.Errorf("[%v%%, %v%%]: %w", c.MinPercent, c.MaxPercent, ErrBadPercentRange)
	}
	if c.MissPolicy < MISS_DROP || c.MissPolicy > MISS_REARM {
		return fmt.Errorf("miss policy %d: %w", int(c.MissPolicy), ErrUnknownPolicy)
	}
	return c.Tasks.validate(c.TicksPerSecond())
}

// Clone returns a copy that shares nothing with c.
func (c *Config) Clone() *Config {
	cp := *c
	cp.Frequencies = slices.Clone(c.Frequencies)
	cp.Tasks = slices.Clone(c.Tasks)
	return &cp
}
