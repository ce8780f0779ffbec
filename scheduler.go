package edfsim

import (
	"math"

	"github.com/go-logr/logr"
)

// consulted by the world once per tick, before dispatch, when the processor runs with DVFS
type FreqPolicy interface {
	computeFrequency(m *EDFMachine, now Ttick) OperatingPoint
	// told about every completed instance
	completed(t *Task)
}

// cycle-conserving EDF: full speed until some instance has finished early, then the lowest
// operating point that still covers the work due at the earliest deadline, never below the
// safe frequency
type CCEDF struct {
	table         FreqTable // ascending
	idlePower     float64
	safeFreq      float64
	slackObserved bool
	lastFreq      float64
	log           logr.Logger
}

func newCCEDF(table FreqTable, idlePower float64, safeFreq float64, log logr.Logger) *CCEDF {
	return &CCEDF{
		table:     table.Sorted(),
		idlePower: idlePower,
		safeFreq:  safeFreq,
		log:       log,
	}
}

func (cc *CCEDF) computeFrequency(m *EDFMachine, now Ttick) OperatingPoint {
	op := cc.pickFrequency(m, now)
	if op.Frequency != cc.lastFreq {
		cc.log.V(1).Info("frequency change", "tick", now, "from", cc.lastFreq, "to", op.Frequency, "power", op.Power)
		cc.lastFreq = op.Frequency
	}
	return op
}

func (cc *CCEDF) pickFrequency(m *EDFMachine, now Ttick) OperatingPoint {
	considered := m.considered()
	maxOp := cc.table[len(cc.table)-1]

	// nothing to run: slowest clock, idle power
	if len(considered) == 0 {
		return OperatingPoint{cc.table[0].Frequency, cc.idlePower}
	}

	dMin := considered[0].deadline
	for _, t := range considered[1:] {
		if t.deadline < dMin {
			dMin = t.deadline
		}
	}
	timeLeft := dMin - now
	if timeLeft <= 0 {
		return maxOp
	}

	totalWork := Tftick(0)
	for _, t := range considered {
		if t.deadline == dMin {
			totalWork += t.remaining
		}
	}

	if !cc.slackObserved {
		return maxOp
	}

	required := math.Max(float64(totalWork)/float64(timeLeft), cc.safeFreq)
	op, ok := cc.table.lowestAtLeast(required)
	if !ok {
		cc.log.V(1).Info("no operating point covers the required frequency, using max", "tick", now, "required", required)
		return maxOp
	}
	return op
}

func (cc *CCEDF) completed(t *Task) {
	if t.hasSlack() && !cc.slackObserved {
		cc.log.V(1).Info("slack observed", "task", t.name, "actual", t.actual, "wcet", t.wcet)
		cc.slackObserved = true
	}
}
