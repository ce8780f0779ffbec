package edfsim

import (
	"github.com/go-logr/logr"
)

// SelectStaticFrequency returns the slowest operating point at which EDF can still schedule
// the task set: the lowest frequency at or above utilization x max frequency. a set with
// utilization over 1 gets the max operating point.
func SelectStaticFrequency(ts TaskSet, table FreqTable) OperatingPoint {
	return selectStaticFrequency(ts, table, logr.Discard())
}

func selectStaticFrequency(ts TaskSet, table FreqTable, log logr.Logger) OperatingPoint {
	utilization := ts.Utilization()
	maxOp := table.Max()
	if utilization > 1 {
		return maxOp
	}

	// the max entry always covers utilization x max for a valid set; only an unvalidated one
	// (NaN utilization) gets here without a match
	requiredFreq := utilization * maxOp.Frequency
	if op, ok := table.lowestAtLeast(requiredFreq); ok {
		return op
	}
	log.V(1).Info("no operating point covers the required frequency, using max", "utilization", utilization, "required", requiredFreq)
	return maxOp
}

// the CC-EDF floor: the static frequency when the set fits, max otherwise
func safeFrequency(ts TaskSet, table FreqTable, log logr.Logger) float64 {
	if ts.Utilization() <= 1 {
		return selectStaticFrequency(ts, table, log).Frequency
	}
	return table.Max().Frequency
}

// Hyperperiod is the least common multiple of the task periods, in ticks.
func Hyperperiod(ts TaskSet, ticksPerSecond int) Ttick {
	if len(ts) == 0 {
		return 0
	}
	h := secondsToTicks(ts[0].Period, ticksPerSecond)
	for _, td := range ts[1:] {
		h = lcm(h, secondsToTicks(td.Period, ticksPerSecond))
	}
	return h
}
