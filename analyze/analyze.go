// Package analyze computes derived statistics over parsed result
// records. Every function is pure: statistics are recomputed from the
// records on each call and there is no hidden state.
package analyze

import (
	"errors"
	"math"

	ccbench "cc-bench"
)

// ErrNoFlows is returned when statistics are requested for an empty flow
// set; the fairness index is undefined there and must not be faked with
// a numeric sentinel.
var ErrNoFlows = errors.New("no flow records")

// LossEpsilon is added to the loss-rate denominator in Compare so a
// zero-loss baseline yields a finite, directionally meaningful delta.
const LossEpsilon = 0.001

// Stats derives summary statistics from one configuration's flow set.
func Stats(flows []ccbench.FlowRecord) (ccbench.DerivedStatistics, error) {
	if len(flows) == 0 {
		return ccbench.DerivedStatistics{}, ErrNoFlows
	}

	var (
		sum        float64
		sumSquared float64
		sumLoss    float64
		min        = flows[0].ThroughputMbps
		max        = flows[0].ThroughputMbps
	)
	for _, f := range flows {
		t := f.ThroughputMbps
		sum += t
		sumSquared += t * t
		sumLoss += f.LossRatePercent
		if t < min {
			min = t
		}
		if t > max {
			max = t
		}
	}

	n := float64(len(flows))
	s := ccbench.DerivedStatistics{
		Sum:          sum,
		Mean:         sum / n,
		Min:          min,
		Max:          max,
		MeanLossRate: sumLoss / n,
	}
	// Jain's fairness index: (Σx)² / (n·Σx²). All-zero throughputs make
	// the denominator zero; report zero fairness rather than NaN.
	if sumSquared > 0 {
		s.Fairness = (sum * sum) / (n * sumSquared)
	}
	return s, nil
}

// Compare computes pairwise percentage deltas of b relative to baseline
// a: (b−a)/a × 100. The loss-rate baseline may legitimately be zero, so
// its denominator carries LossEpsilon.
func Compare(a, b ccbench.AggregateRecord) ccbench.ComparisonResult {
	return ccbench.ComparisonResult{
		ThroughputDeltaPct: percentDelta(a.TotalThroughputMbps, b.TotalThroughputMbps, 0),
		DelayDeltaPct:      percentDelta(a.AvgDelayMs, b.AvgDelayMs, 0),
		LossDeltaPct:       percentDelta(a.LossRatePercent, b.LossRatePercent, LossEpsilon),
	}
}

func percentDelta(a, b, epsilon float64) float64 {
	return (b - a) / (a + epsilon) * 100
}

// BiasRatio measures RTT unfairness: the first flow's throughput over
// the last flow's. The flow sequence is ordered from lowest to highest
// RTT class, so a ratio well above 1 means low-RTT flows dominate.
// Returns +Inf when the last flow's throughput is zero and NaN when
// there are fewer than two flows.
func BiasRatio(flows []ccbench.FlowRecord) float64 {
	if len(flows) < 2 {
		return math.NaN()
	}
	first := flows[0].ThroughputMbps
	last := flows[len(flows)-1].ThroughputMbps
	if last == 0 {
		return math.Inf(1)
	}
	return first / last
}

// BestFairness returns the name of the configuration with the highest
// fairness index, in declared order on ties. False when stats is empty.
func BestFairness(order []string, stats map[string]ccbench.DerivedStatistics) (string, bool) {
	return bestBy(order, stats, func(s ccbench.DerivedStatistics) float64 { return s.Fairness })
}

// BestTotalThroughput returns the name of the configuration with the
// highest summed throughput.
func BestTotalThroughput(order []string, stats map[string]ccbench.DerivedStatistics) (string, bool) {
	return bestBy(order, stats, func(s ccbench.DerivedStatistics) float64 { return s.Sum })
}

func bestBy(order []string, stats map[string]ccbench.DerivedStatistics, metric func(ccbench.DerivedStatistics) float64) (string, bool) {
	best := ""
	bestVal := math.Inf(-1)
	for _, name := range order {
		s, ok := stats[name]
		if !ok {
			continue
		}
		if v := metric(s); v > bestVal {
			best, bestVal = name, v
		}
	}
	return best, best != ""
}
