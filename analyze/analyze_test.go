package analyze

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ccbench "cc-bench"
)

func flowsWithThroughput(values ...float64) []ccbench.FlowRecord {
	flows := make([]ccbench.FlowRecord, len(values))
	for i, v := range values {
		flows[i] = ccbench.FlowRecord{FlowID: int32(i), ThroughputMbps: v}
	}
	return flows
}

func TestStatsFairness(t *testing.T) {
	tests := []struct {
		name        string
		throughputs []float64
		exact       float64
		below       float64
	}{
		{name: "equal flows are perfectly fair", throughputs: []float64{5, 5, 5}, exact: 1.0},
		{name: "one dominant flow is unfair", throughputs: []float64{1, 1, 1, 7}, below: 1.0},
		{name: "known value", throughputs: []float64{1, 2, 3}, exact: 36.0 / 42.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats, err := Stats(flowsWithThroughput(tt.throughputs...))
			require.NoError(t, err)

			assert.Greater(t, stats.Fairness, 0.0)
			assert.LessOrEqual(t, stats.Fairness, 1.0)
			if tt.below > 0 {
				assert.Less(t, stats.Fairness, tt.below)
			} else {
				assert.InDelta(t, tt.exact, stats.Fairness, 1e-9)
			}
		})
	}
}

func TestStatsSummary(t *testing.T) {
	flows := []ccbench.FlowRecord{
		{FlowID: 0, ThroughputMbps: 1, LossRatePercent: 2},
		{FlowID: 1, ThroughputMbps: 2, LossRatePercent: 4},
		{FlowID: 2, ThroughputMbps: 3, LossRatePercent: 0},
	}

	stats, err := Stats(flows)
	require.NoError(t, err)

	assert.InDelta(t, 6.0, stats.Sum, 1e-9)
	assert.InDelta(t, 2.0, stats.Mean, 1e-9)
	assert.InDelta(t, 1.0, stats.Min, 1e-9)
	assert.InDelta(t, 3.0, stats.Max, 1e-9)
	assert.InDelta(t, 2.0, stats.MeanLossRate, 1e-9)
}

func TestStatsEmptyFlowSet(t *testing.T) {
	_, err := Stats(nil)
	require.ErrorIs(t, err, ErrNoFlows)
}

func TestStatsAllZeroThroughput(t *testing.T) {
	stats, err := Stats(flowsWithThroughput(0, 0))
	require.NoError(t, err)
	assert.Zero(t, stats.Fairness)
}

func TestCompare(t *testing.T) {
	a := ccbench.AggregateRecord{TotalThroughputMbps: 10.0, AvgDelayMs: 20.0, LossRatePercent: 1.0}
	b := ccbench.AggregateRecord{TotalThroughputMbps: 12.0, AvgDelayMs: 18.0, LossRatePercent: 0.5}

	cmp := Compare(a, b)
	assert.InDelta(t, 20.0, cmp.ThroughputDeltaPct, 1e-9)
	assert.InDelta(t, -10.0, cmp.DelayDeltaPct, 1e-9)
	assert.InDelta(t, -50.0, cmp.LossDeltaPct, 0.1)
}

func TestCompareSelfIsZero(t *testing.T) {
	a := ccbench.AggregateRecord{TotalThroughputMbps: 7.5, AvgDelayMs: 33.0, LossRatePercent: 0.25}

	cmp := Compare(a, a)
	assert.Zero(t, cmp.ThroughputDeltaPct)
	assert.Zero(t, cmp.DelayDeltaPct)
	assert.Zero(t, cmp.LossDeltaPct)
}

func TestCompareZeroLossBaseline(t *testing.T) {
	a := ccbench.AggregateRecord{TotalThroughputMbps: 10, AvgDelayMs: 10, LossRatePercent: 0}
	b := ccbench.AggregateRecord{TotalThroughputMbps: 10, AvgDelayMs: 10, LossRatePercent: 1}

	cmp := Compare(a, b)
	assert.False(t, math.IsInf(cmp.LossDeltaPct, 0))
	assert.Greater(t, cmp.LossDeltaPct, 0.0)
}

func TestBiasRatio(t *testing.T) {
	assert.InDelta(t, 3.0, BiasRatio(flowsWithThroughput(3, 2, 1)), 1e-9)
	assert.True(t, math.IsInf(BiasRatio(flowsWithThroughput(3, 0)), 1))
	assert.True(t, math.IsNaN(BiasRatio(flowsWithThroughput(3))))
	assert.True(t, math.IsNaN(BiasRatio(nil)))
}

func TestBestBy(t *testing.T) {
	order := []string{"A", "B", "C"}
	stats := map[string]ccbench.DerivedStatistics{
		"A": {Sum: 10, Fairness: 0.8},
		"B": {Sum: 12, Fairness: 0.95},
	}

	name, ok := BestFairness(order, stats)
	require.True(t, ok)
	assert.Equal(t, "B", name)

	name, ok = BestTotalThroughput(order, stats)
	require.True(t, ok)
	assert.Equal(t, "B", name)

	_, ok = BestFairness(order, nil)
	assert.False(t, ok)
}
