package ccbench

import (
	"fmt"
	"time"
)

// Configuration identifies one simulated scenario variant. The set of
// configurations for a pipeline run is fixed before the run starts and
// processed in declared order.
type Configuration struct {
	Name        string   `yaml:"name"`
	Variant     string   `yaml:"variant"`
	DurationSec int      `yaml:"duration_sec"`
	ExtraArgs   []string `yaml:"extra_args"`
}

// AggregateRecord is the one-row summary the simulator writes per
// configuration.
type AggregateRecord struct {
	Variant             string
	TotalThroughputMbps float64
	AvgThroughputMbps   float64
	AvgDelayMs          float64
	TotalLostPackets    int
	LossRatePercent     float64
	NumFlows            int
}

// FlowRecord is one per-flow result row. Flow IDs are unique within a
// configuration and row order corresponds to flow index, lowest RTT class
// first. Optional columns (RTT, loss rate, bytes) are zero when absent
// from the input.
type FlowRecord struct {
	Variant         string  `parquet:"name=variant, type=BYTE_ARRAY, convertedtype=UTF8"`
	FlowID          int32   `parquet:"name=flow_id, type=INT32"`
	RTTMs           int32   `parquet:"name=rtt_ms, type=INT32"`
	ThroughputMbps  float64 `parquet:"name=throughput_mbps, type=DOUBLE"`
	DelayMs         float64 `parquet:"name=delay_ms, type=DOUBLE"`
	LossRatePercent float64 `parquet:"name=loss_rate_pct, type=DOUBLE"`
	DataReceivedMB  float64 `parquet:"name=data_received_mb, type=DOUBLE"`
}

// TimeSeriesSample is one (time, value) point of a congestion-window
// trace. Samples arrive ordered by non-decreasing time.
type TimeSeriesSample struct {
	Time  float64
	Value float64
}

// DerivedStatistics are computed from the flow set of one configuration.
type DerivedStatistics struct {
	Sum  float64
	Mean float64
	Min  float64
	Max  float64

	// Fairness is Jain's index over flow throughputs, in (0, 1] for any
	// flow set with traffic; 0 when every flow reported zero throughput.
	Fairness     float64
	MeanLossRate float64
}

// ComparisonResult holds pairwise percentage deltas between two
// configurations' aggregate records.
type ComparisonResult struct {
	ThroughputDeltaPct float64
	DelayDeltaPct      float64
	LossDeltaPct       float64
}

// OutcomeState classifies how a simulator run ended.
type OutcomeState int

const (
	Completed OutcomeState = iota
	TimedOut
	Failed
	LaunchError
)

func (s OutcomeState) String() string {
	switch s {
	case Completed:
		return "completed"
	case TimedOut:
		return "timed out"
	case Failed:
		return "failed"
	case LaunchError:
		return "launch error"
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// Outcome is the result of one simulator invocation. It is a value, not
// an error: a failed or timed-out run is a normal, reportable result that
// never aborts the batch.
type Outcome struct {
	State    OutcomeState
	ExitCode int
	Err      error
	Elapsed  time.Duration
}

// OK reports whether the run completed and its results can be collected.
func (o Outcome) OK() bool {
	return o.State == Completed
}

func (o Outcome) String() string {
	switch o.State {
	case Failed:
		return fmt.Sprintf("failed (exit code %d)", o.ExitCode)
	case LaunchError:
		return fmt.Sprintf("launch error: %v", o.Err)
	default:
		return o.State.String()
	}
}
