// Package pipeline sequences the experiment: run every configuration
// through the simulator, collect whichever result files exist, compute
// comparative statistics, and render charts. Failures accumulate as
// warnings in the final report; the only fatal condition is zero
// configurations producing usable aggregate data, and even that is
// reported, not panicked.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	ccbench "cc-bench"
	"cc-bench/analyze"
	"cc-bench/logger"
	"cc-bench/orchestrate"
	"cc-bench/parse"
	"cc-bench/storage"
	"cc-bench/visualise"
)

// State is the driver's position in the pipeline. Transitions are
// strictly sequential; there is no concurrency anywhere in a batch, since
// the simulator owns the shared output directory while it runs.
type State int

const (
	Idle State = iota
	Running
	Collecting
	Analyzing
	Rendering
	Done
	PartialDone
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Collecting:
		return "collecting"
	case Analyzing:
		return "analyzing"
	case Rendering:
		return "rendering"
	case Done:
		return "done"
	case PartialDone:
		return "partial"
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// Runner abstracts the simulator invocation so tests can substitute a
// fake. *orchestrate.Runner satisfies it.
type Runner interface {
	Run(ctx context.Context, cfg ccbench.Configuration) ccbench.Outcome
}

// VariantResult carries everything collected and derived for one
// configuration.
type VariantResult struct {
	Config    ccbench.Configuration
	Outcome   ccbench.Outcome
	Aggregate *ccbench.AggregateRecord
	Flows     []ccbench.FlowRecord
	Stats     *ccbench.DerivedStatistics
	Bias      float64
	FlowIDs   []int32
	Cwnd      map[int32][]ccbench.TimeSeriesSample
}

// Usable reports whether the configuration can appear in aggregate
// comparisons.
func (v *VariantResult) Usable() bool {
	return v.Aggregate != nil
}

// complete reports whether everything expected of the configuration
// arrived and parsed.
func (v *VariantResult) complete() bool {
	return v.Outcome.OK() && v.Aggregate != nil && len(v.Flows) > 0
}

// Report is the terminal result of one pipeline run. Results keep the
// declared configuration order.
type Report struct {
	State         State
	Results       []*VariantResult
	Comparison    *ccbench.ComparisonResult
	BaselineName  string
	CandidateName string
	Warnings      []string
	Artifacts     []string
}

// UsableCount is the number of configurations with a parsed aggregate.
func (r *Report) UsableCount() int {
	n := 0
	for _, vr := range r.Results {
		if vr.Usable() {
			n++
		}
	}
	return n
}

// Driver owns one batch run. Renderer, Archive and Exporter are
// optional; a nil Renderer degrades the pipeline to text-only output.
type Driver struct {
	Runner   Runner
	Paths    orchestrate.Paths
	Renderer *visualise.Renderer
	Archive  *storage.ArchiveWriter
	Exporter *storage.Exporter
	Configs  []ccbench.Configuration
	// SkipSim reprocesses existing result files without invoking the
	// simulator.
	SkipSim bool
}

// Run drives the batch to a terminal state. It always returns a report;
// the caller decides the exit code from Report.UsableCount.
func (d *Driver) Run(ctx context.Context) *Report {
	rep := &Report{State: Idle}
	for _, cfg := range d.Configs {
		rep.Results = append(rep.Results, &VariantResult{
			Config: cfg,
			Cwnd:   make(map[int32][]ccbench.TimeSeriesSample),
		})
	}

	d.runAll(ctx, rep)
	d.collect(rep)
	d.analyzeAll(rep)
	d.render(rep)
	d.finish(rep)
	return rep
}

func (d *Driver) transition(rep *Report, next State) {
	logger.Debug("pipeline state", zap.String("from", rep.State.String()), zap.String("to", next.String()))
	rep.State = next
}

func (d *Driver) warn(rep *Report, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	rep.Warnings = append(rep.Warnings, msg)
	logger.Warn(msg)
}

// runAll attempts every configuration in declared order, each to
// completion before the next begins. Individual failures never abort the
// batch.
func (d *Driver) runAll(ctx context.Context, rep *Report) {
	d.transition(rep, Running)
	if d.SkipSim {
		logger.Info("skipping simulations, reprocessing existing results")
		return
	}

	for _, vr := range rep.Results {
		vr.Outcome = d.Runner.Run(ctx, vr.Config)
		if d.Exporter != nil {
			d.Exporter.RecordRun(vr.Config.Name, vr.Outcome.State.String(), vr.Outcome.Elapsed.Seconds())
		}
		if vr.Outcome.OK() {
			logger.Info("simulation completed",
				zap.String("configuration", vr.Config.Name),
				zap.Duration("elapsed", vr.Outcome.Elapsed))
		} else {
			d.warn(rep, "simulation %s: %s", vr.Config.Name, vr.Outcome)
		}
	}
}

// collect parses whichever output files exist for configurations whose
// run completed (or for all of them when the simulator was skipped).
func (d *Driver) collect(rep *Report) {
	d.transition(rep, Collecting)

	for _, vr := range rep.Results {
		if !vr.Outcome.OK() {
			// The run failed; its files are stale or absent.
			continue
		}
		name := vr.Config.Name

		agg, err := parse.Aggregate(d.Paths.Aggregate(name))
		switch {
		case errors.Is(err, parse.ErrNotFound):
			d.warn(rep, "missing aggregate results for %s", name)
		case err != nil:
			d.warn(rep, "unusable aggregate results for %s: %v", name, err)
		default:
			vr.Aggregate = &agg
			if d.Exporter != nil {
				d.Exporter.RecordParse(name, "aggregate", 1, 0)
			}
		}

		flows, skipped, err := parse.Flows(d.Paths.PerFlow(name))
		switch {
		case errors.Is(err, parse.ErrNotFound):
			d.warn(rep, "missing per-flow results for %s", name)
		case err != nil:
			d.warn(rep, "unusable per-flow results for %s: %v", name, err)
		default:
			vr.Flows = flows
			if d.Exporter != nil {
				d.Exporter.RecordParse(name, "perflow", len(flows), skipped)
			}
		}

		if vr.Aggregate != nil && len(vr.Flows) > 0 && vr.Aggregate.NumFlows != len(vr.Flows) {
			d.warn(rep, "%s: aggregate reports %d flows but %d per-flow rows parsed",
				name, vr.Aggregate.NumFlows, len(vr.Flows))
		}

		d.collectTraces(rep, vr)
		d.archiveFlows(rep, vr)
	}
}

func (d *Driver) collectTraces(rep *Report, vr *VariantResult) {
	name := vr.Config.Name
	for _, f := range vr.Flows {
		samples, skipped, err := parse.TimeSeries(d.Paths.Cwnd(name, f.FlowID))
		switch {
		case errors.Is(err, parse.ErrNotFound):
			// Traces are optional per flow.
		case err != nil:
			d.warn(rep, "unusable cwnd trace for %s flow %d: %v", name, f.FlowID, err)
		default:
			vr.Cwnd[f.FlowID] = samples
			vr.FlowIDs = append(vr.FlowIDs, f.FlowID)
			if d.Exporter != nil {
				d.Exporter.RecordParse(name, "cwnd", len(samples), skipped)
			}
		}
	}
}

func (d *Driver) archiveFlows(rep *Report, vr *VariantResult) {
	if d.Archive == nil {
		return
	}
	for _, f := range vr.Flows {
		f.Variant = vr.Config.Name
		if err := d.Archive.WriteFlow(f); err != nil {
			d.warn(rep, "failed to archive flow records for %s: %v", vr.Config.Name, err)
			return
		}
	}
}

// analyzeAll computes derived statistics for configurations with flow
// data and the pairwise comparison between the first two usable
// aggregates in declared order.
func (d *Driver) analyzeAll(rep *Report) {
	d.transition(rep, Analyzing)

	for _, vr := range rep.Results {
		if len(vr.Flows) == 0 {
			continue
		}
		stats, err := analyze.Stats(vr.Flows)
		if err != nil {
			// Unreachable with non-empty flows; belt for future edits.
			d.warn(rep, "statistics for %s: %v", vr.Config.Name, err)
			continue
		}
		vr.Stats = &stats
		vr.Bias = analyze.BiasRatio(vr.Flows)
	}

	var usable []*VariantResult
	for _, vr := range rep.Results {
		if vr.Usable() {
			usable = append(usable, vr)
		}
	}
	if len(usable) >= 2 {
		cmp := analyze.Compare(*usable[0].Aggregate, *usable[1].Aggregate)
		rep.Comparison = &cmp
		rep.BaselineName = usable[0].Config.Name
		rep.CandidateName = usable[1].Config.Name
	}
}

// render writes the chart artifacts. Any render failure degrades to a
// warning and text-only output.
func (d *Driver) render(rep *Report) {
	d.transition(rep, Rendering)

	if rep.UsableCount() == 0 {
		d.warn(rep, "no usable results; skipping chart rendering")
		return
	}
	if d.Renderer == nil {
		logger.Info("chart rendering disabled, producing text summary only")
		return
	}

	order := make([]string, 0, len(rep.Results))
	aggs := make(map[string]ccbench.AggregateRecord)
	flows := make(map[string][]ccbench.FlowRecord)
	for _, vr := range rep.Results {
		order = append(order, vr.Config.Name)
		if vr.Aggregate != nil {
			aggs[vr.Config.Name] = *vr.Aggregate
		}
		if len(vr.Flows) > 0 {
			flows[vr.Config.Name] = vr.Flows
		}
	}

	arts, err := d.Renderer.AggregateBars(order, aggs)
	rep.Artifacts = append(rep.Artifacts, arts...)
	if err != nil && !errors.Is(err, visualise.ErrNoData) {
		d.warn(rep, "aggregate charts unavailable: %v", err)
	}

	for _, metric := range []visualise.FlowMetric{visualise.FlowThroughput, visualise.FlowDelay, visualise.FlowLoss} {
		art, err := d.Renderer.PerFlowBars(metric, order, flows)
		if err != nil {
			if !errors.Is(err, visualise.ErrNoData) {
				d.warn(rep, "per-flow chart unavailable: %v", err)
			}
			continue
		}
		rep.Artifacts = append(rep.Artifacts, art)
	}

	for _, vr := range rep.Results {
		if len(vr.Cwnd) == 0 {
			continue
		}
		art, err := d.Renderer.CwndOverlay(vr.Config.Name, vr.FlowIDs, vr.Cwnd)
		if err != nil {
			if !errors.Is(err, visualise.ErrNoData) {
				d.warn(rep, "cwnd chart for %s unavailable: %v", vr.Config.Name, err)
			}
			continue
		}
		rep.Artifacts = append(rep.Artifacts, art)
	}
}

func (d *Driver) finish(rep *Report) {
	complete := true
	for _, vr := range rep.Results {
		if d.SkipSim {
			// Without fresh runs, completeness means everything parsed.
			complete = complete && vr.Aggregate != nil && len(vr.Flows) > 0
		} else {
			complete = complete && vr.complete()
		}
	}

	if complete {
		d.transition(rep, Done)
	} else {
		d.transition(rep, PartialDone)
	}
	if rep.UsableCount() == 0 {
		d.warn(rep, "no configuration produced usable aggregate data")
	}
	logger.Info("pipeline finished",
		zap.String("state", rep.State.String()),
		zap.Int("usable", rep.UsableCount()),
		zap.Int("warnings", len(rep.Warnings)))
}
