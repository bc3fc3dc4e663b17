// Package visualise renders the comparison charts: grouped per-flow bar
// charts, per-metric aggregate bar charts, and per-configuration
// congestion-window overlays. One parameterized routine serves every bar
// chart kind, so all charts share layout, colors and labeling.
//
// Rendering is best-effort by design: a configuration with no data is
// omitted from the chart, and a render failure is reported to the caller
// as an error to be downgraded to a warning, never a pipeline abort.
package visualise

import (
	"errors"
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	ccbench "cc-bench"
	"cc-bench/orchestrate"
)

// ErrNoData means no configuration had anything to draw.
var ErrNoData = errors.New("no data to render")

// FlowMetric selects which per-flow quantity a grouped bar chart shows.
type FlowMetric int

const (
	FlowThroughput FlowMetric = iota
	FlowDelay
	FlowLoss
)

func (m FlowMetric) title() string {
	switch m {
	case FlowDelay:
		return "Average Delay Comparison"
	case FlowLoss:
		return "Packet Loss Rate Comparison"
	default:
		return "Throughput Comparison"
	}
}

func (m FlowMetric) yLabel() string {
	switch m {
	case FlowDelay:
		return "Average Delay (ms)"
	case FlowLoss:
		return "Packet Loss Rate (%)"
	default:
		return "Throughput (Mbps)"
	}
}

func (m FlowMetric) chartKind() string {
	switch m {
	case FlowDelay:
		return "delay_comparison"
	case FlowLoss:
		return "loss_comparison"
	default:
		return "throughput_comparison"
	}
}

func (m FlowMetric) value(f ccbench.FlowRecord) float64 {
	switch m {
	case FlowDelay:
		return f.DelayMs
	case FlowLoss:
		return f.LossRatePercent
	default:
		return f.ThroughputMbps
	}
}

// AggregateMetric selects which aggregate quantity a bar chart shows.
type AggregateMetric int

const (
	AggTotalThroughput AggregateMetric = iota
	AggAvgDelay
	AggLossRate
)

func (m AggregateMetric) title() string {
	switch m {
	case AggAvgDelay:
		return "Average Delay"
	case AggLossRate:
		return "Packet Loss Rate"
	default:
		return "Total Throughput"
	}
}

func (m AggregateMetric) yLabel() string {
	switch m {
	case AggAvgDelay:
		return "Average Delay (ms)"
	case AggLossRate:
		return "Packet Loss Rate (%)"
	default:
		return "Total Throughput (Mbps)"
	}
}

func (m AggregateMetric) chartKind() string {
	switch m {
	case AggAvgDelay:
		return "aggregate_avg_delay"
	case AggLossRate:
		return "aggregate_loss_rate"
	default:
		return "aggregate_total_throughput"
	}
}

func (m AggregateMetric) format() string {
	if m == AggAvgDelay {
		return "%.1f"
	}
	return "%.2f"
}

func (m AggregateMetric) value(r ccbench.AggregateRecord) float64 {
	switch m {
	case AggAvgDelay:
		return r.AvgDelayMs
	case AggLossRate:
		return r.LossRatePercent
	default:
		return r.TotalThroughputMbps
	}
}

// AggregateMetrics lists every aggregate chart rendered per run.
var AggregateMetrics = []AggregateMetric{AggTotalThroughput, AggAvgDelay, AggLossRate}

// Renderer writes chart artifacts under the run's output directory.
type Renderer struct {
	Paths orchestrate.Paths
}

// PerFlowBars renders one grouped bar chart comparing a per-flow metric
// across configurations, flows on the X axis grouped by position.
// Configurations without flow data are omitted. Returns the artifact
// path written.
func (r *Renderer) PerFlowBars(metric FlowMetric, order []string, flows map[string][]ccbench.FlowRecord) (string, error) {
	present := presentNames(order, func(name string) bool { return len(flows[name]) > 0 })
	if len(present) == 0 {
		return "", ErrNoData
	}

	numFlows := 0
	for _, name := range present {
		if n := len(flows[name]); n > numFlows {
			numFlows = n
		}
	}

	p := plot.New()
	p.Title.Text = metric.title()
	p.Y.Label.Text = metric.yLabel()
	p.Add(plotter.NewGrid())

	w := groupBarWidth(len(present))
	for i, name := range present {
		values := make(plotter.Values, numFlows)
		for j, f := range flows[name] {
			values[j] = metric.value(f)
		}
		bar, err := plotter.NewBarChart(values, w)
		if err != nil {
			return "", fmt.Errorf("failed to build bar chart: %w", err)
		}
		bar.Color = plotutil.Color(i)
		bar.LineStyle.Width = vg.Length(0)
		bar.Offset = barOffset(i, len(present), w)
		p.Add(bar)
		p.Legend.Add(name, bar)
	}
	p.Legend.Top = true
	p.NominalX(flowLabels(flows[present[0]], numFlows)...)

	out := r.Paths.Chart(metric.chartKind())
	if err := p.Save(8*vg.Inch, 4*vg.Inch, out); err != nil {
		return "", fmt.Errorf("failed to save chart: %w", err)
	}
	return out, nil
}

// AggregateBars renders one single-series bar chart per aggregate
// metric, one bar per configuration, each bar annotated with the exact
// value it is drawn from. Returns the artifact paths written.
func (r *Renderer) AggregateBars(order []string, recs map[string]ccbench.AggregateRecord) ([]string, error) {
	present := presentNames(order, func(name string) bool { _, ok := recs[name]; return ok })
	if len(present) == 0 {
		return nil, ErrNoData
	}

	var artifacts []string
	for _, metric := range AggregateMetrics {
		values := make(plotter.Values, len(present))
		for i, name := range present {
			values[i] = metric.value(recs[name])
		}
		out, err := r.singleBars(metric.chartKind(), metric.title(), metric.yLabel(), metric.format(), present, values)
		if err != nil {
			return artifacts, err
		}
		artifacts = append(artifacts, out)
	}
	return artifacts, nil
}

// singleBars draws one bar per name with a numeric label above each bar.
// The labels come from the same values slice the bars are drawn from.
func (r *Renderer) singleBars(kind, title, yLabel, format string, names []string, values plotter.Values) (string, error) {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())

	bar, err := plotter.NewBarChart(values, vg.Points(40))
	if err != nil {
		return "", fmt.Errorf("failed to build bar chart: %w", err)
	}
	bar.Color = plotutil.Color(0)
	bar.LineStyle.Width = vg.Length(0)
	p.Add(bar)
	p.NominalX(names...)

	labels := plotter.XYLabels{
		XYs:    make(plotter.XYs, len(values)),
		Labels: make([]string, len(values)),
	}
	for i, v := range values {
		labels.XYs[i] = plotter.XY{X: float64(i), Y: v}
		labels.Labels[i] = fmt.Sprintf(format, v)
	}
	annot, err := plotter.NewLabels(labels)
	if err != nil {
		return "", fmt.Errorf("failed to build bar labels: %w", err)
	}
	p.Add(annot)

	out := r.Paths.Chart(kind)
	if err := p.Save(6*vg.Inch, 4*vg.Inch, out); err != nil {
		return "", fmt.Errorf("failed to save chart: %w", err)
	}
	return out, nil
}

// CwndOverlay renders one line chart overlaying a configuration's
// congestion-window traces, one series per flow. Flows with no samples
// are omitted. Returns the artifact path written.
func (r *Renderer) CwndOverlay(name string, flowIDs []int32, series map[int32][]ccbench.TimeSeriesSample) (string, error) {
	p := plot.New()
	p.Title.Text = "Congestion Window Evolution: " + name
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Congestion Window"
	p.Add(plotter.NewGrid())

	drawn := 0
	for i, id := range flowIDs {
		samples := series[id]
		if len(samples) == 0 {
			continue
		}
		xys := make(plotter.XYs, len(samples))
		for j, s := range samples {
			xys[j] = plotter.XY{X: s.Time, Y: s.Value}
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return "", fmt.Errorf("failed to build cwnd line: %w", err)
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("Flow %d", id), line)
		drawn++
	}
	if drawn == 0 {
		return "", ErrNoData
	}
	p.Legend.Top = true

	out := r.Paths.Chart(name + "_cwnd_progress")
	if err := p.Save(8*vg.Inch, 5*vg.Inch, out); err != nil {
		return "", fmt.Errorf("failed to save chart: %w", err)
	}
	return out, nil
}

func presentNames(order []string, ok func(string) bool) []string {
	var present []string
	for _, name := range order {
		if ok(name) {
			present = append(present, name)
		}
	}
	return present
}

// flowLabels names the X-axis groups by RTT class when the input carried
// one, by flow id otherwise.
func flowLabels(flows []ccbench.FlowRecord, numFlows int) []string {
	labels := make([]string, numFlows)
	for i := range labels {
		labels[i] = fmt.Sprintf("Flow %d", i)
	}
	for i, f := range flows {
		if f.RTTMs > 0 {
			labels[i] = fmt.Sprintf("%dms", f.RTTMs)
		} else {
			labels[i] = fmt.Sprintf("Flow %d", f.FlowID)
		}
	}
	return labels
}

func groupBarWidth(groups int) vg.Length {
	w := vg.Points(40) / vg.Length(groups)
	if w > vg.Points(25) {
		w = vg.Points(25)
	}
	return w
}

func barOffset(i, groups int, w vg.Length) vg.Length {
	return w * vg.Length(float64(i)-float64(groups)/2+0.5)
}
