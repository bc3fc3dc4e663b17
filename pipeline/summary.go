package pipeline

import (
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"

	ccbench "cc-bench"
	"cc-bench/analyze"
)

// PrintSummary writes the textual results tables: aggregate statistics,
// per-flow comparisons, fairness and RTT-bias analysis, pairwise deltas,
// and accumulated warnings. It prints whatever could be computed;
// configurations without data are simply absent from the tables.
func PrintSummary(w io.Writer, rep *Report) {
	rule := strings.Repeat("=", 80)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "SIMULATION RESULTS SUMMARY")
	fmt.Fprintln(w, rule)

	printAggregateTable(w, rep)
	printPerFlowTables(w, rep)
	printAnalysis(w, rep)

	if len(rep.Warnings) > 0 {
		fmt.Fprintf(w, "\nWarnings (%d):\n", len(rep.Warnings))
		for _, msg := range rep.Warnings {
			fmt.Fprintf(w, "  - %s\n", msg)
		}
	}

	fmt.Fprintln(w, rule)
	if rep.State == Done {
		fmt.Fprintln(w, "All configurations produced complete results.")
	} else {
		fmt.Fprintf(w, "Partial results: %d of %d configurations usable.\n",
			rep.UsableCount(), len(rep.Results))
	}
	fmt.Fprintln(w, rule)
}

func printAggregateTable(w io.Writer, rep *Report) {
	fmt.Fprintln(w, "\nAGGREGATE STATISTICS:")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Configuration\tTotal Tput (Mbps)\tAvg Tput/Flow (Mbps)\tAvg Delay (ms)\tLoss Rate (%)\tFlows")
	for _, vr := range rep.Results {
		if vr.Aggregate == nil {
			continue
		}
		a := vr.Aggregate
		fmt.Fprintf(tw, "%s\t%.2f\t%.4f\t%.1f\t%.2f\t%d\n",
			vr.Config.Name, a.TotalThroughputMbps, a.AvgThroughputMbps,
			a.AvgDelayMs, a.LossRatePercent, a.NumFlows)
	}
	tw.Flush()
}

func printPerFlowTables(w io.Writer, rep *Report) {
	withFlows := make([]*VariantResult, 0, len(rep.Results))
	numFlows := 0
	for _, vr := range rep.Results {
		if len(vr.Flows) > 0 {
			withFlows = append(withFlows, vr)
			if len(vr.Flows) > numFlows {
				numFlows = len(vr.Flows)
			}
		}
	}
	if len(withFlows) == 0 {
		return
	}

	kinds := []struct {
		title string
		value func(ccbench.FlowRecord) float64
	}{
		{"PER-FLOW THROUGHPUT (Mbps):", func(f ccbench.FlowRecord) float64 { return f.ThroughputMbps }},
		{"PER-FLOW AVERAGE DELAY (ms):", func(f ccbench.FlowRecord) float64 { return f.DelayMs }},
		{"PER-FLOW LOSS RATE (%):", func(f ccbench.FlowRecord) float64 { return f.LossRatePercent }},
	}

	for _, kind := range kinds {
		fmt.Fprintf(w, "\n%s\n", kind.title)
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

		header := "Flow"
		for _, vr := range withFlows {
			header += "\t" + vr.Config.Name
		}
		fmt.Fprintln(tw, header)

		for i := 0; i < numFlows; i++ {
			line := flowRowLabel(withFlows[0].Flows, i)
			for _, vr := range withFlows {
				if i < len(vr.Flows) {
					line += fmt.Sprintf("\t%.2f", kind.value(vr.Flows[i]))
				} else {
					line += "\t-"
				}
			}
			fmt.Fprintln(tw, line)
		}
		tw.Flush()
	}
}

// flowRowLabel keys per-flow rows by RTT class when the input carried
// one, by flow id otherwise.
func flowRowLabel(flows []ccbench.FlowRecord, i int) string {
	if i < len(flows) {
		if flows[i].RTTMs > 0 {
			return fmt.Sprintf("%dms", flows[i].RTTMs)
		}
		return fmt.Sprintf("%d", flows[i].FlowID)
	}
	return fmt.Sprintf("%d", i)
}

func printAnalysis(w io.Writer, rep *Report) {
	order := make([]string, 0, len(rep.Results))
	stats := make(map[string]ccbench.DerivedStatistics)
	for _, vr := range rep.Results {
		order = append(order, vr.Config.Name)
		if vr.Stats != nil {
			stats[vr.Config.Name] = *vr.Stats
		}
	}
	if len(stats) > 0 {
		fmt.Fprintln(w, "\nANALYSIS:")
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "Configuration\tFairness (Jain)\tRTT Bias\tMean Loss (%)")
		for _, vr := range rep.Results {
			if vr.Stats == nil {
				continue
			}
			fmt.Fprintf(tw, "%s\t%.4f\t%s\t%.2f\n",
				vr.Config.Name, vr.Stats.Fairness, formatBias(vr.Bias), vr.Stats.MeanLossRate)
		}
		tw.Flush()

		if name, ok := analyze.BestFairness(order, stats); ok {
			fmt.Fprintf(w, "\nBest fairness: %s (Jain index %.4f)\n", name, stats[name].Fairness)
		}
		if name, ok := analyze.BestTotalThroughput(order, stats); ok {
			fmt.Fprintf(w, "Best total throughput: %s (%.2f Mbps)\n", name, stats[name].Sum)
		}
	}

	if rep.Comparison != nil {
		c := rep.Comparison
		fmt.Fprintf(w, "\n%s vs %s:\n", rep.CandidateName, rep.BaselineName)
		fmt.Fprintf(w, "  Throughput: %+.1f%%\n", c.ThroughputDeltaPct)
		fmt.Fprintf(w, "  Delay:      %+.1f%%\n", c.DelayDeltaPct)
		fmt.Fprintf(w, "  Loss Rate:  %+.1f%%\n", c.LossDeltaPct)
	}

	if len(rep.Artifacts) > 0 {
		fmt.Fprintln(w, "\nGenerated charts:")
		for _, a := range rep.Artifacts {
			fmt.Fprintf(w, "  - %s\n", a)
		}
	}
}

func formatBias(bias float64) string {
	switch {
	case math.IsNaN(bias):
		return "-"
	case math.IsInf(bias, 1):
		return "inf"
	default:
		return fmt.Sprintf("%.2fx", bias)
	}
}
