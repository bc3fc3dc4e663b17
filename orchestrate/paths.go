package orchestrate

import (
	"fmt"
	"path/filepath"
)

// Paths maps (configuration, artifact kind) to the well-known file
// locations the simulator writes to. Every artifact embeds the
// configuration name so sequential runs cannot overwrite each other's
// output before it is read.
type Paths struct {
	OutputDir string
}

// Aggregate is the one-row summary CSV for a configuration.
func (p Paths) Aggregate(name string) string {
	return filepath.Join(p.OutputDir, name+"_aggregate.csv")
}

// PerFlow is the per-flow results CSV for a configuration.
func (p Paths) PerFlow(name string) string {
	return filepath.Join(p.OutputDir, name+"_perflow.csv")
}

// Cwnd is the congestion-window trace for one flow of a configuration.
func (p Paths) Cwnd(name string, flowID int32) string {
	return filepath.Join(p.OutputDir, fmt.Sprintf("%s_flow%d_cwnd.dat", name, flowID))
}

// Chart is a rendered comparison image.
func (p Paths) Chart(kind string) string {
	return filepath.Join(p.OutputDir, kind+".png")
}
