package orchestrate

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ccbench "cc-bench"
)

// fakeSim writes a shell script standing in for the simulator launcher.
func fakeSim(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell fixtures require a unix shell")
	}
	path := filepath.Join(t.TempDir(), "ns3")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func newRunner(cmd string, timeout time.Duration) *Runner {
	return &Runner{Command: cmd, Dir: filepath.Dir(cmd), Scenario: "test-scenario", Timeout: timeout}
}

func TestRunCompleted(t *testing.T) {
	r := newRunner(fakeSim(t, "exit 0"), 5*time.Second)
	out := r.Run(context.Background(), ccbench.Configuration{Name: "A", Variant: "TcpFast"})

	assert.Equal(t, ccbench.Completed, out.State)
	assert.True(t, out.OK())
}

func TestRunFailed(t *testing.T) {
	r := newRunner(fakeSim(t, "exit 3"), 5*time.Second)
	out := r.Run(context.Background(), ccbench.Configuration{Name: "A", Variant: "TcpFast"})

	assert.Equal(t, ccbench.Failed, out.State)
	assert.Equal(t, 3, out.ExitCode)
	assert.False(t, out.OK())
}

func TestRunTimedOut(t *testing.T) {
	r := newRunner(fakeSim(t, "sleep 5"), 100*time.Millisecond)
	out := r.Run(context.Background(), ccbench.Configuration{Name: "A", Variant: "TcpFast"})

	assert.Equal(t, ccbench.TimedOut, out.State)
	assert.False(t, out.OK())
}

func TestRunLaunchError(t *testing.T) {
	r := &Runner{
		Command:  filepath.Join(t.TempDir(), "missing-binary"),
		Dir:      t.TempDir(),
		Scenario: "test-scenario",
		Timeout:  time.Second,
	}
	out := r.Run(context.Background(), ccbench.Configuration{Name: "A", Variant: "TcpFast"})

	assert.Equal(t, ccbench.LaunchError, out.State)
	assert.Error(t, out.Err)
}

func TestScenarioArg(t *testing.T) {
	r := &Runner{Scenario: "tcp-multi-rtt-bottleneck"}

	cfg := ccbench.Configuration{Variant: "TcpFast"}
	assert.Equal(t, "tcp-multi-rtt-bottleneck --tcpVariant=TcpFast", r.scenarioArg(cfg))

	cfg = ccbench.Configuration{Variant: "TcpLinuxReno", DurationSec: 60, ExtraArgs: []string{"--queueSize=100p"}}
	assert.Equal(t,
		"tcp-multi-rtt-bottleneck --tcpVariant=TcpLinuxReno --simulationTime=60 --queueSize=100p",
		r.scenarioArg(cfg))
}

func TestPaths(t *testing.T) {
	p := Paths{OutputDir: "out"}

	assert.Equal(t, filepath.Join("out", "TcpFast_aggregate.csv"), p.Aggregate("TcpFast"))
	assert.Equal(t, filepath.Join("out", "TcpFast_perflow.csv"), p.PerFlow("TcpFast"))
	assert.Equal(t, filepath.Join("out", "TcpFast_flow2_cwnd.dat"), p.Cwnd("TcpFast", 2))
	assert.Equal(t, filepath.Join("out", "throughput_comparison.png"), p.Chart("throughput_comparison"))
}
