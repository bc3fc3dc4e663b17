// Package orchestrate invokes the external simulator, one configuration
// at a time, with a bounded wall-clock timeout per run. The simulator is
// a black box: it writes its result files itself, keyed by configuration
// name, and the runner only reports how the process ended.
package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	ccbench "cc-bench"
	"cc-bench/logger"
)

// Runner launches the simulator binary. All paths are explicit fields;
// the runner never changes the process working directory.
type Runner struct {
	// Command is the simulator launcher, e.g. "./ns3".
	Command string
	// Dir is the directory the launcher runs in (the simulator root).
	Dir string
	// Scenario is the simulator program name passed to the launcher.
	Scenario string
	// Timeout bounds each invocation; on expiry the process is killed.
	Timeout time.Duration
}

// Run invokes the simulator for one configuration and blocks until the
// process exits or the timeout expires. The outcome is always a value;
// a failed run is reported, not raised.
func (r *Runner) Run(ctx context.Context, cfg ccbench.Configuration) ccbench.Outcome {
	runCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.Command, "run", r.scenarioArg(cfg))
	cmd.Dir = r.Dir

	logger.Info("running simulation",
		zap.String("configuration", cfg.Name),
		zap.String("variant", cfg.Variant),
		zap.Duration("timeout", r.Timeout))

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	switch {
	case runCtx.Err() == context.DeadlineExceeded:
		return ccbench.Outcome{State: ccbench.TimedOut, Err: runCtx.Err(), Elapsed: elapsed}
	case err == nil:
		return ccbench.Outcome{State: ccbench.Completed, Elapsed: elapsed}
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return ccbench.Outcome{
				State:    ccbench.Failed,
				ExitCode: exitErr.ExitCode(),
				Err:      err,
				Elapsed:  elapsed,
			}
		}
		return ccbench.Outcome{State: ccbench.LaunchError, Err: err, Elapsed: elapsed}
	}
}

// scenarioArg builds the single launcher argument naming the scenario
// and its parameters, e.g.
// "tcp-multi-rtt-bottleneck --tcpVariant=TcpFast --simulationTime=60".
func (r *Runner) scenarioArg(cfg ccbench.Configuration) string {
	parts := []string{r.Scenario, "--tcpVariant=" + cfg.Variant}
	if cfg.DurationSec > 0 {
		parts = append(parts, fmt.Sprintf("--simulationTime=%d", cfg.DurationSec))
	}
	parts = append(parts, cfg.ExtraArgs...)
	return strings.Join(parts, " ")
}
