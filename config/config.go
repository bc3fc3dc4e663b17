package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	ccbench "cc-bench"
	"cc-bench/logger"
)

// Config describes one experiment batch: which simulator to run, which
// configurations to compare, and where artifacts go. All paths are
// explicit; the pipeline never changes its working directory.
type Config struct {
	// Scenario is the simulator program to run, e.g. "tcp-multi-rtt-bottleneck".
	Scenario string `yaml:"scenario"`
	// SimCommand is the simulator launcher binary, e.g. "./ns3".
	SimCommand string `yaml:"sim_command"`
	// SimRoot is the directory the launcher must run in.
	SimRoot string `yaml:"sim_root"`
	// OutputDir is where the simulator writes result files and where
	// charts and archives are placed.
	OutputDir string `yaml:"output_dir"`
	// RunTimeoutSec bounds each simulator invocation.
	RunTimeoutSec int `yaml:"run_timeout_sec"`

	Configurations []ccbench.Configuration `yaml:"configurations"`

	// MetricsAddr, when set, serves prometheus metrics for the duration
	// of the batch (e.g. ":9100").
	MetricsAddr string `yaml:"metrics_addr"`

	Log    logger.Config `yaml:"log"`
	Upload UploadConfig  `yaml:"upload"`
}

// UploadConfig enables publishing rendered artifacts to object storage.
// Empty Bucket disables uploading. A non-empty AccountID selects
// Cloudflare R2 with static credentials from the environment
// (R2_ACCESS_KEY_ID / R2_SECRET_ACCESS_KEY); otherwise AWS S3 in Region.
type UploadConfig struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	AccountID string `yaml:"account_id"`
	Prefix    string `yaml:"prefix"`
}

// Default returns the multi-RTT bottleneck comparison the tool was built
// around: TCP LinuxReno against TCP FAST.
func Default() *Config {
	return &Config{
		Scenario:      "tcp-multi-rtt-bottleneck",
		SimCommand:    "./ns3",
		SimRoot:       ".",
		OutputDir:     "results/tcp-multi-rtt",
		RunTimeoutSec: 300,
		Configurations: []ccbench.Configuration{
			{Name: "TcpLinuxReno", Variant: "TcpLinuxReno"},
			{Name: "TcpFast", Variant: "TcpFast"},
		},
		Log: logger.Config{Level: "info", Format: "console", Output: "stdout"},
	}
}

// Load reads a YAML config file and fills unset fields from Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configs the pipeline cannot run.
func (c *Config) Validate() error {
	if len(c.Configurations) == 0 {
		return fmt.Errorf("config: no configurations declared")
	}
	seen := make(map[string]bool, len(c.Configurations))
	for _, cc := range c.Configurations {
		if cc.Name == "" {
			return fmt.Errorf("config: configuration with empty name")
		}
		if seen[cc.Name] {
			return fmt.Errorf("config: duplicate configuration name %q", cc.Name)
		}
		seen[cc.Name] = true
	}
	if c.RunTimeoutSec <= 0 {
		return fmt.Errorf("config: run_timeout_sec must be positive")
	}
	return nil
}

// RunTimeout returns the per-run timeout as a duration.
func (c *Config) RunTimeout() time.Duration {
	return time.Duration(c.RunTimeoutSec) * time.Second
}
