package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "tcp-multi-rtt-bottleneck", cfg.Scenario)
	assert.Equal(t, 300*time.Second, cfg.RunTimeout())
	require.Len(t, cfg.Configurations, 2)
	assert.Equal(t, "TcpLinuxReno", cfg.Configurations[0].Name)
	assert.Equal(t, "TcpFast", cfg.Configurations[1].Name)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "experiment.yaml")
	content := `
scenario: og-sim-2
sim_command: ./ns3
sim_root: /opt/ns3
output_dir: results/og-sim-2
run_timeout_sec: 120
configurations:
  - name: LinuxReno
    variant: TcpLinuxReno
    duration_sec: 60
  - name: Fast
    variant: TcpFast
    duration_sec: 60
    extra_args: ["--queueSize=100p"]
metrics_addr: ":9100"
log:
  level: debug
upload:
  bucket: cc-results
  region: eu-central-1
  prefix: og-sim-2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "og-sim-2", cfg.Scenario)
	assert.Equal(t, "/opt/ns3", cfg.SimRoot)
	assert.Equal(t, 120*time.Second, cfg.RunTimeout())
	require.Len(t, cfg.Configurations, 2)
	assert.Equal(t, 60, cfg.Configurations[0].DurationSec)
	assert.Equal(t, []string{"--queueSize=100p"}, cfg.Configurations[1].ExtraArgs)
	assert.Equal(t, ":9100", cfg.MetricsAddr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "cc-results", cfg.Upload.Bucket)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no configurations", func(c *Config) { c.Configurations = nil }},
		{"empty name", func(c *Config) { c.Configurations[0].Name = "" }},
		{"duplicate name", func(c *Config) { c.Configurations[1].Name = c.Configurations[0].Name }},
		{"bad timeout", func(c *Config) { c.RunTimeoutSec = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
