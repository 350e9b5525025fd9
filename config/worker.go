package config

import (
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	defaultWorkerCount  = 1
	maxWorkerCount      = 256
	minLoopInterval     = 100 * time.Millisecond
	defaultOutputLimit  = 64 << 10
	maxOutputLimit      = 16 << 20
	defaultShell        = "/bin/sh"
	defaultCleanupSpec  = "@daily"
	minReaperInterval   = 5 * time.Second
	defaultRetentionDay = 7
)

// WorkerConfig contains worker pool settings used by `worker start`.
type WorkerConfig struct {
	Count             int           `env:"COUNT"              envDefault:"1"`
	PollInterval      time.Duration `env:"POLL_INTERVAL"      envDefault:"1s"`
	ErrorBackoff      time.Duration `env:"ERROR_BACKOFF"      envDefault:"5s"`
	StaleAfter        time.Duration `env:"STALE_AFTER"        envDefault:"5m"`
	ShutdownGrace     time.Duration `env:"SHUTDOWN_GRACE"     envDefault:"30s"`
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL" envDefault:"10s"`
	// OutputLimit caps captured stdout and stderr per stream, in bytes.
	OutputLimit int    `env:"OUTPUT_LIMIT" envDefault:"65536"`
	Shell       string `env:"SHELL"        envDefault:"/bin/sh"`
}

// Sanitize applies guardrails to worker values loaded from env.
func (c *WorkerConfig) Sanitize() {
	if c.Count < 1 {
		c.Count = defaultWorkerCount
	}
	if c.Count > maxWorkerCount {
		c.Count = maxWorkerCount
	}
	if c.PollInterval < minLoopInterval {
		c.PollInterval = minLoopInterval
	}
	if c.ErrorBackoff < minLoopInterval {
		c.ErrorBackoff = minLoopInterval
	}
	if c.StaleAfter < time.Second {
		c.StaleAfter = 5 * time.Minute
	}
	if c.ShutdownGrace < 0 {
		c.ShutdownGrace = 0
	}
	if c.HeartbeatInterval < time.Second {
		c.HeartbeatInterval = time.Second
	}
	if c.OutputLimit <= 0 {
		c.OutputLimit = defaultOutputLimit
	}
	if c.OutputLimit > maxOutputLimit {
		c.OutputLimit = maxOutputLimit
	}
	if c.Shell = strings.TrimSpace(c.Shell); c.Shell == "" {
		c.Shell = defaultShell
	}
}

// PoolSize resolves a requested worker count: zero or less selects Count, and
// anything above the cap is lowered to it.
func (c WorkerConfig) PoolSize(requested int) int {
	if requested <= 0 {
		requested = c.Count
	}
	return min(max(requested, 1), maxWorkerCount)
}

// ReaperConfig controls the background sweep that runs alongside workers.
type ReaperConfig struct {
	Enabled bool `env:"ENABLED" envDefault:"true"`
	// Interval between stale-lease sweeps and queue-depth refreshes.
	Interval time.Duration `env:"INTERVAL" envDefault:"1m"`
	// CleanupSchedule is a cron expression (standard five fields or a descriptor such as @daily).
	CleanupSchedule string `env:"CLEANUP_SCHEDULE" envDefault:"@daily"`
	// RetentionDays is how long completed jobs are kept. Zero disables cleanup.
	RetentionDays int `env:"RETENTION_DAYS" envDefault:"7"`
}

// Sanitize applies guardrails to reaper values loaded from env. An unparsable
// cleanup schedule falls back to @daily.
func (c *ReaperConfig) Sanitize() {
	if c.Interval < minReaperInterval {
		c.Interval = minReaperInterval
	}
	if c.RetentionDays < 0 {
		c.RetentionDays = defaultRetentionDay
	}
	c.CleanupSchedule = strings.TrimSpace(c.CleanupSchedule)
	if _, err := cron.ParseStandard(c.CleanupSchedule); err != nil {
		c.CleanupSchedule = defaultCleanupSpec
	}
}
