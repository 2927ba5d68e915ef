package updater

import "time"

const (
	// DefaultCheckInterval is used when the configured interval is zero
	DefaultCheckInterval = 1 * time.Hour

	// Startup delay before first check (allow service to stabilize)
	StartupDelay = 30 * time.Second
)

// Config holds the updater configuration
type Config struct {
	Owner          string
	Repo           string
	CheckInterval  time.Duration
	StartupDelay   time.Duration
	CurrentVersion string
}

// NewConfig returns a configuration for owner/repo, filling in default intervals
func NewConfig(owner, repo, version string, interval time.Duration) *Config {
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	return &Config{
		Owner:          owner,
		Repo:           repo,
		CheckInterval:  interval,
		StartupDelay:   StartupDelay,
		CurrentVersion: version,
	}
}

// Slug returns the "owner/repo" form go-selfupdate expects
func (c *Config) Slug() string {
	return c.Owner + "/" + c.Repo
}

// normalizeVersion ensures version starts with 'v' for comparison
func normalizeVersion(v string) string {
	if len(v) > 0 && v[0] != 'v' {
		return "v" + v
	}
	return v
}
