// Package config holds runtime settings for the field-service client.
// Values are layered: defaults, then a JSON file (-c/-config), then
// command-line flags, later sources winning.
package config

import "time"

type Config struct {
	// ServerBaseURL is the origin of the backend ("https://host").
	ServerBaseURL string

	// DataDir is where the local store database lives.
	DataDir string

	// AutoSyncCheckInterval is how often the auto-sync gate is
	// evaluated; StalenessThreshold is how old the last successful
	// sync may get before a silent cycle fires.
	AutoSyncCheckInterval time.Duration
	StalenessThreshold    time.Duration

	// MinSyncInterval throttles back-to-back non-forced cycles.
	MinSyncInterval time.Duration

	// OnlineCheckInterval drives the background reachability watcher.
	OnlineCheckInterval time.Duration

	// OutboxMaxAttempts is the definitive-rejection limit before an
	// entry is dead-lettered.
	OutboxMaxAttempts int

	// ShellGeneration names the current shell cache generation.
	ShellGeneration int

	// DraftDebounce is the autosave quiet period.
	DraftDebounce time.Duration
}

func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://127.0.0.1:8000"
	c.DataDir = "data"
	c.AutoSyncCheckInterval = time.Minute
	c.StalenessThreshold = 5 * time.Minute
	c.MinSyncInterval = 30 * time.Second
	c.OnlineCheckInterval = 10 * time.Second
	c.OutboxMaxAttempts = 5
	c.ShellGeneration = 5
	c.DraftDebounce = 450 * time.Millisecond
}

// LoadConfig constructs a Config from defaults, JSON file, and flags,
// in that order of precedence.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
