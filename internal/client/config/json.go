package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/fieldkeeper/internal/flagx"
	"github.com/dmitrijs2005/fieldkeeper/internal/timex"
)

// JsonConfig is the DTO for the JSON config file. Durations accept
// either strings ("5m", "450ms") or integer nanoseconds via
// timex.Duration.
type JsonConfig struct {
	ServerBaseURL         string         `json:"server_base_url"`
	DataDir               string         `json:"data_dir"`
	AutoSyncCheckInterval timex.Duration `json:"auto_sync_check_interval"`
	StalenessThreshold    timex.Duration `json:"staleness_threshold"`
	MinSyncInterval       timex.Duration `json:"min_sync_interval"`
	OnlineCheckInterval   timex.Duration `json:"online_check_interval"`
	OutboxMaxAttempts     int            `json:"outbox_max_attempts"`
	ShellGeneration       int            `json:"shell_generation"`
	DraftDebounce         timex.Duration `json:"draft_debounce"`
}

// parseJson overlays Config with values from the JSON file named by
// the -c/-config flag. Absent flag means no JSON layer. Zero values in
// the file leave the current Config value untouched.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerBaseURL != "" {
		cfg.ServerBaseURL = jc.ServerBaseURL
	}
	if jc.DataDir != "" {
		cfg.DataDir = jc.DataDir
	}
	if jc.AutoSyncCheckInterval != 0 {
		cfg.AutoSyncCheckInterval = jc.AutoSyncCheckInterval.Std()
	}
	if jc.StalenessThreshold != 0 {
		cfg.StalenessThreshold = jc.StalenessThreshold.Std()
	}
	if jc.MinSyncInterval != 0 {
		cfg.MinSyncInterval = jc.MinSyncInterval.Std()
	}
	if jc.OnlineCheckInterval != 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Std()
	}
	if jc.OutboxMaxAttempts != 0 {
		cfg.OutboxMaxAttempts = jc.OutboxMaxAttempts
	}
	if jc.ShellGeneration != 0 {
		cfg.ShellGeneration = jc.ShellGeneration
	}
	if jc.DraftDebounce != 0 {
		cfg.DraftDebounce = jc.DraftDebounce.Std()
	}
}
