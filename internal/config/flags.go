package config

import (
	"github.com/spf13/pflag"
)

// Flag names.
const (
	FlagConfig    = "config"
	FlagDataDir   = "data-dir"
	FlagBackend   = "backend"
	FlagSQLite    = "sqlite-path"
	FlagGateway   = "gateway"
	FlagURL       = "gateway-url"
	FlagFeed      = "detection-feed"
	FlagPolicy    = "detection-policy"
	FlagPriority  = "detection-priority"
	FlagRedis     = "redis-addr"
	FlagPoll      = "poll-interval"
	FlagLogLevel  = "log-level"
	FlagLogFormat = "log-format"
)

// RegisterFlags adds the global flags to fs with the built-in defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	d := DefaultConfig()
	fs.String(FlagConfig, "", "config file (default "+DefaultPath()+" if present)")
	fs.String(FlagDataDir, d.DataDir, "directory of the JSON store files")
	fs.String(FlagBackend, d.Backend, "store backend: json or sqlite")
	fs.String(FlagSQLite, d.SQLitePath, "SQLite database path")
	fs.String(FlagGateway, d.Gateway.Mode, "action gateway: http or sim")
	fs.String(FlagURL, d.Gateway.URL, "action server base URL")
	fs.String(FlagFeed, d.Detection.Feed, "detection feed: none, mqtt or sim")
	fs.String(FlagPolicy, d.Detection.Policy, "simultaneous detection policy: handle-both or first-only")
	fs.String(FlagPriority, d.Detection.Priority, "detection priority, highest first")
	fs.String(FlagRedis, d.Telemetry.RedisAddr, "redis address for run events (empty disables)")
	fs.Duration(FlagPoll, d.PollInterval, "detection poll interval while following a path")
	fs.String(FlagLogLevel, d.Log.Level, "log level: debug, info, warn, error")
	fs.String(FlagLogFormat, d.Log.Format, "log format: console or json")
}

// FromFlags loads the config named by --config (or the default path) and
// applies every flag the user set explicitly.
func FromFlags(fs *pflag.FlagSet) (Config, error) {
	path, _ := fs.GetString(FlagConfig)
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	cfg, err := Load(path, explicit)
	if err != nil {
		return Config{}, err
	}
	if err := ApplyFlags(fs, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// ApplyFlags copies changed flags into cfg.
func ApplyFlags(fs *pflag.FlagSet, cfg *Config) error {
	strs := map[string]*string{
		FlagDataDir:   &cfg.DataDir,
		FlagBackend:   &cfg.Backend,
		FlagSQLite:    &cfg.SQLitePath,
		FlagGateway:   &cfg.Gateway.Mode,
		FlagURL:       &cfg.Gateway.URL,
		FlagFeed:      &cfg.Detection.Feed,
		FlagPolicy:    &cfg.Detection.Policy,
		FlagPriority:  &cfg.Detection.Priority,
		FlagRedis:     &cfg.Telemetry.RedisAddr,
		FlagLogLevel:  &cfg.Log.Level,
		FlagLogFormat: &cfg.Log.Format,
	}
	for name, dst := range strs {
		if fs.Lookup(name) == nil || !fs.Changed(name) {
			continue
		}
		v, err := fs.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}
	if fs.Lookup(FlagPoll) != nil && fs.Changed(FlagPoll) {
		v, err := fs.GetDuration(FlagPoll)
		if err != nil {
			return err
		}
		cfg.PollInterval = v
	}
	return nil
}
