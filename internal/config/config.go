// Package config loads custodian settings from defaults, an optional YAML
// file, CUSTODIAN_* environment variables and command-line flags, in that
// order of precedence (later wins).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/alexanderramin/custodian/internal/detection"
	"gopkg.in/yaml.v3"
)

const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"

	GatewayHTTP = "http"
	GatewaySim  = "sim"

	FeedNone = "none"
	FeedMQTT = "mqtt"
	FeedSim  = "sim"
)

// MaxRetries bounds gateway.retries: a failed service call is retried at
// most once.
const MaxRetries = 1

type GatewayConfig struct {
	Mode         string        `yaml:"mode"`
	URL          string        `yaml:"url"`
	Timeout      time.Duration `yaml:"timeout"`
	HTTPRetries  int           `yaml:"http_retries"`
	Retries      int           `yaml:"retries"`
	PollInterval time.Duration `yaml:"poll_interval"`
	SimStep      time.Duration `yaml:"sim_step"`
}

type DetectionConfig struct {
	Feed       string `yaml:"feed"`
	Broker     string `yaml:"broker"`
	ClientID   string `yaml:"client_id"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	DirtTopic  string `yaml:"dirt_topic"`
	TrashTopic string `yaml:"trash_topic"`
	Policy     string `yaml:"policy"`
	Priority   string `yaml:"priority"`
	// SimRate is the chance per visited waypoint that the simulated feed
	// reports a detection.
	SimRate float64 `yaml:"sim_rate"`
}

type TelemetryConfig struct {
	RedisAddr string `yaml:"redis_addr"`
	Stream    string `yaml:"stream"`
	MaxLen    int64  `yaml:"max_len"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	DataDir      string          `yaml:"data_dir"`
	Backend      string          `yaml:"backend"`
	SQLitePath   string          `yaml:"sqlite_path"`
	PollInterval time.Duration   `yaml:"poll_interval"`
	Gateway      GatewayConfig   `yaml:"gateway"`
	Detection    DetectionConfig `yaml:"detection"`
	Telemetry    TelemetryConfig `yaml:"telemetry"`
	Log          LogConfig       `yaml:"log"`
}

func DefaultConfig() Config {
	return Config{
		DataDir:      filepath.Join("resources", "json"),
		Backend:      BackendJSON,
		SQLitePath:   "custodian.db",
		PollInterval: 2 * time.Second,
		Gateway: GatewayConfig{
			Mode:         GatewayHTTP,
			URL:          "http://localhost:8080",
			Timeout:      30 * time.Second,
			HTTPRetries:  0,
			Retries:      1,
			PollInterval: 500 * time.Millisecond,
			SimStep:      50 * time.Millisecond,
		},
		Detection: DetectionConfig{
			Feed:       FeedNone,
			Broker:     "tcp://localhost:1883",
			ClientID:   "custodian",
			DirtTopic:  "robot/detections/dirt",
			TrashTopic: "robot/detections/trashcan",
			Policy:     string(detection.PolicyHandleBoth),
			Priority:   "dirt,trash",
			SimRate:    0.05,
		},
		Telemetry: TelemetryConfig{
			Stream: "custodian:runs",
			MaxLen: 10000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// DefaultPath is the config file read when no explicit path is given.
func DefaultPath() string {
	return "custodian.yaml"
}

// Load reads the YAML file at path over the defaults and applies environment
// overrides. A missing file is an error only when explicit is true.
func Load(path string, explicit bool) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist) && !explicit:
		default:
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, os.Getenv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) error {
		if v := getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
		return nil
	}
	num := func(key string, dst *int) error {
		if v := getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
		return nil
	}

	str("CUSTODIAN_DATA_DIR", &cfg.DataDir)
	str("CUSTODIAN_BACKEND", &cfg.Backend)
	str("CUSTODIAN_SQLITE_PATH", &cfg.SQLitePath)
	str("CUSTODIAN_GATEWAY_MODE", &cfg.Gateway.Mode)
	str("CUSTODIAN_GATEWAY_URL", &cfg.Gateway.URL)
	str("CUSTODIAN_DETECTION_FEED", &cfg.Detection.Feed)
	str("CUSTODIAN_MQTT_BROKER", &cfg.Detection.Broker)
	str("CUSTODIAN_MQTT_CLIENT_ID", &cfg.Detection.ClientID)
	str("CUSTODIAN_MQTT_USERNAME", &cfg.Detection.Username)
	str("CUSTODIAN_MQTT_PASSWORD", &cfg.Detection.Password)
	str("CUSTODIAN_DETECTION_POLICY", &cfg.Detection.Policy)
	str("CUSTODIAN_DETECTION_PRIORITY", &cfg.Detection.Priority)
	str("CUSTODIAN_REDIS_ADDR", &cfg.Telemetry.RedisAddr)
	str("CUSTODIAN_REDIS_STREAM", &cfg.Telemetry.Stream)
	str("CUSTODIAN_LOG_LEVEL", &cfg.Log.Level)
	str("CUSTODIAN_LOG_FORMAT", &cfg.Log.Format)

	for key, dst := range map[string]*time.Duration{
		"CUSTODIAN_POLL_INTERVAL":   &cfg.PollInterval,
		"CUSTODIAN_GATEWAY_TIMEOUT": &cfg.Gateway.Timeout,
		"CUSTODIAN_SIM_STEP":        &cfg.Gateway.SimStep,
		"CUSTODIAN_GATEWAY_POLL":    &cfg.Gateway.PollInterval,
	} {
		if err := dur(key, dst); err != nil {
			return err
		}
	}
	if err := num("CUSTODIAN_GATEWAY_RETRIES", &cfg.Gateway.Retries); err != nil {
		return err
	}
	return nil
}

// Validate checks enumerated values and detection settings.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendJSON, BackendSQLite:
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendJSON, BackendSQLite)
	}
	switch c.Gateway.Mode {
	case GatewayHTTP, GatewaySim:
	default:
		return fmt.Errorf("unknown gateway mode %q (want %s or %s)", c.Gateway.Mode, GatewayHTTP, GatewaySim)
	}
	switch c.Detection.Feed {
	case FeedNone, FeedMQTT, FeedSim:
	default:
		return fmt.Errorf("unknown detection feed %q", c.Detection.Feed)
	}
	if _, err := detection.ParsePolicy(c.Detection.Policy); err != nil {
		return err
	}
	if _, err := detection.ParsePriority(c.Detection.Priority); err != nil {
		return err
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.Gateway.Retries < 0 || c.Gateway.Retries > MaxRetries {
		return fmt.Errorf("gateway retries must be between 0 and %d, got %d", MaxRetries, c.Gateway.Retries)
	}
	return nil
}

// Policy returns the parsed simultaneous-detection policy.
func (c Config) Policy() detection.Policy {
	p, err := detection.ParsePolicy(c.Detection.Policy)
	if err != nil {
		return detection.PolicyHandleBoth
	}
	return p
}

// Priority returns the parsed detection priority.
func (c Config) Priority() []detection.Kind {
	p, err := detection.ParsePriority(c.Detection.Priority)
	if err != nil {
		return detection.DefaultPriority
	}
	return p
}
