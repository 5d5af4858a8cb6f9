package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML accepts "90s"-style strings as well as
// plain integer seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err == nil {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("parse duration %q: %w", raw, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var seconds int64
	if err := value.Decode(&seconds); err == nil {
		*d = Duration(time.Duration(seconds) * time.Second)
		return nil
	}
	return fmt.Errorf("invalid duration value at line %d", value.Line)
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config captures the settings required to run the spike correlation engine.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Instance  InstanceConfig  `yaml:"instance"`
	Metric    MetricConfig    `yaml:"metric"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Remote    RemoteConfig    `yaml:"remote"`
	Counter   CounterConfig   `yaml:"counter"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Analyzer  AnalyzerConfig  `yaml:"analyzer"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig controls the ops gRPC listener and the Prometheus endpoint.
type ServerConfig struct {
	Address         string   `yaml:"address"`
	MetricsAddress  string   `yaml:"metricsAddress"`
	GracefulTimeout Duration `yaml:"gracefulTimeout"`
}

// InstanceConfig identifies the monitored host.
type InstanceConfig struct {
	ID     string `yaml:"id"`
	Region string `yaml:"region"`
}

// MetricConfig selects the resource metric and the analysis interval.
type MetricConfig struct {
	Namespace string   `yaml:"namespace"`
	Name      string   `yaml:"name"`
	Unit      string   `yaml:"unit"`
	Lookback  Duration `yaml:"lookback"`
}

// DiscoveryConfig controls how services and their logs are located on the host.
type DiscoveryConfig struct {
	ProcessPattern string `yaml:"processPattern"`
	ServiceRoot    string `yaml:"serviceRoot"`
}

// RemoteConfig controls the remote command channel.
type RemoteConfig struct {
	PollInterval   Duration `yaml:"pollInterval"`
	CommandTimeout Duration `yaml:"commandTimeout"`
}

// CounterConfig bounds concurrent window-count commands.
type CounterConfig struct {
	MaxConcurrent int `yaml:"maxConcurrent"`
}

// SchedulerConfig controls the periodic cycle driver.
type SchedulerConfig struct {
	Period      Duration `yaml:"period"`
	CycleBudget Duration `yaml:"cycleBudget"`
}

// AnalyzerConfig configures the downstream reasoning collaborator endpoint.
type AnalyzerConfig struct {
	BaseURL string   `yaml:"baseURL"`
	Path    string   `yaml:"path"`
	Timeout Duration `yaml:"timeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("SPIKECORR_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if cfg.Instance.ID == "" {
		return nil, fmt.Errorf("instance.id is required")
	}
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":50051",
			MetricsAddress:  ":2112",
			GracefulTimeout: Duration(10 * time.Second),
		},
		Metric: MetricConfig{
			Namespace: "AWS/EC2",
			Name:      "CPUUtilization",
			Unit:      "Percent",
			Lookback:  Duration(time.Hour),
		},
		Discovery: DiscoveryConfig{
			ProcessPattern: "gunicorn",
			ServiceRoot:    "/var/www",
		},
		Remote: RemoteConfig{
			PollInterval:   Duration(time.Second),
			CommandTimeout: Duration(60 * time.Second),
		},
		Counter: CounterConfig{MaxConcurrent: 4},
		Scheduler: SchedulerConfig{
			Period:      Duration(time.Minute),
			CycleBudget: Duration(90 * time.Second),
		},
		Analyzer: AnalyzerConfig{
			Path:    "/api/v1/analyze",
			Timeout: Duration(30 * time.Second),
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SPIKECORR_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("SPIKECORR_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("SPIKECORR_INSTANCE_ID"); v != "" {
		cfg.Instance.ID = v
	}
	if v := os.Getenv("SPIKECORR_REGION"); v != "" {
		cfg.Instance.Region = v
	}
	if v := os.Getenv("SPIKECORR_METRIC_NAMESPACE"); v != "" {
		cfg.Metric.Namespace = v
	}
	if v := os.Getenv("SPIKECORR_METRIC_NAME"); v != "" {
		cfg.Metric.Name = v
	}
	if v := os.Getenv("SPIKECORR_METRIC_LOOKBACK"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Metric.Lookback = Duration(d)
		}
	}
	if v := os.Getenv("SPIKECORR_SERVICE_ROOT"); v != "" {
		cfg.Discovery.ServiceRoot = v
	}
	if v := os.Getenv("SPIKECORR_PROCESS_PATTERN"); v != "" {
		cfg.Discovery.ProcessPattern = v
	}
	if v := os.Getenv("SPIKECORR_REMOTE_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Remote.PollInterval = Duration(d)
		}
	}
	if v := os.Getenv("SPIKECORR_REMOTE_COMMAND_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Remote.CommandTimeout = Duration(d)
		}
	}
	if v := os.Getenv("SPIKECORR_COUNTER_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Counter.MaxConcurrent = n
		}
	}
	if v := os.Getenv("SPIKECORR_SCHEDULER_PERIOD"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Scheduler.Period = Duration(d)
		}
	}
	if v := os.Getenv("SPIKECORR_CYCLE_BUDGET"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Scheduler.CycleBudget = Duration(d)
		}
	}
	if v := os.Getenv("SPIKECORR_ANALYZER_BASE_URL"); v != "" {
		cfg.Analyzer.BaseURL = v
	}
	if v := os.Getenv("SPIKECORR_ANALYZER_PATH"); v != "" {
		cfg.Analyzer.Path = v
	}
	if v := os.Getenv("SPIKECORR_ANALYZER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Analyzer.Timeout = Duration(d)
		}
	}
	if v := os.Getenv("SPIKECORR_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SPIKECORR_LOG_FORMAT"); strings.EqualFold(v, "json") {
		cfg.Logging.JSON = true
	}
}
