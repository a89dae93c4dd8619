package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Census Data API configuration.
	CensusAPIKey    string
	CensusBaseURL   string
	CensusTimeout   time.Duration
	CensusCacheSize int // 0 disables the fetch cache
	ACSYear         int

	RefreshInterval time.Duration

	// Optional Kafka snapshot publishing.
	KafkaBrokers   []string
	KafkaSinkTopic string
	KafkaEnabled   bool

	// Optional segment-transition alerting.
	AlertsConfigPath string
	Alerts           *AlertsConfig
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	censusTimeout, err := parseDuration("CENSUS_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	refreshInterval, err := parseDuration("REFRESH_INTERVAL", "6h")
	if err != nil {
		return nil, err
	}

	year, err := parseInt("ACS_YEAR", 2022)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parseInt("CENSUS_CACHE_SIZE", 16)
	if err != nil {
		return nil, err
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		CensusAPIKey:    os.Getenv("CENSUS_API_KEY"),
		CensusBaseURL:   envOrDefault("CENSUS_BASE_URL", "https://api.census.gov/data"),
		CensusTimeout:   censusTimeout,
		CensusCacheSize: cacheSize,
		ACSYear:         year,

		RefreshInterval: refreshInterval,

		KafkaBrokers:   brokers,
		KafkaSinkTopic: envOrDefault("KAFKA_SINK_TOPIC", "talent-flow-snapshots"),
		KafkaEnabled:   kafkaEnabled,

		AlertsConfigPath: os.Getenv("ALERTS_CONFIG"),
	}

	if cfg.CensusAPIKey == "" {
		return nil, errors.New("CENSUS_API_KEY is required")
	}
	if cfg.ACSYear < 2009 {
		return nil, fmt.Errorf("ACS_YEAR %d predates ACS 5-year estimates", cfg.ACSYear)
	}
	if cfg.CensusCacheSize < 0 {
		return nil, errors.New("CENSUS_CACHE_SIZE must not be negative")
	}
	if cfg.RefreshInterval <= 0 {
		return nil, errors.New("REFRESH_INTERVAL must be positive")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	if cfg.AlertsConfigPath != "" {
		alerts, err := LoadAlerts(cfg.AlertsConfigPath)
		if err != nil {
			return nil, err
		}
		cfg.Alerts = alerts
	}

	return cfg, nil
}

// AlertsConfig holds webhook delivery targets for segment-transition alerts.
type AlertsConfig struct {
	// Cooldown suppresses repeat alerts for the same state transition.
	// Defaults to 24h if zero.
	Cooldown time.Duration `yaml:"cooldown"`

	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: slack | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook
	// URL, so the URL itself never lands in the config file.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// LoadAlerts reads and parses the YAML alerts file at path.
func LoadAlerts(path string) (*AlertsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("alerts config: read %q: %w", path, err)
	}

	cfg := &AlertsConfig{Cooldown: 24 * time.Hour}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("alerts config: parse yaml: %w", err)
	}

	if cfg.Cooldown < 0 {
		return nil, errors.New("alerts config: cooldown must not be negative")
	}
	for _, wh := range cfg.Webhooks {
		switch wh.Type {
		case "slack", "http":
		default:
			return nil, fmt.Errorf("alerts config: webhook type %q unknown: want slack|http", wh.Type)
		}
	}
	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	s := envOrDefault(key, fallback)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return d, nil
}

func parseInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
