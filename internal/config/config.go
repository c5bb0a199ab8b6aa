package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"
)

// Config holds all kubeviz configuration values.
type Config struct {
	// Visual sizing
	MasterSize             int // KUBEVIZ_MASTER_SIZE, default: 15
	MinionSize             int // KUBEVIZ_MINION_SIZE, default: 15
	PodSize                int // KUBEVIZ_POD_SIZE, default: 15
	LinkSizePodToMinion    int // KUBEVIZ_LINK_SIZE_POD_TO_MINION, default: 150
	LinkSizeMinionToMaster int // KUBEVIZ_LINK_SIZE_MINION_TO_MASTER, default: 250
	DummyNodes             int // KUBEVIZ_DUMMY_NODES, default: 0

	// Upstream
	NamespacesURL   string        // KUBEVIZ_NAMESPACES_URL, must end with "/"
	NodesURL        string        // KUBEVIZ_NODES_URL
	RequestTimeout  time.Duration // KUBEVIZ_REQUEST_TIMEOUT, default: 10s
	MaxBodyLogBytes int           // KUBEVIZ_MAX_BODY_LOG_BYTES, default: 4096

	// Polling
	PollingInterval  time.Duration // KUBEVIZ_POLLING_INTERVAL, default: 1s (bare integers are seconds)
	DefaultNamespace string        // KUBEVIZ_DEFAULT_NAMESPACE, default: "default"
	SerializeTicks   bool          // KUBEVIZ_SERIALIZE_TICKS, default: true (skip a tick while the previous one runs)
	MasterClassifier string        // KUBEVIZ_MASTER_CLASSIFIER, "taint" (default) or "label"

	// Server
	Port           int  // KUBEVIZ_PORT, default: 3000
	DebugEndpoints bool // KUBEVIZ_DEBUG_ENDPOINTS, default: false

	// Logging
	LogLevel  string // KUBEVIZ_LOG_LEVEL, default: "info"
	LogFormat string // KUBEVIZ_LOG_FORMAT, "text" (default) or "json"
}

// fileConfig mirrors Config for YAML files. Pointers distinguish unset
// keys from zero values so the file only overrides what it names.
type fileConfig struct {
	MasterSize             *int    `yaml:"masterSize"`
	MinionSize             *int    `yaml:"minionSize"`
	PodSize                *int    `yaml:"podSize"`
	LinkSizePodToMinion    *int    `yaml:"linkSizePodToMinion"`
	LinkSizeMinionToMaster *int    `yaml:"linkSizeMinionToMaster"`
	DummyNodes             *int    `yaml:"dummyNodes"`
	NamespacesURL          *string `yaml:"namespacesUrl"`
	NodesURL               *string `yaml:"nodesApiUrl"`
	RequestTimeout         *string `yaml:"requestTimeout"`
	MaxBodyLogBytes        *int    `yaml:"maxBodyLogBytes"`
	PollingIntervalSeconds *int    `yaml:"pollingIntervalInSeconds"`
	DefaultNamespace       *string `yaml:"defaultNamespace"`
	SerializeTicks         *bool   `yaml:"serializeTicks"`
	MasterClassifier       *string `yaml:"masterClassifier"`
	Port                   *int    `yaml:"port"`
	DebugEndpoints         *bool   `yaml:"debugEndpoints"`
	LogLevel               *string `yaml:"logLevel"`
	LogFormat              *string `yaml:"logFormat"`
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() Config {
	return Config{
		MasterSize:             15,
		MinionSize:             15,
		PodSize:                15,
		LinkSizePodToMinion:    150,
		LinkSizeMinionToMaster: 250,
		DummyNodes:             0,
		NamespacesURL:          "http://127.0.0.1:8001/api/v1/namespaces/",
		NodesURL:               "http://127.0.0.1:8001/api/v1/nodes",
		RequestTimeout:         10 * time.Second,
		MaxBodyLogBytes:        4096,
		PollingInterval:        1 * time.Second,
		DefaultNamespace:       "default",
		SerializeTicks:         true,
		MasterClassifier:       "taint",
		Port:                   3000,
		LogLevel:               "info",
		LogFormat:              "text",
	}
}

// Load builds a Config from defaults, then the YAML file at path (falling
// back to $KUBEVIZ_CONFIG_FILE when path is empty), then environment
// variables. Environment variables always win.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path == "" {
		path = os.Getenv("KUBEVIZ_CONFIG_FILE")
	}
	if path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return cfg, err
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	setInt(&cfg.MasterSize, fc.MasterSize)
	setInt(&cfg.MinionSize, fc.MinionSize)
	setInt(&cfg.PodSize, fc.PodSize)
	setInt(&cfg.LinkSizePodToMinion, fc.LinkSizePodToMinion)
	setInt(&cfg.LinkSizeMinionToMaster, fc.LinkSizeMinionToMaster)
	setInt(&cfg.DummyNodes, fc.DummyNodes)
	setString(&cfg.NamespacesURL, fc.NamespacesURL)
	setString(&cfg.NodesURL, fc.NodesURL)
	setInt(&cfg.MaxBodyLogBytes, fc.MaxBodyLogBytes)
	setString(&cfg.DefaultNamespace, fc.DefaultNamespace)
	setString(&cfg.MasterClassifier, fc.MasterClassifier)
	setInt(&cfg.Port, fc.Port)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.LogFormat, fc.LogFormat)

	if fc.SerializeTicks != nil {
		cfg.SerializeTicks = *fc.SerializeTicks
	}
	if fc.DebugEndpoints != nil {
		cfg.DebugEndpoints = *fc.DebugEndpoints
	}
	if fc.PollingIntervalSeconds != nil {
		cfg.PollingInterval = time.Duration(*fc.PollingIntervalSeconds) * time.Second
	}
	if fc.RequestTimeout != nil {
		d, err := time.ParseDuration(*fc.RequestTimeout)
		if err != nil {
			return fmt.Errorf("config: requestTimeout: %w", err)
		}
		cfg.RequestTimeout = d
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.MasterSize = parseInt("KUBEVIZ_MASTER_SIZE", cfg.MasterSize)
	cfg.MinionSize = parseInt("KUBEVIZ_MINION_SIZE", cfg.MinionSize)
	cfg.PodSize = parseInt("KUBEVIZ_POD_SIZE", cfg.PodSize)
	cfg.LinkSizePodToMinion = parseInt("KUBEVIZ_LINK_SIZE_POD_TO_MINION", cfg.LinkSizePodToMinion)
	cfg.LinkSizeMinionToMaster = parseInt("KUBEVIZ_LINK_SIZE_MINION_TO_MASTER", cfg.LinkSizeMinionToMaster)
	cfg.DummyNodes = parseInt("KUBEVIZ_DUMMY_NODES", cfg.DummyNodes)

	cfg.NamespacesURL = envOrDefault("KUBEVIZ_NAMESPACES_URL", cfg.NamespacesURL)
	cfg.NodesURL = envOrDefault("KUBEVIZ_NODES_URL", cfg.NodesURL)
	cfg.RequestTimeout = parseDuration("KUBEVIZ_REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.MaxBodyLogBytes = parseInt("KUBEVIZ_MAX_BODY_LOG_BYTES", cfg.MaxBodyLogBytes)

	cfg.PollingInterval = parseDuration("KUBEVIZ_POLLING_INTERVAL", cfg.PollingInterval)
	cfg.DefaultNamespace = envOrDefault("KUBEVIZ_DEFAULT_NAMESPACE", cfg.DefaultNamespace)
	cfg.SerializeTicks = parseBool("KUBEVIZ_SERIALIZE_TICKS", cfg.SerializeTicks)
	cfg.MasterClassifier = envOrDefault("KUBEVIZ_MASTER_CLASSIFIER", cfg.MasterClassifier)

	cfg.Port = parseInt("KUBEVIZ_PORT", cfg.Port)
	cfg.DebugEndpoints = parseBool("KUBEVIZ_DEBUG_ENDPOINTS", cfg.DebugEndpoints)

	cfg.LogLevel = envOrDefault("KUBEVIZ_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = envOrDefault("KUBEVIZ_LOG_FORMAT", cfg.LogFormat)
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v *string) {
	if v != nil && *v != "" {
		*dst = *v
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// parseDuration tries time.ParseDuration first, then falls back to treating
// the value as integer seconds.
func parseDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(v)
	if err == nil {
		return d
	}

	// Fallback: treat as integer seconds
	secs, err := strconv.Atoi(v)
	if err == nil {
		return time.Duration(secs) * time.Second
	}

	return defaultVal
}

func parseBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func parseInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return n
}
