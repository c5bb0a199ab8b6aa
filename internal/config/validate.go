package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate checks that the Config contains valid values.
// Returns an error describing the first invalid field found.
func (c Config) Validate() error {
	for name, v := range map[string]int{
		"MasterSize":             c.MasterSize,
		"MinionSize":             c.MinionSize,
		"PodSize":                c.PodSize,
		"LinkSizePodToMinion":    c.LinkSizePodToMinion,
		"LinkSizeMinionToMaster": c.LinkSizeMinionToMaster,
	} {
		if v <= 0 {
			return fmt.Errorf("config: %s must be > 0, got %d", name, v)
		}
	}

	if c.DummyNodes < 0 {
		return fmt.Errorf("config: DummyNodes must be >= 0, got %d", c.DummyNodes)
	}

	if err := validateURL("KUBEVIZ_NAMESPACES_URL", c.NamespacesURL); err != nil {
		return err
	}
	// Pod URLs are built as NamespacesURL + namespace + "/pods".
	if !strings.HasSuffix(c.NamespacesURL, "/") {
		return fmt.Errorf("config: KUBEVIZ_NAMESPACES_URL must end with \"/\" (got %q)", c.NamespacesURL)
	}
	if err := validateURL("KUBEVIZ_NODES_URL", c.NodesURL); err != nil {
		return err
	}

	if c.PollingInterval < 100*time.Millisecond {
		return fmt.Errorf("config: PollingInterval must be >= 100ms, got %v", c.PollingInterval)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("config: RequestTimeout must be > 0, got %v", c.RequestTimeout)
	}

	if c.MaxBodyLogBytes < 0 {
		return fmt.Errorf("config: MaxBodyLogBytes must be >= 0, got %d", c.MaxBodyLogBytes)
	}

	if c.DefaultNamespace == "" {
		return fmt.Errorf("config: KUBEVIZ_DEFAULT_NAMESPACE is required")
	}

	switch c.MasterClassifier {
	case "taint", "label":
	default:
		return fmt.Errorf("config: MasterClassifier must be \"taint\" or \"label\", got %q", c.MasterClassifier)
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: Port must be 1-65535, got %d", c.Port)
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: LogLevel must be debug, info, warn or error, got %q", c.LogLevel)
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: LogFormat must be \"text\" or \"json\", got %q", c.LogFormat)
	}

	return nil
}

func validateURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("config: %s is required", name)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("config: %s: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("config: %s must use http:// or https:// (got %q)", name, raw)
	}
	return nil
}
