// Package config loads and validates the control plane configuration.
//
// Ambient settings (listen address, debug mode) come from environment
// variables with sensible defaults, following the teacher's getEnv(key,
// fallback) pattern. The recognized domain options from spec.md §6
// (cache_strategy, sources, templates, context, auth, refresh_rate_seconds,
// no_changes_response_code) are loaded from a YAML document — pointed to by
// SOVEREIGN_CONFIG — parsed with gopkg.in/yaml.v3.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CacheStrategy selects how version_info is computed (spec.md §4.4).
type CacheStrategy string

const (
	CacheStrategyContext CacheStrategy = "context"
	CacheStrategyContent CacheStrategy = "content"
	CacheStrategyNone    CacheStrategy = "none"
)

// SourceSpec is one entry of the "sources" configuration list: a provider
// type name (resolved against the registered source variants) plus its
// provider-specific configuration blob.
type SourceSpec struct {
	Type   string         `yaml:"type" json:"type"`
	Config map[string]any `yaml:"config" json:"config"`
}

// TemplateGroup maps an xds_type name ("clusters", "listeners", ...) to the
// Loadable holding that template's source.
type TemplateGroup map[string]Loadable

// Config holds all runtime configuration for the control plane. Values are
// loaded once at startup via Load() and then treated as immutable — per
// spec.md §3's "Templates are loaded at startup and immutable thereafter."
type Config struct {
	// --- ambient / transport ---

	// ListenAddr is the HTTP listen address for the discovery surface.
	ListenAddr string `yaml:"-" json:"-"`
	// Debug enables attaching a traceback to the logged (never the
	// client-visible) error context, per spec.md §7's propagation policy.
	Debug bool `yaml:"-" json:"-"`

	// --- domain options (spec.md §6) ---

	CacheStrategy CacheStrategy `yaml:"cache_strategy" json:"cache_strategy"`

	Sources        []SourceSpec `yaml:"sources" json:"sources"`
	SourceMatchKey string       `yaml:"source_match_key" json:"source_match_key"`
	Modifications  []string     `yaml:"modifications" json:"modifications"`

	// Templates maps envoy_version ("1.18", "default", ...) to its group of
	// xds_type Loadables. The "default" key is mandatory; "__any__" is
	// synthesized at load time as the union of xds_types across all groups.
	Templates map[string]TemplateGroup `yaml:"templates" json:"templates"`

	// Context maps a provider name to the Loadable that produces it.
	Context map[string]Loadable `yaml:"context" json:"context"`

	AuthEnabled     bool              `yaml:"auth_enabled" json:"auth_enabled"`
	EncryptionKeys  []string          `yaml:"encryption_keys" json:"encryption_keys"`
	AuthPayloadKey  string            `yaml:"auth_payload_key" json:"auth_payload_key"`
	AuthPayloadRules map[string]string `yaml:"auth_payload_rules" json:"auth_payload_rules"`

	RefreshRateSeconds    int `yaml:"refresh_rate_seconds" json:"refresh_rate_seconds"`
	NoChangesResponseCode int `yaml:"no_changes_response_code" json:"no_changes_response_code"`
}

// AnyTemplateGroup returns the synthetic "__any__" union of every xds_type
// configured across all envoy_version groups, computed once at load time.
// spec.md §4.2: "The xds_type set is derived from the union of types present
// in the __any__ template group; this set is closed at startup."
func (c *Config) AnyTemplateGroup() map[string]bool {
	any := make(map[string]bool)
	for _, group := range c.Templates {
		for xdsType := range group {
			any[xdsType] = true
		}
	}
	return any
}

// Load reads ambient settings from the environment and, if SOVEREIGN_CONFIG
// points at a file, the domain configuration from that YAML document.
// Missing ambient variables fall back to development defaults. The domain
// configuration must declare a "default" template group — its absence is a
// startup error, matching spec.md §4.2's "mandatory default fallback."
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:            getEnv("SOVEREIGN_LISTEN_ADDR", ":8080"),
		Debug:                 getEnv("SOVEREIGN_DEBUG", "") == "true",
		CacheStrategy:         CacheStrategyContext,
		SourceMatchKey:        "cluster",
		RefreshRateSeconds:    30,
		NoChangesResponseCode: 304,
	}

	if path := os.Getenv("SOVEREIGN_CONFIG"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.Templates) == 0 {
		return fmt.Errorf("config: no templates configured")
	}
	if _, ok := c.Templates["default"]; !ok {
		return fmt.Errorf("config: templates configuration must contain a %q group", "default")
	}
	switch c.CacheStrategy {
	case CacheStrategyContext, CacheStrategyContent, CacheStrategyNone:
	default:
		return fmt.Errorf("config: unrecognized cache_strategy %q", c.CacheStrategy)
	}
	if c.AuthEnabled && len(c.EncryptionKeys) == 0 {
		return fmt.Errorf("config: auth_enabled is true but encryption_keys is empty")
	}
	return nil
}

// getEnv returns the value of the environment variable named by key, or
// fallback if the variable is unset or empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
