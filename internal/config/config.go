// Package config loads the optional yk-dyndns configuration file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"go.yaml.in/yaml/v3"
)

// PathEnv names the environment variable holding the config file path when
// --config is not given.
const PathEnv = "DYNDNS_CONFIG_PATH"

// Config holds the provider name, the record to keep up to date and
// provider-specific connection settings.
type Config struct {
	Provider string            `yaml:"provider"`
	Record   Record            `yaml:"record"`
	Settings map[string]string `yaml:"settings"`
}

// Record mirrors the record flags of the CLI. Zero values mean "not set".
type Record struct {
	Domain      string `yaml:"domain"`
	Subdomain   string `yaml:"subdomain"`
	Type        string `yaml:"type"`
	TTL         int    `yaml:"ttl"`
	IPVersion   string `yaml:"ip_version"`
	IPAddress   string `yaml:"ip_address"`
	ForceUpdate bool   `yaml:"force_update"`
	Create      *bool  `yaml:"create"`
}

// LoadConfigFromPath reads the configuration from the given file path.
func LoadConfigFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if cfg.Record.TTL < 0 {
		return nil, fmt.Errorf("config: record ttl must not be negative, got %d", cfg.Record.TTL)
	}

	// Expand ${ENV_VAR} references in setting values.
	for k, v := range cfg.Settings {
		cfg.Settings[k] = os.ExpandEnv(v)
	}

	return &cfg, nil
}

// Setting keys that have a dedicated CLI flag.
var settingFlags = map[string]string{
	"api_key":  "api-key",
	"base_url": "api-url",
	"timeout":  "timeout",
}

// FlagValues returns the file's values keyed by the CLI flag they stand in
// for. Unset fields are omitted.
func (c *Config) FlagValues() map[string]string {
	out := map[string]string{}
	if c == nil {
		return out
	}
	set := func(flag, v string) {
		if v != "" {
			out[flag] = v
		}
	}

	r := c.Record
	set("domain", r.Domain)
	set("subdomain", r.Subdomain)
	set("type", r.Type)
	set("ip-version", r.IPVersion)
	set("ip-address", r.IPAddress)
	if r.TTL != 0 {
		out["ttl"] = strconv.Itoa(r.TTL)
	}
	if r.ForceUpdate {
		out["force-update"] = "true"
	}
	if r.Create != nil {
		out["create"] = strconv.FormatBool(*r.Create)
	}

	for key, flag := range settingFlags {
		set(flag, c.Settings[key])
	}
	return out
}

// ExtraSettings returns the settings that have no dedicated CLI flag. They
// are handed to the provider factory as is.
func (c *Config) ExtraSettings() map[string]string {
	out := map[string]string{}
	if c == nil {
		return out
	}
	for k, v := range c.Settings {
		if _, ok := settingFlags[k]; !ok {
			out[k] = v
		}
	}
	return out
}
