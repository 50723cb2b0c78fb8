package dns

import (
	"fmt"
	"time"

	"github.com/yuriy-kovalchuk/yk-dyndns/internal/rest"
)

// Setting keys understood by every provider.
const (
	SettingAPIKey  = "api_key"
	SettingBaseURL = "base_url"
	SettingTimeout = "timeout"
)

// Settings is the parsed form of a provider settings map.
type Settings struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// ParseSettings reads the common provider settings.
// Required: api_key. Optional: base_url (default defaultBaseURL),
// timeout (Go duration, default 10s).
func ParseSettings(provider, defaultBaseURL string, settings map[string]string) (Settings, error) {
	s := Settings{
		APIKey:  settings[SettingAPIKey],
		BaseURL: settings[SettingBaseURL],
		Timeout: rest.DefaultTimeout,
	}
	if s.APIKey == "" {
		return Settings{}, fmt.Errorf("%s: missing required setting '%s'", provider, SettingAPIKey)
	}
	if s.BaseURL == "" {
		s.BaseURL = defaultBaseURL
	}
	if v := settings[SettingTimeout]; v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Settings{}, fmt.Errorf("%s: invalid timeout %q: %w", provider, v, err)
		}
		if d <= 0 {
			return Settings{}, fmt.Errorf("%s: timeout must be positive, got %s", provider, d)
		}
		s.Timeout = d
	}
	return s, nil
}
