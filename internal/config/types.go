// Package config loads the TOML configuration of the filecache command.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration accepts Go duration strings ("90s", "1h") as well as plain,
// possibly fractional, seconds.
type Duration time.Duration

// UnmarshalText lets a Duration be decoded from text values.
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if seconds, err := strconv.ParseFloat(raw, 64); err == nil {
		*d = Duration(time.Duration(seconds * float64(time.Second)))
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue returns d as a time.Duration.
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// Config mirrors the TOML file.
type Config struct {
	CacheRoot     string `mapstructure:"CacheRoot"`
	CreateParents bool   `mapstructure:"CreateParents"`

	LogLevel      string `mapstructure:"LogLevel"`
	LogFilePath   string `mapstructure:"LogFilePath"`
	LogMaxSize    int    `mapstructure:"LogMaxSize"`
	LogMaxBackups int    `mapstructure:"LogMaxBackups"`
	LogCompress   bool   `mapstructure:"LogCompress"`

	ListenAddr   string   `mapstructure:"ListenAddr"`
	FetchTimeout Duration `mapstructure:"FetchTimeout"`
	UserAgent    string   `mapstructure:"UserAgent"`

	Sources []Source `mapstructure:"Source"`
}

// Source is a named remote document kept in the cache.
type Source struct {
	Name   string   `mapstructure:"Name"`
	Path   string   `mapstructure:"Path"`
	URL    string   `mapstructure:"URL"`
	MaxAge Duration `mapstructure:"MaxAge"`
	Force  bool     `mapstructure:"Force"`
}

// Source looks up a source by name.
func (c *Config) Source(name string) (Source, bool) {
	for _, s := range c.Sources {
		if s.Name == name {
			return s, true
		}
	}
	return Source{}, false
}

// SourceNames returns the configured names in file order.
func (c *Config) SourceNames() []string {
	names := make([]string, 0, len(c.Sources))
	for _, s := range c.Sources {
		names = append(names, s.Name)
	}
	return names
}
