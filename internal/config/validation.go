package config

import (
	"fmt"
	"net/url"
	"strings"
)

// FieldError points at the config field that failed validation.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

func newFieldError(field, reason string) error {
	return &FieldError{Field: field, Reason: reason}
}

func sourceField(name, field string) string {
	return fmt.Sprintf("Source[%s].%s", name, field)
}

// Validate checks global settings and every source.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.CacheRoot) == "" {
		return newFieldError("CacheRoot", "must not be empty")
	}
	if c.FetchTimeout.DurationValue() < 0 {
		return newFieldError("FetchTimeout", "must not be negative")
	}
	if c.LogMaxSize < 0 {
		return newFieldError("LogMaxSize", "must not be negative")
	}
	if c.LogMaxBackups < 0 {
		return newFieldError("LogMaxBackups", "must not be negative")
	}

	seen := make(map[string]struct{}, len(c.Sources))
	for i, s := range c.Sources {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			return newFieldError(sourceField(fmt.Sprintf("#%d", i), "Name"), "must not be empty")
		}
		if _, ok := seen[name]; ok {
			return newFieldError(sourceField(name, "Name"), "duplicate source name")
		}
		seen[name] = struct{}{}

		if strings.TrimSpace(s.Path) == "" {
			return newFieldError(sourceField(name, "Path"), "must not be empty")
		}
		u, err := url.Parse(s.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return newFieldError(sourceField(name, "URL"), "must be an absolute http(s) URL")
		}
		if s.MaxAge.DurationValue() < 0 {
			return newFieldError(sourceField(name, "MaxAge"), "must not be negative")
		}
	}
	return nil
}
