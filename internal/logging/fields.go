package logging

import (
	"github.com/sirupsen/logrus"

	"github.com/gwillem/filecache/internal/config"
)

// BaseFields are shared by every command entry point.
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// SourceFields describe a configured source.
func SourceFields(src config.Source) logrus.Fields {
	return logrus.Fields{
		"source":  src.Name,
		"path":    src.Path,
		"url":     src.URL,
		"max_age": src.MaxAge.DurationValue().String(),
		"force":   src.Force,
	}
}
