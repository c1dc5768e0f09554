package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger builds a logrus logger from the configured level and format.
// Unknown levels fall back to info.
func NewLogger(level, format string, disableTimestamp bool) *logrus.Logger {
	log := logrus.New()
	switch format {
	case "json":
		log.Formatter = &logrus.JSONFormatter{
			DisableTimestamp: disableTimestamp,
		}
	default:
		log.Formatter = &logrus.TextFormatter{
			DisableColors:    false,
			DisableTimestamp: disableTimestamp,
		}
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.Level = lvl
	log.Out = os.Stdout
	return log
}
