// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// Setup configures logrus' standard logger: JSON in production, full
// timestamped text otherwise. An unparsable level falls back to info.
func Setup(out io.Writer, level string, production bool) *logrus.Logger {
	log := logrus.StandardLogger()
	if production {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		log.Warnf("Invalid LOG_LEVEL '%s', using default 'info'", level)
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	log.SetOutput(out)
	return log
}
