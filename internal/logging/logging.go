// Package logging builds the process logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New returns a logger writing to stderr. format "json", or ENVIRONMENT set
// to production, selects the JSON formatter. An unknown level falls back to
// info.
func New(level, format string) *logrus.Logger {
	return newLogger(os.Stderr, level, format, os.Getenv("ENVIRONMENT"))
}

func newLogger(w io.Writer, level, format, env string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)

	if strings.EqualFold(format, "json") || env == "production" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}
