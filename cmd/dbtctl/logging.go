package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// configureLogger reads the persistent --log-level flag and builds a
// logger for the duration of one subcommand invocation, the same shape
// as blim's configureLogger but wired to dbtctl's single global flag
// rather than a per-command --verbose flag.
func configureLogger(cmd *cobra.Command) (*logrus.Logger, error) {
	level := logrus.InfoLevel
	raw, _ := cmd.Flags().GetString("log-level")
	switch raw {
	case "", "info":
		level = logrus.InfoLevel
	case "debug":
		level = logrus.DebugLevel
	case "warn":
		level = logrus.WarnLevel
	case "error":
		level = logrus.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", raw)
	}
	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	return logger, nil
}
