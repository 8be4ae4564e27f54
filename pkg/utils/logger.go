// Package utils provides shared utility functions
package utils

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the global logger instance
var Logger *logrus.Logger

func init() {
	Logger = NewLogger("info", "stdout")
}

// NewLogger creates a new configured logger
func NewLogger(level, output string) *logrus.Logger {
	logger := logrus.New()

	// Set log level
	switch level {
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "info":
		logger.SetLevel(logrus.InfoLevel)
	case "warn":
		logger.SetLevel(logrus.WarnLevel)
	case "error":
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	// Set output
	if output == "stdout" {
		logger.SetOutput(os.Stdout)
	} else {
		file, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err == nil {
			logger.SetOutput(file)
		} else {
			logger.SetOutput(os.Stdout)
			logger.Warnf("Failed to open log file %s, using stdout", output)
		}
	}

	// JSON format for structured logging
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})

	return logger
}

// SetLogLevel changes the log level at runtime
func SetLogLevel(level string) {
	switch level {
	case "debug":
		Logger.SetLevel(logrus.DebugLevel)
	case "info":
		Logger.SetLevel(logrus.InfoLevel)
	case "warn":
		Logger.SetLevel(logrus.WarnLevel)
	case "error":
		Logger.SetLevel(logrus.ErrorLevel)
	}
}

// WithComponent returns a logger entry tagged with a component field so
// every subsystem's log lines can be filtered by origin downstream.
func WithComponent(logger *logrus.Logger, component string) *logrus.Entry {
	if logger == nil {
		logger = Logger
	}
	return logger.WithField("component", component)
}

// WithPhase tags a log entry with the flight phase active when it was
// emitted, so a panic or anomaly in the tick loop can be correlated
// with what the aircraft was doing (taxiing out vs. on approach are
// very different failure contexts) without grepping timestamps
// against a separate phase-change log.
func WithPhase(entry *logrus.Entry, phase string) *logrus.Entry {
	if entry == nil {
		entry = WithComponent(nil, "unknown")
	}
	return entry.WithField("phase", phase)
}
