// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of proctree

package logger

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type LogFormat string

const (
	levelOpt  = "level"
	formatOpt = "format"

	logFormatText LogFormat = "text"
	logFormatJSON LogFormat = "json"

	defaultLogFormat LogFormat    = logFormatText
	defaultLogLevel  logrus.Level = logrus.InfoLevel
)

// DefaultLogger is the base logrus logger. It is different from the logrus
// default to avoid external dependencies from writing out unexpectedly.
var DefaultLogger = initializeDefaultLogger()

// LogOptions maps configuration key-value pairs related to logging.
type LogOptions map[string]string

func initializeDefaultLogger() *logrus.Logger {
	logger := logrus.New()
	formatter, _ := getFormatter(defaultLogFormat)
	logger.SetFormatter(formatter)
	logger.SetLevel(defaultLogLevel)
	return logger
}

func getFormatter(format LogFormat) (logrus.Formatter, error) {
	switch format {
	case logFormatText:
		return &logrus.TextFormatter{DisableColors: true}, nil
	case logFormatJSON:
		return &logrus.JSONFormatter{}, nil
	default:
		return &logrus.TextFormatter{}, fmt.Errorf("invalid log format '%s'", string(format))
	}
}

func (o LogOptions) getLogLevel() logrus.Level {
	l, ok := o[levelOpt]
	if !ok {
		return defaultLogLevel
	}
	level, err := logrus.ParseLevel(l)
	if err != nil {
		logrus.WithError(err).Warning("Ignoring user-configured log level")
		return defaultLogLevel
	}
	return level
}

func (o LogOptions) getLogFormat() LogFormat {
	format, ok := o[formatOpt]
	if !ok {
		return defaultLogFormat
	}
	// Already validated by PopulateLogOpts.
	return LogFormat(strings.ToLower(format))
}

// PopulateLogOpts populates the logger options making sure that passed
// values are valid.
func PopulateLogOpts(o LogOptions, level string, format string) {
	if level != "" {
		if _, err := logrus.ParseLevel(level); err != nil {
			logrus.WithError(fmt.Errorf("incorrect log level '%s'", level)).Warning("Ignoring user-configured log level")
		} else {
			o[levelOpt] = level
		}
	}

	if format != "" {
		format = strings.ToLower(format)
		switch LogFormat(format) {
		case logFormatText, logFormatJSON:
			o[formatOpt] = format
		default:
			logrus.WithError(fmt.Errorf("incorrect log format '%s', expected 'text' or 'json'", format)).Warning("Ignoring user-configured log format")
		}
	}
}

// SetupLogging applies the logger options, taking the debug flag into
// consideration.
func SetupLogging(o LogOptions, debug bool) error {
	formatter, err := getFormatter(o.getLogFormat())
	if err != nil {
		logrus.WithError(err).Warning("Ignoring user-configured log format")
	}
	DefaultLogger.SetFormatter(formatter)
	DefaultLogger.SetOutput(os.Stdout)

	if debug {
		DefaultLogger.SetLevel(logrus.DebugLevel)
	} else {
		DefaultLogger.SetLevel(o.getLogLevel())
	}

	// Suppress the stock logrus logger so libraries don't print things.
	logrus.SetLevel(logrus.PanicLevel)

	return nil
}

// GetLogLevel returns the current log level of the default logger.
func GetLogLevel() logrus.Level {
	return DefaultLogger.GetLevel()
}

// GetLogger returns the default logger.
func GetLogger() logrus.FieldLogger {
	return DefaultLogger
}
