package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Field names shared by every component so log queries stay uniform.
const (
	FieldService       = "service"
	FieldComponent     = "component"
	FieldTour          = "tour"
	FieldEvent         = "event"
	FieldCorrelationID = "correlation_id"
)

var Logger *logrus.Logger

// InitLogger builds the process logger and stores it as the global. An empty
// level means debug in development and info elsewhere; LOG_FORMAT=json forces
// JSON output in development.
func InitLogger(logLevel string, isDevelopment bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetLevel(parseLevel(log, logLevel, isDevelopment))

	if !isDevelopment || strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			ForceColors:     true,
		})
	}

	Logger = log
	return log
}

func parseLevel(log *logrus.Logger, logLevel string, isDevelopment bool) logrus.Level {
	if logLevel == "" {
		if isDevelopment {
			return logrus.DebugLevel
		}
		return logrus.InfoLevel
	}
	level, err := logrus.ParseLevel(strings.ToLower(logLevel))
	if err != nil {
		log.WithField("invalid_level", logLevel).Warn("Invalid LOG_LEVEL, using INFO")
		return logrus.InfoLevel
	}
	return level
}

// GetLogger returns the global logger, initializing a production one on
// first use.
func GetLogger() *logrus.Logger {
	if Logger == nil {
		return InitLogger("info", false)
	}
	return Logger
}

func WithService(serviceName string) *logrus.Entry {
	return GetLogger().WithField(FieldService, serviceName)
}

// WithTournamentContext scopes log lines to a tour and event; empty values
// are omitted.
func WithTournamentContext(tour, eventName string) *logrus.Entry {
	fields := logrus.Fields{}
	if tour != "" {
		fields[FieldTour] = tour
	}
	if eventName != "" {
		fields[FieldEvent] = eventName
	}
	return GetLogger().WithFields(fields)
}
