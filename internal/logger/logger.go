package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger wraps a logrus logger that stamps every entry with the service name.
type Logger struct {
	*logrus.Logger
	service string
}

// New creates a JSON logger writing to stdout. level is one of debug, info,
// warn or error; anything else means info.
func New(serviceName, level string) *Logger {
	return newLogger(serviceName, level, os.Stdout)
}

// NewTo is New with an explicit destination; CLIs log to stderr.
func NewTo(serviceName, level string, out io.Writer) *Logger {
	return newLogger(serviceName, level, out)
}

// Discard returns a logger that drops everything. Tests use it.
func Discard() *Logger {
	return newLogger("test", "error", io.Discard)
}

func newLogger(serviceName, level string, out io.Writer) *Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	log.SetOutput(out)
	log.SetLevel(ParseLevel(level))
	return &Logger{Logger: log, service: serviceName}
}

// ParseLevel maps a LOG_LEVEL value to a logrus level.
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Component returns an entry tagged with the service and a component name.
func (l *Logger) Component(name string) *logrus.Entry {
	return l.WithFields(logrus.Fields{"service": l.service, "component": name})
}

// WithRequestID adds the request id to the entry.
func (l *Logger) WithRequestID(requestID string) *logrus.Entry {
	return l.WithFields(logrus.Fields{"service": l.service, "request_id": requestID})
}

// Default is an entry on the logrus standard logger, used by components that
// were not handed a logger.
func Default(component string) *logrus.Entry {
	return logrus.StandardLogger().WithField("component", component)
}
