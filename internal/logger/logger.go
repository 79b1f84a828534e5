package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	debugMode bool
	log       = logrus.New()
)

func init() {
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.InfoLevel)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// Fields is an alias so callers don't have to import logrus directly.
type Fields = logrus.Fields

func SetDebugMode(enabled bool) {
	debugMode = enabled
	if debugMode {
		log.SetLevel(logrus.DebugLevel)
		Debug("Debug mode enabled")
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
}

func IsDebugMode() bool {
	return debugMode
}

// SetFormat switches between "text" (default) and "json" output.
func SetFormat(format string) {
	switch strings.ToLower(format) {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	default:
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// SetOutput redirects all log output. The MCP server uses this to keep stdout clean.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

func Debug(format string, args ...interface{}) {
	log.Debugf(format, args...)
}

func Info(format string, args ...interface{}) {
	log.Infof(format, args...)
}

func Error(format string, args ...interface{}) {
	log.Errorf(format, args...)
}

func Warn(format string, args ...interface{}) {
	log.Warnf(format, args...)
}

// WithFields returns an entry carrying structured fields.
func WithFields(fields Fields) *logrus.Entry {
	return log.WithFields(fields)
}

// Request logging function for HTTP requests
func LogRequest(method, path, remoteAddr string) {
	log.WithFields(logrus.Fields{
		"method": method,
		"path":   path,
		"remote": remoteAddr,
	}).Debug("HTTP request")
}

// Response logging function for HTTP responses
func LogResponse(method, path string, statusCode int, duration string) {
	entry := log.WithFields(logrus.Fields{
		"method":   method,
		"path":     path,
		"status":   statusCode,
		"duration": duration,
	})
	if statusCode >= 500 {
		entry.Warn("HTTP response")
		return
	}
	entry.Info("HTTP response")
}
