// Package logger configures the process-wide log sink. Batch runs are
// interactive, so the default output is compact [LEVEL] lines in the manner
// of the CLI's progress output; LOG_FORMAT=json switches to structured JSON
// for service deployments. LOG_LEVEL picks the verbosity.
package logger

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

var Logger *logrus.Logger

func init() {
	Logger = logrus.New()
	Logger.SetOutput(os.Stdout)

	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		Logger.SetLevel(lvl)
	} else {
		Logger.SetLevel(logrus.InfoLevel)
	}

	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		Logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		Logger.SetFormatter(&consoleFormatter{})
	}
}

// consoleFormatter renders one "[LEVEL] message key=value ..." line per
// event, fields in key order.
type consoleFormatter struct{}

func (f *consoleFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", strings.ToUpper(entry.Level.String()), entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

// Stage starts a timer for one pipeline stage and returns a func that logs
// the elapsed time. Call it only when the stage succeeded.
func Stage(entry *logrus.Entry, name string) func() {
	start := time.Now()
	return func() {
		entry.WithFields(logrus.Fields{
			"stage":   name,
			"elapsed": time.Since(start).Round(time.Millisecond).String(),
		}).Info("Stage finished")
	}
}

func WithFields(fields logrus.Fields) *logrus.Entry {
	return Logger.WithFields(fields)
}

func WithField(key string, value interface{}) *logrus.Entry {
	return Logger.WithField(key, value)
}

func WithError(err error) *logrus.Entry {
	return Logger.WithError(err)
}

func Info(msg string) {
	Logger.Info(msg)
}

func Error(msg string) {
	Logger.Error(msg)
}

func Debug(msg string) {
	Logger.Debug(msg)
}

func Warn(msg string) {
	Logger.Warn(msg)
}
