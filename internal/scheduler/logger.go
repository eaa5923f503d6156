package scheduler

import "github.com/charmbracelet/log"

// gocronLogger routes gocron's own messages into the application log under the "jobs" prefix.
// Info messages are logged at debug level.
type gocronLogger struct {
	l *log.Logger
}

func newGocronLogger(parent *log.Logger) gocronLogger {
	return gocronLogger{l: parent.WithPrefix("jobs")}
}

func (g gocronLogger) Debug(msg string, args ...any) { g.l.Debug(msg, args...) }
func (g gocronLogger) Info(msg string, args ...any)  { g.l.Debug(msg, args...) }
func (g gocronLogger) Warn(msg string, args ...any)  { g.l.Warn(msg, args...) }
func (g gocronLogger) Error(msg string, args ...any) { g.l.Error(msg, args...) }
