package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Configure sets up the process-wide logrus logger. Packages log through the
// standard logger so call sites only import logrus.
func Configure(level, format string) {
	Apply(logrus.StandardLogger(), level, format, os.Stdout)
}

// New returns a standalone logger with the same settings as Configure.
func New(level, format string, out io.Writer) *logrus.Logger {
	l := logrus.New()
	Apply(l, level, format, out)
	return l
}

// Apply configures level, formatter and output on l. Unknown levels fall
// back to info.
func Apply(l *logrus.Logger, level, format string, out io.Writer) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	if strings.EqualFold(format, "text") {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	}
	if out != nil {
		l.SetOutput(out)
	}
}

// Audit writes an authorization audit event. Allowed events log at info,
// denials at warn.
func Audit(l logrus.FieldLogger, userID, role, operation string, allowed bool, fields logrus.Fields) {
	if l == nil {
		l = logrus.StandardLogger()
	}
	entry := l.WithFields(logrus.Fields{
		"audit":     true,
		"user_id":   userID,
		"role":      role,
		"operation": operation,
		"allowed":   allowed,
	})
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}

	if allowed {
		entry.Info("authorization granted")
	} else {
		entry.Warn("authorization denied")
	}
}
