package logger

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Init builds the structured JSON logger used across the planner.
// Unknown levels fall back to info.
func Init(service, level string) *logrus.Entry {
	return New(os.Stdout, service, level)
}

// New is Init with an explicit output.
func New(out io.Writer, service, level string) *logrus.Entry {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "ts",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	return l.WithField("service", service)
}
