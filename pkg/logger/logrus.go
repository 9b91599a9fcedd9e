package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogrus builds the JSON logrus logger used by outbound integration clients.
// Unknown levels fall back to info.
func NewLogrus(level string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.JSONFormatter{})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return l
}
