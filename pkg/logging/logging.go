package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New builds the process logger: JSON in production, text elsewhere.
// An unknown level falls back to info and is reported once.
func New(appEnv, level string) *logrus.Logger {
	return newWithOutput(os.Stdout, appEnv, level)
}

func newWithOutput(out io.Writer, appEnv, level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)
	if appEnv == "production" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		log.SetLevel(logrus.InfoLevel)
		log.WithField("level", level).Warn("Unknown log level, using info")
		return log
	}
	log.SetLevel(parsed)
	return log
}
