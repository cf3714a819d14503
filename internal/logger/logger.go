package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New creates a logger with the specified level. Production output is JSON so
// it can be shipped as-is; everything else gets the human readable formatter.
func New(level, environment string) *logrus.Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if environment == "production" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	logger.SetOutput(os.Stdout)

	return logger
}
