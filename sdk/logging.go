package sdk

import (
	"os"

	"github.com/sirupsen/logrus"
)

func newDefaultLogger(debug bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if debug {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.WarnLevel)
	}
	return logger
}

// componentLogger scopes a logger to one SDK component.
func componentLogger(logger *logrus.Logger, component string) *logrus.Entry {
	if logger == nil {
		logger = newDefaultLogger(false)
	}
	return logger.WithField("component", component)
}
