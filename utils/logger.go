package utils

import (
	"os"

	"github.com/sirupsen/logrus"
)

var (
	InfoLogger  *logrus.Logger
	ErrorLogger *logrus.Logger
)

func init() {
	// usable before InitLogger runs, e.g. in tests that skip main
	InfoLogger = logrus.New()
	ErrorLogger = logrus.New()
}

// InitLogger configures the info and error loggers. An unknown level falls
// back to info.
func InitLogger(level string) {
	InfoLogger = logrus.New()
	ErrorLogger = logrus.New()

	InfoLogger.SetOutput(os.Stdout)
	InfoLogger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	ErrorLogger.SetOutput(os.Stderr)
	ErrorLogger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
		InfoLogger.Warnf("unknown log level %q, using info", level)
	}
	InfoLogger.SetLevel(lvl)
	// warnings for degraded but working paths go to the error log too
	ErrorLogger.SetLevel(logrus.WarnLevel)
}
