// Package event provides the shared application logger.
package event

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Log is the global logger used by all packages.
var Log = logrus.StandardLogger()

func init() {
	Log.SetOutput(os.Stdout)
	Log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		Log.SetLevel(level)
	}
}
