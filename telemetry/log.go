package telemetry

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger builds a logrus logger that writes JSON-formatted entries to
// stderr, tagged with a component field so multi-domain relay processes can
// be told apart in aggregated logs.
func NewLogger(level, component string) *logrus.Entry {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.JSONFormatter{})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	return log.WithField("component", component)
}
