package sink

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Log writes every event to the logger. Useful for debugging a new feed
// before wiring a real consumer.
type Log struct {
	Logger *logrus.Logger
}

func (l *Log) Publish(_ context.Context, ev Event) error {
	l.Logger.WithFields(logrus.Fields{
		"kind":   ev.Kind,
		"symbol": ev.Symbol,
	}).Info("stream event")
	return nil
}
