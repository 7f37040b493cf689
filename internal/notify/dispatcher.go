// Package notify fans operator messages out to every configured channel.
// Delivery problems are logged and never surface as errors: a broken
// webhook must not abort a run.
package notify

import (
	"context"
	"log/slog"

	"SubredditOfTheDay/internal/domain"
	"SubredditOfTheDay/internal/ports"
)

// Sink is a named delivery channel.
type Sink struct {
	Name     string
	Notifier ports.Notifier
}

// Dispatcher delivers a message to all sinks.
type Dispatcher struct {
	sinks  []Sink
	logger *slog.Logger
}

var _ ports.Notifier = (*Dispatcher)(nil)

// NewDispatcher skips sinks without a notifier.
func NewDispatcher(logger *slog.Logger, sinks ...Sink) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	d := &Dispatcher{logger: logger}
	for _, sink := range sinks {
		if sink.Notifier != nil {
			d.sinks = append(d.sinks, sink)
		}
	}
	return d
}

// Len reports the number of active sinks.
func (d *Dispatcher) Len() int {
	return len(d.sinks)
}

// Notify always returns nil.
func (d *Dispatcher) Notify(ctx context.Context, msg domain.Message) error {
	if len(d.sinks) == 0 {
		d.logger.Debug("no notification sinks configured", "title", msg.Title)
		return nil
	}
	for _, sink := range d.sinks {
		if err := sink.Notifier.Notify(ctx, msg); err != nil {
			d.logger.Error("notification delivery failed", "sink", sink.Name, "title", msg.Title, "error", err)
			continue
		}
		d.logger.Debug("notification delivered", "sink", sink.Name, "title", msg.Title)
	}
	return nil
}
