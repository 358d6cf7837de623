package notifier

import (
	"context"
	"errors"
	"fmt"
)

// Notifier delivers a titled message to an operator channel.
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
	Name() string
}

// ErrNoChannels is returned when a message has nowhere to go.
var ErrNoChannels = errors.New("no notification channel configured")

// MultiNotifier fans a message out to every configured channel.
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier skips nil entries.
func NewMultiNotifier(ns ...Notifier) *MultiNotifier {
	m := &MultiNotifier{}
	for _, n := range ns {
		if n != nil {
			m.notifiers = append(m.notifiers, n)
		}
	}
	return m
}

func (m *MultiNotifier) Name() string { return "multi" }

// Len returns the number of channels.
func (m *MultiNotifier) Len() int { return len(m.notifiers) }

// Notify sends to all channels and joins their errors. One failing channel
// does not stop delivery to the others. With no channels it fails with
// ErrNoChannels so callers never treat the message as delivered.
func (m *MultiNotifier) Notify(ctx context.Context, title, body string) error {
	if len(m.notifiers) == 0 {
		return ErrNoChannels
	}
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, title, body); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// NoopNotifier drops every message.
type NoopNotifier struct{}

func (NoopNotifier) Name() string                                 { return "noop" }
func (NoopNotifier) Notify(context.Context, string, string) error { return nil }
