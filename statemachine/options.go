package statemachine

import (
	"time"

	"github.com/amp-labs/chamber/events"
)

const defaultName = "default"

type Option func(*options)

type options struct {
	name          string
	sink          events.Sink
	recoveryDelay time.Duration
}

// WithName labels metrics and spans. Defaults to "default".
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithSink sends runner events to sink instead of the log.
func WithSink(sink events.Sink) Option {
	return func(o *options) {
		if sink != nil {
			o.sink = sink
		}
	}
}

// WithRecoveryDelay pauses for d before re-entering the recovery state after
// a state failed. Zero (the default) re-enters immediately.
func WithRecoveryDelay(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.recoveryDelay = d
		}
	}
}
