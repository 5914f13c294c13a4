package events

import (
	"context"
	"log/slog"

	"github.com/amp-labs/chamber/logger"
)

// LogSink renders events through the context logger. Readings go out at
// info, retries and recoveries at warn, everything else at debug.
type LogSink struct{}

func (LogSink) Emit(ctx context.Context, ev Event) {
	log := logger.Get(ctx)

	switch ev.Kind {
	case KindPollReading:
		log.InfoContext(ctx, "chamber reading",
			"state", ev.State,
			"temperature_f", ev.TemperatureF,
			"relative_humidity", ev.RelativeHumidity)
	case KindRetryAttempt:
		log.WarnContext(ctx, "remote call failed, retrying",
			"state", ev.State,
			"operation", ev.Operation,
			"attempt", ev.Attempt,
			"delay", ev.Delay,
			"error", ev.Err)
	case KindRecoveryEntered:
		log.WarnContext(ctx, "transitioning to recovery state",
			"from", ev.From,
			"to", ev.To,
			"reason", ev.Reason,
			"error", ev.Err)
	case KindStateTransition:
		log.DebugContext(ctx, "state transition", "from", ev.From, "to", ev.To)
	case KindStateEntered:
		log.InfoContext(ctx, "executing state", "state", ev.State)
	case KindActuatorSet:
		log.DebugContext(ctx, "actuator set", "state", ev.State, "actuator", ev.Operation, "on", ev.On)
	default:
		log.Log(ctx, slog.LevelDebug, "event", "kind", string(ev.Kind))
	}
}
