// Package events is the fire-and-forget sink for backup lifecycle events.
// The core never blocks on subscriber processing; a publish failure is
// logged and dropped.
package events

import (
	"context"

	"github.com/rs/zerolog"
)

// Publisher delivers one domain event. Implementations must not block the
// caller beyond the local send.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any)
}

// LogPublisher writes events to the structured log. Used when no message
// broker is configured.
type LogPublisher struct {
	logger zerolog.Logger
}

func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With().Str("component", "events").Logger()}
}

func (p *LogPublisher) Publish(ctx context.Context, eventType string, payload any) {
	p.logger.Info().Str("event", eventType).Interface("payload", payload).Msg("event")
}
