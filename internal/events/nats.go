package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const subjectPrefix = "gamehost."

// NATSPublisher publishes events as JSON on "gamehost.<event type>"
// subjects. Publishing is fire-and-forget: failures are logged, never
// returned to the core.
type NATSPublisher struct {
	conn   *nats.Conn
	logger zerolog.Logger
}

func NewNATSPublisher(url string, logger zerolog.Logger) (*NATSPublisher, error) {
	log := logger.With().Str("component", "events").Logger()

	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	return &NATSPublisher{conn: conn, logger: log}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error().Err(err).Str("event", eventType).Msg("marshal event payload")
		return
	}
	if err := p.conn.Publish(subjectPrefix+eventType, data); err != nil {
		p.logger.Warn().Err(err).Str("event", eventType).Msg("publish event")
	}
}

func (p *NATSPublisher) Close() {
	p.conn.Close()
}
