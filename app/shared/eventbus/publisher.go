package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmnats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	nc "github.com/nats-io/nats.go"

	"github.com/aceclub-io/ace-engine/app/shared/attr"
)

// Publisher is the notification collaborator boundary. Every publish is
// fire-and-forget from the engine's point of view: a failed publish is logged
// and never rolls back the state transition that triggered it.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
	Close() error
}

// NatsPublisher publishes JSON payloads to NATS JetStream through watermill.
type NatsPublisher struct {
	publisher message.Publisher
	logger    *slog.Logger
}

// NewNatsPublisher connects to NATS and builds a JetStream publisher.
func NewNatsPublisher(natsURL string, logger *slog.Logger) (*NatsPublisher, error) {
	options := []nc.Option{
		nc.RetryOnFailedConnect(true),
		nc.Timeout(30 * time.Second),
		nc.ReconnectWait(1 * time.Second),
	}

	wmLogger := watermill.NewSlogLogger(logger)

	publisher, err := wmnats.NewPublisher(
		wmnats.PublisherConfig{
			URL:         natsURL,
			NatsOptions: options,
			Marshaler:   &wmnats.NATSMarshaler{},
			JetStream: wmnats.JetStreamConfig{
				Disabled:      false,
				AutoProvision: true,
			},
		},
		wmLogger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create NATS publisher: %w", err)
	}

	return &NatsPublisher{publisher: publisher, logger: logger}, nil
}

func (p *NatsPublisher) Publish(ctx context.Context, subject string, payload any) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload for %s: %w", subject, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payloadBytes)
	msg.Metadata.Set("subject", subject)

	if err := p.publisher.Publish(subject, msg); err != nil {
		p.logger.ErrorContext(ctx, "Failed to publish event",
			attr.ExtractCorrelationID(ctx),
			attr.String("subject", subject),
			attr.Error(err),
		)
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}

	p.logger.DebugContext(ctx, "Event published",
		attr.ExtractCorrelationID(ctx),
		attr.String("subject", subject),
		attr.String("message_id", msg.UUID),
	)
	return nil
}

func (p *NatsPublisher) Close() error {
	return p.publisher.Close()
}

// NoopPublisher drops every event. Used in tests and the sweeper CLI when no
// NATS URL is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, any) error { return nil }

func (NoopPublisher) Close() error { return nil }
