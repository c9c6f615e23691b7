// Package events publishes domain events to NATS JetStream.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Publisher defines the interface for publishing domain events.
type Publisher interface {
	// PublishBlinkCreated publishes to SubjectBlinkCreated.
	PublishBlinkCreated(ctx context.Context, event *BlinkCreatedEvent) error

	// PublishSignedIn publishes to SubjectSignedIn.
	PublishSignedIn(ctx context.Context, event *SignedInEvent) error

	// Close closes the connection to NATS.
	Close() error
}

// JetStreamPublisher publishes events to NATS JetStream.
type JetStreamPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger *slog.Logger
}

const (
	// StreamName is the name of the JetStream stream for blink events.
	StreamName = "BLINKS"

	// StreamRetention is how long messages are retained.
	StreamRetention = 30 * 24 * time.Hour
)

// StreamSubjects are the subject patterns captured by the stream.
var StreamSubjects = []string{"blinks.>", "auth.>"}

// NewPublisher creates a new JetStream publisher.
// It connects to NATS and ensures the stream exists.
func NewPublisher(natsURL string, logger *slog.Logger) (*JetStreamPublisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("blinks-publisher"),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(1*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	publisher := &JetStreamPublisher{
		nc:     nc,
		js:     js,
		logger: logger,
	}

	if err := publisher.ensureStream(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream exists: %w", err)
	}

	logger.Info("NATS publisher initialized",
		"url", natsURL,
		"stream", StreamName,
	)

	return publisher, nil
}

// ensureStream creates the JetStream stream if it doesn't exist.
func (p *JetStreamPublisher) ensureStream() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := p.js.Stream(ctx, StreamName); err == nil {
		p.logger.Debug("JetStream stream already exists", "stream", StreamName)
		return nil
	}

	p.logger.Info("creating JetStream stream", "stream", StreamName)

	_, err := p.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Description: "Blink creation and wallet sign-in events",
		Subjects:    StreamSubjects,
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      StreamRetention,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

func (p *JetStreamPublisher) publish(ctx context.Context, subject string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	p.logger.Debug("published event", "subject", subject)
	return nil
}

// PublishBlinkCreated publishes a blink creation event.
func (p *JetStreamPublisher) PublishBlinkCreated(ctx context.Context, event *BlinkCreatedEvent) error {
	return p.publish(ctx, SubjectBlinkCreated, event)
}

// PublishSignedIn publishes a sign-in event.
func (p *JetStreamPublisher) PublishSignedIn(ctx context.Context, event *SignedInEvent) error {
	return p.publish(ctx, SubjectSignedIn, event)
}

// Close closes the connection to NATS.
func (p *JetStreamPublisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
		p.logger.Info("NATS publisher closed")
	}
	return nil
}

// NopPublisher discards every event. It is used when NATS is not configured.
type NopPublisher struct{}

func (NopPublisher) PublishBlinkCreated(context.Context, *BlinkCreatedEvent) error { return nil }
func (NopPublisher) PublishSignedIn(context.Context, *SignedInEvent) error         { return nil }
func (NopPublisher) Close() error                                                  { return nil }
