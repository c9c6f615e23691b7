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

// Envelope is a received event with its subject and stream sequence.
type Envelope struct {
	Subject  string `json:"subject"`
	Sequence uint64 `json:"sequence"`
	Event    any    `json:"event"`
}

// Decode parses data according to the subject it was published on.
func Decode(subject string, data []byte) (any, error) {
	var event any
	switch subject {
	case SubjectBlinkCreated:
		event = &BlinkCreatedEvent{}
	case SubjectSignedIn:
		event = &SignedInEvent{}
	default:
		return nil, fmt.Errorf("unknown event subject %q", subject)
	}
	if err := json.Unmarshal(data, event); err != nil {
		return nil, fmt.Errorf("failed to decode %s event: %w", subject, err)
	}
	return event, nil
}

// SubscribeOptions configures a stream consumer.
type SubscribeOptions struct {
	// FilterSubject narrows the consumer, e.g. SubjectBlinkCreated. Empty means every subject.
	FilterSubject string
	// Durable names a consumer that survives restarts. Empty creates an ephemeral one.
	Durable string
}

// Subscriber consumes events from the BLINKS stream.
type Subscriber struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger *slog.Logger
}

// NewSubscriber connects to NATS.
func NewSubscriber(natsURL string, logger *slog.Logger) (*Subscriber, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("blinks-subscriber"),
		nats.Timeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &Subscriber{nc: nc, js: js, logger: logger}, nil
}

// StreamInfo returns the state of the BLINKS stream.
func (s *Subscriber) StreamInfo(ctx context.Context) (*jetstream.StreamInfo, error) {
	stream, err := s.js.Stream(ctx, StreamName)
	if err != nil {
		return nil, fmt.Errorf("failed to get stream: %w", err)
	}
	info, err := stream.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get stream info: %w", err)
	}
	return info, nil
}

// Consume calls handle for every event until ctx is done or handle returns an error.
// Messages that fail to decode are acked and skipped.
func (s *Subscriber) Consume(ctx context.Context, opts SubscribeOptions, handle func(Envelope) error) error {
	cfg := jetstream.ConsumerConfig{
		FilterSubject: opts.FilterSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
	}
	if opts.Durable != "" {
		cfg.Durable = opts.Durable
		cfg.Name = opts.Durable
	}

	cons, err := s.js.CreateOrUpdateConsumer(ctx, StreamName, cfg)
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	msgs := make(chan jetstream.Msg, 10)
	cc, err := cons.Consume(func(msg jetstream.Msg) {
		msgs <- msg
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	defer cc.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-msgs:
			event, err := Decode(msg.Subject(), msg.Data())
			if err != nil {
				s.logger.Warn("skipping event", "subject", msg.Subject(), "error", err)
				msg.Ack()
				continue
			}

			env := Envelope{Subject: msg.Subject(), Event: event}
			if meta, err := msg.Metadata(); err == nil {
				env.Sequence = meta.Sequence.Stream
			}
			if err := handle(env); err != nil {
				return err
			}
			msg.Ack()
		}
	}
}

// Close closes the connection to NATS.
func (s *Subscriber) Close() error {
	if s.nc != nil {
		s.nc.Close()
	}
	return nil
}
