package events

import (
	"context"
	"sync"
)

// MockPublisher is a mock implementation of Publisher for testing.
type MockPublisher struct {
	mu           sync.RWMutex
	blinks       []*BlinkCreatedEvent
	signIns      []*SignedInEvent
	publishError error
	closed       bool
}

// NewMockPublisher creates a new mock publisher for testing.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// PublishBlinkCreated records the event and returns any configured error.
func (m *MockPublisher) PublishBlinkCreated(ctx context.Context, event *BlinkCreatedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishError != nil {
		return m.publishError
	}
	m.blinks = append(m.blinks, event)
	return nil
}

// PublishSignedIn records the event and returns any configured error.
func (m *MockPublisher) PublishSignedIn(ctx context.Context, event *SignedInEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishError != nil {
		return m.publishError
	}
	m.signIns = append(m.signIns, event)
	return nil
}

// Close marks the publisher as closed.
func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// BlinkEvents returns a copy of the published blink events.
func (m *MockPublisher) BlinkEvents() []*BlinkCreatedEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]*BlinkCreatedEvent, len(m.blinks))
	copy(events, m.blinks)
	return events
}

// SignInEvents returns a copy of the published sign-in events.
func (m *MockPublisher) SignInEvents() []*SignedInEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]*SignedInEvent, len(m.signIns))
	copy(events, m.signIns)
	return events
}

// SetPublishError configures the mock to fail every publish.
func (m *MockPublisher) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishError = err
}

// IsClosed returns whether the publisher has been closed.
func (m *MockPublisher) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
