package nats

import (
	"context"
	"sync"
)

// MockPublisher is a mock implementation of Publisher for testing.
type MockPublisher struct {
	mu              sync.RWMutex
	publishedEvents []*ScanEvent
	publishError    error
	closed          bool
}

// NewMockPublisher creates a new mock publisher for testing.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		publishedEvents: make([]*ScanEvent, 0),
	}
}

// PublishScan records the event and returns any configured error.
func (m *MockPublisher) PublishScan(ctx context.Context, event *ScanEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishError != nil {
		return m.publishError
	}

	m.publishedEvents = append(m.publishedEvents, event)
	return nil
}

// Close marks the publisher as closed.
func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// GetPublishedEvents returns a copy of all published events.
func (m *MockPublisher) GetPublishedEvents() []*ScanEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]*ScanEvent, len(m.publishedEvents))
	copy(events, m.publishedEvents)
	return events
}

// GetEventsForWallet returns all events published for a specific wallet.
func (m *MockPublisher) GetEventsForWallet(wallet string) []*ScanEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var events []*ScanEvent
	for _, event := range m.publishedEvents {
		if event.Wallet == wallet {
			events = append(events, event)
		}
	}
	return events
}

// IsClosed reports whether Close was called.
func (m *MockPublisher) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// SetPublishError configures the mock to return an error on PublishScan.
func (m *MockPublisher) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishError = err
}

// Reset clears all published events and errors.
func (m *MockPublisher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishedEvents = make([]*ScanEvent, 0)
	m.publishError = nil
}
