package mocks

import (
	"context"
	"sync"

	"github.com/trackbeam/beacon/internal/domain"
)

// MockEventLog is a hand-written in-memory implementation of
// domain.EventLog for tests.
type MockEventLog struct {
	mu              sync.Mutex
	AppendedEvents  []domain.Event
	WrittenEvents   []domain.Event
	AckedMessageIDs []string
	ReadBatchResult []domain.Event
	DLQEvents       []domain.Event
	AppendErr       error
	ReadErr         error
	WriteErr        error
	AckErr          error
	DLQErr          error
}

func (m *MockEventLog) Append(ctx context.Context, event domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AppendErr != nil {
		return m.AppendErr
	}
	m.AppendedEvents = append(m.AppendedEvents, event)
	return nil
}

func (m *MockEventLog) ReadBatch(ctx context.Context, group, consumer string, count int) ([]domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	return m.ReadBatchResult, nil
}

func (m *MockEventLog) WriteBatch(ctx context.Context, events []domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.WrittenEvents = append(m.WrittenEvents, events...)
	return nil
}

func (m *MockEventLog) Acknowledge(ctx context.Context, group string, messageIDs ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AckErr != nil {
		return m.AckErr
	}
	m.AckedMessageIDs = append(m.AckedMessageIDs, messageIDs...)
	return nil
}

func (m *MockEventLog) MoveToDLQ(ctx context.Context, events []domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DLQErr != nil {
		return m.DLQErr
	}
	m.DLQEvents = append(m.DLQEvents, events...)
	return nil
}

// Events returns a copy of the appended events.
func (m *MockEventLog) Events() []domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Event, len(m.AppendedEvents))
	copy(out, m.AppendedEvents)
	return out
}

// MemoryStateStore implements domain.StateStore over plain maps,
// standing in for browser cookies in unit tests.
type MemoryStateStore struct {
	mu      sync.Mutex
	Session map[string]string
	Durable map[string]string
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{
		Session: make(map[string]string),
		Durable: make(map[string]string),
	}
}

func (s *MemoryStateStore) Get(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.Session[key]; ok {
		return v
	}
	return s.Durable[key]
}

func (s *MemoryStateStore) SetSession(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Session[key] = value
}

func (s *MemoryStateStore) SetDurable(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Durable[key] = value
}

// EndSession simulates the end of a browser session by clearing all
// session-scoped entries.
func (s *MemoryStateStore) EndSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Session = make(map[string]string)
}

// MockTrackingKeyRepository is a canned domain.TrackingKeyRepository.
type MockTrackingKeyRepository struct {
	ValidKeys map[string]bool
	Err       error
}

func (m *MockTrackingKeyRepository) IsValid(ctx context.Context, key string) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	return m.ValidKeys[key], nil
}
