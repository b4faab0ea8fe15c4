package domain

import "context"

// EventLog is the shared append-only data layer. The write side appends
// exactly one entry per emitted event; entries are never removed or
// mutated. The read side is used by consumer workers draining the buffer
// into the structured sink.
type EventLog interface {
	// Append adds a single event to the log.
	Append(ctx context.Context, event Event) error

	// ReadBatch reads a batch of events from the log for a consumer group.
	ReadBatch(ctx context.Context, group, consumer string, count int) ([]Event, error)

	// WriteBatch writes a batch of events to the final structured sink.
	WriteBatch(ctx context.Context, events []Event) error

	// Acknowledge marks events as processed in the buffer.
	Acknowledge(ctx context.Context, group string, messageIDs ...string) error
}

// StateStore is the durable client-side storage visible to the tracker —
// cookies, in the HTTP rendition. Session-scoped entries clear when the
// browser session ends; durable entries persist. Missing keys read as "".
type StateStore interface {
	Get(key string) string
	SetSession(key, value string)
	SetDurable(key, value string)
}

// TrackingKeyRepository validates tenant tracking keys for the read-side
// API. Implementations should cache lookups to reduce database load.
type TrackingKeyRepository interface {
	IsValid(ctx context.Context, key string) (bool, error)
}

// WALRepository is the local append-only failover log used when the data
// layer buffer is unreachable.
type WALRepository interface {
	// Write appends an event to the current WAL segment.
	Write(ctx context.Context, event Event) error

	// Replay reads buffered events and hands them to the handler, which is
	// responsible for re-appending them to the recovered buffer.
	Replay(ctx context.Context, handler func(event Event) error) error

	// Truncate removes segments that have been successfully replayed.
	Truncate(ctx context.Context) error
}

// StreamAdminRepository exposes consumer-group administration over the
// data-layer stream.
type StreamAdminRepository interface {
	GetGroupInfo(ctx context.Context) ([]ConsumerGroupInfo, error)
	GetPendingSummary(ctx context.Context, group string) (*PendingSummary, error)
	GetPendingMessages(ctx context.Context, group, consumer, startID string, count int64) ([]PendingDetail, error)
	ClaimEvents(ctx context.Context, group, consumer string, minIdleMillis int64, messageIDs []string) ([]Event, error)
	AcknowledgeMessages(ctx context.Context, group string, messageIDs ...string) (int64, error)
	TrimStream(ctx context.Context, maxLen int64) (int64, error)
}
