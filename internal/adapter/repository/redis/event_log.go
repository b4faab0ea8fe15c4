package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trackbeam/beacon/internal/adapter/metrics"
	"github.com/trackbeam/beacon/internal/domain"
)

// eventStreamKey is the single stream the collector appends envelopes to.
const eventStreamKey = "tracker_events"

var errNotImplemented = errors.New("method not implemented for this repository type")

// EventLog implements the domain.EventLog buffer over Redis Streams,
// with a local WAL failover when Redis is unreachable.
type EventLog struct {
	client       *redis.Client
	logger       *slog.Logger
	wal          domain.WALRepository
	metrics      *metrics.CollectorMetrics
	dlqStreamKey string
	isAvailable  atomic.Bool
}

// NewEventLog creates a new Redis-backed EventLog.
// The WAL and metrics are optional; consumers pass nil.
func NewEventLog(client *redis.Client, logger *slog.Logger, group, dlqStreamKey string, wal domain.WALRepository, m *metrics.CollectorMetrics) (*EventLog, error) {
	repo := &EventLog{
		client:       client,
		logger:       logger.With("component", "redis_event_log"),
		wal:          wal,
		metrics:      m,
		dlqStreamKey: dlqStreamKey,
	}
	repo.isAvailable.Store(true)

	if err := repo.setupConsumerGroup(context.Background(), group); err != nil {
		repo.setAvailable(false)
		repo.logger.Error("failed to setup consumer group, redis may be unavailable on startup", "error", err)
	}

	return repo, nil
}

// StartHealthCheck monitors Redis connectivity and replays the WAL when
// the connection recovers.
func (r *EventLog) StartHealthCheck(ctx context.Context, interval time.Duration) {
	if r.wal == nil {
		r.logger.Info("WAL is not configured, skipping health check/replayer")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("starting redis health check and WAL replayer")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("stopping redis health check")
			return
		case <-ticker.C:
			err := r.client.Ping(ctx).Err()
			if err != nil {
				if r.isAvailable.CompareAndSwap(true, false) {
					r.noteUnavailable()
					r.logger.Error("redis connection lost", "error", err)
				}
			} else {
				if r.isAvailable.CompareAndSwap(false, true) {
					r.noteAvailable()
					r.logger.Info("redis connection recovered")
					if err := r.ReplayWAL(ctx); err != nil {
						r.logger.Error("failed to replay WAL after redis recovery", "error", err)
						r.setAvailable(false)
					}
				}
			}
		}
	}
}

// ReplayWAL replays buffered envelopes into the stream and truncates the
// WAL on success.
func (r *EventLog) ReplayWAL(ctx context.Context) error {
	r.logger.Info("attempting to replay WAL to redis")
	replayHandler := func(event domain.Event) error {
		return r.appendToRedis(ctx, event)
	}

	if err := r.wal.Replay(ctx, replayHandler); err != nil {
		return fmt.Errorf("WAL replay failed: %w", err)
	}

	if err := r.wal.Truncate(ctx); err != nil {
		return fmt.Errorf("failed to truncate WAL after successful replay: %w", err)
	}

	r.logger.Info("WAL replay to redis completed")
	return nil
}

func (r *EventLog) setupConsumerGroup(ctx context.Context, group string) error {
	err := r.client.XGroupCreateMkStream(ctx, eventStreamKey, group, "0").Err()
	if err != nil && !isRedisBusyGroupError(err) {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

// Append adds an envelope to the stream, falling back to the WAL when
// Redis is unavailable.
func (r *EventLog) Append(ctx context.Context, event domain.Event) error {
	if !r.isAvailable.Load() {
		if r.wal == nil {
			return errors.New("redis is unavailable and WAL is not configured")
		}
		r.logger.Warn("redis is unavailable, writing to WAL", "event_id", event.ID)
		return r.wal.Write(ctx, event)
	}

	err := r.appendToRedis(ctx, event)
	if err != nil {
		if isNetworkError(err) {
			if r.isAvailable.CompareAndSwap(true, false) {
				r.noteUnavailable()
				r.logger.Error("redis connection lost during append", "error", err)
			}
			if r.wal == nil {
				return fmt.Errorf("redis became unavailable and WAL is not configured: %w", err)
			}
			r.logger.Warn("redis became unavailable, writing to WAL", "event_id", event.ID)
			return r.wal.Write(ctx, event)
		}
		return err
	}
	return nil
}

func (r *EventLog) appendToRedis(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: eventStreamKey,
		Values: map[string]interface{}{"payload": payload},
	}

	if err := r.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to XADD to redis stream: %w", err)
	}
	return nil
}

// ReadBatch reads a batch of envelopes from the stream for a consumer group.
func (r *EventLog) ReadBatch(ctx context.Context, group, consumer string, count int) ([]domain.Event, error) {
	args := &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{eventStreamKey, ">"},
		Count:    int64(count),
		Block:    2 * time.Second,
	}

	streams, err := r.client.XReadGroup(ctx, args).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to XREADGROUP from redis: %w", err)
	}

	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, nil
	}

	messages := streams[0].Messages
	events := make([]domain.Event, 0, len(messages))
	for _, msg := range messages {
		payload, ok := msg.Values["payload"].(string)
		if !ok {
			r.logger.Warn("invalid message format in stream, skipping", "message_id", msg.ID)
			continue
		}

		var event domain.Event
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			r.logger.Warn("failed to unmarshal event from stream, skipping", "message_id", msg.ID, "error", err)
			continue
		}
		event.StreamMessageID = msg.ID
		events = append(events, event)
	}

	return events, nil
}

// Acknowledge acknowledges processed messages in the stream.
func (r *EventLog) Acknowledge(ctx context.Context, group string, messageIDs ...string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	if err := r.client.XAck(ctx, eventStreamKey, group, messageIDs...).Err(); err != nil {
		return fmt.Errorf("failed to XACK messages in redis: %w", err)
	}
	return nil
}

// MoveToDLQ moves a batch of envelopes to the dead-letter stream.
func (r *EventLog) MoveToDLQ(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			r.logger.Error("failed to marshal event for DLQ", "event_id", event.ID, "error", err)
			continue
		}
		args := &redis.XAddArgs{
			Stream: r.dlqStreamKey,
			Values: map[string]interface{}{
				"payload":         payload,
				"original_stream": eventStreamKey,
				"original_msg_id": event.StreamMessageID,
				"failed_at":       time.Now().UTC().Format(time.RFC3339),
			},
		}
		pipe.XAdd(ctx, args)
	}

	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to execute DLQ pipeline: %w", err)
	}
	r.logger.Warn("moved events to DLQ", "count", len(events))
	return nil
}

// WriteBatch is not implemented for the buffer side.
func (r *EventLog) WriteBatch(ctx context.Context, events []domain.Event) error {
	return errNotImplemented
}

func (r *EventLog) setAvailable(available bool) {
	r.isAvailable.Store(available)
	if available {
		r.noteAvailable()
	} else {
		r.noteUnavailable()
	}
}

func (r *EventLog) noteUnavailable() {
	if r.metrics != nil {
		r.metrics.WALActive.Set(1)
	}
}

func (r *EventLog) noteAvailable() {
	if r.metrics != nil {
		r.metrics.WALActive.Set(0)
	}
}

func isRedisBusyGroupError(err error) bool {
	return err != nil && err.Error() == "BUSYGROUP Consumer Group name already exists"
}

func isNetworkError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, redis.ErrClosed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
