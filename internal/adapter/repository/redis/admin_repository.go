package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trackbeam/beacon/internal/domain"
)

// AdminRepository implements domain.StreamAdminRepository over the fixed
// event stream.
type AdminRepository struct {
	client *redis.Client
	logger *slog.Logger
}

// NewAdminRepository creates a new Redis admin repository.
func NewAdminRepository(client *redis.Client, logger *slog.Logger) *AdminRepository {
	return &AdminRepository{
		client: client,
		logger: logger,
	}
}

// GetGroupInfo retrieves information about all consumer groups on the
// event stream.
func (r *AdminRepository) GetGroupInfo(ctx context.Context) ([]domain.ConsumerGroupInfo, error) {
	groups, err := r.client.XInfoGroups(ctx, eventStreamKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get group info for stream %s: %w", eventStreamKey, err)
	}

	result := make([]domain.ConsumerGroupInfo, len(groups))
	for i, g := range groups {
		result[i] = domain.ConsumerGroupInfo{
			Name:            g.Name,
			Consumers:       g.Consumers,
			Pending:         g.Pending,
			LastDeliveredID: g.LastDeliveredID,
		}
	}
	return result, nil
}

// GetPendingSummary retrieves a summary of pending envelopes for a group.
func (r *AdminRepository) GetPendingSummary(ctx context.Context, group string) (*domain.PendingSummary, error) {
	pending, err := r.client.XPending(ctx, eventStreamKey, group).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get pending summary for group %s: %w", group, err)
	}

	summary := &domain.PendingSummary{
		Total:          pending.Count,
		FirstMessageID: pending.Lower,
		LastMessageID:  pending.Higher,
		ConsumerTotals: pending.Consumers,
	}
	return summary, nil
}

// GetPendingMessages retrieves detailed information about pending envelopes.
func (r *AdminRepository) GetPendingMessages(ctx context.Context, group, consumer, startID string, count int64) ([]domain.PendingDetail, error) {
	args := &redis.XPendingExtArgs{
		Stream:   eventStreamKey,
		Group:    group,
		Start:    startID,
		End:      "+",
		Count:    count,
		Consumer: consumer,
	}

	messages, err := r.client.XPendingExt(ctx, args).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get pending messages: %w", err)
	}

	result := make([]domain.PendingDetail, len(messages))
	for i, m := range messages {
		result[i] = domain.PendingDetail{
			ID:         m.ID,
			Consumer:   m.Consumer,
			IdleTime:   m.Idle,
			RetryCount: m.RetryCount,
		}
	}
	return result, nil
}

// ClaimEvents claims pending envelopes for a new consumer.
func (r *AdminRepository) ClaimEvents(ctx context.Context, group, consumer string, minIdleMillis int64, messageIDs []string) ([]domain.Event, error) {
	args := &redis.XClaimArgs{
		Stream:   eventStreamKey,
		Group:    group,
		Consumer: consumer,
		MinIdle:  time.Duration(minIdleMillis) * time.Millisecond,
		Messages: messageIDs,
	}

	claimedMessages, err := r.client.XClaim(ctx, args).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to claim messages: %w", err)
	}

	events := make([]domain.Event, 0, len(claimedMessages))
	for _, msg := range claimedMessages {
		payload, ok := msg.Values["payload"].(string)
		if !ok {
			r.logger.Warn("claimed message has no payload, skipping", "message_id", msg.ID)
			continue
		}

		var event domain.Event
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			r.logger.Warn("failed to unmarshal claimed envelope", "message_id", msg.ID, "error", err)
			continue
		}
		event.StreamMessageID = msg.ID
		events = append(events, event)
	}
	return events, nil
}

// AcknowledgeMessages acknowledges envelopes on behalf of a group.
func (r *AdminRepository) AcknowledgeMessages(ctx context.Context, group string, messageIDs ...string) (int64, error) {
	if len(messageIDs) == 0 {
		return 0, errors.New("at least one message ID is required")
	}
	return r.client.XAck(ctx, eventStreamKey, group, messageIDs...).Result()
}

// TrimStream trims the event stream to a maximum length.
func (r *AdminRepository) TrimStream(ctx context.Context, maxLen int64) (int64, error) {
	return r.client.XTrimMaxLen(ctx, eventStreamKey, maxLen).Result()
}
