package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/trackbeam/beacon/internal/domain"
)

const defaultBatchSize = 1000

// DeadLetterer is implemented by buffer repositories that support moving
// poison events to a dead-letter stream.
type DeadLetterer interface {
	MoveToDLQ(ctx context.Context, events []domain.Event) error
}

// ProcessEventsUseCase drains event envelopes from the buffer and writes
// them to the structured sink, acknowledging on success.
type ProcessEventsUseCase struct {
	bufferRepo   domain.EventLog
	sinkRepo     domain.EventLog
	logger       *slog.Logger
	group        string
	consumer     string
	retryCount   int
	retryBackoff time.Duration
}

// NewProcessEventsUseCase creates a new use case for sinking events.
func NewProcessEventsUseCase(bufferRepo, sinkRepo domain.EventLog, logger *slog.Logger, group, consumer string, retryCount int, retryBackoff time.Duration) *ProcessEventsUseCase {
	return &ProcessEventsUseCase{
		bufferRepo:   bufferRepo,
		sinkRepo:     sinkRepo,
		logger:       logger,
		group:        group,
		consumer:     consumer,
		retryCount:   retryCount,
		retryBackoff: retryBackoff,
	}
}

// ProcessBatch reads a batch of envelopes, writes them to the sink with
// retries, and acknowledges them in the buffer. Batches that exhaust
// their retries move to the DLQ and are acknowledged so they stop
// blocking the group.
func (uc *ProcessEventsUseCase) ProcessBatch(ctx context.Context) (int, error) {
	events, err := uc.bufferRepo.ReadBatch(ctx, uc.group, uc.consumer, defaultBatchSize)
	if err != nil {
		uc.logger.Error("failed to read event batch from buffer", "error", err)
		return 0, err
	}

	if len(events) == 0 {
		return 0, nil
	}

	uc.logger.Debug("read batch of events from buffer", "count", len(events))

	if err := uc.writeWithRetry(ctx, events); err != nil {
		uc.logger.Error("failed to write event batch to sink after retries", "error", err)

		if dlq, ok := uc.bufferRepo.(DeadLetterer); ok {
			if dlqErr := dlq.MoveToDLQ(ctx, events); dlqErr != nil {
				uc.logger.Error("failed to move events to DLQ", "error", dlqErr)
				return 0, dlqErr
			}
			// Acked below so the poison batch is not redelivered; the
			// envelopes live on in the DLQ stream.
			if ackErr := uc.acknowledge(ctx, events); ackErr != nil {
				return 0, ackErr
			}
		}
		return 0, err
	}

	if err := uc.acknowledge(ctx, events); err != nil {
		// The events are in the sink but not acked. They will be
		// redelivered; the sink upsert absorbs the duplicates.
		return 0, err
	}

	uc.logger.Info("processed event batch", "count", len(events))
	return len(events), nil
}

func (uc *ProcessEventsUseCase) acknowledge(ctx context.Context, events []domain.Event) error {
	messageIDs := make([]string, len(events))
	for i, event := range events {
		messageIDs[i] = event.StreamMessageID
	}
	if err := uc.bufferRepo.Acknowledge(ctx, uc.group, messageIDs...); err != nil {
		uc.logger.Error("failed to acknowledge events in buffer", "error", err)
		return err
	}
	return nil
}

func (uc *ProcessEventsUseCase) writeWithRetry(ctx context.Context, events []domain.Event) error {
	var lastErr error
	for i := 0; i < uc.retryCount; i++ {
		err := uc.sinkRepo.WriteBatch(ctx, events)
		if err == nil {
			return nil
		}
		lastErr = err
		uc.logger.Warn("failed to write batch to sink, retrying", "attempt", i+1, "error", err)
		select {
		case <-time.After(uc.retryBackoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
