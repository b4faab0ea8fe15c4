package usecase

import (
	"context"
	"time"

	"github.com/trackbeam/beacon/internal/domain"
)

// AdminStreamUseCase provides consumer-group administration over the
// event stream.
type AdminStreamUseCase struct {
	repo domain.StreamAdminRepository
}

// NewAdminStreamUseCase creates a new AdminStreamUseCase.
func NewAdminStreamUseCase(repo domain.StreamAdminRepository) *AdminStreamUseCase {
	return &AdminStreamUseCase{repo: repo}
}

func (uc *AdminStreamUseCase) GetGroupInfo(ctx context.Context) ([]domain.ConsumerGroupInfo, error) {
	return uc.repo.GetGroupInfo(ctx)
}

func (uc *AdminStreamUseCase) GetPendingSummary(ctx context.Context, group string) (*domain.PendingSummary, error) {
	return uc.repo.GetPendingSummary(ctx, group)
}

func (uc *AdminStreamUseCase) GetPendingMessages(ctx context.Context, group, consumer, startID string, count int64) ([]domain.PendingDetail, error) {
	if startID == "" {
		startID = "-"
	}
	if count <= 0 {
		count = 100
	}
	return uc.repo.GetPendingMessages(ctx, group, consumer, startID, count)
}

func (uc *AdminStreamUseCase) ClaimEvents(ctx context.Context, group, consumer string, minIdleTime time.Duration, messageIDs []string) ([]domain.Event, error) {
	return uc.repo.ClaimEvents(ctx, group, consumer, minIdleTime.Milliseconds(), messageIDs)
}

func (uc *AdminStreamUseCase) AcknowledgeMessages(ctx context.Context, group string, messageIDs ...string) (int64, error) {
	return uc.repo.AcknowledgeMessages(ctx, group, messageIDs...)
}

func (uc *AdminStreamUseCase) TrimStream(ctx context.Context, maxLen int64) (int64, error) {
	return uc.repo.TrimStream(ctx, maxLen)
}
