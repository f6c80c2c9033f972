package dashboard

import (
	"context"

	"atelier-be/internal/logger"
	"atelier-be/internal/metrics"

	"go.uber.org/zap"
)

// Stats is the admin dashboard payload.
type Stats struct {
	Counts
	Activity metrics.Snapshot `json:"activity"`
}

type SnapshotFunc func() metrics.Snapshot

type Service interface {
	Stats(ctx context.Context) (*Stats, error)
}

type service struct {
	repo     Repository
	snapshot SnapshotFunc
}

func NewService(repo Repository, snapshot SnapshotFunc) Service {
	return &service{repo: repo, snapshot: snapshot}
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	counts, err := s.repo.Counts(ctx)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to count dashboard rows",
			zap.String("layer", "service"),
			zap.Error(err),
		)
		return nil, err
	}

	stats := &Stats{Counts: counts}
	if s.snapshot != nil {
		stats.Activity = s.snapshot()
	}
	return stats, nil
}
