package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/atrium-platform/atrium-platform/internal/jobs"
	"github.com/atrium-platform/atrium-platform/internal/rbac"
)

// ExpiringAssignmentLister reports active assignments whose expiry falls
// inside a window from now.
type ExpiringAssignmentLister interface {
	ListExpiringWithin(ctx context.Context, now time.Time, window time.Duration) ([]rbac.RoleAssignment, error)
}

// ExpiryScanner warns about assignments that will lapse soon. Expiry itself
// stays read-time computed; the scan only reports, it never mutates rows.
type ExpiryScanner struct {
	repo    ExpiringAssignmentLister
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
	now     func() time.Time
}

// NewExpiryScanner constructs the scanner. metrics may be nil.
func NewExpiryScanner(repo ExpiringAssignmentLister, logger *slog.Logger, metrics *jobmetrics.Metrics) *ExpiryScanner {
	return &ExpiryScanner{repo: repo, logger: logger, metrics: metrics, now: time.Now}
}

// HandleExpiryScanTask processes TaskExpiryScan tasks.
func (s *ExpiryScanner) HandleExpiryScanTask(ctx context.Context, t *asynq.Task) error {
	tracker := s.metrics.Track("rbac_expiry_scan")
	return tracker.End(s.scan(ctx, t))
}

func (s *ExpiryScanner) scan(ctx context.Context, t *asynq.Task) error {
	var payload ExpiryScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	window := time.Duration(payload.WindowHours) * time.Hour
	if window <= 0 {
		window = 7 * 24 * time.Hour
	}
	now := s.now()
	expiring, err := s.repo.ListExpiringWithin(ctx, now, window)
	if err != nil {
		s.logger.Error("expiry scan", slog.Any("error", err))
		return err
	}
	for _, a := range expiring {
		s.logger.Warn("role assignment expiring",
			slog.String("assignment_id", a.ID.String()),
			slog.String("user_id", a.UserID.String()),
			slog.String("role", string(a.Role)),
			slog.Time("expires_at", *a.ExpiresAt))
	}
	s.logger.Info("expiry scan complete",
		slog.Int("expiring_count", len(expiring)),
		slog.Duration("window", window))
	return nil
}
