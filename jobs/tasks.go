package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/n-admin/n-admin/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSessionsCleanup removes expired server-side session rows.
	TaskSessionsCleanup = "sessions:cleanup"
	// TaskPermissionsWarmup pre-resolves permission sets for recently
	// active users so their first request after login hits a warm cache.
	TaskPermissionsWarmup = "permissions:warmup"
)

// SessionsCleanupPayload configures a cleanup run.
type SessionsCleanupPayload struct {
	// Batch bounds a single run; zero means no bound.
	Batch int `json:"batch"`
}

// NewSessionsCleanupTask constructs an Asynq task.
func NewSessionsCleanupTask(payload SessionsCleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSessionsCleanup, data), nil
}

// SessionSweeper deletes expired session rows.
type SessionSweeper interface {
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// PermissionWarmer resolves a user's effective permission set.
type PermissionWarmer interface {
	WarmRecentlyActive(ctx context.Context, since time.Duration) (int, error)
}

// TaskDeps carries the services job handlers operate on.
type TaskDeps struct {
	Sweeper SessionSweeper
	Warmer  PermissionWarmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// HandleSessionsCleanup processes TaskSessionsCleanup tasks.
func (d TaskDeps) HandleSessionsCleanup(ctx context.Context, t *asynq.Task) error {
	tracker := d.Metrics.Track(TaskSessionsCleanup)
	var payload SessionsCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return tracker.End(asynq.SkipRetry)
	}
	swept, err := d.Sweeper.DeleteExpiredSessions(ctx)
	if err != nil {
		return tracker.End(err)
	}
	d.Metrics.AddSweptSessions(swept)
	if d.Logger != nil {
		d.Logger.Info("session cleanup complete", "swept", swept)
	}
	return tracker.End(nil)
}

// HandlePermissionsWarmup processes TaskPermissionsWarmup tasks.
func (d TaskDeps) HandlePermissionsWarmup(ctx context.Context, t *asynq.Task) error {
	if d.Warmer == nil {
		return nil
	}
	tracker := d.Metrics.Track(TaskPermissionsWarmup)
	warmed, err := d.Warmer.WarmRecentlyActive(ctx, 24*time.Hour)
	if err != nil {
		return tracker.End(err)
	}
	if d.Logger != nil {
		d.Logger.Info("permission warmup complete", "users", warmed)
	}
	return tracker.End(nil)
}
