package workflows

import (
	"context"
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/client"

	"github.com/samirrijal/pinmap/internal/core/ports"
)

var _ ports.PhotoCleanupScheduler = (*TemporalScheduler)(nil)

// TemporalScheduler starts PhotoCleanupWorkflow runs on a task queue.
type TemporalScheduler struct {
	client    client.Client
	taskQueue string
}

// NewTemporalScheduler creates a scheduler using c.
func NewTemporalScheduler(c client.Client, taskQueue string) *TemporalScheduler {
	return &TemporalScheduler{client: c, taskQueue: taskQueue}
}

// WorkflowID returns the cleanup workflow ID for a pin. One run per pin.
func WorkflowID(pinID string) string {
	return "photo-cleanup-" + pinID
}

// SchedulePhotoCleanup starts the cleanup workflow for a deleted pin.
func (s *TemporalScheduler) SchedulePhotoCleanup(ctx context.Context, pinID string, photoURLs []string) error {
	opts := client.StartWorkflowOptions{
		ID:        WorkflowID(pinID),
		TaskQueue: s.taskQueue,
	}
	run, err := s.client.ExecuteWorkflow(ctx, opts, PhotoCleanupWorkflow, PhotoCleanupInput{
		PinID:     pinID,
		PhotoURLs: photoURLs,
	})
	if err != nil {
		return fmt.Errorf("start photo cleanup: %w", err)
	}
	slog.Info("photo cleanup scheduled", "pin_id", pinID, "workflow_id", run.GetID(), "run_id", run.GetRunID())
	return nil
}
