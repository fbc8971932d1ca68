package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// PhotoCleanupInput is the input for the photo cleanup workflow.
type PhotoCleanupInput struct {
	PinID     string
	PhotoURLs []string
}

// PhotoCleanupResult lists which photos were removed.
type PhotoCleanupResult struct {
	Deleted []string
	Failed  []string
}

// PhotoCleanupWorkflow deletes the stored photos of a deleted pin. Each
// object is attempted independently; a photo that still fails after its
// retries is reported in the result and does not stop the others.
func PhotoCleanupWorkflow(ctx workflow.Context, input PhotoCleanupInput) (PhotoCleanupResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting photo cleanup", "pinID", input.PinID, "photos", len(input.PhotoURLs))

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: time.Second,
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	futures := make([]workflow.Future, len(input.PhotoURLs))
	for i, url := range input.PhotoURLs {
		futures[i] = workflow.ExecuteActivity(ctx, "DeletePhotoObject", url)
	}

	var result PhotoCleanupResult
	for i, f := range futures {
		url := input.PhotoURLs[i]
		if err := f.Get(ctx, nil); err != nil {
			logger.Warn("photo delete failed", "url", url, "error", err)
			result.Failed = append(result.Failed, url)
			continue
		}
		result.Deleted = append(result.Deleted, url)
	}

	if len(result.Deleted) > 0 {
		err := workflow.ExecuteActivity(ctx, "PublishPhotosPurged", input.PinID, result.Deleted).Get(ctx, nil)
		if err != nil {
			logger.Warn("publish photos purged failed", "error", err)
		}
	}

	logger.Info("Photo cleanup finished", "deleted", len(result.Deleted), "failed", len(result.Failed))
	return result, nil
}
