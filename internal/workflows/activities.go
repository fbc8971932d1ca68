package workflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/pinmap/internal/adapters/storage"
	"github.com/samirrijal/pinmap/internal/core/domain"
	"github.com/samirrijal/pinmap/internal/core/ports"
)

// PhotoActivities holds the activity implementations for the photo cleanup
// workflow.
type PhotoActivities struct {
	Blobs  ports.BlobStore
	Events ports.EventPublisher
}

// DeletePhotoObject removes one stored photo. URLs outside the bucket fail
// without retry.
func (a *PhotoActivities) DeletePhotoObject(ctx context.Context, url string) error {
	if err := a.Blobs.Delete(ctx, url); err != nil {
		if errors.Is(err, storage.ErrForeignURL) {
			return temporal.NewNonRetryableApplicationError(err.Error(), "ForeignURL", err)
		}
		return fmt.Errorf("delete %s: %w", url, err)
	}
	activity.GetLogger(ctx).Info("photo deleted", "url", url)
	return nil
}

// PublishPhotosPurged announces which photos of a pin were removed.
func (a *PhotoActivities) PublishPhotosPurged(ctx context.Context, pinID string, urls []string) error {
	if a.Events == nil {
		return nil
	}
	return a.Events.PublishPinEvent(ctx, &domain.PinEvent{
		Type:      domain.EventPhotosPurged,
		PinID:     pinID,
		PhotoURLs: urls,
		At:        time.Now().UTC(),
	})
}
