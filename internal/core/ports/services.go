package ports

import (
	"context"

	"github.com/samirrijal/pinmap/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishPinEvent(ctx context.Context, event *domain.PinEvent) error
}

// EventSubscriber subscribes to domain events from a message broker.
// An empty durable name creates an ephemeral consumer that only sees new
// events.
type EventSubscriber interface {
	SubscribePinEvents(ctx context.Context, durable string, handler func(ctx context.Context, event *domain.PinEvent) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// BlobStore removes stored photo objects, addressed by their public URL.
type BlobStore interface {
	Delete(ctx context.Context, url string) error
}

// PhotoCleanupScheduler hands the blobs of a deleted pin to a background
// job.
type PhotoCleanupScheduler interface {
	SchedulePhotoCleanup(ctx context.Context, pinID string, photoURLs []string) error
}
