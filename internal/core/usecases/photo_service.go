package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samirrijal/pinmap/internal/core/domain"
	"github.com/samirrijal/pinmap/internal/core/ports"
)

const maxCaption = 500

// PhotoService manages photos attached to pins.
type PhotoService struct {
	pins   ports.PinRepository
	photos ports.PhotoRepository
	blobs  ports.BlobStore
	events ports.EventPublisher
	cache  Invalidator
	now    func() time.Time
}

// NewPhotoService creates a new PhotoService. blobs, events and cache may be
// nil.
func NewPhotoService(pins ports.PinRepository, photos ports.PhotoRepository, blobs ports.BlobStore, events ports.EventPublisher, cache Invalidator) *PhotoService {
	return &PhotoService{pins: pins, photos: photos, blobs: blobs, events: events, cache: cache, now: time.Now}
}

// Attach adds a photo to a pin owned by viewerID. An empty caption defaults
// to the pin's location name.
func (s *PhotoService) Attach(ctx context.Context, viewerID, pinID, url, caption string) (*domain.Photo, error) {
	if viewerID == "" {
		return nil, domain.ErrForbidden
	}
	if !validPhotoURL(url) {
		return nil, fmt.Errorf("photo url: %w", domain.ErrInvalidInput)
	}
	caption = strings.TrimSpace(caption)
	if len(caption) > maxCaption {
		return nil, fmt.Errorf("caption exceeds %d characters: %w", maxCaption, domain.ErrInvalidInput)
	}

	pin, err := s.pins.GetByID(ctx, viewerID, pinID)
	if err != nil {
		return nil, err
	}
	if pin.AuthorID != viewerID {
		return nil, domain.ErrForbidden
	}
	if len(pin.Photos) >= maxPhotos {
		return nil, fmt.Errorf("pin already has %d photos: %w", maxPhotos, domain.ErrConflict)
	}
	if caption == "" {
		caption = pin.LocationName
	}

	photo := &domain.Photo{PinID: pinID, UserID: viewerID, URL: url, Caption: caption}
	if err := s.photos.Add(ctx, photo); err != nil {
		return nil, fmt.Errorf("add photo: %w", err)
	}

	s.changed(ctx, &domain.PinEvent{Type: domain.EventPhotoAttached, PinID: pinID, ActorID: viewerID, PhotoURLs: []string{url}})
	return photo, nil
}

// Delete removes a photo uploaded by viewerID. The record is authoritative;
// a failure to remove the stored object is only logged.
func (s *PhotoService) Delete(ctx context.Context, viewerID, photoID string) error {
	if viewerID == "" {
		return domain.ErrForbidden
	}
	if photoID == "" {
		return fmt.Errorf("photo id: %w", domain.ErrInvalidInput)
	}

	photo, err := s.photos.GetByID(ctx, photoID)
	if err != nil {
		return err
	}
	if photo.UserID != viewerID {
		return domain.ErrForbidden
	}
	if err := s.photos.Delete(ctx, photoID); err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}

	if s.blobs != nil {
		if err := s.blobs.Delete(ctx, photo.URL); err != nil {
			slog.Warn("delete photo blob failed", "photo_id", photoID, "url", photo.URL, "error", err)
		}
	}

	s.changed(ctx, &domain.PinEvent{Type: domain.EventPhotoRemoved, PinID: photo.PinID, ActorID: viewerID, PhotoURLs: []string{photo.URL}})
	return nil
}

func (s *PhotoService) changed(ctx context.Context, event *domain.PinEvent) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
	publish(ctx, s.events, event, s.now)
}
