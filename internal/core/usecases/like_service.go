package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/samirrijal/pinmap/internal/core/domain"
	"github.com/samirrijal/pinmap/internal/core/ports"
	"github.com/samirrijal/pinmap/internal/pkg/metrics"
	"github.com/samirrijal/pinmap/internal/pkg/telemetry"
)

// Invalidator drops cached views that depend on social counters.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// LikeService handles likes on pins.
type LikeService struct {
	pins   ports.PinRepository
	likes  ports.LikeRepository
	events ports.EventPublisher
	cache  Invalidator
	now    func() time.Time
}

// NewLikeService creates a new LikeService. events and cache may be nil.
func NewLikeService(pins ports.PinRepository, likes ports.LikeRepository, events ports.EventPublisher, cache Invalidator) *LikeService {
	return &LikeService{pins: pins, likes: likes, events: events, cache: cache, now: time.Now}
}

// Toggle likes the pin if the viewer has not liked it yet, otherwise
// removes the like.
func (s *LikeService) Toggle(ctx context.Context, viewerID, pinID string) (*domain.LikeState, error) {
	if err := s.check(ctx, viewerID, pinID); err != nil {
		return nil, err
	}
	liked, err := s.likes.Exists(ctx, viewerID, pinID)
	if err != nil {
		return nil, fmt.Errorf("check like: %w", err)
	}
	return s.apply(ctx, viewerID, pinID, !liked)
}

// Set makes the viewer's like state equal to liked. Repeating the call is
// harmless.
func (s *LikeService) Set(ctx context.Context, viewerID, pinID string, liked bool) (*domain.LikeState, error) {
	if err := s.check(ctx, viewerID, pinID); err != nil {
		return nil, err
	}
	return s.apply(ctx, viewerID, pinID, liked)
}

// ConfirmLike adapts Set to the live map's confirmation callback.
func (s *LikeService) ConfirmLike(ctx context.Context, viewerID, pinID string, liked bool) (err error) {
	ctx, end := telemetry.StartSpan(ctx, "likes.confirm",
		telemetry.AttrViewerID.String(viewerID),
		telemetry.AttrPinID.String(pinID),
		telemetry.AttrLiked.Bool(liked),
	)
	defer func() { end(err) }()

	_, err = s.Set(ctx, viewerID, pinID, liked)
	return err
}

func (s *LikeService) check(ctx context.Context, viewerID, pinID string) error {
	if viewerID == "" {
		return domain.ErrForbidden
	}
	if pinID == "" {
		return fmt.Errorf("pin id is required: %w", domain.ErrInvalidInput)
	}
	ok, err := s.pins.Exists(ctx, pinID)
	if err != nil {
		return fmt.Errorf("check pin: %w", err)
	}
	if !ok {
		return fmt.Errorf("pin %s: %w", pinID, domain.ErrNotFound)
	}
	return nil
}

func (s *LikeService) apply(ctx context.Context, viewerID, pinID string, liked bool) (*domain.LikeState, error) {
	result, eventType := "liked", domain.EventPinLiked
	var err error
	if liked {
		err = s.likes.Add(ctx, viewerID, pinID)
	} else {
		result, eventType = "unliked", domain.EventPinUnliked
		err = s.likes.Remove(ctx, viewerID, pinID)
	}
	if err != nil {
		metrics.LikesToggled.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%s pin: %w", result, err)
	}

	count, err := s.likes.Count(ctx, pinID)
	if err != nil {
		return nil, fmt.Errorf("count likes: %w", err)
	}
	metrics.LikesToggled.WithLabelValues(result).Inc()

	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
	publish(ctx, s.events, &domain.PinEvent{Type: eventType, PinID: pinID, ActorID: viewerID, LikeCount: &count}, s.now)

	return &domain.LikeState{PinID: pinID, Liked: liked, LikeCount: count}, nil
}
