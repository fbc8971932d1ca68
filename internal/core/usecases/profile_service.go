package usecases

import (
	"context"
	"fmt"

	"github.com/samirrijal/pinmap/internal/core/domain"
	"github.com/samirrijal/pinmap/internal/core/ports"
)

// ProfileService serves public profiles.
type ProfileService struct {
	profiles ports.ProfileRepository
	pins     ports.PinRepository
}

// NewProfileService creates a new ProfileService.
func NewProfileService(profiles ports.ProfileRepository, pins ports.PinRepository) *ProfileService {
	return &ProfileService{profiles: profiles, pins: pins}
}

// Get returns a profile with its counters as seen by viewerID.
func (s *ProfileService) Get(ctx context.Context, viewerID, userID string) (*domain.Profile, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id: %w", domain.ErrInvalidInput)
	}
	p, err := s.profiles.GetByID(ctx, viewerID, userID)
	if err != nil {
		return nil, err
	}
	p.IsMe = viewerID != "" && viewerID == p.ID
	if p.IsMe {
		p.IsFollowing = false
	}
	return p, nil
}

// Pins returns the pins of userID, newest first.
func (s *ProfileService) Pins(ctx context.Context, viewerID, userID string) ([]domain.Pin, error) {
	if _, err := s.Get(ctx, viewerID, userID); err != nil {
		return nil, err
	}
	pins, err := s.pins.List(ctx, viewerID, domain.PinFilter{AuthorID: userID})
	if err != nil {
		return nil, fmt.Errorf("list profile pins: %w", err)
	}
	if pins == nil {
		pins = []domain.Pin{}
	}
	return pins, nil
}
