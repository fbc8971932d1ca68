package usecases

import (
	"context"
	"fmt"

	"github.com/samirrijal/pinmap/internal/core/domain"
	"github.com/samirrijal/pinmap/internal/core/ports"
)

// FollowService handles follower relationships.
type FollowService struct {
	follows  ports.FollowRepository
	profiles ports.ProfileRepository
}

// NewFollowService creates a new FollowService.
func NewFollowService(follows ports.FollowRepository, profiles ports.ProfileRepository) *FollowService {
	return &FollowService{follows: follows, profiles: profiles}
}

// Toggle follows targetID, or unfollows if the viewer already follows them.
// It reports whether the viewer follows the target afterwards.
func (s *FollowService) Toggle(ctx context.Context, viewerID, targetID string) (bool, error) {
	if viewerID == "" {
		return false, domain.ErrForbidden
	}
	if targetID == "" || targetID == viewerID {
		return false, fmt.Errorf("follow target: %w", domain.ErrInvalidInput)
	}
	if _, err := s.profiles.GetByID(ctx, viewerID, targetID); err != nil {
		return false, err
	}

	following, err := s.follows.Exists(ctx, viewerID, targetID)
	if err != nil {
		return false, fmt.Errorf("check follow: %w", err)
	}
	if following {
		if err := s.follows.Remove(ctx, viewerID, targetID); err != nil {
			return false, fmt.Errorf("unfollow: %w", err)
		}
		return false, nil
	}
	if err := s.follows.Add(ctx, viewerID, targetID); err != nil {
		return false, fmt.Errorf("follow: %w", err)
	}
	return true, nil
}
