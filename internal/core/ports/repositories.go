package ports

import (
	"context"

	"github.com/samirrijal/pinmap/internal/core/domain"
)

// PinRepository persists pins. Reads are relative to a viewer: IsLiked and
// IsMine are filled for viewerID, which may be empty for anonymous reads.
type PinRepository interface {
	List(ctx context.Context, viewerID string, filter domain.PinFilter) ([]domain.Pin, error)
	// ListInBounds returns the pins inside vp (inclusive, antimeridian aware)
	// in no particular order.
	ListInBounds(ctx context.Context, viewerID string, vp domain.Bounds) ([]domain.Pin, error)
	GetByID(ctx context.Context, viewerID, id string) (*domain.Pin, error)
	Exists(ctx context.Context, id string) (bool, error)
	// Create inserts p and its photos, filling the generated IDs and timestamps.
	Create(ctx context.Context, p *domain.Pin) error
	Update(ctx context.Context, p *domain.Pin) error
	// Delete removes a pin with its photos and likes and returns the URLs of
	// the removed photos.
	Delete(ctx context.Context, id string) ([]string, error)
	// ListGallery returns an author's pins, most recent visit first.
	ListGallery(ctx context.Context, authorID string) ([]domain.Pin, error)
}

// PhotoRepository persists photos attached to pins.
type PhotoRepository interface {
	Add(ctx context.Context, photo *domain.Photo) error
	GetByID(ctx context.Context, id string) (*domain.Photo, error)
	Delete(ctx context.Context, id string) error
}

// LikeRepository persists (user, pin) likes.
type LikeRepository interface {
	Exists(ctx context.Context, userID, pinID string) (bool, error)
	// Add is a no-op if the like already exists.
	Add(ctx context.Context, userID, pinID string) error
	Remove(ctx context.Context, userID, pinID string) error
	Count(ctx context.Context, pinID string) (int, error)
}

// FollowRepository persists follower relationships.
type FollowRepository interface {
	Exists(ctx context.Context, followerID, followingID string) (bool, error)
	Add(ctx context.Context, followerID, followingID string) error
	Remove(ctx context.Context, followerID, followingID string) error
}

// ProfileRepository reads public profiles with their social counters.
type ProfileRepository interface {
	GetByID(ctx context.Context, viewerID, id string) (*domain.Profile, error)
}
