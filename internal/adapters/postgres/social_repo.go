package postgres

import (
	"context"

	"github.com/samirrijal/pinmap/internal/core/domain"
)

// FollowRepo implements ports.FollowRepository.
type FollowRepo struct {
	db *DB
}

func NewFollowRepo(db *DB) *FollowRepo {
	return &FollowRepo{db: db}
}

func (r *FollowRepo) Exists(ctx context.Context, followerID, followingID string) (bool, error) {
	var ok bool
	err := r.db.Pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM follows WHERE follower_id::text = $1 AND following_id::text = $2)
	`, followerID, followingID).Scan(&ok)
	return ok, err
}

func (r *FollowRepo) Add(ctx context.Context, followerID, followingID string) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO follows (follower_id, following_id) VALUES ($1, $2)
		ON CONFLICT (follower_id, following_id) DO NOTHING
	`, followerID, followingID)
	return err
}

func (r *FollowRepo) Remove(ctx context.Context, followerID, followingID string) error {
	_, err := r.db.Pool.Exec(ctx, `
		DELETE FROM follows WHERE follower_id::text = $1 AND following_id::text = $2
	`, followerID, followingID)
	return err
}

// ProfileRepo implements ports.ProfileRepository.
type ProfileRepo struct {
	db *DB
}

func NewProfileRepo(db *DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

// GetByID returns a profile with pin and follow counters. IsFollowing is
// relative to viewerID.
func (r *ProfileRepo) GetByID(ctx context.Context, viewerID, id string) (*domain.Profile, error) {
	var p domain.Profile
	err := r.db.Pool.QueryRow(ctx, `
		SELECT pr.id, COALESCE(pr.display_name, ''), pr.created_at,
		       (SELECT count(*) FROM travel_pins t WHERE t.user_id = pr.id),
		       (SELECT count(*) FROM follows f WHERE f.following_id = pr.id),
		       (SELECT count(*) FROM follows f WHERE f.follower_id = pr.id),
		       EXISTS (SELECT 1 FROM follows f WHERE f.following_id = pr.id AND f.follower_id::text = $1)
		FROM profiles pr
		WHERE pr.id::text = $2
	`, viewerID, id).Scan(
		&p.ID, &p.DisplayName, &p.CreatedAt,
		&p.PinCount, &p.FollowersCount, &p.FollowingCount,
		&p.IsFollowing,
	)
	if err != nil {
		return nil, notFound(err, "profile "+id)
	}
	return &p, nil
}
