package postgres

import (
	"context"
)

// LikeRepo implements ports.LikeRepository.
type LikeRepo struct {
	db *DB
}

func NewLikeRepo(db *DB) *LikeRepo {
	return &LikeRepo{db: db}
}

func (r *LikeRepo) Exists(ctx context.Context, userID, pinID string) (bool, error) {
	var ok bool
	err := r.db.Pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM pin_likes WHERE user_id::text = $1 AND pin_id::text = $2)
	`, userID, pinID).Scan(&ok)
	return ok, err
}

// Add relies on the (pin_id, user_id) unique constraint to stay idempotent.
func (r *LikeRepo) Add(ctx context.Context, userID, pinID string) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO pin_likes (user_id, pin_id) VALUES ($1, $2)
		ON CONFLICT (pin_id, user_id) DO NOTHING
	`, userID, pinID)
	return err
}

func (r *LikeRepo) Remove(ctx context.Context, userID, pinID string) error {
	_, err := r.db.Pool.Exec(ctx, `
		DELETE FROM pin_likes WHERE user_id::text = $1 AND pin_id::text = $2
	`, userID, pinID)
	return err
}

func (r *LikeRepo) Count(ctx context.Context, pinID string) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM pin_likes WHERE pin_id::text = $1`, pinID).Scan(&n)
	return n, err
}
