package postgres

import (
	"context"
	"fmt"

	"github.com/samirrijal/pinmap/internal/core/domain"
)

// PhotoRepo implements ports.PhotoRepository.
type PhotoRepo struct {
	db *DB
}

func NewPhotoRepo(db *DB) *PhotoRepo {
	return &PhotoRepo{db: db}
}

func (r *PhotoRepo) Add(ctx context.Context, ph *domain.Photo) error {
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO pin_photos (pin_id, user_id, photo_url, caption)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, ph.PinID, ph.UserID, ph.URL, nilIfEmpty(ph.Caption)).Scan(&ph.ID, &ph.CreatedAt)
}

func (r *PhotoRepo) GetByID(ctx context.Context, id string) (*domain.Photo, error) {
	var ph domain.Photo
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, pin_id, user_id, photo_url, COALESCE(caption, ''), created_at
		FROM pin_photos WHERE id::text = $1
	`, id).Scan(&ph.ID, &ph.PinID, &ph.UserID, &ph.URL, &ph.Caption, &ph.CreatedAt)
	if err != nil {
		return nil, notFound(err, "photo "+id)
	}
	return &ph, nil
}

func (r *PhotoRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM pin_photos WHERE id::text = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("photo %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
