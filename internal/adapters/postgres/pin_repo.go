package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/pinmap/internal/core/domain"
	"github.com/samirrijal/pinmap/internal/pkg/telemetry"
)

// pinColumns selects a pin as seen by the viewer bound to $1.
const pinColumns = `
	p.id, p.user_id, COALESCE(pr.display_name, ''),
	p.latitude, p.longitude,
	COALESCE(p.location_name, ''), p.visit_date, COALESCE(p.notes, ''),
	(SELECT count(*) FROM pin_likes l WHERE l.pin_id = p.id) AS like_count,
	EXISTS (SELECT 1 FROM pin_likes l WHERE l.pin_id = p.id AND l.user_id::text = $1) AS is_liked,
	p.user_id::text = $1 AS is_mine,
	p.created_at, p.updated_at
`

const pinFrom = `
	FROM travel_pins p
	LEFT JOIN profiles pr ON pr.id = p.user_id
`

// PinRepo implements ports.PinRepository with pgx.
type PinRepo struct {
	db *DB
}

// NewPinRepo creates a new PinRepo.
func NewPinRepo(db *DB) *PinRepo {
	return &PinRepo{db: db}
}

// List returns all pins, or those of filter.AuthorID, newest first.
func (r *PinRepo) List(ctx context.Context, viewerID string, filter domain.PinFilter) (pins []domain.Pin, err error) {
	ctx, end := telemetry.StartDBSpan(ctx, "travel_pins", "SELECT")
	defer func() { end(err) }()

	query := `SELECT ` + pinColumns + pinFrom
	args := []interface{}{viewerID}
	if filter.AuthorID != "" {
		query += ` WHERE p.user_id::text = $2`
		args = append(args, filter.AuthorID)
	}
	query += ` ORDER BY p.created_at DESC`

	return r.queryPins(ctx, query, args...)
}

// ListInBounds returns the pins inside vp. A viewport crossing the
// antimeridian matches longitudes on either side of it.
func (r *PinRepo) ListInBounds(ctx context.Context, viewerID string, vp domain.Bounds) (pins []domain.Pin, err error) {
	ctx, end := telemetry.StartDBSpan(ctx, "travel_pins", "SELECT")
	defer func() { end(err) }()

	lonClause := `p.longitude BETWEEN $4 AND $5`
	if vp.CrossesAntimeridian() {
		lonClause = `(p.longitude >= $4 OR p.longitude <= $5)`
	}
	query := `SELECT ` + pinColumns + pinFrom + `
		WHERE p.latitude BETWEEN $2 AND $3 AND ` + lonClause

	return r.queryPins(ctx, query, viewerID, vp.MinLat, vp.MaxLat, vp.MinLon, vp.MaxLon)
}

// ListGallery returns an author's pins ordered by visit date (undated last),
// then creation time.
func (r *PinRepo) ListGallery(ctx context.Context, authorID string) ([]domain.Pin, error) {
	query := `SELECT ` + pinColumns + pinFrom + `
		WHERE p.user_id::text = $1
		ORDER BY p.visit_date DESC NULLS LAST, p.created_at DESC`
	return r.queryPins(ctx, query, authorID)
}

// GetByID returns one pin with its photos.
func (r *PinRepo) GetByID(ctx context.Context, viewerID, id string) (*domain.Pin, error) {
	query := `SELECT ` + pinColumns + pinFrom + ` WHERE p.id::text = $2`
	p, err := scanPin(r.db.Pool.QueryRow(ctx, query, viewerID, id))
	if err != nil {
		return nil, notFound(err, "pin "+id)
	}

	photos, err := r.photosFor(ctx, []string{p.ID})
	if err != nil {
		return nil, err
	}
	p.Photos = photos[p.ID]
	if p.Photos == nil {
		p.Photos = []domain.Photo{}
	}
	return &p, nil
}

// Exists reports whether a pin with id exists.
func (r *PinRepo) Exists(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM travel_pins WHERE id::text = $1)`, id,
	).Scan(&ok)
	return ok, err
}

// Create inserts a pin and its photos in one transaction.
func (r *PinRepo) Create(ctx context.Context, p *domain.Pin) (err error) {
	ctx, end := telemetry.StartDBSpan(ctx, "travel_pins", "INSERT")
	defer func() { end(err) }()

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer rollback(ctx, tx)

	err = tx.QueryRow(ctx, `
		INSERT INTO travel_pins (user_id, latitude, longitude, location_name, visit_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, p.AuthorID, p.Location.Lat, p.Location.Lon,
		nilIfEmpty(p.LocationName), p.VisitDate, nilIfEmpty(p.Notes),
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert pin: %w", err)
	}

	if len(p.Photos) > 0 {
		batch := &pgx.Batch{}
		for _, ph := range p.Photos {
			batch.Queue(`
				INSERT INTO pin_photos (pin_id, user_id, photo_url, caption)
				VALUES ($1, $2, $3, $4)
				RETURNING id, created_at
			`, p.ID, p.AuthorID, ph.URL, nilIfEmpty(ph.Caption))
		}
		br := tx.SendBatch(ctx, batch)
		for i := range p.Photos {
			p.Photos[i].PinID = p.ID
			p.Photos[i].UserID = p.AuthorID
			if err := br.QueryRow().Scan(&p.Photos[i].ID, &p.Photos[i].CreatedAt); err != nil {
				br.Close()
				return fmt.Errorf("insert photo %d: %w", i, err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("batch close: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// Update writes the editable fields of p.
func (r *PinRepo) Update(ctx context.Context, p *domain.Pin) error {
	err := r.db.Pool.QueryRow(ctx, `
		UPDATE travel_pins
		SET latitude = $2, longitude = $3, location_name = $4,
		    visit_date = $5, notes = $6, updated_at = now()
		WHERE id::text = $1
		RETURNING updated_at
	`, p.ID, p.Location.Lat, p.Location.Lon,
		nilIfEmpty(p.LocationName), p.VisitDate, nilIfEmpty(p.Notes),
	).Scan(&p.UpdatedAt)
	return notFound(err, "pin "+p.ID)
}

// Delete removes a pin, its likes and its photos, returning the photo URLs.
func (r *PinRepo) Delete(ctx context.Context, id string) (urls []string, err error) {
	ctx, end := telemetry.StartDBSpan(ctx, "travel_pins", "DELETE")
	defer func() { end(err) }()

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer rollback(ctx, tx)

	rows, err := tx.Query(ctx, `
		DELETE FROM pin_photos WHERE pin_id::text = $1 RETURNING photo_url
	`, id)
	if err != nil {
		return nil, fmt.Errorf("delete photos: %w", err)
	}
	urls, err = pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect photo urls: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM pin_likes WHERE pin_id::text = $1`, id); err != nil {
		return nil, fmt.Errorf("delete likes: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM travel_pins WHERE id::text = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("delete pin: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("pin %s: %w", id, domain.ErrNotFound)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return urls, nil
}

func (r *PinRepo) queryPins(ctx context.Context, query string, args ...interface{}) ([]domain.Pin, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pins []domain.Pin
	for rows.Next() {
		p, err := scanPin(rows)
		if err != nil {
			return nil, err
		}
		pins = append(pins, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(pins) == 0 {
		return []domain.Pin{}, nil
	}

	ids := make([]string, len(pins))
	for i := range pins {
		ids[i] = pins[i].ID
	}
	photos, err := r.photosFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range pins {
		pins[i].Photos = photos[pins[i].ID]
		if pins[i].Photos == nil {
			pins[i].Photos = []domain.Photo{}
		}
	}
	return pins, nil
}

// photosFor loads the photos of many pins in upload order.
func (r *PinRepo) photosFor(ctx context.Context, pinIDs []string) (map[string][]domain.Photo, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, pin_id, user_id, photo_url, COALESCE(caption, ''), created_at
		FROM pin_photos
		WHERE pin_id::text = ANY($1)
		ORDER BY created_at, id
	`, pinIDs)
	if err != nil {
		return nil, fmt.Errorf("load photos: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.Photo, len(pinIDs))
	for rows.Next() {
		var ph domain.Photo
		if err := rows.Scan(&ph.ID, &ph.PinID, &ph.UserID, &ph.URL, &ph.Caption, &ph.CreatedAt); err != nil {
			return nil, err
		}
		out[ph.PinID] = append(out[ph.PinID], ph)
	}
	return out, rows.Err()
}

func scanPin(row pgx.Row) (domain.Pin, error) {
	var p domain.Pin
	err := row.Scan(
		&p.ID, &p.AuthorID, &p.AuthorName,
		&p.Location.Lat, &p.Location.Lon,
		&p.LocationName, &p.VisitDate, &p.Notes,
		&p.LikeCount, &p.IsLiked, &p.IsMine,
		&p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}
