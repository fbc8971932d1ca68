//go:build integration
// +build integration

package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/pinmap/internal/adapters/postgres"
	"github.com/samirrijal/pinmap/internal/core/domain"
)

// setupTestDB connects to PINMAP_TEST_DSN and loads the reference schema.
func setupTestDB(t *testing.T) *postgres.DB {
	dsn := os.Getenv("PINMAP_TEST_DSN")
	if dsn == "" {
		t.Skip("PINMAP_TEST_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := postgres.New(ctx, dsn, 5)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(db.Close)

	schema, err := os.ReadFile("testdata/schema.sql")
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if _, err := db.Pool.Exec(ctx, string(schema)); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return db
}

func seedProfile(t *testing.T, db *postgres.DB, name string) string {
	id := uuid.NewString()
	if _, err := db.Pool.Exec(context.Background(),
		`INSERT INTO profiles (id, display_name) VALUES ($1, $2)`, id, name); err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	return id
}

func TestPinRepo_Lifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	pins := postgres.NewPinRepo(db)
	likes := postgres.NewLikeRepo(db)

	author := seedProfile(t, db, "Ane")
	viewer := seedProfile(t, db, "Mikel")

	visit := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	p := &domain.Pin{
		AuthorID:     author,
		Location:     domain.GeoPoint{Lat: -17.7, Lon: 179.5},
		LocationName: "Fiji",
		VisitDate:    &visit,
		Photos: []domain.Photo{
			{URL: "https://blob.example.com/1.jpg", Caption: "Fiji"},
			{URL: "https://blob.example.com/2.jpg"},
		},
	}
	if err := pins.Create(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID == "" || p.Photos[0].ID == "" || p.Photos[1].PinID != p.ID {
		t.Fatalf("expected generated ids, got %+v", p)
	}

	if err := likes.Add(ctx, viewer, p.ID); err != nil {
		t.Fatalf("like: %v", err)
	}
	if err := likes.Add(ctx, viewer, p.ID); err != nil {
		t.Fatalf("repeated like must be a no-op: %v", err)
	}

	got, err := pins.GetByID(ctx, viewer, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.LikeCount != 1 || !got.IsLiked || got.IsMine || got.AuthorName != "Ane" || len(got.Photos) != 2 {
		t.Errorf("unexpected pin as seen by viewer: %+v", got)
	}

	vp := domain.Bounds{MinLat: -20, MinLon: 170, MaxLat: -10, MaxLon: -170}
	inView, err := pins.ListInBounds(ctx, author, vp)
	if err != nil {
		t.Fatalf("list in bounds: %v", err)
	}
	found := false
	for _, q := range inView {
		if q.ID == p.ID {
			found = q.IsMine
		}
	}
	if !found {
		t.Error("expected pin inside antimeridian viewport, owned by author")
	}

	urls, err := pins.Delete(ctx, p.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(urls) != 2 {
		t.Errorf("expected 2 photo urls, got %v", urls)
	}
	if _, err := pins.GetByID(ctx, viewer, p.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := pins.Delete(ctx, p.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestProfileRepo_Counts(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	follows := postgres.NewFollowRepo(db)
	profiles := postgres.NewProfileRepo(db)

	a := seedProfile(t, db, "A")
	b := seedProfile(t, db, "B")
	if err := follows.Add(ctx, a, b); err != nil {
		t.Fatalf("follow: %v", err)
	}

	p, err := profiles.GetByID(ctx, a, b)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if p.FollowersCount != 1 || p.FollowingCount != 0 || !p.IsFollowing {
		t.Errorf("unexpected counters: %+v", p)
	}

	if _, err := profiles.GetByID(ctx, a, uuid.NewString()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
