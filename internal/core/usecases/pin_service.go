package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samirrijal/pinmap/internal/core/culling"
	"github.com/samirrijal/pinmap/internal/core/domain"
	"github.com/samirrijal/pinmap/internal/core/ports"
	"github.com/samirrijal/pinmap/internal/pkg/geospatial"
	"github.com/samirrijal/pinmap/internal/pkg/metrics"
	"github.com/samirrijal/pinmap/internal/pkg/telemetry"
)

const (
	maxLocationName = 200
	maxNotes        = 2000
	maxPhotos       = 10

	defaultNearbyRadius = 5000
	maxNearbyRadius     = 50000
	defaultNearbyLimit  = 50
	maxNearbyLimit      = 200

	generationKey = "pins:gen"
)

// PinService handles pin business logic.
type PinService struct {
	pins     ports.PinRepository
	cache    ports.CacheService
	events   ports.EventPublisher
	cacheTTL int

	cleanup ports.PhotoCleanupScheduler
	blobs   ports.BlobStore

	now func() time.Time
}

// NewPinService creates a new PinService. cache and events may be nil.
// Listings are cached for cacheTTL seconds; zero disables caching.
func NewPinService(pins ports.PinRepository, cache ports.CacheService, events ports.EventPublisher, cacheTTL int) *PinService {
	return &PinService{
		pins:     pins,
		cache:    cache,
		events:   events,
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// SetPhotoCleanup configures how the photos of deleted pins are removed.
// When scheduling fails, or no scheduler is set, blobs are deleted inline.
func (s *PinService) SetPhotoCleanup(scheduler ports.PhotoCleanupScheduler, blobs ports.BlobStore) {
	s.cleanup = scheduler
	s.blobs = blobs
}

// ListForViewer returns every pin matching filter as seen by viewerID.
func (s *PinService) ListForViewer(ctx context.Context, viewerID string, filter domain.PinFilter) ([]domain.Pin, error) {
	key := ""
	if s.cache != nil && s.cacheTTL > 0 {
		key = fmt.Sprintf("pins:list:%s:%s:%s", s.generation(ctx), viewerID, filter.AuthorID)
		if data, err := s.cache.Get(ctx, key); err == nil {
			var pins []domain.Pin
			if err := json.Unmarshal(data, &pins); err == nil {
				metrics.CacheHits.WithLabelValues("pins_list").Inc()
				return pins, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("pins_list").Inc()
	}

	pins, err := s.pins.List(ctx, viewerID, filter)
	if err != nil {
		return nil, fmt.Errorf("list pins: %w", err)
	}
	if pins == nil {
		pins = []domain.Pin{}
	}

	if key != "" {
		if data, err := json.Marshal(pins); err == nil {
			if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
				slog.Debug("pin list cache write failed", "error", err)
			}
		}
	}
	return pins, nil
}

// FetchPins loads the full collection for a live map session.
func (s *PinService) FetchPins(ctx context.Context, viewerID string) ([]domain.Pin, error) {
	return s.ListForViewer(ctx, viewerID, domain.PinFilter{})
}

// Visible returns at most limit pins inside vp in display order. A
// non-positive limit selects culling.DefaultCap.
func (s *PinService) Visible(ctx context.Context, viewerID string, vp domain.Bounds, limit int) (visible []domain.Pin, err error) {
	ctx, end := telemetry.StartSpan(ctx, "pins.visible", telemetry.AttrViewerID.String(viewerID))
	defer func() { end(err) }()

	if !vp.Valid() {
		return nil, fmt.Errorf("viewport: %w", domain.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = culling.DefaultCap
	}
	pins, err := s.pins.ListInBounds(ctx, viewerID, vp)
	if err != nil {
		return nil, fmt.Errorf("list pins in bounds: %w", err)
	}
	visible = culling.ComputeVisible(pins, vp, limit)
	metrics.VisiblePins.Observe(float64(len(visible)))
	return visible, nil
}

// Nearby returns pins within radiusMeters of at, nearest first.
func (s *PinService) Nearby(ctx context.Context, viewerID string, at domain.GeoPoint, radiusMeters float64, limit int) ([]domain.Pin, error) {
	if !at.Valid() {
		return nil, fmt.Errorf("point: %w", domain.ErrInvalidInput)
	}
	if radiusMeters <= 0 {
		radiusMeters = defaultNearbyRadius
	}
	if radiusMeters > maxNearbyRadius {
		radiusMeters = maxNearbyRadius
	}
	if limit <= 0 || limit > maxNearbyLimit {
		limit = defaultNearbyLimit
	}

	minLat, minLon, maxLat, maxLon := geospatial.BoundingBox(at.Lat, at.Lon, radiusMeters)
	box := domain.BoundsAround(at, maxLat-minLat, maxLon-minLon)

	candidates, err := s.pins.ListInBounds(ctx, viewerID, box)
	if err != nil {
		return nil, fmt.Errorf("list pins in bounds: %w", err)
	}

	out := make([]domain.Pin, 0, len(candidates))
	for _, p := range candidates {
		d := geospatial.Haversine(at.Lat, at.Lon, p.Location.Lat, p.Location.Lon)
		if d > radiusMeters {
			continue
		}
		p.Distance = &d
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return *out[i].Distance < *out[j].Distance })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Get returns a single pin as seen by viewerID.
func (s *PinService) Get(ctx context.Context, viewerID, id string) (*domain.Pin, error) {
	if id == "" {
		return nil, fmt.Errorf("pin id: %w", domain.ErrInvalidInput)
	}
	return s.pins.GetByID(ctx, viewerID, id)
}

// Create stores a new pin owned by viewerID. Photo captions default to the
// location name.
func (s *PinService) Create(ctx context.Context, viewerID string, in domain.PinInput) (*domain.Pin, error) {
	if viewerID == "" {
		return nil, domain.ErrForbidden
	}
	if in.Location == nil {
		return nil, fmt.Errorf("location is required: %w", domain.ErrInvalidInput)
	}
	if in.LocationName == nil {
		return nil, fmt.Errorf("location_name is required: %w", domain.ErrInvalidInput)
	}

	p := &domain.Pin{AuthorID: viewerID, IsMine: true}
	if err := applyInput(p, in); err != nil {
		return nil, err
	}
	if p.LocationName == "" {
		return nil, fmt.Errorf("location_name is required: %w", domain.ErrInvalidInput)
	}
	if err := validatePhotoURLs(in.PhotoURLs); err != nil {
		return nil, err
	}
	for _, u := range in.PhotoURLs {
		p.Photos = append(p.Photos, domain.Photo{UserID: viewerID, URL: u, Caption: p.LocationName})
	}

	if err := s.pins.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create pin: %w", err)
	}
	if p.Photos == nil {
		p.Photos = []domain.Photo{}
	}

	s.changed(ctx, &domain.PinEvent{Type: domain.EventPinCreated, PinID: p.ID, ActorID: viewerID})
	return p, nil
}

// Update edits a pin owned by viewerID.
func (s *PinService) Update(ctx context.Context, viewerID, id string, in domain.PinInput) (*domain.Pin, error) {
	p, err := s.owned(ctx, viewerID, id)
	if err != nil {
		return nil, err
	}
	if err := applyInput(p, in); err != nil {
		return nil, err
	}
	if p.LocationName == "" {
		return nil, fmt.Errorf("location_name must not be empty: %w", domain.ErrInvalidInput)
	}

	if err := s.pins.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update pin: %w", err)
	}

	s.changed(ctx, &domain.PinEvent{Type: domain.EventPinUpdated, PinID: p.ID, ActorID: viewerID})
	return p, nil
}

// Delete removes a pin owned by viewerID and cleans up its photos.
func (s *PinService) Delete(ctx context.Context, viewerID, id string) error {
	if _, err := s.owned(ctx, viewerID, id); err != nil {
		return err
	}

	urls, err := s.pins.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete pin: %w", err)
	}

	s.changed(ctx, &domain.PinEvent{Type: domain.EventPinDeleted, PinID: id, ActorID: viewerID, PhotoURLs: urls})
	if len(urls) > 0 {
		s.purgePhotos(ctx, id, urls)
	}
	return nil
}

// Gallery returns the viewer's own pins, most recent visit first.
func (s *PinService) Gallery(ctx context.Context, viewerID string) ([]domain.Pin, error) {
	if viewerID == "" {
		return nil, domain.ErrForbidden
	}
	pins, err := s.pins.ListGallery(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("list gallery: %w", err)
	}
	if pins == nil {
		pins = []domain.Pin{}
	}
	return pins, nil
}

// Invalidate drops every cached pin listing.
func (s *PinService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	gen := strconv.FormatInt(s.now().UnixNano(), 36)
	if err := s.cache.Set(ctx, generationKey, []byte(gen), 0); err != nil {
		slog.Warn("pin cache invalidation failed", "error", err)
	}
}

func (s *PinService) generation(ctx context.Context) string {
	data, err := s.cache.Get(ctx, generationKey)
	if err != nil || len(data) == 0 {
		return "0"
	}
	return string(data)
}

func (s *PinService) owned(ctx context.Context, viewerID, id string) (*domain.Pin, error) {
	if id == "" {
		return nil, fmt.Errorf("pin id: %w", domain.ErrInvalidInput)
	}
	p, err := s.pins.GetByID(ctx, viewerID, id)
	if err != nil {
		return nil, err
	}
	if viewerID == "" || p.AuthorID != viewerID {
		return nil, domain.ErrForbidden
	}
	return p, nil
}

// changed invalidates cached listings and publishes event. Publishing is
// best-effort; the write already happened.
func (s *PinService) changed(ctx context.Context, event *domain.PinEvent) {
	s.Invalidate(ctx)
	publish(ctx, s.events, event, s.now)
}

func (s *PinService) purgePhotos(ctx context.Context, pinID string, urls []string) {
	if s.cleanup != nil {
		err := s.cleanup.SchedulePhotoCleanup(ctx, pinID, urls)
		if err == nil {
			return
		}
		slog.Warn("schedule photo cleanup failed, deleting inline", "pin_id", pinID, "error", err)
	}
	if s.blobs == nil {
		return
	}
	for _, u := range urls {
		if err := s.blobs.Delete(ctx, u); err != nil {
			slog.Warn("delete photo blob failed", "pin_id", pinID, "url", u, "error", err)
		}
	}
}

func applyInput(p *domain.Pin, in domain.PinInput) error {
	if in.Location != nil {
		if !in.Location.Valid() {
			return fmt.Errorf("location out of range: %w", domain.ErrInvalidInput)
		}
		p.Location = *in.Location
	}
	if in.LocationName != nil {
		name := strings.TrimSpace(*in.LocationName)
		if len(name) > maxLocationName {
			return fmt.Errorf("location_name exceeds %d characters: %w", maxLocationName, domain.ErrInvalidInput)
		}
		p.LocationName = name
	}
	if in.Notes != nil {
		notes := strings.TrimSpace(*in.Notes)
		if len(notes) > maxNotes {
			return fmt.Errorf("notes exceed %d characters: %w", maxNotes, domain.ErrInvalidInput)
		}
		p.Notes = notes
	}
	switch {
	case in.ClearVisit:
		p.VisitDate = nil
	case in.VisitDate != nil:
		d := in.VisitDate.UTC().Truncate(24 * time.Hour)
		p.VisitDate = &d
	}
	return nil
}

func validatePhotoURLs(urls []string) error {
	if len(urls) > maxPhotos {
		return fmt.Errorf("at most %d photos per pin: %w", maxPhotos, domain.ErrInvalidInput)
	}
	for _, u := range urls {
		if !validPhotoURL(u) {
			return fmt.Errorf("photo url %q: %w", u, domain.ErrInvalidInput)
		}
	}
	return nil
}

func validPhotoURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func publish(ctx context.Context, events ports.EventPublisher, event *domain.PinEvent, now func() time.Time) {
	if events == nil {
		return
	}
	if event.At.IsZero() {
		event.At = now().UTC()
	}
	if err := events.PublishPinEvent(ctx, event); err != nil {
		slog.Warn("publish pin event failed", "type", event.Type, "pin_id", event.PinID, "error", err)
	}
}
