// Package mapview holds the server-side state of one viewer's live map: the
// owned pin collection, the current viewport and selection, and the
// optimistic like Coordinator.
package mapview

import (
	"context"
	"fmt"
	"sync"

	"github.com/samirrijal/pinmap/internal/core/culling"
	"github.com/samirrijal/pinmap/internal/core/domain"
	"github.com/samirrijal/pinmap/internal/pkg/geospatial"
	"github.com/samirrijal/pinmap/internal/pkg/metrics"
)

// DefaultFocusRadiusMeters sizes the viewport opened around a pin when the
// viewer has not moved the map yet.
const DefaultFocusRadiusMeters = 25000

// Fetcher loads the full pin collection a viewer may see.
type Fetcher interface {
	FetchPins(ctx context.Context, viewerID string) ([]domain.Pin, error)
}

// Session is one viewer's map.
type Session struct {
	viewerID string
	limit    int
	pins     *Collection
	coord    *Coordinator

	mu          sync.Mutex
	viewport    domain.Bounds
	viewportSet bool
	selected    string
}

// NewSession creates an empty session showing the whole world. limit is the
// visible-set cap; non-positive values fall back to culling.DefaultCap.
func NewSession(viewerID string, limit int, confirmer Confirmer, opts ...Option) *Session {
	if limit <= 0 {
		limit = culling.DefaultCap
	}
	pins := NewCollection(nil)
	return &Session{
		viewerID: viewerID,
		limit:    limit,
		pins:     pins,
		coord:    NewCoordinator(pins, confirmer, opts...),
		viewport: domain.WorldBounds,
	}
}

// ViewerID returns the user the session belongs to.
func (s *Session) ViewerID() string { return s.viewerID }

// Coordinator returns the session's like coordinator.
func (s *Session) Coordinator() *Coordinator { return s.coord }

// Replace installs a freshly fetched collection. IsMine is recomputed for
// the session's viewer.
func (s *Session) Replace(pins []domain.Pin) {
	owned := make([]domain.Pin, len(pins))
	for i, p := range pins {
		owned[i] = p
		owned[i].IsMine = s.viewerID != "" && p.AuthorID == s.viewerID
	}
	s.coord.Replace(owned)

	s.mu.Lock()
	if s.selected != "" {
		if _, ok := s.pins.Get(s.selected); !ok {
			s.selected = ""
		}
	}
	s.mu.Unlock()
}

// Refresh fetches the collection and replaces it. On error the current
// collection is kept.
func (s *Session) Refresh(ctx context.Context, f Fetcher) error {
	pins, err := f.FetchPins(ctx, s.viewerID)
	if err != nil {
		return fmt.Errorf("refresh pins: %w", err)
	}
	s.Replace(pins)
	return nil
}

// SetViewport records the map's new visible rectangle.
func (s *Session) SetViewport(vp domain.Bounds) error {
	if !vp.Valid() {
		return fmt.Errorf("viewport %+v: %w", vp, domain.ErrInvalidInput)
	}
	s.mu.Lock()
	s.viewport = vp
	s.viewportSet = true
	s.mu.Unlock()
	return nil
}

// Viewport returns the current visible rectangle.
func (s *Session) Viewport() domain.Bounds {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewport
}

// Visible computes the pins to display for the current viewport.
func (s *Session) Visible() []domain.Pin {
	vp := s.Viewport()
	visible := culling.ComputeVisible(s.pins.Snapshot(), vp, s.limit)
	metrics.VisiblePins.Observe(float64(len(visible)))
	return visible
}

// ToggleLike is shorthand for Coordinator().ToggleLike.
func (s *Session) ToggleLike(pinID string) error {
	return s.coord.ToggleLike(pinID)
}

// FocusPin re-centres the viewport on a pin from the collection and selects
// it. The current span is kept once the viewer has set a viewport; before
// that a box of DefaultFocusRadiusMeters is used.
func (s *Session) FocusPin(pinID string) (domain.Bounds, error) {
	p, ok := s.pins.Get(pinID)
	if !ok {
		return domain.Bounds{}, ErrPinNotFound
	}
	return s.FocusPoint(p.ID, p.Location)
}

// FocusPoint re-centres the viewport on at and selects pinID.
func (s *Session) FocusPoint(pinID string, at domain.GeoPoint) (domain.Bounds, error) {
	if !at.Valid() {
		return domain.Bounds{}, fmt.Errorf("focus point %+v: %w", at, domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var vp domain.Bounds
	if s.viewportSet {
		latSpan, lonSpan := s.viewport.Span()
		vp = domain.BoundsAround(at, latSpan, lonSpan)
	} else {
		minLat, minLon, maxLat, maxLon := geospatial.BoundingBox(at.Lat, at.Lon, DefaultFocusRadiusMeters)
		vp = domain.BoundsAround(at, maxLat-minLat, maxLon-minLon)
	}

	s.viewport = vp
	s.viewportSet = true
	s.selected = pinID
	return vp, nil
}

// Selected returns the pre-selected pin, if it is still in the collection.
func (s *Session) Selected() (domain.Pin, bool) {
	s.mu.Lock()
	id := s.selected
	s.mu.Unlock()
	if id == "" {
		return domain.Pin{}, false
	}
	return s.pins.Get(id)
}

// ClearSelection drops the current selection.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	s.selected = ""
	s.mu.Unlock()
}

// Pin returns the current state of a pin in the collection.
func (s *Session) Pin(id string) (domain.Pin, bool) {
	return s.pins.Get(id)
}

// Close waits for outstanding like confirmations.
func (s *Session) Close() {
	s.coord.Wait()
}
