package mapview_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samirrijal/pinmap/internal/core/domain"
	"github.com/samirrijal/pinmap/internal/mapview"
)

type fetcherFunc func(ctx context.Context, viewerID string) ([]domain.Pin, error)

func (f fetcherFunc) FetchPins(ctx context.Context, viewerID string) ([]domain.Pin, error) {
	return f(ctx, viewerID)
}

var okConfirmer = mapview.ConfirmerFunc(func(context.Context, string, bool) error { return nil })

func samplePins() []domain.Pin {
	return []domain.Pin{
		{ID: "bilbao", AuthorID: "other", Location: domain.GeoPoint{Lat: 43.263, Lon: -2.935}, LikeCount: 2},
		{ID: "donostia", AuthorID: "me", Location: domain.GeoPoint{Lat: 43.318, Lon: -1.981}, LikeCount: 0},
		{ID: "tokyo", AuthorID: "other", Location: domain.GeoPoint{Lat: 35.68, Lon: 139.69}, LikeCount: 9},
	}
}

func TestSession_ReplaceComputesOwnership(t *testing.T) {
	s := mapview.NewSession("me", 10, okConfirmer)
	in := samplePins()
	in[0].IsMine = true // stale flag from elsewhere
	s.Replace(in)

	for _, id := range []string{"bilbao", "donostia", "tokyo"} {
		p, ok := s.Pin(id)
		if !ok {
			t.Fatalf("pin %s missing", id)
		}
		if want := p.AuthorID == "me"; p.IsMine != want {
			t.Errorf("%s: IsMine = %v, want %v", id, p.IsMine, want)
		}
	}
	if !in[0].IsMine {
		t.Error("Replace must not modify the caller's slice")
	}
}

func TestSession_VisibleFollowsViewportAndCap(t *testing.T) {
	s := mapview.NewSession("me", 2, okConfirmer)
	s.Replace(samplePins())

	world := s.Visible()
	if len(world) != 2 {
		t.Fatalf("expected cap of 2, got %d", len(world))
	}
	if world[0].ID != "donostia" || world[1].ID != "tokyo" {
		t.Errorf("expected [donostia tokyo], got [%s %s]", world[0].ID, world[1].ID)
	}

	basque := domain.Bounds{MinLat: 42.8, MinLon: -3.5, MaxLat: 43.5, MaxLon: -1.5}
	if err := s.SetViewport(basque); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	local := s.Visible()
	if len(local) != 2 || local[0].ID != "donostia" || local[1].ID != "bilbao" {
		t.Errorf("unexpected visible set: %+v", local)
	}
}

func TestSession_SetViewportRejectsInvalid(t *testing.T) {
	s := mapview.NewSession("me", 10, okConfirmer)
	err := s.SetViewport(domain.Bounds{MinLat: math.NaN(), MaxLat: 1, MinLon: 0, MaxLon: 1})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if s.Viewport() != domain.WorldBounds {
		t.Error("viewport should be unchanged after rejection")
	}
}

func TestSession_VisibleReflectsToggle(t *testing.T) {
	s := mapview.NewSession("me", 10, okConfirmer)
	s.Replace(samplePins())

	if err := s.ToggleLike("bilbao"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Close()

	for _, p := range s.Visible() {
		if p.ID == "bilbao" && (!p.IsLiked || p.LikeCount != 3) {
			t.Errorf("expected toggled pin (true, 3), got (%v, %d)", p.IsLiked, p.LikeCount)
		}
	}
}

func TestSession_FocusPinDefaultRadius(t *testing.T) {
	s := mapview.NewSession("me", 10, okConfirmer)
	s.Replace(samplePins())

	vp, err := s.FocusPin("bilbao")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c := vp.Center()
	if math.Abs(c.Lat-43.263) > 1e-6 || math.Abs(c.Lon-(-2.935)) > 1e-6 {
		t.Errorf("expected viewport centred on pin, got %+v", c)
	}
	latSpan, _ := vp.Span()
	if latSpan < 0.4 || latSpan > 0.5 {
		t.Errorf("expected ~50km tall viewport, got %.3f degrees", latSpan)
	}

	sel, ok := s.Selected()
	if !ok || sel.ID != "bilbao" {
		t.Errorf("expected bilbao selected, got %+v (ok=%v)", sel, ok)
	}
	if s.Viewport() != vp {
		t.Error("session viewport should be the focused one")
	}
}

func TestSession_FocusPinKeepsSpan(t *testing.T) {
	s := mapview.NewSession("me", 10, okConfirmer)
	s.Replace(samplePins())
	_ = s.SetViewport(domain.Bounds{MinLat: 0, MinLon: 0, MaxLat: 4, MaxLon: 6})

	vp, err := s.FocusPin("tokyo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	latSpan, lonSpan := vp.Span()
	if math.Abs(latSpan-4) > 1e-9 || math.Abs(lonSpan-6) > 1e-9 {
		t.Errorf("expected span 4x6, got %vx%v", latSpan, lonSpan)
	}

	visible := s.Visible()
	if len(visible) != 1 || visible[0].ID != "tokyo" {
		t.Errorf("expected only tokyo visible, got %+v", visible)
	}
}

func TestSession_FocusUnknownPin(t *testing.T) {
	s := mapview.NewSession("me", 10, okConfirmer)
	if _, err := s.FocusPin("nope"); !errors.Is(err, mapview.ErrPinNotFound) {
		t.Errorf("expected ErrPinNotFound, got %v", err)
	}
	if _, err := s.FocusPoint("nope", domain.GeoPoint{Lat: 91}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSession_RefreshKeepsStaleOnError(t *testing.T) {
	s := mapview.NewSession("me", 10, okConfirmer)
	s.Replace(samplePins())

	boom := errors.New("db down")
	err := s.Refresh(context.Background(), fetcherFunc(func(ctx context.Context, viewerID string) ([]domain.Pin, error) {
		return nil, boom
	}))
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped fetch error, got %v", err)
	}
	if len(s.Visible()) != 3 {
		t.Error("expected stale collection to be kept")
	}
}

func TestSession_RefreshClearsMissingSelection(t *testing.T) {
	s := mapview.NewSession("me", 10, okConfirmer)
	s.Replace(samplePins())
	if _, err := s.FocusPin("tokyo"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := s.Refresh(context.Background(), fetcherFunc(func(ctx context.Context, viewerID string) ([]domain.Pin, error) {
		if viewerID != "me" {
			t.Errorf("expected viewer me, got %s", viewerID)
		}
		return samplePins()[:2], nil
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s.Selected(); ok {
		t.Error("selection should be cleared when the pin disappears")
	}
}

func TestHub_RefreshAll(t *testing.T) {
	hub := mapview.NewHub()
	a := mapview.NewSession("a", 10, okConfirmer)
	b := mapview.NewSession("b", 10, okConfirmer)

	var refreshed int32
	unregA := hub.Register(a, func() { atomic.AddInt32(&refreshed, 1) })
	unregB := hub.Register(b, nil)
	if hub.Len() != 2 {
		t.Fatalf("expected 2 sessions, got %d", hub.Len())
	}

	hub.RefreshAll(context.Background(), fetcherFunc(func(ctx context.Context, viewerID string) ([]domain.Pin, error) {
		return samplePins(), nil
	}))

	if atomic.LoadInt32(&refreshed) != 1 {
		t.Errorf("expected one refresh callback, got %d", refreshed)
	}
	if len(a.Visible()) != 3 || len(b.Visible()) != 3 {
		t.Error("expected both sessions to receive the new collection")
	}

	unregA()
	unregA()
	unregB()
	if hub.Len() != 0 {
		t.Errorf("expected empty hub, got %d", hub.Len())
	}
}

func TestHub_RefreshPinOnlyTouchesHolders(t *testing.T) {
	hub := mapview.NewHub()
	holder := mapview.NewSession("a", 10, okConfirmer)
	holder.Replace(samplePins())
	other := mapview.NewSession("b", 10, okConfirmer)
	other.Replace(samplePins()[:1]) // bilbao only

	defer hub.Register(holder, nil)()
	defer hub.Register(other, nil)()

	var fetched []string
	var mu sync.Mutex
	n := hub.RefreshPin(context.Background(), fetcherFunc(func(ctx context.Context, viewerID string) ([]domain.Pin, error) {
		mu.Lock()
		fetched = append(fetched, viewerID)
		mu.Unlock()
		return samplePins()[:2], nil
	}), "tokyo")

	if n != 1 || len(fetched) != 1 || fetched[0] != "a" {
		t.Fatalf("expected only the holder refreshed, got n=%d fetched=%v", n, fetched)
	}
	if _, ok := holder.Pin("tokyo"); ok {
		t.Error("holder should have the refreshed collection")
	}
	if n := len(other.Visible()); n != 1 {
		t.Errorf("other session should be untouched, has %d pins", n)
	}
}

func TestHub_RefreshConcurrencyLimit(t *testing.T) {
	hub := mapview.NewHub()
	hub.SetConcurrency(2)
	for i := 0; i < 6; i++ {
		s := mapview.NewSession(fmt.Sprintf("v%d", i), 10, okConfirmer)
		defer hub.Register(s, nil)()
	}

	var running, peak int32
	n := hub.RefreshAll(context.Background(), fetcherFunc(func(ctx context.Context, viewerID string) ([]domain.Pin, error) {
		cur := atomic.AddInt32(&running, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return nil, nil
	}))

	if n != 6 {
		t.Errorf("expected 6 sessions refreshed, got %d", n)
	}
	if p := atomic.LoadInt32(&peak); p > 2 || p < 1 {
		t.Errorf("expected at most 2 concurrent fetches, peak was %d", p)
	}
}
