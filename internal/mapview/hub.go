package mapview

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/pinmap/internal/pkg/metrics"
)

// DefaultRefreshConcurrency bounds how many sessions refresh at once.
const DefaultRefreshConcurrency = 8

// Hub tracks live sessions so that they can be refreshed together when the
// underlying pins change.
type Hub struct {
	mu          sync.Mutex
	sessions    map[*Session]func()
	concurrency int
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		sessions:    make(map[*Session]func()),
		concurrency: DefaultRefreshConcurrency,
	}
}

// SetConcurrency changes the refresh worker limit. n < 1 means 1.
func (h *Hub) SetConcurrency(n int) {
	if n < 1 {
		n = 1
	}
	h.mu.Lock()
	h.concurrency = n
	h.mu.Unlock()
}

// Register adds s. onRefresh, if not nil, runs after every successful
// refresh of s. The returned function unregisters the session.
func (h *Hub) Register(s *Session, onRefresh func()) func() {
	h.mu.Lock()
	h.sessions[s] = onRefresh
	h.mu.Unlock()
	metrics.LiveSessions.Inc()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.sessions, s)
			h.mu.Unlock()
			metrics.LiveSessions.Dec()
		})
	}
}

// Len returns the number of registered sessions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// RefreshAll re-fetches the collection of every registered session. A
// failed fetch leaves that session's data unchanged.
func (h *Hub) RefreshAll(ctx context.Context, f Fetcher) int {
	return h.refresh(ctx, f, func(*Session) bool { return true })
}

// RefreshPin re-fetches only the sessions whose collection holds pinID.
func (h *Hub) RefreshPin(ctx context.Context, f Fetcher, pinID string) int {
	return h.refresh(ctx, f, func(s *Session) bool {
		_, ok := s.Pin(pinID)
		return ok
	})
}

// refresh runs at most h.concurrency fetches at a time and returns how many
// sessions were selected.
func (h *Hub) refresh(ctx context.Context, f Fetcher, match func(*Session) bool) int {
	h.mu.Lock()
	limit := h.concurrency
	targets := make(map[*Session]func(), len(h.sessions))
	for s, fn := range h.sessions {
		if match(s) {
			targets[s] = fn
		}
	}
	h.mu.Unlock()

	var g errgroup.Group
	g.SetLimit(limit)
	for s, onRefresh := range targets {
		s, onRefresh := s, onRefresh
		g.Go(func() error {
			if err := s.Refresh(ctx, f); err != nil {
				slog.Warn("session refresh failed", "viewer_id", s.ViewerID(), "error", err)
				return nil
			}
			if onRefresh != nil {
				onRefresh()
			}
			return nil
		})
	}
	_ = g.Wait()
	return len(targets)
}
