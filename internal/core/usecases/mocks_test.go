package usecases_test

import (
	"context"
	"errors"
	"sync"

	"github.com/samirrijal/pinmap/internal/core/domain"
)

// --- Mock PinRepository ---

type mockPinRepo struct {
	listFn         func(ctx context.Context, viewerID string, filter domain.PinFilter) ([]domain.Pin, error)
	listInBoundsFn func(ctx context.Context, viewerID string, vp domain.Bounds) ([]domain.Pin, error)
	getByIDFn      func(ctx context.Context, viewerID, id string) (*domain.Pin, error)
	existsFn       func(ctx context.Context, id string) (bool, error)
	createFn       func(ctx context.Context, p *domain.Pin) error
	updateFn       func(ctx context.Context, p *domain.Pin) error
	deleteFn       func(ctx context.Context, id string) ([]string, error)
	galleryFn      func(ctx context.Context, authorID string) ([]domain.Pin, error)

	listCalls int
}

func (m *mockPinRepo) List(ctx context.Context, viewerID string, filter domain.PinFilter) ([]domain.Pin, error) {
	m.listCalls++
	if m.listFn != nil {
		return m.listFn(ctx, viewerID, filter)
	}
	return nil, nil
}

func (m *mockPinRepo) ListInBounds(ctx context.Context, viewerID string, vp domain.Bounds) ([]domain.Pin, error) {
	if m.listInBoundsFn != nil {
		return m.listInBoundsFn(ctx, viewerID, vp)
	}
	return nil, nil
}

func (m *mockPinRepo) GetByID(ctx context.Context, viewerID, id string) (*domain.Pin, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, viewerID, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockPinRepo) Exists(ctx context.Context, id string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, id)
	}
	return true, nil
}

func (m *mockPinRepo) Create(ctx context.Context, p *domain.Pin) error {
	if m.createFn != nil {
		return m.createFn(ctx, p)
	}
	return nil
}

func (m *mockPinRepo) Update(ctx context.Context, p *domain.Pin) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, p)
	}
	return nil
}

func (m *mockPinRepo) Delete(ctx context.Context, id string) ([]string, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil, nil
}

func (m *mockPinRepo) ListGallery(ctx context.Context, authorID string) ([]domain.Pin, error) {
	if m.galleryFn != nil {
		return m.galleryFn(ctx, authorID)
	}
	return nil, nil
}

// --- Mock LikeRepository (in memory) ---

type memLikes struct {
	mu    sync.Mutex
	likes map[[2]string]bool
	err   error
}

func newMemLikes() *memLikes { return &memLikes{likes: make(map[[2]string]bool)} }

func (m *memLikes) Exists(ctx context.Context, userID, pinID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.likes[[2]string{userID, pinID}], nil
}

func (m *memLikes) Add(ctx context.Context, userID, pinID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.likes[[2]string{userID, pinID}] = true
	return nil
}

func (m *memLikes) Remove(ctx context.Context, userID, pinID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.likes, [2]string{userID, pinID})
	return nil
}

func (m *memLikes) Count(ctx context.Context, pinID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.likes {
		if k[1] == pinID {
			n++
		}
	}
	return n, nil
}

// --- Mock CacheService (in memory) ---

type memCache struct {
	data map[string][]byte
	ttls map[string]int
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte), ttls: make(map[string]int)}
}

var errCacheMiss = errors.New("cache miss")

func (c *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	v, ok := c.data[key]
	if !ok {
		return nil, errCacheMiss
	}
	return v, nil
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	c.data[key] = value
	c.ttls[key] = ttlSeconds
	return nil
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	delete(c.data, key)
	return nil
}

// --- Mock EventPublisher ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.PinEvent
	err    error
}

func (p *recordingPublisher) PublishPinEvent(ctx context.Context, e *domain.PinEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, *e)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// --- Mock BlobStore / PhotoCleanupScheduler ---

type recordingBlobs struct {
	deleted []string
	err     error
}

func (b *recordingBlobs) Delete(ctx context.Context, url string) error {
	b.deleted = append(b.deleted, url)
	return b.err
}

type schedulerFunc func(ctx context.Context, pinID string, urls []string) error

func (f schedulerFunc) SchedulePhotoCleanup(ctx context.Context, pinID string, urls []string) error {
	return f(ctx, pinID, urls)
}

// --- Mock PhotoRepository ---

type mockPhotoRepo struct {
	addFn     func(ctx context.Context, p *domain.Photo) error
	getByIDFn func(ctx context.Context, id string) (*domain.Photo, error)
	deleteFn  func(ctx context.Context, id string) error
}

func (m *mockPhotoRepo) Add(ctx context.Context, p *domain.Photo) error {
	if m.addFn != nil {
		return m.addFn(ctx, p)
	}
	return nil
}

func (m *mockPhotoRepo) GetByID(ctx context.Context, id string) (*domain.Photo, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockPhotoRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// --- Mock FollowRepository / ProfileRepository ---

type memFollows struct {
	edges map[[2]string]bool
}

func (m *memFollows) Exists(ctx context.Context, followerID, followingID string) (bool, error) {
	return m.edges[[2]string{followerID, followingID}], nil
}

func (m *memFollows) Add(ctx context.Context, followerID, followingID string) error {
	m.edges[[2]string{followerID, followingID}] = true
	return nil
}

func (m *memFollows) Remove(ctx context.Context, followerID, followingID string) error {
	delete(m.edges, [2]string{followerID, followingID})
	return nil
}

type mockProfileRepo struct {
	profiles map[string]domain.Profile
}

func (m *mockProfileRepo) GetByID(ctx context.Context, viewerID, id string) (*domain.Profile, error) {
	p, ok := m.profiles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

type invalidateCounter struct{ n int }

func (c *invalidateCounter) Invalidate(ctx context.Context) { c.n++ }

func strPtr(s string) *string { return &s }
