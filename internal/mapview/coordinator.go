package mapview

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/samirrijal/pinmap/internal/core/domain"
	"github.com/samirrijal/pinmap/internal/pkg/metrics"
)

// ErrPinNotFound is returned when an operation names a pin that is not in
// the session's collection.
var ErrPinNotFound = errors.New("pin not in collection")

// DefaultConfirmTimeout bounds a single like confirmation request.
const DefaultConfirmTimeout = 10 * time.Second

const failureMessage = "Could not update like. Please try again."

// Confirmer persists a like change. liked is the state the viewer asked
// for, so repeating a request is harmless.
type Confirmer interface {
	ConfirmLike(ctx context.Context, pinID string, liked bool) error
}

// ConfirmerFunc adapts a function to Confirmer.
type ConfirmerFunc func(ctx context.Context, pinID string, liked bool) error

func (f ConfirmerFunc) ConfirmLike(ctx context.Context, pinID string, liked bool) error {
	return f(ctx, pinID, liked)
}

// Notice is a transient, non-fatal message for the viewer.
type Notice struct {
	PinID    string `json:"pin_id"`
	Message  string `json:"message"`
	Reverted bool   `json:"reverted"`
	Err      error  `json:"-"`
}

// Notifier receives failure notices.
type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

type likeState struct {
	liked bool
	count int
}

func stateOf(p domain.Pin) likeState {
	return likeState{liked: p.IsLiked, count: p.LikeCount}
}

// track follows the in-flight confirmations of one pin. token identifies the
// most recent toggle. confirmed is the newest state the server accepted and
// confirmedToken the toggle that produced it. The track lives until pending
// drops to zero, at which point the pin settles on confirmed.
type track struct {
	token          uint64
	pending        int
	confirmed      likeState
	confirmedToken uint64
}

type confirmation struct {
	pinID      string
	token      uint64
	generation uint64
	before     likeState
	after      likeState
}

// Coordinator applies like toggles to a Collection immediately and confirms
// them in the background, reverting when the confirmation fails.
type Coordinator struct {
	pins      *Collection
	confirmer Confirmer
	notifier  Notifier
	onChange  func(domain.Pin)
	timeout   time.Duration
	logger    *slog.Logger

	mu         sync.Mutex
	tracks     map[string]*track
	seq        uint64
	generation uint64

	wg sync.WaitGroup
}

// NewCoordinator creates a Coordinator over pins.
func NewCoordinator(pins *Collection, confirmer Confirmer, opts ...Option) *Coordinator {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Coordinator{
		pins:      pins,
		confirmer: confirmer,
		notifier:  o.notifier,
		onChange:  o.onChange,
		timeout:   o.confirmTimeout,
		logger:    o.logger,
		tracks:    make(map[string]*track),
	}
}

// ToggleLike flips the pin's like state locally and dispatches a
// confirmation. It returns once the local change is applied; the outcome of
// the confirmation is reported through the Notifier and change observer.
func (c *Coordinator) ToggleLike(pinID string) error {
	c.mu.Lock()

	var before domain.Pin
	after, ok := c.pins.update(pinID, func(p *domain.Pin) {
		before = p.Clone()
		p.IsLiked = !p.IsLiked
		if p.IsLiked {
			p.LikeCount++
		} else if p.LikeCount > 0 {
			p.LikeCount--
		}
	})
	if !ok {
		c.mu.Unlock()
		return ErrPinNotFound
	}

	tr, exists := c.tracks[pinID]
	if !exists {
		tr = &track{confirmed: stateOf(before)}
		c.tracks[pinID] = tr
	}
	c.seq++
	tr.token = c.seq
	tr.pending++

	req := confirmation{
		pinID:      pinID,
		token:      tr.token,
		generation: c.generation,
		before:     stateOf(before),
		after:      stateOf(after),
	}
	c.wg.Add(1)
	c.mu.Unlock()

	c.emit(after)
	go c.confirm(req)
	return nil
}

// Wait blocks until every dispatched confirmation has been resolved.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Replace swaps the collection wholesale. Confirmations still in flight are
// treated as superseded and will not touch the new data.
func (c *Coordinator) Replace(pins []domain.Pin) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pins.Replace(pins)
	c.generation++
	c.tracks = make(map[string]*track)
}

// InFlight reports whether the pin has an unresolved toggle.
func (c *Coordinator) InFlight(pinID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.tracks[pinID]
	return ok
}

func (c *Coordinator) confirm(req confirmation) {
	defer c.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	err := c.confirmer.ConfirmLike(ctx, req.pinID, req.after.liked)
	cancel()

	c.resolve(req, err)
}

// resolve settles one confirmation:
//   - a success newer than the last accepted one becomes the confirmed state;
//   - a failure of the most recent toggle undoes exactly that toggle;
//   - when the last pending request resolves, the pin settles on the
//     confirmed state, so the display ends where the server accepted it.
//
// Confirmations from before a Replace change nothing.
func (c *Coordinator) resolve(req confirmation, err error) {
	c.mu.Lock()

	tr, ok := c.tracks[req.pinID]
	live := ok && req.generation == c.generation
	current := live && tr.token == req.token

	var (
		changed *domain.Pin
		settled bool
	)
	if live {
		tr.pending--
		if err == nil && req.token > tr.confirmedToken {
			tr.confirmed = req.after
			tr.confirmedToken = req.token
		}

		target, apply := likeState{}, false
		switch {
		case tr.pending == 0:
			target, apply = tr.confirmed, true
			delete(c.tracks, req.pinID)
			settled = true
		case err != nil && current:
			target, apply = req.before, true
		}
		if apply {
			if p, found := c.setState(req.pinID, target); found {
				changed = &p
			}
		}
	}
	c.mu.Unlock()

	if changed != nil {
		c.emit(*changed)
	}

	if err == nil {
		metrics.LikeConfirmations.WithLabelValues("ok").Inc()
		if changed != nil && settled {
			c.logger.Debug("like settled on confirmed state", "pin_id", req.pinID)
		}
		return
	}

	if current {
		metrics.LikeConfirmations.WithLabelValues("failed").Inc()
	} else {
		metrics.LikeConfirmations.WithLabelValues("superseded").Inc()
	}
	reverted := changed != nil
	if reverted {
		metrics.OptimisticReverts.Inc()
	}

	c.logger.Warn("like confirmation failed",
		"pin_id", req.pinID,
		"reverted", reverted,
		"error", err,
	)

	if c.notifier != nil {
		c.notifier.Notify(Notice{
			PinID:    req.pinID,
			Message:  failureMessage,
			Reverted: reverted,
			Err:      err,
		})
	}
}

// setState writes st to the pin. It reports the new pin only when the
// displayed state actually changed. Callers hold c.mu.
func (c *Coordinator) setState(pinID string, st likeState) (domain.Pin, bool) {
	var differs bool
	p, found := c.pins.update(pinID, func(p *domain.Pin) {
		if stateOf(*p) == st {
			return
		}
		differs = true
		p.IsLiked = st.liked
		p.LikeCount = st.count
	})
	return p, found && differs
}

func (c *Coordinator) emit(p domain.Pin) {
	if c.onChange != nil {
		c.onChange(p)
	}
}
