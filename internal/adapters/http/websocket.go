package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/pinmap/internal/adapters/nats"
	"github.com/samirrijal/pinmap/internal/core/domain"
	"github.com/samirrijal/pinmap/internal/mapview"
	"github.com/samirrijal/pinmap/internal/pkg/metrics"
)

const wsPingInterval = 30 * time.Second

// mapMessage is sent by live map clients.
//
//	{"action":"viewport","bounds":{"min_lat":..,"min_lon":..,"max_lat":..,"max_lon":..}}
//	{"action":"like","pin_id":"..."}
//	{"action":"focus","pin_id":"..."}                 // or with "lat" and "lon"
//	{"action":"refresh"}
type mapMessage struct {
	Action string         `json:"action"`
	Bounds *domain.Bounds `json:"bounds,omitempty"`
	PinID  string         `json:"pin_id,omitempty"`
	Lat    *float64       `json:"lat,omitempty"`
	Lon    *float64       `json:"lon,omitempty"`
}

type visibleFrame struct {
	Type     string        `json:"type"`
	Viewport domain.Bounds `json:"viewport"`
	Pins     []domain.Pin  `json:"pins"`
}

type pinFrame struct {
	Type string     `json:"type"`
	Pin  domain.Pin `json:"pin"`
}

type noticeFrame struct {
	Type     string `json:"type"`
	PinID    string `json:"pin_id,omitempty"`
	Message  string `json:"message"`
	Reverted bool   `json:"reverted"`
}

type focusFrame struct {
	Type     string        `json:"type"`
	Viewport domain.Bounds `json:"viewport"`
	Selected *domain.Pin   `json:"selected,omitempty"`
}

type errorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// wsWriter serialises writes to one connection. Frames are pushed from the
// read loop, confirmation goroutines and hub refreshes.
type wsWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsWriter) json(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

func (w *wsWriter) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(websocket.PingMessage, nil)
}

// keepAlive pings the client until done is closed or a write fails.
func (w *wsWriter) keepAlive(done <-chan struct{}) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := w.ping(); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// likeConfirmer persists like changes for viewerID through the like
// service, guarded by the circuit breaker when one is configured.
func likeConfirmer(deps *Dependencies, viewerID string) mapview.Confirmer {
	return mapview.ConfirmerFunc(func(ctx context.Context, pinID string, liked bool) error {
		confirm := func() error { return deps.Likes.ConfirmLike(ctx, viewerID, pinID, liked) }
		if deps.LikeBreaker == nil {
			return confirm()
		}
		return deps.LikeBreaker.Do(confirm)
	})
}

// MapWebSocketHandler runs one live map session per connection. The session
// holds the viewer's pin collection; viewport changes are answered with the
// culled visible set, likes are applied optimistically and confirmed in the
// background, and pin events refresh the collection through the Hub.
func MapWebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		viewerID, _ := c.Locals(userIDLocal).(string)
		logger := slog.Default().With("user_id", viewerID, "remote", c.RemoteAddr().String())
		w := &wsWriter{conn: c}

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		session := mapview.NewSession(viewerID, deps.VisibleCap, likeConfirmer(deps, viewerID),
			mapview.WithConfirmTimeout(deps.ConfirmTimeout),
			mapview.WithLogger(logger),
			mapview.WithObserver(func(p domain.Pin) {
				_ = w.json(pinFrame{Type: "pin", Pin: p})
			}),
			mapview.WithNotifier(mapview.NotifierFunc(func(n mapview.Notice) {
				_ = w.json(noticeFrame{Type: "notice", PinID: n.PinID, Message: n.Message, Reverted: n.Reverted})
			})),
		)
		defer session.Close()

		sendVisible := func() {
			_ = w.json(visibleFrame{Type: "visible", Viewport: session.Viewport(), Pins: session.Visible()})
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		if err := session.Refresh(ctx, deps.Pins); err != nil {
			logger.Warn("initial pin fetch failed", "error", err)
			_ = w.json(noticeFrame{Type: "notice", Message: "Could not load pins. Showing what is available."})
		}
		sendVisible()

		if deps.Hub != nil {
			unregister := deps.Hub.Register(session, sendVisible)
			defer unregister()
		}

		done := make(chan struct{})
		defer close(done)
		go w.keepAlive(done)

		logger.Info("map session started")
		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m mapMessage
			if err := json.Unmarshal(raw, &m); err != nil {
				_ = w.json(errorFrame{Type: "error", Error: "invalid JSON"})
				continue
			}
			handleMapMessage(ctx, deps, session, w, m, sendVisible, logger)
		}
		logger.Info("map session ended")
	}
}

func handleMapMessage(ctx context.Context, deps *Dependencies, s *mapview.Session, w *wsWriter, m mapMessage, sendVisible func(), logger *slog.Logger) {
	switch m.Action {
	case "viewport":
		if m.Bounds == nil {
			_ = w.json(errorFrame{Type: "error", Error: "bounds required"})
			return
		}
		if err := s.SetViewport(*m.Bounds); err != nil {
			_ = w.json(errorFrame{Type: "error", Error: "invalid viewport"})
			return
		}
		sendVisible()

	case "like":
		if err := s.ToggleLike(m.PinID); err != nil {
			_ = w.json(errorFrame{Type: "error", Error: "unknown pin"})
		}

	case "focus":
		var (
			vp  domain.Bounds
			err error
		)
		if m.Lat != nil && m.Lon != nil {
			vp, err = s.FocusPoint(m.PinID, domain.GeoPoint{Lat: *m.Lat, Lon: *m.Lon})
		} else {
			vp, err = s.FocusPin(m.PinID)
		}
		switch {
		case errors.Is(err, mapview.ErrPinNotFound):
			_ = w.json(errorFrame{Type: "error", Error: "unknown pin"})
			return
		case err != nil:
			_ = w.json(errorFrame{Type: "error", Error: "invalid focus point"})
			return
		}

		frame := focusFrame{Type: "focus", Viewport: vp}
		if sel, ok := s.Selected(); ok {
			frame.Selected = &sel
		}
		_ = w.json(frame)
		sendVisible()

	case "refresh":
		if err := s.Refresh(ctx, deps.Pins); err != nil {
			logger.Warn("pin refresh failed", "error", err)
			_ = w.json(noticeFrame{Type: "notice", Message: "Could not refresh pins."})
			return
		}
		sendVisible()

	default:
		_ = w.json(errorFrame{Type: "error", Error: "unknown action: " + m.Action})
	}
}

// eventsMessage narrows the relayed events, e.g.
// {"action":"subscribe","event":"pin.liked"}. An empty event means all.
type eventsMessage struct {
	Action string `json:"action"`
	Event  string `json:"event"`
}

// EventsWebSocketHandler relays pin events from NATS to the client. All
// events are relayed until the client subscribes to specific ones.
func EventsWebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		logger := slog.Default().With("remote", c.RemoteAddr().String())
		w := &wsWriter{conn: c}

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		if nc == nil {
			_ = w.json(errorFrame{Type: "error", Error: "event stream unavailable"})
			return
		}

		relay := func(msg *nats.Msg) { _ = w.json(json.RawMessage(msg.Data)) }
		subs := make(map[string]*nats.Subscription)
		defer func() {
			for _, s := range subs {
				_ = s.Unsubscribe()
			}
		}()

		all, err := nc.Subscribe(natsadapter.SubjectAll, relay)
		if err != nil {
			logger.Error("ws events subscribe failed", "error", err)
			return
		}
		subs[natsadapter.SubjectAll] = all

		done := make(chan struct{})
		defer close(done)
		go w.keepAlive(done)

		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m eventsMessage
			if err := json.Unmarshal(raw, &m); err != nil {
				_ = w.json(errorFrame{Type: "error", Error: "invalid JSON"})
				continue
			}

			subject := natsadapter.SubjectAll
			if m.Event != "" {
				subject = natsadapter.Subject(&domain.PinEvent{Type: m.Event})
			}

			switch m.Action {
			case "subscribe":
				if _, ok := subs[subject]; ok {
					_ = w.json(statusFrame("already subscribed", subject))
					continue
				}
				// A specific subscription replaces the catch-all one.
				if subject != natsadapter.SubjectAll {
					if s, ok := subs[natsadapter.SubjectAll]; ok {
						_ = s.Unsubscribe()
						delete(subs, natsadapter.SubjectAll)
					}
				}
				s, err := nc.Subscribe(subject, relay)
				if err != nil {
					_ = w.json(errorFrame{Type: "error", Error: "subscribe failed"})
					continue
				}
				subs[subject] = s
				_ = w.json(statusFrame("subscribed", subject))

			case "unsubscribe":
				s, ok := subs[subject]
				if !ok {
					_ = w.json(errorFrame{Type: "error", Error: "not subscribed to " + subject})
					continue
				}
				_ = s.Unsubscribe()
				delete(subs, subject)
				_ = w.json(statusFrame("unsubscribed", subject))

			default:
				_ = w.json(errorFrame{Type: "error", Error: "unknown action: " + m.Action})
			}
		}
	}
}

func statusFrame(status, subject string) map[string]string {
	return map[string]string{"type": "status", "status": status, "subject": subject}
}
