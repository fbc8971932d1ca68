package http_test

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/fasthttp/websocket"

	handler "github.com/samirrijal/pinmap/internal/adapters/http"
	"github.com/samirrijal/pinmap/internal/core/domain"
)

// wsFrame is the union of the frames /ws/map sends.
type wsFrame struct {
	Type     string        `json:"type"`
	Pins     []domain.Pin  `json:"pins"`
	Pin      *domain.Pin   `json:"pin"`
	PinID    string        `json:"pin_id"`
	Message  string        `json:"message"`
	Reverted bool          `json:"reverted"`
	Viewport domain.Bounds `json:"viewport"`
	Selected *domain.Pin   `json:"selected"`
	Error    string        `json:"error"`
}

func startServer(t *testing.T, deps *handler.Dependencies) string {
	t.Helper()
	app := setupApp(deps)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })
	return ln.Addr().String()
}

func dialMap(t *testing.T, addr, userID string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws/map?token="+tokenFor(t, userID), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// readFrame returns the next frame of type typ, skipping others.
func readFrame(t *testing.T, conn *websocket.Conn, typ string) wsFrame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var f wsFrame
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatalf("waiting for %q frame: %v", typ, err)
		}
		if f.Type == typ {
			return f
		}
	}
}

func ids(pins []domain.Pin) string {
	out := make([]string, len(pins))
	for i, p := range pins {
		out[i] = p.ID
	}
	return strings.Join(out, ",")
}

func mapRepos() *repos {
	r := newRepos()
	far := pinAt("far", bob, 35.68, 139.69)
	far.LikeCount = 5
	gone := pinAt("gone", bob, 43.30, -2.90)
	r.pins.listFn = func(ctx context.Context, viewerID string, filter domain.PinFilter) ([]domain.Pin, error) {
		return []domain.Pin{far, pinAt("mine", alice, 43.263, -2.935), gone}, nil
	}
	r.pins.existsFn = func(ctx context.Context, id string) (bool, error) {
		return id != "gone", nil
	}
	return r
}

func TestMapWebSocket_ViewportAndFocus(t *testing.T) {
	addr := startServer(t, makeDeps(mapRepos()))
	conn := dialMap(t, addr, alice)

	initial := readFrame(t, conn, "visible")
	if got := ids(initial.Pins); got != "mine,far,gone" {
		t.Errorf("expected own pin first then by likes, got %s", got)
	}
	if initial.Viewport != domain.WorldBounds {
		t.Errorf("expected world viewport, got %+v", initial.Viewport)
	}

	send(t, conn, `{"action":"viewport","bounds":{"min_lat":43.2,"min_lon":-3.0,"max_lat":43.27,"max_lon":-2.9}}`)
	if got := ids(readFrame(t, conn, "visible").Pins); got != "mine" {
		t.Errorf("expected only mine in Bilbao viewport, got %s", got)
	}

	send(t, conn, `{"action":"focus","pin_id":"far"}`)
	focus := readFrame(t, conn, "focus")
	if focus.Selected == nil || focus.Selected.ID != "far" {
		t.Fatalf("expected far selected, got %+v", focus.Selected)
	}
	if c := focus.Viewport.Center(); c.Lat < 35.6 || c.Lat > 35.7 {
		t.Errorf("expected viewport centred on far, got %+v", c)
	}
	if got := ids(readFrame(t, conn, "visible").Pins); got != "far" {
		t.Errorf("expected far visible after focus, got %s", got)
	}

	send(t, conn, `{"action":"focus","pin_id":"mine","lat":43.263,"lon":-2.935}`)
	focus = readFrame(t, conn, "focus")
	if focus.Selected == nil || focus.Selected.ID != "mine" {
		t.Errorf("expected mine selected by coordinates, got %+v", focus.Selected)
	}

	send(t, conn, `{"action":"refresh"}`)
	if got := ids(readFrame(t, conn, "visible").Pins); !strings.Contains(got, "mine") {
		t.Errorf("expected refreshed visible set around mine, got %s", got)
	}

	tests := []struct {
		msg, want string
	}{
		{`{"action":"viewport"}`, "bounds required"},
		{`{"action":"viewport","bounds":{"min_lat":50,"min_lon":0,"max_lat":10,"max_lon":1}}`, "invalid viewport"},
		{`{"action":"focus","pin_id":"nope"}`, "unknown pin"},
		{`{"action":"focus","pin_id":"mine","lat":95,"lon":0}`, "invalid focus point"},
		{`{"action":"dance"}`, "unknown action: dance"},
		{`not json`, "invalid JSON"},
	}
	for _, tt := range tests {
		send(t, conn, tt.msg)
		if got := readFrame(t, conn, "error").Error; got != tt.want {
			t.Errorf("%s: expected error %q, got %q", tt.msg, tt.want, got)
		}
	}
}

func TestMapWebSocket_Likes(t *testing.T) {
	r := mapRepos()
	addr := startServer(t, makeDeps(r))
	conn := dialMap(t, addr, alice)
	readFrame(t, conn, "visible")

	send(t, conn, `{"action":"like","pin_id":"far"}`)
	p := readFrame(t, conn, "pin").Pin
	if p == nil || p.ID != "far" || !p.IsLiked || p.LikeCount != 6 {
		t.Fatalf("expected optimistic (true, 6) for far, got %+v", p)
	}

	// A pin the server no longer has: the like is reverted with a notice.
	send(t, conn, `{"action":"like","pin_id":"gone"}`)
	p = readFrame(t, conn, "pin").Pin
	if p == nil || p.ID != "gone" || !p.IsLiked || p.LikeCount != 1 {
		t.Fatalf("expected optimistic (true, 1) for gone, got %+v", p)
	}
	p = readFrame(t, conn, "pin").Pin
	if p == nil || p.ID != "gone" || p.IsLiked || p.LikeCount != 0 {
		t.Fatalf("expected reverted (false, 0) for gone, got %+v", p)
	}
	notice := readFrame(t, conn, "notice")
	if notice.PinID != "gone" || !notice.Reverted || notice.Message == "" {
		t.Errorf("unexpected notice: %+v", notice)
	}

	send(t, conn, `{"action":"like","pin_id":"missing"}`)
	if got := readFrame(t, conn, "error").Error; got != "unknown pin" {
		t.Errorf("expected unknown pin error, got %q", got)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if liked, _ := r.likes.Exists(context.Background(), alice, "far"); liked {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("expected confirmed like to be stored")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
