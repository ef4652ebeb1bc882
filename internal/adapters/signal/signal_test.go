package signal

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/Screenshare/internal/app"
	"github.com/dkeye/Screenshare/internal/app/orch"
	"github.com/dkeye/Screenshare/internal/core"
	"github.com/dkeye/Screenshare/internal/protocol"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
)

func testOptions() Options {
	return Options{
		ReadLimit:  64 << 10,
		PingPeriod: 50 * time.Second,
		PongWait:   60 * time.Second,
		WriteWait:  5 * time.Second,
		SendBuffer: 64,
		ChatRate:   10,
		ChatBurst:  20,
	}
}

func newTestServer(t *testing.T, opts Options) (*httptest.Server, *SignalWSController) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	o := &orch.Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    app.NewRoomManager(protocol.Announcer{}, app.DefaultRoomOptions()),
		Policy:   app.SimplePolicy{},
	}
	ctl := NewSignalWSController(o, opts)

	ctx, cancel := context.WithCancel(context.Background())
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		c.Set("username", c.Query("name"))
		ctl.HandleSignal(ctx, c)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		cancel()
		waitCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = ctl.Wait(waitCtx)
		srv.Close()
	})
	return srv, ctl
}

type event struct {
	Type      string                     `json:"type"`
	ID        string                     `json:"id"`
	From      string                     `json:"from"`
	RoomID    string                     `json:"roomId"`
	RoomCode  string                     `json:"roomCode"`
	UserCount int                        `json:"userCount"`
	Users     []core.MemberDTO           `json:"users"`
	Username  string                     `json:"username"`
	Message   string                     `json:"message"`
	Code      string                     `json:"code"`
	Error     string                     `json:"error"`
	Offer     *webrtc.SessionDescription `json:"offer"`
}

type client struct {
	t  *testing.T
	ws *websocket.Conn
	id string
}

func dial(t *testing.T, srv *httptest.Server, name string) *client {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?name=" + url.QueryEscape(name)
	ws, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = ws.Close() })
	c := &client{t: t, ws: ws}
	welcome := c.waitFor(protocol.EventWelcome)
	if welcome.ID == "" {
		t.Fatal("welcome without id")
	}
	c.id = welcome.ID
	return c
}

func (c *client) send(v any) {
	c.t.Helper()
	if err := c.ws.WriteJSON(v); err != nil {
		c.t.Fatalf("write: %v", err)
	}
}

func (c *client) next() event {
	c.t.Helper()
	_ = c.ws.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		c.t.Fatalf("read: %v", err)
	}
	var ev event
	if err := json.Unmarshal(data, &ev); err != nil {
		c.t.Fatalf("unmarshal %s: %v", data, err)
	}
	return ev
}

func (c *client) waitFor(typ string) event {
	c.t.Helper()
	for i := 0; i < 20; i++ {
		if ev := c.next(); ev.Type == typ {
			return ev
		}
	}
	c.t.Fatalf("no %q event", typ)
	return event{}
}

// createAndJoin has a create a room and b join it, returning the code.
func createAndJoin(t *testing.T, a, b *client) string {
	t.Helper()
	a.send(map[string]any{"type": "create-room"})
	created := a.waitFor(protocol.EventRoomCreated)
	if len(created.RoomCode) != 6 {
		t.Fatalf("roomCode=%q, want 6 symbols", created.RoomCode)
	}
	a.waitFor(protocol.EventRoomJoined)

	b.send(map[string]any{"type": "join-room", "roomId": created.RoomCode})
	existing := b.waitFor(protocol.EventExistingUsers)
	if len(existing.Users) != 1 || string(existing.Users[0].ID) != a.id {
		t.Fatalf("existing=%+v, want only %s", existing.Users, a.id)
	}
	joined := b.waitFor(protocol.EventRoomJoined)
	if joined.UserCount != 2 {
		t.Fatalf("userCount=%d, want 2", joined.UserCount)
	}
	return created.RoomCode
}

func TestCreateThenJoin(t *testing.T) {
	srv, _ := newTestServer(t, testOptions())
	a := dial(t, srv, "alice")
	b := dial(t, srv, "bob")

	code := createAndJoin(t, a, b)

	ev := a.waitFor(protocol.EventUserJoined)
	if ev.ID != b.id || ev.Username != "bob" || ev.UserCount != 2 || ev.RoomID != code {
		t.Fatalf("user-joined=%+v", ev)
	}
}

func TestCreateConflict(t *testing.T) {
	srv, _ := newTestServer(t, testOptions())
	a := dial(t, srv, "alice")

	a.send(map[string]any{"type": "create-room", "roomId": "taken"})
	a.waitFor(protocol.EventRoomJoined)
	b := dial(t, srv, "bob")
	b.send(map[string]any{"type": "create-room", "roomId": "taken"})
	ev := b.waitFor(protocol.EventRoomError)
	if ev.Code != protocol.CodeRoomConflict {
		t.Fatalf("code=%q, want %q", ev.Code, protocol.CodeRoomConflict)
	}
}

func TestRelayReachesTargetOnly(t *testing.T) {
	srv, _ := newTestServer(t, testOptions())
	a := dial(t, srv, "alice")
	b := dial(t, srv, "bob")
	code := createAndJoin(t, a, b)
	a.waitFor(protocol.EventUserJoined)

	a.send(map[string]any{
		"type":     "webrtc-offer",
		"targetId": b.id,
		"roomId":   code,
		"offer":    map[string]any{"type": "offer", "sdp": "v=0\r\n"},
	})
	ev := b.waitFor(string(protocol.KindOffer))
	if ev.From != a.id {
		t.Fatalf("from=%q, want %q", ev.From, a.id)
	}
	if ev.Offer == nil || ev.Offer.SDP != "v=0\r\n" {
		t.Fatalf("offer=%+v", ev.Offer)
	}

	// a gets nothing back but the pong.
	a.send(map[string]any{"type": "ping"})
	if ev := a.next(); ev.Type != protocol.EventPong {
		t.Fatalf("type=%q, want pong", ev.Type)
	}
}

func TestBadFramesKeepConnection(t *testing.T) {
	srv, _ := newTestServer(t, testOptions())
	a := dial(t, srv, "alice")

	if err := a.ws.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	if ev := a.next(); ev.Type != protocol.EventError || ev.Error != protocol.ErrCodeBadPayload {
		t.Fatalf("got %+v, want bad_payload", ev)
	}

	a.send(map[string]any{"type": "launch-rockets"})
	if ev := a.next(); ev.Error != protocol.ErrCodeUnknownType {
		t.Fatalf("got %+v, want unknown_type", ev)
	}

	a.send(map[string]any{"type": "join-room", "roomId": "has space"})
	if ev := a.next(); ev.Error != protocol.ErrCodeBadPayload {
		t.Fatalf("got %+v, want bad_payload", ev)
	}

	a.send(map[string]any{"type": "ping"})
	if ev := a.next(); ev.Type != protocol.EventPong {
		t.Fatalf("type=%q, want pong", ev.Type)
	}
}

func TestDisconnectAnnouncesUserLeft(t *testing.T) {
	srv, _ := newTestServer(t, testOptions())
	a := dial(t, srv, "alice")
	b := dial(t, srv, "bob")
	createAndJoin(t, a, b)
	a.waitFor(protocol.EventUserJoined)

	_ = b.ws.Close()

	ev := a.waitFor(protocol.EventUserLeft)
	if ev.ID != b.id || ev.UserCount != 1 {
		t.Fatalf("user-left=%+v, want id %s count 1", ev, b.id)
	}
}

func TestChatRateLimited(t *testing.T) {
	opts := testOptions()
	opts.ChatRate = 0.001
	opts.ChatBurst = 2
	srv, _ := newTestServer(t, opts)
	a := dial(t, srv, "alice")

	a.send(map[string]any{"type": "create-room"})
	code := a.waitFor(protocol.EventRoomCreated).RoomCode
	a.waitFor(protocol.EventRoomJoined)

	for i := 0; i < 3; i++ {
		a.send(map[string]any{"type": "chat-message", "roomId": code, "message": "hi"})
	}
	for i := 0; i < 2; i++ {
		if ev := a.next(); ev.Type != protocol.EventChatMessage || ev.Message != "hi" {
			t.Fatalf("msg %d: got %+v, want chat", i, ev)
		}
	}
	if ev := a.next(); ev.Error != protocol.ErrCodeRateLimited {
		t.Fatalf("got %+v, want rate_limited", ev)
	}
}

func TestChatOutsideRoom(t *testing.T) {
	srv, _ := newTestServer(t, testOptions())
	a := dial(t, srv, "alice")

	a.send(map[string]any{"type": "chat-message", "roomId": "nowhere", "message": "hi"})
	if ev := a.next(); ev.Error != protocol.ErrCodeNotInRoom {
		t.Fatalf("got %+v, want not_in_room", ev)
	}
}

func TestShutdownClosesSessions(t *testing.T) {
	srv, ctl := newTestServer(t, testOptions())
	a := dial(t, srv, "alice")
	a.send(map[string]any{"type": "create-room"})
	a.waitFor(protocol.EventRoomJoined)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ctl.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	_ = a.ws.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		if _, _, err := a.ws.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
				t.Fatalf("err=%v, want going away", err)
			}
			break
		}
	}
	if n := ctl.Orch.Registry.Len(); n != 0 {
		t.Fatalf("registry len=%d, want 0", n)
	}
	if rooms := ctl.Orch.Rooms.List(); len(rooms) != 0 {
		t.Fatalf("rooms=%v, want none", rooms)
	}
}

func TestChatRateLimiterPrune(t *testing.T) {
	rl := NewChatRateLimiter(1, 1)
	if !rl.Allow("a") {
		t.Fatal("first message refused")
	}
	if rl.Allow("a") {
		t.Fatal("burst of 1 allowed a second message")
	}
	if n := rl.Prune(time.Now().Add(time.Minute)); n != 1 {
		t.Fatalf("pruned=%d, want 1", n)
	}
	if !rl.Allow("a") {
		t.Fatal("pruned client still limited")
	}
}
