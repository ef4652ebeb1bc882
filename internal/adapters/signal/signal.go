package signal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/Screenshare/internal/app"
	"github.com/dkeye/Screenshare/internal/app/orch"
	"github.com/dkeye/Screenshare/internal/config"
	"github.com/dkeye/Screenshare/internal/core"
	"github.com/dkeye/Screenshare/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

type Options struct {
	ReadLimit  int64
	PingPeriod time.Duration
	PongWait   time.Duration
	WriteWait  time.Duration
	SendBuffer int
	ChatRate   float64
	ChatBurst  int
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
		PongWait:   cfg.PongWait,
		WriteWait:  cfg.WriteWait,
		SendBuffer: cfg.SendBuffer,
		ChatRate:   cfg.ChatRate,
		ChatBurst:  cfg.ChatBurst,
	}
}

type SignalWSController struct {
	Orch *orch.Orchestrator

	opts  Options
	chat  *ChatRateLimiter
	pumps conc.WaitGroup
}

func NewSignalWSController(o *orch.Orchestrator, opts Options) *SignalWSController {
	return &SignalWSController{
		Orch: o,
		opts: opts,
		chat: NewChatRateLimiter(opts.ChatRate, opts.ChatBurst),
	}
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and runs the session until the socket
// closes or ctx is canceled. Gin keys "client_token" and "username" are
// optional.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, ctl.opts.SendBuffer),
	}

	sid := app.NewSessionID()
	username := c.GetString("username")
	if name, err := domain.NormalizeUsername(username); err == nil {
		username = name
	} else {
		username = domain.GuestName(string(sid))
	}
	token := c.GetString("client_token")
	if token == "" {
		token = string(sid)
	}

	sess := core.NewMemberSession(sid, username, conn)
	ctx, cancel := context.WithCancel(ctx)
	ctl.Orch.Connect(sess, token, cancel)
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("client", token).Msg("new WS connection")

	ctl.pumps.Go(func() { ctl.writePump(ctx, conn) })
	ctl.pumps.Go(func() { ctl.readPump(ctx, cancel, sid, token, conn) })
}

// Wait blocks until every session pump has exited or ctx expires.
func (ctl *SignalWSController) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		ctl.pumps.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown cancels every session, letting write pumps flush what is already
// queued, and waits for them.
func (ctl *SignalWSController) Shutdown(ctx context.Context) error {
	n := ctl.Orch.Registry.CancelAll()
	log.Info().Str("module", "signal").Int("sessions", n).Msg("draining sessions")
	return ctl.Wait(ctx)
}

// PruneLimiters drops chat limiters idle for longer than idle.
func (ctl *SignalWSController) PruneLimiters(idle time.Duration) int {
	return ctl.chat.Prune(time.Now().Add(-idle))
}
