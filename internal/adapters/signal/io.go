package signal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/Screenshare/internal/core"
	"github.com/dkeye/Screenshare/internal/protocol"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/panics"
)

// writePump is the only writer on the socket. On cancel it flushes frames
// that were already queued, sends a close frame and closes the connection.
func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			ctl.flush(c)
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(ctl.opts.WriteWait))
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := ctl.write(c, data); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.opts.WriteWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		}
	}
}

func (ctl *SignalWSController) write(c *WsSignalConn, data core.Frame) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.opts.WriteWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (ctl *SignalWSController) flush(c *WsSignalConn) {
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := ctl.write(c, data); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (ctl *SignalWSController) readPump(
	ctx context.Context,
	cancel context.CancelFunc,
	sid core.SessionID,
	token string,
	c *WsSignalConn,
) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		ctl.Orch.OnDisconnect(sid)
		cancel()
	}()

	c.conn.SetReadLimit(ctl.opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	})

	for {
		if ctx.Err() != nil {
			return
		}
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
			}
			return
		}
		ctl.dispatch(sid, token, c, data)
	}
}

// dispatch handles one frame; a panic in a handler is contained to this
// frame and logged.
func (ctl *SignalWSController) dispatch(sid core.SessionID, token string, c *WsSignalConn, data []byte) {
	var pc panics.Catcher
	pc.Try(func() { ctl.handleSignal(sid, token, c, data) })
	if r := pc.Recovered(); r != nil {
		log.Error().
			Str("module", "signal").
			Str("sid", string(sid)).
			Str("panic", fmt.Sprint(r.Value)).
			Str("stack", string(r.Stack)).
			Msg("handler panic")
		ctl.sendJSON(c, protocol.NewError("internal"))
	}
}

func (ctl *SignalWSController) handleSignal(sid core.SessionID, token string, c *WsSignalConn, data []byte) {
	msg, err := protocol.Decode(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("rejected frame")
		code := protocol.ErrCodeBadPayload
		if errors.Is(err, protocol.ErrUnknownKind) {
			code = protocol.ErrCodeUnknownType
		}
		ctl.sendJSON(c, protocol.NewError(code))
		return
	}

	switch m := msg.(type) {
	case protocol.JoinRoom:
		ctl.handleJoin(sid, c, m)
	case protocol.CreateRoom:
		ctl.handleCreate(sid, c, m)
	case protocol.LeaveRoom:
		ctl.handleLeave(sid, m)
	case protocol.SetSharing:
		ctl.handleSharing(sid, m)
	case protocol.ChatMessage:
		ctl.handleChat(sid, token, c, m)
	case protocol.Relay:
		ctl.handleRelay(sid, m)
	case protocol.RequestStream:
		ctl.handleRequestStream(sid, m)
	case protocol.Ping:
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "signal").Str("type", string(msg.Kind())).Msg("unhandled signal")
	}
}

func (ctl *SignalWSController) sendJSON(c core.SignalConnection, v any) {
	b := protocol.Encode(v)
	if b == nil {
		return
	}
	_ = c.TrySend(b)
}
