package orch

import (
	"context"
	"time"

	"github.com/dkeye/Screenshare/internal/app"
	"github.com/dkeye/Screenshare/internal/core"
	"github.com/dkeye/Screenshare/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Orchestrator ties the connection registry to the room store and owns the
// presence and relay rules.
type Orchestrator struct {
	Registry *app.Registry
	Rooms    core.RoomManager
	Policy   app.Policy
	Now      func() time.Time
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Connect registers a fresh transport session and greets it with its id.
func (o *Orchestrator) Connect(sess core.MemberSession, clientToken string, cancel context.CancelFunc) core.SessionID {
	sid := o.Registry.Register(sess, clientToken, cancel)
	o.send(sid, protocol.Welcome{Type: protocol.EventWelcome, ID: sid, Username: sess.Username()})
	return sid
}

// OnDisconnect removes sid from the registry and from every room it was in.
// Remaining members get a user-left before it returns.
func (o *Orchestrator) OnDisconnect(sid core.SessionID) {
	client := o.Registry.ClientToken(sid)
	for _, roomID := range o.Registry.Unregister(sid) {
		res, ok := o.Rooms.Leave(roomID, sid)
		if !ok {
			continue
		}
		o.applyPolicy(nil, res.Publish)
	}
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("client", client).Msg("disconnected")
}

// Kick cancels a session; its transport shuts down and the read loop runs
// OnDisconnect.
func (o *Orchestrator) Kick(sid core.SessionID) bool {
	return o.Registry.Cancel(sid)
}

func (o *Orchestrator) send(sid core.SessionID, v any) bool {
	ok, err := o.Registry.Send(sid, protocol.Encode(v))
	if err != nil {
		o.applyPolicy(nil, core.PublishResult{Dropped: []core.SessionID{sid}})
		return false
	}
	return ok
}

func (o *Orchestrator) applyPolicy(room core.RoomService, res core.PublishResult) {
	if o.Policy == nil {
		return
	}
	for _, slow := range res.Dropped {
		switch o.Policy.OnBackPressure(room, slow) {
		case app.KickMember:
			log.Warn().Str("module", "orch").Str("sid", string(slow)).Msg("kicking slow member")
			o.Kick(slow)
		case app.NoAction:
		}
	}
}
