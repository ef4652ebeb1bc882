package orch

import (
	"errors"

	"github.com/dkeye/Screenshare/internal/core"
	"github.com/dkeye/Screenshare/internal/domain"
	"github.com/dkeye/Screenshare/internal/protocol"
	"github.com/rs/zerolog/log"
)

// ErrNoSession is returned for requests from a session that is not
// registered any more.
var ErrNoSession = errors.New("no session")

// resolveName picks the display name for a join: the requested one when it
// is valid, else the name the session already carries.
func (o *Orchestrator) resolveName(sess core.MemberSession, requested string) string {
	if requested != "" {
		if name, err := domain.NormalizeUsername(requested); err == nil {
			sess.SetUsername(name)
			return name
		}
	}
	return sess.Username()
}

func (o *Orchestrator) CreateRoom(sid core.SessionID, desired domain.RoomID, username string) (domain.RoomID, error) {
	sess, ok := o.Registry.GetSession(sid)
	if !ok {
		return "", ErrNoSession
	}
	room, res, err := o.Rooms.CreateRoom(desired, sid, sess, o.resolveName(sess, username))
	if err != nil {
		return "", err
	}
	id := room.Room().ID
	o.Registry.AddRoom(sid, id)
	o.applyPolicy(room, res.Publish)
	return id, nil
}

func (o *Orchestrator) Join(sid core.SessionID, roomID domain.RoomID, username string) (core.JoinResult, error) {
	sess, ok := o.Registry.GetSession(sid)
	if !ok {
		return core.JoinResult{}, ErrNoSession
	}
	room, res, err := o.Rooms.Join(roomID, sid, sess, o.resolveName(sess, username))
	if err != nil {
		return core.JoinResult{}, err
	}
	o.Registry.AddRoom(sid, roomID)
	o.applyPolicy(room, res.Publish)
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(roomID)).Int("count", res.Count).Msg("joined")
	return res, nil
}

// Leave is the explicit leave-room path. The leaving session gets a
// left-room acknowledgement; the rest of the room gets user-left.
func (o *Orchestrator) Leave(sid core.SessionID, roomID domain.RoomID) bool {
	if !o.Registry.InRoom(sid, roomID) {
		return false
	}
	o.Registry.RemoveRoom(sid, roomID)
	res, ok := o.Rooms.Leave(roomID, sid)
	if !ok {
		return false
	}
	o.applyPolicy(nil, res.Publish)
	o.send(sid, protocol.LeftRoom{Type: protocol.EventLeftRoom, RoomID: roomID})
	return true
}

// SetSharing flips the member's sharing flag. Missing rooms or members are
// expected under a race with disconnect and are ignored.
func (o *Orchestrator) SetSharing(sid core.SessionID, roomID domain.RoomID, sharing bool) bool {
	room, ok := o.Rooms.GetRoom(roomID)
	if !ok {
		return false
	}
	res, changed := room.SetSharing(sid, sharing)
	o.applyPolicy(room, res)
	return changed
}

// Chat broadcasts a message to the whole room, sender included, stamped with
// the server clock. Senders outside the room are ignored.
func (o *Orchestrator) Chat(sid core.SessionID, roomID domain.RoomID, message, username string) bool {
	room, ok := o.Rooms.GetRoom(roomID)
	if !ok {
		return false
	}
	member, ok := room.Member(sid)
	if !ok {
		return false
	}
	name := member.Username
	if n, err := domain.NormalizeUsername(username); err == nil {
		name = n
	}
	ev := protocol.NewChat(roomID, sid, name, message, o.now())
	res := room.Broadcast("", protocol.Encode(ev))
	o.applyPolicy(room, res)
	return true
}

func (o *Orchestrator) Sweep() []domain.RoomID {
	return o.Rooms.Sweep(o.now())
}
