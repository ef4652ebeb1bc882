package app

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/Screenshare/internal/core"
	"github.com/dkeye/Screenshare/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type sessionEntry struct {
	Session     core.MemberSession
	Cancel      context.CancelFunc
	ClientToken string
	Rooms       map[domain.RoomID]struct{}
	ConnectedAt time.Time
}

// Registry is the connection registry: every live transport session by id,
// plus the rooms each one belongs to.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.SessionID]*sessionEntry),
	}
}

// NewSessionID assigns an opaque connection id.
func NewSessionID() core.SessionID {
	return core.SessionID(uuid.NewString())
}

func (r *Registry) Register(sess core.MemberSession, clientToken string, cancel context.CancelFunc) core.SessionID {
	sid := sess.ID()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sid] = &sessionEntry{
		Session:     sess,
		Cancel:      cancel,
		ClientToken: clientToken,
		Rooms:       make(map[domain.RoomID]struct{}),
		ConnectedAt: time.Now(),
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("registered session")
	return sid
}

// Unregister drops sid and returns the rooms it still belonged to; the
// caller owns their cleanup. Unknown ids are a no-op.
func (r *Registry) Unregister(sid core.SessionID) []domain.RoomID {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return nil
	}
	delete(r.sessions, sid)
	rooms := make([]domain.RoomID, 0, len(e.Rooms))
	for id := range e.Rooms {
		rooms = append(rooms, id)
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Int("rooms", len(rooms)).Msg("unregistered session")
	return rooms
}

func (r *Registry) GetSession(sid core.SessionID) (core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.Session, true
	}
	return nil, false
}

func (r *Registry) ClientToken(sid core.SessionID) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.ClientToken
	}
	return ""
}

// Send delivers a frame to one live session. It reports false when the
// session is gone.
func (r *Registry) Send(sid core.SessionID, f core.Frame) (bool, error) {
	sess, ok := r.GetSession(sid)
	if !ok {
		return false, nil
	}
	return true, sess.Signal().TrySend(f)
}

func (r *Registry) AddRoom(sid core.SessionID, id domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return false
	}
	e.Rooms[id] = struct{}{}
	return true
}

func (r *Registry) RemoveRoom(sid core.SessionID, id domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[sid]; ok {
		delete(e.Rooms, id)
	}
}

func (r *Registry) InRoom(sid core.SessionID, id domain.RoomID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok {
		return false
	}
	_, in := e.Rooms[id]
	return in
}

type PeerInfo struct {
	ID          core.SessionID  `json:"id"`
	Username    string          `json:"username"`
	Rooms       []domain.RoomID `json:"rooms"`
	ConnectedAt time.Time       `json:"connectedAt"`
}

func (r *Registry) Peers() []PeerInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]PeerInfo, 0, len(r.sessions))
	for sid, e := range r.sessions {
		p := PeerInfo{
			ID:          sid,
			Username:    e.Session.Username(),
			Rooms:       make([]domain.RoomID, 0, len(e.Rooms)),
			ConnectedAt: e.ConnectedAt,
		}
		for id := range e.Rooms {
			p.Rooms = append(p.Rooms, id)
		}
		out = append(out, p)
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) Cancel(sid core.SessionID) bool {
	r.mu.RLock()
	e, ok := r.sessions[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("canceled session")
	return true
}

// CancelAll cancels every live session; used on shutdown.
func (r *Registry) CancelAll() int {
	r.mu.RLock()
	cancels := make([]context.CancelFunc, 0, len(r.sessions))
	for _, e := range r.sessions {
		if e.Cancel != nil {
			cancels = append(cancels, e.Cancel)
		}
	}
	r.mu.RUnlock()
	for _, cancel := range cancels {
		cancel()
	}
	return len(cancels)
}
