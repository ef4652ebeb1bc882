package core

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/dkeye/Screenshare/internal/domain"
	"github.com/rs/zerolog/log"
)

type memberEntry struct {
	meta    *domain.Member
	session MemberSession
	seq     uint64
}

func (e *memberEntry) dto() MemberDTO {
	return MemberDTO{
		ID:        SessionID(e.meta.ID),
		Username:  e.meta.Username,
		IsSharing: e.meta.IsSharing,
	}
}

// roomImpl is a threadsafe in-memory room.
// One mutex covers the member set and every fan-out describing it, so a
// snapshot and the count sent alongside it always agree.
// It never closes adapter-owned resources.
type roomImpl struct {
	room     *domain.Room
	announce Announcer
	// keepEmpty leaves an emptied room open for the sweeper instead of
	// closing it on the last leave.
	keepEmpty bool

	mu         sync.Mutex
	bySID      map[SessionID]*memberEntry
	seq        uint64
	emptySince time.Time
	closed     bool
}

func NewRoomService(room *domain.Room, announce Announcer, keepEmpty bool) RoomService {
	return &roomImpl{
		room:       room,
		announce:   announce,
		keepEmpty:  keepEmpty,
		bySID:      make(map[SessionID]*memberEntry),
		emptySince: room.CreatedAt,
	}
}

func (r *roomImpl) Room() *domain.Room { return r.room }

func (r *roomImpl) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bySID)
}

func (r *roomImpl) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *roomImpl) Member(sid SessionID) (MemberDTO, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.bySID[sid]
	if !ok {
		return MemberDTO{}, false
	}
	return e.dto(), true
}

func (r *roomImpl) MembersSnapshot() []MemberDTO {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked("")
}

func (r *roomImpl) snapshotLocked(exclude SessionID) []MemberDTO {
	entries := make([]*memberEntry, 0, len(r.bySID))
	for sid, e := range r.bySID {
		if sid == exclude {
			continue
		}
		entries = append(entries, e)
	}
	slices.SortFunc(entries, func(a, b *memberEntry) int { return cmp.Compare(a.seq, b.seq) })
	out := make([]MemberDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.dto())
	}
	return out
}

func (r *roomImpl) Join(sid SessionID, ms MemberSession, username string, created bool) (JoinResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return JoinResult{}, ErrRoomClosed
	}

	res := JoinResult{}
	if _, ok := r.bySID[sid]; ok {
		res.Rejoin = true
	} else {
		r.seq++
		r.bySID[sid] = &memberEntry{
			meta:    domain.NewMember(string(sid), username),
			session: ms,
			seq:     r.seq,
		}
		r.emptySince = time.Time{}
	}
	res.Existing = r.snapshotLocked(sid)
	res.Count = len(r.bySID)

	id := r.room.ID
	var toJoiner []Frame
	if created {
		toJoiner = append(toJoiner, r.announce.RoomCreated(id))
	}
	toJoiner = append(toJoiner,
		r.announce.ExistingUsers(id, res.Existing),
		r.announce.RoomJoined(id, res.Count),
	)
	res.Publish.merge(r.sendLocked(sid, toJoiner...))
	if !res.Rejoin {
		joined := r.bySID[sid].dto()
		res.Publish.merge(r.broadcastLocked(sid, r.announce.UserJoined(id, joined, res.Count)))
	}

	log.Info().Str("module", "core.room").Str("room", string(id)).Str("sid", string(sid)).Int("count", res.Count).Bool("rejoin", res.Rejoin).Msg("member joined")
	return res, nil
}

func (r *roomImpl) Leave(sid SessionID) (LeaveResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.bySID[sid]
	if !ok {
		return LeaveResult{}, false
	}
	delete(r.bySID, sid)

	res := LeaveResult{Member: e.dto(), Count: len(r.bySID)}
	res.Publish = r.broadcastLocked("", r.announce.UserLeft(r.room.ID, res.Member, res.Count))
	if res.Count == 0 {
		r.emptySince = time.Now()
		if !r.keepEmpty {
			r.closed = true
			res.Closed = true
		}
	}
	log.Info().Str("module", "core.room").Str("room", string(r.room.ID)).Str("sid", string(sid)).Int("count", res.Count).Bool("closed", res.Closed).Msg("member left")
	return res, true
}

// SetSharing is a no-op for unknown members or an unchanged flag.
func (r *roomImpl) SetSharing(sid SessionID, sharing bool) (PublishResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.bySID[sid]
	if !ok || e.meta.IsSharing == sharing {
		return PublishResult{}, false
	}
	e.meta.IsSharing = sharing
	return r.broadcastLocked("", r.announce.UserSharing(r.room.ID, e.dto())), true
}

func (r *roomImpl) Broadcast(exclude SessionID, data Frame) PublishResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.broadcastLocked(exclude, data)
}

func (r *roomImpl) broadcastLocked(exclude SessionID, data Frame) PublishResult {
	res := PublishResult{}
	for sid, m := range r.bySID {
		if sid == exclude {
			continue
		}
		if err := m.session.Signal().TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, sid)
			continue
		}
		res.SendTo++
	}
	log.Debug().Str("module", "core.room").Str("room", string(r.room.ID)).Str("exclude", string(exclude)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

func (r *roomImpl) sendLocked(sid SessionID, frames ...Frame) PublishResult {
	res := PublishResult{}
	e, ok := r.bySID[sid]
	if !ok {
		return res
	}
	for _, f := range frames {
		if err := e.session.Signal().TrySend(f); err != nil {
			res.Dropped = append(res.Dropped, sid)
			return res
		}
	}
	res.SendTo++
	return res
}

func (r *roomImpl) CloseIfIdle(cutoff time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return true
	}
	if len(r.bySID) > 0 || r.emptySince.IsZero() || r.emptySince.After(cutoff) {
		return false
	}
	r.closed = true
	return true
}
