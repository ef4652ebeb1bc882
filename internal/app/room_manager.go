package app

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dkeye/Screenshare/internal/core"
	"github.com/dkeye/Screenshare/internal/domain"
	"github.com/rs/zerolog/log"
)

const maxCodeWidenings = 3

type RoomOptions struct {
	// AutoCreate lets join-room create a missing room.
	AutoCreate bool
	// GracePeriod keeps emptied rooms around until the sweeper evicts them.
	// Zero evicts on the last leave.
	GracePeriod     time.Duration
	CodeLength      int
	CodeMaxAttempts int
}

func DefaultRoomOptions() RoomOptions {
	return RoomOptions{
		AutoCreate:      true,
		CodeLength:      domain.DefaultCodeLength,
		CodeMaxAttempts: 16,
	}
}

type RoomManagerImpl struct {
	mu       sync.RWMutex
	rooms    map[domain.RoomID]core.RoomService
	announce core.Announcer
	opts     RoomOptions
	newCode  func(n int) (domain.RoomID, error)
}

func NewRoomManager(announce core.Announcer, opts RoomOptions) *RoomManagerImpl {
	if opts.CodeLength <= 0 {
		opts.CodeLength = domain.DefaultCodeLength
	}
	if opts.CodeMaxAttempts <= 0 {
		opts.CodeMaxAttempts = 16
	}
	return &RoomManagerImpl{
		rooms:    make(map[domain.RoomID]core.RoomService),
		announce: announce,
		opts:     opts,
		newCode:  domain.NewRoomCode,
	}
}

func (f *RoomManagerImpl) newRoom(id domain.RoomID) core.RoomService {
	return core.NewRoomService(domain.NewRoom(id), f.announce, f.opts.GracePeriod > 0)
}

// liveLocked returns the room under id unless it was closed.
func (f *RoomManagerImpl) liveLocked(id domain.RoomID) (core.RoomService, bool) {
	room, ok := f.rooms[id]
	if !ok || room.Closed() {
		return nil, false
	}
	return room, true
}

func (f *RoomManagerImpl) CreateRoom(
	desired domain.RoomID,
	sid core.SessionID,
	ms core.MemberSession,
	username string,
) (core.RoomService, core.JoinResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := desired
	if id != "" {
		if _, taken := f.liveLocked(id); taken {
			return nil, core.JoinResult{}, fmt.Errorf("create %q: %w", id, domain.ErrRoomConflict)
		}
	} else {
		var err error
		if id, err = f.generateLocked(); err != nil {
			return nil, core.JoinResult{}, err
		}
	}

	room := f.newRoom(id)
	res, err := room.Join(sid, ms, username, true)
	if err != nil {
		return nil, core.JoinResult{}, err
	}
	f.rooms[id] = room
	log.Info().Str("module", "app.rooms").Str("room", string(id)).Str("sid", string(sid)).Bool("generated", desired == "").Msg("room created")
	return room, res, nil
}

// generateLocked draws codes until one is free. After CodeMaxAttempts
// collisions at a length it widens the code by two symbols.
func (f *RoomManagerImpl) generateLocked() (domain.RoomID, error) {
	length := f.opts.CodeLength
	for widen := 0; widen <= maxCodeWidenings; widen++ {
		for i := 0; i < f.opts.CodeMaxAttempts; i++ {
			code, err := f.newCode(length)
			if err != nil {
				return "", fmt.Errorf("generate room code: %w", err)
			}
			if _, taken := f.liveLocked(code); !taken {
				return code, nil
			}
		}
		log.Warn().Str("module", "app.rooms").Int("length", length).Msg("room code collisions, widening")
		length += 2
	}
	return "", domain.ErrCodeSpaceExhausted
}

func (f *RoomManagerImpl) GetRoom(id domain.RoomID) (core.RoomService, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.liveLocked(id)
}

func (f *RoomManagerImpl) Join(
	id domain.RoomID,
	sid core.SessionID,
	ms core.MemberSession,
	username string,
) (core.RoomService, core.JoinResult, error) {
	for {
		room, ok := f.GetRoom(id)
		if !ok {
			if !f.opts.AutoCreate {
				return nil, core.JoinResult{}, fmt.Errorf("join %q: %w", id, domain.ErrRoomNotFound)
			}
			return f.joinOrCreate(id, sid, ms, username)
		}
		res, err := room.Join(sid, ms, username, false)
		if errors.Is(err, core.ErrRoomClosed) {
			// Evicted between lookup and join.
			f.remove(id, room)
			continue
		}
		if err != nil {
			return nil, core.JoinResult{}, err
		}
		return room, res, nil
	}
}

func (f *RoomManagerImpl) joinOrCreate(
	id domain.RoomID,
	sid core.SessionID,
	ms core.MemberSession,
	username string,
) (core.RoomService, core.JoinResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.liveLocked(id)
	if !ok {
		room = f.newRoom(id)
		f.rooms[id] = room
		log.Info().Str("module", "app.rooms").Str("room", string(id)).Msg("room created on join")
	}
	res, err := room.Join(sid, ms, username, false)
	if err != nil {
		return nil, core.JoinResult{}, err
	}
	return room, res, nil
}

func (f *RoomManagerImpl) Leave(id domain.RoomID, sid core.SessionID) (core.LeaveResult, bool) {
	f.mu.RLock()
	room, ok := f.rooms[id]
	f.mu.RUnlock()
	if !ok {
		return core.LeaveResult{}, false
	}
	res, ok := room.Leave(sid)
	if res.Closed {
		f.remove(id, room)
	}
	return res, ok
}

func (f *RoomManagerImpl) remove(id domain.RoomID, room core.RoomService) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cur, ok := f.rooms[id]; ok && cur == room {
		delete(f.rooms, id)
		log.Info().Str("module", "app.rooms").Str("room", string(id)).Msg("room removed")
	}
}

// Sweep evicts rooms that have been empty for longer than the grace period.
func (f *RoomManagerImpl) Sweep(now time.Time) []domain.RoomID {
	cutoff := now.Add(-f.opts.GracePeriod)
	f.mu.Lock()
	defer f.mu.Unlock()
	var evicted []domain.RoomID
	for id, room := range f.rooms {
		if room.CloseIfIdle(cutoff) {
			delete(f.rooms, id)
			evicted = append(evicted, id)
		}
	}
	if len(evicted) > 0 {
		log.Info().Str("module", "app.rooms").Int("evicted", len(evicted)).Msg("sweep")
	}
	return evicted
}

func (f *RoomManagerImpl) List() []core.RoomInfo {
	f.mu.RLock()
	out := make([]core.RoomInfo, 0, len(f.rooms))
	for id, r := range f.rooms {
		if r.Closed() {
			continue
		}
		out = append(out, core.RoomInfo{ID: id, MemberCount: r.MemberCount(), CreatedAt: r.Room().CreatedAt})
	}
	f.mu.RUnlock()
	slices.SortFunc(out, func(a, b core.RoomInfo) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out
}

var _ core.RoomManager = (*RoomManagerImpl)(nil)
