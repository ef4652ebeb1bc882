package app

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/dkeye/Screenshare/internal/core"
	"github.com/dkeye/Screenshare/internal/domain"
)

type stubAnnouncer struct{}

func frame(typ string, room domain.RoomID, count int) core.Frame {
	b, _ := json.Marshal(map[string]any{"type": typ, "room": room, "count": count})
	return b
}

func (stubAnnouncer) RoomCreated(room domain.RoomID) core.Frame { return frame("created", room, 0) }
func (stubAnnouncer) ExistingUsers(room domain.RoomID, m []core.MemberDTO) core.Frame {
	return frame("existing", room, len(m))
}
func (stubAnnouncer) RoomJoined(room domain.RoomID, count int) core.Frame {
	return frame("joined", room, count)
}
func (stubAnnouncer) UserJoined(room domain.RoomID, _ core.MemberDTO, count int) core.Frame {
	return frame("user-joined", room, count)
}
func (stubAnnouncer) UserLeft(room domain.RoomID, _ core.MemberDTO, count int) core.Frame {
	return frame("user-left", room, count)
}
func (stubAnnouncer) UserSharing(room domain.RoomID, _ core.MemberDTO) core.Frame {
	return frame("sharing", room, 0)
}

type nopConn struct {
	mu sync.Mutex
	n  int
}

func (c *nopConn) TrySend(core.Frame) error {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
	return nil
}
func (c *nopConn) Close() {}

func session(sid string) core.MemberSession {
	return core.NewMemberSession(core.SessionID(sid), sid, &nopConn{})
}

func mustCreate(t *testing.T, m *RoomManagerImpl, desired domain.RoomID, sid string) core.RoomService {
	t.Helper()
	room, _, err := m.CreateRoom(desired, core.SessionID(sid), session(sid), sid)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	return room
}
