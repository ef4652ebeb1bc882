package app

import (
	"context"
	"testing"

	"github.com/dkeye/Screenshare/internal/core"
)

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry()
	sid := NewSessionID()
	ctx, cancel := context.WithCancel(context.Background())
	r.Register(core.NewMemberSession(sid, "alice", &nopConn{}), "token", cancel)

	r.AddRoom(sid, "R1")
	r.AddRoom(sid, "R2")
	if !r.InRoom(sid, "R1") {
		t.Fatalf("InRoom R1 = false")
	}
	if got := r.ClientToken(sid); got != "token" {
		t.Fatalf("client token=%q", got)
	}
	peers := r.Peers()
	if len(peers) != 1 || peers[0].Username != "alice" || len(peers[0].Rooms) != 2 {
		t.Fatalf("peers=%+v", peers)
	}

	if !r.Cancel(sid) {
		t.Fatalf("Cancel returned false")
	}
	if ctx.Err() == nil {
		t.Fatalf("session context not canceled")
	}

	rooms := r.Unregister(sid)
	if len(rooms) != 2 {
		t.Fatalf("unregister rooms=%v, want 2", rooms)
	}
	if r.Unregister(sid) != nil {
		t.Fatalf("second unregister must be a no-op")
	}
	if ok, err := r.Send(sid, core.Frame("x")); ok || err != nil {
		t.Fatalf("send to gone session: ok=%v err=%v", ok, err)
	}
}

func TestRegistrySessionIDsUnique(t *testing.T) {
	seen := make(map[core.SessionID]bool)
	for i := 0; i < 100; i++ {
		sid := NewSessionID()
		if seen[sid] {
			t.Fatalf("duplicate id %s", sid)
		}
		seen[sid] = true
	}
}
