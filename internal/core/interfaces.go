package core

import (
	"errors"
	"time"

	"github.com/dkeye/Screenshare/internal/domain"
)

// Frame is a raw encoded event, ready for the wire.
type Frame []byte

type SessionID string

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
	// ErrRoomClosed is returned by a room that was evicted while the caller
	// still held a reference to it.
	ErrRoomClosed = errors.New("room closed")
)

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// MemberSession binds a live connection and its transport endpoint.
// This is what a room stores and fans out to.
type MemberSession interface {
	ID() SessionID
	Username() string
	SetUsername(string)
	Signal() SignalConnection
}

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []SessionID
}

func (p *PublishResult) merge(o PublishResult) {
	p.SendTo += o.SendTo
	p.Dropped = append(p.Dropped, o.Dropped...)
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	ID        SessionID `json:"id"`
	Username  string    `json:"username"`
	IsSharing bool      `json:"isSharing"`
}

type JoinResult struct {
	// Existing holds every member but the joiner, taken together with Count.
	Existing []MemberDTO
	Count    int
	// Rejoin is set when the session was already a member.
	Rejoin  bool
	Publish PublishResult
}

type LeaveResult struct {
	Member  MemberDTO
	Count   int
	Closed  bool
	Publish PublishResult
}

// Announcer renders presence events. Rooms call it inside their critical
// section so that every frame reflects the member set it was built from.
type Announcer interface {
	RoomCreated(room domain.RoomID) Frame
	ExistingUsers(room domain.RoomID, members []MemberDTO) Frame
	RoomJoined(room domain.RoomID, count int) Frame
	UserJoined(room domain.RoomID, m MemberDTO, count int) Frame
	UserLeft(room domain.RoomID, m MemberDTO, count int) Frame
	UserSharing(room domain.RoomID, m MemberDTO) Frame
}

// RoomService is the core-facing API of a room.
// It owns the membership set but never touches transport resources.
type RoomService interface {
	Room() *domain.Room
	MemberCount() int
	MembersSnapshot() []MemberDTO
	Member(sid SessionID) (MemberDTO, bool)

	Join(sid SessionID, ms MemberSession, username string, created bool) (JoinResult, error)
	Leave(sid SessionID) (LeaveResult, bool)
	SetSharing(sid SessionID, sharing bool) (PublishResult, bool)
	Broadcast(exclude SessionID, data Frame) PublishResult

	// CloseIfIdle closes the room when it has been empty since before cutoff.
	CloseIfIdle(cutoff time.Time) bool
	Closed() bool
}

type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	MemberCount int           `json:"memberCount"`
	CreatedAt   time.Time     `json:"createdAt"`
}

type RoomManager interface {
	// CreateRoom allocates a room (generated code when desired is empty) and
	// joins the creator before the room becomes visible to anyone else.
	CreateRoom(desired domain.RoomID, sid SessionID, ms MemberSession, username string) (RoomService, JoinResult, error)
	GetRoom(id domain.RoomID) (RoomService, bool)
	Join(id domain.RoomID, sid SessionID, ms MemberSession, username string) (RoomService, JoinResult, error)
	Leave(id domain.RoomID, sid SessionID) (LeaveResult, bool)
	List() []RoomInfo
	Sweep(now time.Time) []domain.RoomID
}
