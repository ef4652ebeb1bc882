package protocol

import (
	"encoding/json"
	"time"

	"github.com/dkeye/Screenshare/internal/core"
	"github.com/dkeye/Screenshare/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

const (
	EventWelcome       = "welcome"
	EventExistingUsers = "existing-users"
	EventRoomCreated   = "room-created"
	EventRoomJoined    = "room-joined"
	EventUserJoined    = "user-joined"
	EventUserLeft      = "user-left"
	EventLeftRoom      = "left-room"
	EventUserSharing   = "user-sharing"
	EventChatMessage   = "chat-message"
	EventRoomError     = "room-error"
	EventError         = "error"
	EventPong          = "pong"
)

// Room error codes.
const (
	CodeRoomNotFound    = "room-not-found"
	CodeRoomConflict    = "room-conflict"
	CodeRoomUnavailable = "room-unavailable"
)

// Generic error codes, in the {type:"error", error:...} shape.
const (
	ErrCodeBadPayload  = "bad_payload"
	ErrCodeUnknownType = "unknown_type"
	ErrCodeRateLimited = "rate_limited"
	ErrCodeNotInRoom   = "not_in_room"
)

type Welcome struct {
	Type     string         `json:"type"`
	ID       core.SessionID `json:"id"`
	Username string         `json:"username"`
}

type ExistingUsers struct {
	Type   string           `json:"type"`
	RoomID domain.RoomID    `json:"roomId"`
	Users  []core.MemberDTO `json:"users"`
}

type RoomCreated struct {
	Type     string        `json:"type"`
	RoomCode domain.RoomID `json:"roomCode"`
}

type RoomJoined struct {
	Type      string        `json:"type"`
	RoomCode  domain.RoomID `json:"roomCode"`
	UserCount int           `json:"userCount"`
}

type UserJoined struct {
	Type      string         `json:"type"`
	RoomID    domain.RoomID  `json:"roomId"`
	ID        core.SessionID `json:"id"`
	Username  string         `json:"username"`
	UserCount int            `json:"userCount"`
}

type UserLeft struct {
	Type      string         `json:"type"`
	RoomID    domain.RoomID  `json:"roomId"`
	ID        core.SessionID `json:"id"`
	UserCount int            `json:"userCount"`
}

type LeftRoom struct {
	Type   string        `json:"type"`
	RoomID domain.RoomID `json:"roomId"`
}

type UserSharing struct {
	Type      string         `json:"type"`
	RoomID    domain.RoomID  `json:"roomId"`
	ID        core.SessionID `json:"id"`
	IsSharing bool           `json:"isSharing"`
}

type Chat struct {
	Type      string         `json:"type"`
	RoomID    domain.RoomID  `json:"roomId"`
	SenderID  core.SessionID `json:"senderId"`
	Username  string         `json:"username"`
	Message   string         `json:"message"`
	Timestamp int64          `json:"timestamp"`
}

// Relayed is what the target of a relay receives, tagged with the sender.
type Relayed struct {
	Type      Kind                       `json:"type"`
	From      core.SessionID             `json:"from"`
	RoomID    string                     `json:"roomId,omitempty"`
	Offer     *webrtc.SessionDescription `json:"offer,omitempty"`
	Answer    *webrtc.SessionDescription `json:"answer,omitempty"`
	Candidate *webrtc.ICECandidateInit   `json:"candidate,omitempty"`
}

type RoomError struct {
	Type   string        `json:"type"`
	Code   string        `json:"code"`
	Error  string        `json:"error"`
	RoomID domain.RoomID `json:"roomId,omitempty"`
}

type Error struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type Pong struct {
	Type string `json:"type"`
}

// Encode marshals an outbound event. Events are plain structs, so a failure
// here is a programming error; it is logged and yields nil.
func Encode(v any) core.Frame {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "protocol").Msg("encode")
		return nil
	}
	return b
}

func NewChat(room domain.RoomID, from core.SessionID, username, message string, at time.Time) Chat {
	return Chat{
		Type:      EventChatMessage,
		RoomID:    room,
		SenderID:  from,
		Username:  username,
		Message:   message,
		Timestamp: at.UnixMilli(),
	}
}

// NewRelayed tags an inbound relay with its sender, keeping the payload as is.
func NewRelayed(from core.SessionID, r Relay) Relayed {
	return Relayed{
		Type:      r.Type,
		From:      from,
		RoomID:    r.RoomID,
		Offer:     r.Offer,
		Answer:    r.Answer,
		Candidate: r.Candidate,
	}
}

func NewRoomError(code string, room domain.RoomID, err error) RoomError {
	return RoomError{Type: EventRoomError, Code: code, Error: err.Error(), RoomID: room}
}

func NewError(code string) Error {
	return Error{Type: EventError, Error: code}
}

// Announcer renders presence events as JSON frames.
type Announcer struct{}

func (Announcer) RoomCreated(room domain.RoomID) core.Frame {
	return Encode(RoomCreated{Type: EventRoomCreated, RoomCode: room})
}

func (Announcer) ExistingUsers(room domain.RoomID, members []core.MemberDTO) core.Frame {
	if members == nil {
		members = []core.MemberDTO{}
	}
	return Encode(ExistingUsers{Type: EventExistingUsers, RoomID: room, Users: members})
}

func (Announcer) RoomJoined(room domain.RoomID, count int) core.Frame {
	return Encode(RoomJoined{Type: EventRoomJoined, RoomCode: room, UserCount: count})
}

func (Announcer) UserJoined(room domain.RoomID, m core.MemberDTO, count int) core.Frame {
	return Encode(UserJoined{Type: EventUserJoined, RoomID: room, ID: m.ID, Username: m.Username, UserCount: count})
}

func (Announcer) UserLeft(room domain.RoomID, m core.MemberDTO, count int) core.Frame {
	return Encode(UserLeft{Type: EventUserLeft, RoomID: room, ID: m.ID, UserCount: count})
}

func (Announcer) UserSharing(room domain.RoomID, m core.MemberDTO) core.Frame {
	return Encode(UserSharing{Type: EventUserSharing, RoomID: room, ID: m.ID, IsSharing: m.IsSharing})
}

var _ core.Announcer = Announcer{}
