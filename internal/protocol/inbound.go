// Package protocol defines the signaling wire format: a closed set of
// inbound message kinds with per-kind schemas, and the outbound events.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pion/webrtc/v4"
)

type Kind string

const (
	KindJoinRoom      Kind = "join-room"
	KindCreateRoom    Kind = "create-room"
	KindLeaveRoom     Kind = "leave-room"
	KindStartSharing  Kind = "start-sharing"
	KindStopSharing   Kind = "stop-sharing"
	KindChatMessage   Kind = "chat-message"
	KindOffer         Kind = "webrtc-offer"
	KindAnswer        Kind = "webrtc-answer"
	KindICECandidate  Kind = "webrtc-ice-candidate"
	KindRequestStream Kind = "request-stream"
	KindPing          Kind = "ping"
)

var (
	ErrUnknownKind = errors.New("unknown message type")
	ErrBadPayload  = errors.New("bad payload")
)

// Inbound is one decoded and validated client message.
type Inbound interface {
	Kind() Kind
}

type JoinRoom struct {
	RoomID string `json:"roomId" validate:"required,roomid"`
	// RoomCode is accepted as an alias of RoomID.
	RoomCode string `json:"roomCode,omitempty"`
	Username string `json:"username,omitempty" validate:"omitempty,max=36"`
}

type CreateRoom struct {
	// RoomID is optional; empty asks the server for a generated code.
	RoomID   string `json:"roomId,omitempty" validate:"omitempty,roomid"`
	Username string `json:"username,omitempty" validate:"omitempty,max=36"`
}

type LeaveRoom struct {
	RoomID string `json:"roomId" validate:"required,roomid"`
}

type SetSharing struct {
	RoomID  string `json:"roomId" validate:"required,roomid"`
	Sharing bool   `json:"-"`
}

type ChatMessage struct {
	RoomID   string `json:"roomId" validate:"required,roomid"`
	Message  string `json:"message" validate:"required,max=2000"`
	Username string `json:"username,omitempty" validate:"omitempty,max=36"`
}

// Relay is an offer, answer or ICE candidate addressed to one connection.
// Exactly one of the payload fields is set, matching Type.
type Relay struct {
	Type      Kind                       `json:"-"`
	TargetID  string                     `json:"targetId" validate:"required,max=64"`
	RoomID    string                     `json:"roomId,omitempty" validate:"omitempty,roomid"`
	Offer     *webrtc.SessionDescription `json:"offer,omitempty"`
	Answer    *webrtc.SessionDescription `json:"answer,omitempty"`
	Candidate *webrtc.ICECandidateInit   `json:"candidate,omitempty"`
}

type RequestStream struct {
	RoomID   string `json:"roomId" validate:"required,roomid"`
	TargetID string `json:"targetId" validate:"required,max=64"`
}

type Ping struct{}

func (JoinRoom) Kind() Kind      { return KindJoinRoom }
func (CreateRoom) Kind() Kind    { return KindCreateRoom }
func (LeaveRoom) Kind() Kind     { return KindLeaveRoom }
func (ChatMessage) Kind() Kind   { return KindChatMessage }
func (RequestStream) Kind() Kind { return KindRequestStream }
func (Ping) Kind() Kind          { return KindPing }
func (r Relay) Kind() Kind       { return r.Type }

func (s SetSharing) Kind() Kind {
	if s.Sharing {
		return KindStartSharing
	}
	return KindStopSharing
}

// Decode parses one client frame, dispatching on its "type" field, and
// validates the result.
func Decode(data []byte) (Inbound, error) {
	var env struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	var msg Inbound
	var err error
	switch env.Type {
	case KindJoinRoom:
		var p JoinRoom
		if err = json.Unmarshal(data, &p); err == nil {
			if p.RoomID == "" {
				p.RoomID = p.RoomCode
			}
			msg = p
		}
	case KindCreateRoom:
		var p CreateRoom
		err = json.Unmarshal(data, &p)
		msg = p
	case KindLeaveRoom:
		var p LeaveRoom
		err = json.Unmarshal(data, &p)
		msg = p
	case KindStartSharing, KindStopSharing:
		var p SetSharing
		err = json.Unmarshal(data, &p)
		p.Sharing = env.Type == KindStartSharing
		msg = p
	case KindChatMessage:
		var p ChatMessage
		err = json.Unmarshal(data, &p)
		msg = p
	case KindOffer, KindAnswer, KindICECandidate:
		p := Relay{Type: env.Type}
		if err = json.Unmarshal(data, &p); err == nil {
			err = p.checkPayload()
		}
		msg = p
	case KindRequestStream:
		var p RequestStream
		err = json.Unmarshal(data, &p)
		msg = p
	case KindPing:
		msg = Ping{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, env.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadPayload, env.Type, err)
	}
	if err := validate.Struct(msg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadPayload, env.Type, err)
	}
	return msg, nil
}

func (r Relay) checkPayload() error {
	switch r.Type {
	case KindOffer:
		if r.Offer == nil || r.Offer.Type != webrtc.SDPTypeOffer {
			return errors.New("offer must be an SDP offer")
		}
	case KindAnswer:
		if r.Answer == nil || (r.Answer.Type != webrtc.SDPTypeAnswer && r.Answer.Type != webrtc.SDPTypePranswer) {
			return errors.New("answer must be an SDP answer")
		}
	case KindICECandidate:
		if r.Candidate == nil {
			return errors.New("missing candidate")
		}
	}
	return nil
}
