package orch

import (
	"github.com/dkeye/Screenshare/internal/core"
	"github.com/dkeye/Screenshare/internal/domain"
	"github.com/dkeye/Screenshare/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Relay forwards an offer, answer or ICE candidate to its target only.
// A target that is gone is not an error: the sender learns about it from
// the user-left that its disconnect produced.
func (o *Orchestrator) Relay(from core.SessionID, msg protocol.Relay) bool {
	target := core.SessionID(msg.TargetID)
	delivered := o.send(target, protocol.NewRelayed(from, msg))
	if !delivered {
		log.Debug().Str("module", "orch").Str("kind", string(msg.Type)).Str("from", string(from)).Str("to", string(target)).Msg("relay target gone, dropped")
	}
	return delivered
}

// RequestStream asks target to start sending its stream to from.
func (o *Orchestrator) RequestStream(from core.SessionID, roomID domain.RoomID, target core.SessionID) bool {
	return o.send(target, protocol.Relayed{
		Type:   protocol.KindRequestStream,
		From:   from,
		RoomID: string(roomID),
	})
}
