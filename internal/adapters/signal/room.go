package signal

import (
	"errors"

	"github.com/dkeye/Screenshare/internal/core"
	"github.com/dkeye/Screenshare/internal/domain"
	"github.com/dkeye/Screenshare/internal/protocol"
	"github.com/rs/zerolog/log"
)

func roomErrorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		return protocol.CodeRoomNotFound
	case errors.Is(err, domain.ErrRoomConflict):
		return protocol.CodeRoomConflict
	default:
		return protocol.CodeRoomUnavailable
	}
}

func (ctl *SignalWSController) handleCreate(
	sid core.SessionID,
	conn *WsSignalConn,
	m protocol.CreateRoom,
) {
	desired := domain.RoomID(m.RoomID)
	id, err := ctl.Orch.CreateRoom(sid, desired, m.Username)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("room", m.RoomID).Msg("create room")
		ctl.sendJSON(conn, protocol.NewRoomError(roomErrorCode(err), desired, err))
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", string(id)).Msg("room created")
}

func (ctl *SignalWSController) handleJoin(
	sid core.SessionID,
	conn *WsSignalConn,
	m protocol.JoinRoom,
) {
	roomID := domain.RoomID(m.RoomID)
	if _, err := ctl.Orch.Join(sid, roomID, m.Username); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("room", m.RoomID).Msg("join room")
		ctl.sendJSON(conn, protocol.NewRoomError(roomErrorCode(err), roomID, err))
	}
}

func (ctl *SignalWSController) handleLeave(
	sid core.SessionID,
	m protocol.LeaveRoom,
) {
	if !ctl.Orch.Leave(sid, domain.RoomID(m.RoomID)) {
		log.Debug().Str("module", "signal").Str("sid", string(sid)).Str("room", m.RoomID).Msg("leave: not a member")
	}
}

func (ctl *SignalWSController) handleSharing(
	sid core.SessionID,
	m protocol.SetSharing,
) {
	changed := ctl.Orch.SetSharing(sid, domain.RoomID(m.RoomID), m.Sharing)
	log.Debug().Str("module", "signal").Str("sid", string(sid)).Bool("sharing", m.Sharing).Bool("changed", changed).Msg("sharing")
}
