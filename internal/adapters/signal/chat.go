package signal

import (
	"github.com/dkeye/Screenshare/internal/core"
	"github.com/dkeye/Screenshare/internal/domain"
	"github.com/dkeye/Screenshare/internal/protocol"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleChat(
	sid core.SessionID,
	token string,
	conn *WsSignalConn,
	m protocol.ChatMessage,
) {
	if !ctl.chat.Allow(token) {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("chat rate limited")
		ctl.sendJSON(conn, protocol.NewError(protocol.ErrCodeRateLimited))
		return
	}
	if !ctl.Orch.Chat(sid, domain.RoomID(m.RoomID), m.Message, m.Username) {
		ctl.sendJSON(conn, protocol.NewError(protocol.ErrCodeNotInRoom))
	}
}
