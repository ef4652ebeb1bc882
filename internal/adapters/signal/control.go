package signal

import "github.com/dkeye/Screenshare/internal/protocol"

func (ctl *SignalWSController) handlePing(
	conn *WsSignalConn,
) {
	ctl.sendJSON(conn, protocol.Pong{Type: protocol.EventPong})
}
