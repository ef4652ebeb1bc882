package signal

import (
	"github.com/dkeye/Screenshare/internal/core"
	"github.com/dkeye/Screenshare/internal/domain"
	"github.com/dkeye/Screenshare/internal/protocol"
)

// Offers, answers and candidates are opaque to the server; they go to the
// addressed connection only.
func (ctl *SignalWSController) handleRelay(
	sid core.SessionID,
	m protocol.Relay,
) {
	ctl.Orch.Relay(sid, m)
}

func (ctl *SignalWSController) handleRequestStream(
	sid core.SessionID,
	m protocol.RequestStream,
) {
	ctl.Orch.RequestStream(sid, domain.RoomID(m.RoomID), core.SessionID(m.TargetID))
}
