package core

import "sync"

// memberSession implements MemberSession by pairing identity + transport.
type memberSession struct {
	id   SessionID
	conn SignalConnection

	mu       sync.RWMutex
	username string
}

func NewMemberSession(id SessionID, username string, conn SignalConnection) MemberSession {
	return &memberSession{id: id, username: username, conn: conn}
}

func (m *memberSession) ID() SessionID            { return m.id }
func (m *memberSession) Signal() SignalConnection { return m.conn }

func (m *memberSession) Username() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.username
}

func (m *memberSession) SetUsername(name string) {
	m.mu.Lock()
	m.username = name
	m.mu.Unlock()
}
