package domain

import "time"

// Member represents a connection's participation meta for a room.
// No transport or lifecycle logic here.
type Member struct {
	ID        string
	Username  string
	IsSharing bool
	JoinedAt  time.Time
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(id, username string) *Member {
	if username == "" {
		username = GuestName(id)
	}
	return &Member{ID: id, Username: username, JoinedAt: time.Now()}
}
