package domain

import (
	"errors"
	"regexp"
	"time"
)

type RoomID string

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomConflict       = errors.New("room already exists")
	ErrCodeSpaceExhausted = errors.New("no free room code")
	ErrInvalidRoomID      = errors.New("invalid room id")
)

const MaxRoomIDLen = 64

var roomIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

type Room struct {
	ID        RoomID
	CreatedAt time.Time
}

func NewRoom(id RoomID) *Room {
	return &Room{ID: id, CreatedAt: time.Now()}
}

// ValidRoomID reports whether id can name a room, whether it came from a
// URL path or from the code generator.
func ValidRoomID(id string) bool {
	return len(id) > 0 && len(id) <= MaxRoomIDLen && roomIDPattern.MatchString(id)
}
