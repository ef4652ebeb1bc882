// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const (
	MaxUsernameLen = 36
	guestPrefix    = "guest-"
	guestIDLen     = 6
)

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
)

// NormalizeUsername trims and checks a client-supplied display name.
func NormalizeUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if len(username) == 0 {
		return "", ErrUsernameEmpty
	}
	if utf8.RuneCountInString(username) > MaxUsernameLen {
		return "", ErrUsernameTooLong
	}
	return username, nil
}

// GuestName is the fallback display name derived from a connection id.
func GuestName(id string) string {
	if len(id) > guestIDLen {
		id = id[:guestIDLen]
	}
	return guestPrefix + id
}
