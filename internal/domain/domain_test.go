package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestNewRoomCode(t *testing.T) {
	seen := make(map[RoomID]bool)
	for i := 0; i < 500; i++ {
		code, err := NewRoomCode(DefaultCodeLength)
		if err != nil {
			t.Fatalf("NewRoomCode: %v", err)
		}
		if len(code) != DefaultCodeLength {
			t.Fatalf("len=%d, want %d", len(code), DefaultCodeLength)
		}
		if !IsRoomCode(code) {
			t.Fatalf("code %q has symbols outside the alphabet", code)
		}
		if strings.ContainsAny(string(code), "01IO") {
			t.Fatalf("code %q contains an ambiguous symbol", code)
		}
		seen[code] = true
	}
	if len(seen) < 490 {
		t.Fatalf("only %d distinct codes out of 500", len(seen))
	}
}

func TestCodeAlphabet(t *testing.T) {
	if len(CodeAlphabet) != 32 {
		t.Fatalf("alphabet size=%d, want 32", len(CodeAlphabet))
	}
	uniq := make(map[rune]bool)
	for _, r := range CodeAlphabet {
		uniq[r] = true
	}
	if len(uniq) != 32 {
		t.Fatalf("alphabet has duplicates")
	}
}

func TestValidRoomID(t *testing.T) {
	cases := map[string]bool{
		"7K4P9M":                true,
		"team-standup_2":        true,
		"":                      false,
		"../etc":                false,
		"with space":            false,
		strings.Repeat("a", 64): true,
		strings.Repeat("a", 65): false,
	}
	for id, want := range cases {
		if got := ValidRoomID(id); got != want {
			t.Errorf("ValidRoomID(%q)=%v, want %v", id, got, want)
		}
	}
}

func TestNormalizeUsername(t *testing.T) {
	if got, err := NormalizeUsername("  alice "); err != nil || got != "alice" {
		t.Fatalf("got %q, %v", got, err)
	}
	if _, err := NormalizeUsername("   "); !errors.Is(err, ErrUsernameEmpty) {
		t.Fatalf("err=%v, want ErrUsernameEmpty", err)
	}
	if _, err := NormalizeUsername(strings.Repeat("x", MaxUsernameLen+1)); !errors.Is(err, ErrUsernameTooLong) {
		t.Fatalf("err=%v, want ErrUsernameTooLong", err)
	}
}

func TestNewMemberFallbackName(t *testing.T) {
	m := NewMember("3f2a9c1e-0000-4000-8000-000000000000", "")
	if m.Username != "guest-3f2a9c" {
		t.Fatalf("username=%q, want guest-3f2a9c", m.Username)
	}
	if m.IsSharing {
		t.Fatalf("new member must not be sharing")
	}
}
