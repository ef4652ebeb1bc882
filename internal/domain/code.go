package domain

import (
	"crypto/rand"
	"math/big"
)

// CodeAlphabet has 32 symbols and leaves out 0, 1, I and O.
const CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const DefaultCodeLength = 6

var alphabetSize = big.NewInt(int64(len(CodeAlphabet)))

// NewRoomCode draws n symbols uniformly from CodeAlphabet.
func NewRoomCode(n int) (RoomID, error) {
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", err
		}
		buf[i] = CodeAlphabet[idx.Int64()]
	}
	return RoomID(buf), nil
}

// IsRoomCode reports whether id is made only of CodeAlphabet symbols.
func IsRoomCode(id RoomID) bool {
	if id == "" {
		return false
	}
	for i := 0; i < len(id); i++ {
		if !isCodeSymbol(id[i]) {
			return false
		}
	}
	return true
}

func isCodeSymbol(b byte) bool {
	for i := 0; i < len(CodeAlphabet); i++ {
		if CodeAlphabet[i] == b {
			return true
		}
	}
	return false
}
