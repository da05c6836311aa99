package card

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// IDLength is the fixed length of card and base card ids.
const IDLength = 10

const base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// ValidID reports whether id is exactly IDLength base62 characters.
func ValidID(id string) bool {
	if len(id) != IDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
		default:
			return false
		}
	}
	return true
}

// NewID returns a random IDLength base62 id.
func NewID() string {
	u := uuid.New()
	n := binary.BigEndian.Uint64(u[:8]) ^ binary.BigEndian.Uint64(u[8:])

	buf := make([]byte, IDLength)
	for i := IDLength - 1; i >= 0; i-- {
		buf[i] = base62Alphabet[n%62]
		n /= 62
	}
	return string(buf)
}
