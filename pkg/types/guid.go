package types

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// GUID is a 128-bit record identifier in canonical (display) byte order.
// The on-disk encoding uses the standard mixed-endian layout: the first
// three groups are little-endian, the final eight bytes are stored as-is.
type GUID [16]byte

// NewGUID generates a random GUID.
func NewGUID() GUID {
	return GUID(uuid.New())
}

// GUIDFromBytes creates a GUID from 16 canonical-order bytes.
func GUIDFromBytes(b []byte) (GUID, error) {
	if len(b) != 16 {
		return GUID{}, ErrInvalidGUIDLength
	}
	var g GUID
	copy(g[:], b)
	return g, nil
}

// ParseGUID parses a braced GUID string, e.g.
// {01020304-0506-0708-090A-0B0C0D0E0F10}.
func ParseGUID(s string) (GUID, error) {
	if len(s) != 38 || s[0] != '{' || s[37] != '}' {
		return GUID{}, ErrInvalidGUIDFormat
	}
	u, err := uuid.Parse(s[1:37])
	if err != nil {
		return GUID{}, ErrInvalidGUIDFormat
	}
	return GUID(u), nil
}

// String returns the braced upper-case form the desktop product stores in
// text columns.
func (g GUID) String() string {
	return "{" + strings.ToUpper(uuid.UUID(g).String()) + "}"
}

// IsZero reports whether the GUID is all zero bytes.
func (g GUID) IsZero() bool {
	return g == GUID{}
}

// Encode returns the 16 on-disk bytes in mixed-endian order.
func (g GUID) Encode() []byte {
	out := make([]byte, 16)
	binary.LittleEndian.PutUint32(out[0:4], binary.BigEndian.Uint32(g[0:4]))
	binary.LittleEndian.PutUint16(out[4:6], binary.BigEndian.Uint16(g[4:6]))
	binary.LittleEndian.PutUint16(out[6:8], binary.BigEndian.Uint16(g[6:8]))
	copy(out[8:], g[8:])
	return out
}

// DecodeGUID reads 16 on-disk mixed-endian bytes into a canonical GUID.
func DecodeGUID(b []byte) (GUID, error) {
	if len(b) != 16 {
		return GUID{}, ErrInvalidGUIDLength
	}
	var g GUID
	binary.BigEndian.PutUint32(g[0:4], binary.LittleEndian.Uint32(b[0:4]))
	binary.BigEndian.PutUint16(g[4:6], binary.LittleEndian.Uint16(b[4:6]))
	binary.BigEndian.PutUint16(g[6:8], binary.LittleEndian.Uint16(b[6:8]))
	copy(g[8:], b[8:])
	return g, nil
}

// GoString implements fmt.GoStringer for readable test failures.
func (g GUID) GoString() string {
	return fmt.Sprintf("types.GUID(%s)", g.String())
}
