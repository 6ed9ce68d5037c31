package mstypes

import (
	"encoding/binary"
	"fmt"

	"github.com/5amu/svctrig/pkg/encoder"
)

// GUID mirrors the in-memory layout of the Windows GUID structure. The
// first three fields are native-endian words, Data4 is a plain byte array,
// which is why the textual form and the byte form disagree on ordering.
// https://learn.microsoft.com/en-us/openspecs/windows_protocols/ms-dtyp/4926e530-816e-41c2-b251-ec5c7aca018a
type GUID struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 [8]byte
}

// GUIDFromString parses the textual xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx
// form, upper or lower case, without braces.
func GUIDFromString(s string) (GUID, error) {
	b := encoder.UUIDFromString(s)
	if b == nil {
		return GUID{}, fmt.Errorf("malformed GUID: %q", s)
	}
	g, _ := GUIDFromBytes(b)
	return g, nil
}

// MustGUID is GUIDFromString for compile-time constants; it panics on
// malformed input.
func MustGUID(s string) GUID {
	g, err := GUIDFromString(s)
	if err != nil {
		panic(err)
	}
	return g
}

// GUIDFromBytes reads the 16-byte wire form (first three groups
// little-endian, rest as written), the same layout UUIDFromString emits.
func GUIDFromBytes(b []byte) (GUID, error) {
	if len(b) != 16 {
		return GUID{}, fmt.Errorf("GUID needs 16 bytes, got %d", len(b))
	}
	g := GUID{
		Data1: binary.LittleEndian.Uint32(b[0:4]),
		Data2: binary.LittleEndian.Uint16(b[4:6]),
		Data3: binary.LittleEndian.Uint16(b[6:8]),
	}
	copy(g.Data4[:], b[8:16])
	return g, nil
}

// Bytes returns the 16-byte wire form, the inverse of GUIDFromBytes.
func (g GUID) Bytes() []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint32(b[0:4], g.Data1)
	binary.LittleEndian.PutUint16(b[4:6], g.Data2)
	binary.LittleEndian.PutUint16(b[6:8], g.Data3)
	copy(b[8:16], g.Data4[:])
	return b
}

// String renders the canonical lowercase textual form.
func (g GUID) String() string {
	return encoder.StringFromUUID(g.Bytes())
}

// IsZero reports whether g is the all-zero GUID.
func (g GUID) IsZero() bool {
	return g == GUID{}
}
