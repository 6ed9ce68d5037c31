package encoder

import (
	"bytes"
	"encoding/binary"
	"unicode/utf16"
)

// StringToUnicode converts s to UTF-16LE without a terminating NUL.
func StringToUnicode(s string) []byte {
	// https://github.com/Azure/go-ntlmssp/blob/master/unicode.go
	uints := utf16.Encode([]rune(s))
	b := bytes.Buffer{}
	_ = binary.Write(&b, binary.LittleEndian, &uints)
	return b.Bytes()
}

// UnicodeLen returns the number of UTF-16 code units needed to encode s,
// terminator excluded. Surrogate pairs count as two units.
func UnicodeLen(s string) int {
	return len(utf16.Encode([]rune(s)))
}

// UnicodeToString converts a UTF-16LE byte sequence back to a string. A
// single trailing NUL code unit is dropped, so buffers carrying a wide
// terminator decode to the bare string. A trailing odd byte is ignored.
func UnicodeToString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	ws := make([]uint16, len(b)/2)
	for i := range ws {
		ws[i] = binary.LittleEndian.Uint16(b[2*i : 2*i+2])
	}
	if len(ws) > 0 && ws[len(ws)-1] == 0 {
		ws = ws[:len(ws)-1]
	}
	return string(utf16.Decode(ws))
}
