package encoder

import (
	"encoding/hex"
	"strings"
)

// UUIDFromString converts the textual xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx
// form to the 16-byte in-memory layout: the first three groups are stored
// little-endian, the last two big-endian as written. Returns nil if s is not
// a well-formed UUID.
func UUIDFromString(s string) []byte {
	s = strings.ReplaceAll(s, "-", "")
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 16 {
		return nil
	}
	r := []byte{b[3], b[2], b[1], b[0], b[5], b[4], b[7], b[6], b[8], b[9], b[10], b[11], b[12], b[13], b[14], b[15]}
	return r
}

// StringFromUUID is the inverse of UUIDFromString. Slices that are not 16
// bytes long come back hex-dumped so malformed input stays visible in logs.
func StringFromUUID(b []byte) string {
	if len(b) != 16 {
		return hex.Dump(b)
	}

	r := []byte{b[3], b[2], b[1], b[0], b[5], b[4], b[7], b[6], b[8], b[9], b[10], b[11], b[12], b[13], b[14], b[15]}
	s := hex.EncodeToString(r)
	return s[0:8] + "-" + s[8:12] + "-" + s[12:16] + "-" + s[16:20] + "-" + s[20:]
}
