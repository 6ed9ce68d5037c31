package encoder_test

import (
	"slices"
	"testing"

	"github.com/5amu/svctrig/pkg/encoder"
)

func TestStringToUnicode(t *testing.T) {
	str := "Test"
	exp := []byte{'T', '\x00', 'e', '\x00', 's', '\x00', 't', '\x00'}
	res := encoder.StringToUnicode(str)
	if slices.Compare(res, exp) != 0 {
		t.Errorf("%v, expected: %v", res, exp)
	}

	str2 := ""
	res2 := encoder.StringToUnicode(str2)
	if res2 != nil {
		t.Errorf("%v, expected: %v", res2, nil)
	}
	i := len(res2)
	if i != 0 {
		t.Errorf("should be 0")
	}
}

func TestUnicodeToString(t *testing.T) {
	b := []byte{'U', '\x00', 'S', '\x00', 'B', '\x00'}
	if s := encoder.UnicodeToString(b); s != "USB" {
		t.Errorf("%q, expected: %q", s, "USB")
	}

	// one trailing wide NUL is dropped
	b = append(b, 0x00, 0x00)
	if s := encoder.UnicodeToString(b); s != "USB" {
		t.Errorf("%q, expected: %q", s, "USB")
	}

	if s := encoder.UnicodeToString(nil); s != "" {
		t.Errorf("%q, expected empty string", s)
	}

	// a buffer holding only a terminator is the empty string
	if s := encoder.UnicodeToString([]byte{0x00, 0x00}); s != "" {
		t.Errorf("%q, expected empty string", s)
	}
}

func TestUnicodeRoundTrip(t *testing.T) {
	for _, s := range []string{"Test", "", "USB\\VID_1234", "caffè", "🔌"} {
		if got := encoder.UnicodeToString(encoder.StringToUnicode(s)); got != s {
			t.Errorf("%q, expected: %q", got, s)
		}
	}
}

func TestUnicodeLen(t *testing.T) {
	cases := []struct {
		s string
		n int
	}{
		{"", 0},
		{"Test", 4},
		{"USB\\VID_1234", 12},
		{"🔌", 2}, // surrogate pair
	}
	for _, c := range cases {
		if n := encoder.UnicodeLen(c.s); n != c.n {
			t.Errorf("UnicodeLen(%q) = %d, expected %d", c.s, n, c.n)
		}
		if n := len(encoder.StringToUnicode(c.s)); n != c.n*2 {
			t.Errorf("len(StringToUnicode(%q)) = %d, expected %d", c.s, n, c.n*2)
		}
	}
}
