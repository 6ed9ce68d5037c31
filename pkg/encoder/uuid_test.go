package encoder_test

import (
	"slices"
	"strings"
	"testing"

	"github.com/5amu/svctrig/pkg/encoder"
)

func TestUUIDFromString(t *testing.T) {
	ustr := "8a885d04-1ceb-11c9-9fe8-08002b104860"
	bsli := []byte{4, 93, 136, 138, 235, 28, 201, 17, 159, 232, 8, 0, 43, 16, 72, 96}

	b := encoder.UUIDFromString(ustr)
	if slices.Compare(b, bsli) != 0 {
		t.Fail()
	}
}

func TestUUIDFromStringInvalid(t *testing.T) {
	for _, s := range []string{"", "not-a-uuid", "8a885d04-1ceb-11c9-9fe8", "zz885d04-1ceb-11c9-9fe8-08002b104860"} {
		if b := encoder.UUIDFromString(s); b != nil {
			t.Errorf("UUIDFromString(%q) = %v, expected nil", s, b)
		}
	}
}

func TestStringFromUUID(t *testing.T) {
	ustr := "8a885d04-1ceb-11c9-9fe8-08002b104860"
	bsli := []byte{4, 93, 136, 138, 235, 28, 201, 17, 159, 232, 8, 0, 43, 16, 72, 96}

	d := encoder.StringFromUUID(bsli)
	if strings.Compare(d, ustr) != 0 {
		t.Fail()
	}
}

func TestUUIDRoundTrip(t *testing.T) {
	for _, s := range []string{
		"367abb81-9844-35f1-ad32-98f038001003",
		"1ce20aba-9851-4421-9430-1ddeb766e809",
		"00000000-0000-0000-0000-000000000000",
	} {
		if got := encoder.StringFromUUID(encoder.UUIDFromString(s)); got != s {
			t.Errorf("%q, expected: %q", got, s)
		}
	}
}
