package mstypes_test

import (
	"slices"
	"testing"

	"github.com/5amu/svctrig/pkg/mstypes"
)

func TestGUIDFromString(t *testing.T) {
	g, err := mstypes.GUIDFromString("8a885d04-1ceb-11c9-9fe8-08002b104860")
	if err != nil {
		t.Fatal(err)
	}
	if g.Data1 != 0x8a885d04 || g.Data2 != 0x1ceb || g.Data3 != 0x11c9 {
		t.Errorf("unexpected words: %08x %04x %04x", g.Data1, g.Data2, g.Data3)
	}
	exp := [8]byte{0x9f, 0xe8, 0x08, 0x00, 0x2b, 0x10, 0x48, 0x60}
	if g.Data4 != exp {
		t.Errorf("Data4 = %v, expected %v", g.Data4, exp)
	}
}

func TestGUIDFromStringInvalid(t *testing.T) {
	for _, s := range []string{"", "1ce20aba", "xxxxxxxx-9851-4421-9430-1ddeb766e809"} {
		if _, err := mstypes.GUIDFromString(s); err == nil {
			t.Errorf("GUIDFromString(%q): expected error", s)
		}
	}
}

func TestGUIDBytes(t *testing.T) {
	g := mstypes.MustGUID("8a885d04-1ceb-11c9-9fe8-08002b104860")
	exp := []byte{4, 93, 136, 138, 235, 28, 201, 17, 159, 232, 8, 0, 43, 16, 72, 96}
	if slices.Compare(g.Bytes(), exp) != 0 {
		t.Errorf("Bytes() = %v, expected %v", g.Bytes(), exp)
	}

	back, err := mstypes.GUIDFromBytes(exp)
	if err != nil {
		t.Fatal(err)
	}
	if back != g {
		t.Errorf("round trip mismatch: %v != %v", back, g)
	}

	if _, err := mstypes.GUIDFromBytes(exp[:10]); err == nil {
		t.Error("expected error on short slice")
	}
}

func TestGUIDString(t *testing.T) {
	// mixed case in, canonical lower case out
	g := mstypes.MustGUID("659FCAE6-5BDB-4DA9-B1FF-CA2A178D46E0")
	if s := g.String(); s != "659fcae6-5bdb-4da9-b1ff-ca2a178d46e0" {
		t.Errorf("String() = %q", s)
	}
}

func TestGUIDIsZero(t *testing.T) {
	var zero mstypes.GUID
	if !zero.IsZero() {
		t.Error("zero value should be zero")
	}
	if mstypes.MustGUID("1ce20aba-9851-4421-9430-1ddeb766e809").IsZero() {
		t.Error("non-zero GUID reported zero")
	}
}
