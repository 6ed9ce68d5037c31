package svctrig_test

import (
	"reflect"
	"testing"

	"github.com/5amu/svctrig/internal/svctrig"
	"github.com/5amu/svctrig/pkg/mstypes"
	"github.com/5amu/svctrig/pkg/trigger"
)

func TestLoadDefinitions(t *testing.T) {
	doc := `
triggers:
  - type: DEVICE_INTERFACE_ARRIVAL
    action: SERVICE_START
    subtype: a5dcbf10-6530-11d2-901f-00c04fb951ed
    data:
      - string: USB\VID_1234
  - type: CUSTOM
    action: STOP
    subtype: DOMAIN_JOIN
    data:
      - binary: deadbeef
      - string: ""
`
	got, err := svctrig.LoadDefinitions([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}

	want := []trigger.Trigger{
		trigger.New(
			trigger.SERVICE_TRIGGER_TYPE_DEVICE_INTERFACE_ARRIVAL,
			trigger.SERVICE_TRIGGER_ACTION_SERVICE_START,
			mstypes.MustGUID("a5dcbf10-6530-11d2-901f-00c04fb951ed"),
			[]trigger.Data{trigger.StringData("USB\\VID_1234")},
		),
		trigger.New(
			trigger.SERVICE_TRIGGER_TYPE_CUSTOM,
			trigger.SERVICE_TRIGGER_ACTION_SERVICE_STOP,
			trigger.DOMAIN_JOIN_GUID,
			[]trigger.Data{
				trigger.BinaryData([]byte{0xde, 0xad, 0xbe, 0xef}),
				trigger.StringData(""),
			},
		),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("parsed:\n %v\nwant:\n %v", got, want)
	}
}

func TestLoadDefinitionsNumeric(t *testing.T) {
	doc := `
triggers:
  - type: 0x20
    action: 2
    subtype: 1ce20aba-9851-4421-9430-1ddeb766e809
`
	got, err := svctrig.LoadDefinitions([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("parsed %d triggers", len(got))
	}
	if got[0].Type() != trigger.SERVICE_TRIGGER_TYPE_CUSTOM {
		t.Errorf("type = %v", got[0].Type())
	}
	if got[0].Action() != trigger.SERVICE_TRIGGER_ACTION_SERVICE_STOP {
		t.Errorf("action = %v", got[0].Action())
	}
	if got[0].Subtype() != trigger.DOMAIN_JOIN_GUID {
		t.Errorf("subtype = %v", got[0].Subtype())
	}
}

func TestLoadDefinitionsErrors(t *testing.T) {
	bad := []string{
		``,
		`triggers: []`,
		"triggers:\n  - type: NO_SUCH_TYPE\n    action: SERVICE_START",
		"triggers:\n  - type: CUSTOM\n    action: NO_SUCH_ACTION",
		"triggers:\n  - type: CUSTOM\n    action: START\n    subtype: not-a-guid",
		"triggers:\n  - type: CUSTOM\n    action: START\n    data:\n      - binary: xyz",
		"triggers:\n  - type: CUSTOM\n    action: START\n    data:\n      - {}",
		"triggers:\n  - type: CUSTOM\n    action: START\n    data:\n      - {string: a, binary: ff}",
	}
	for _, doc := range bad {
		if _, err := svctrig.LoadDefinitions([]byte(doc)); err == nil {
			t.Errorf("no error for %q", doc)
		}
	}
}

func TestParseTriggerType(t *testing.T) {
	for _, in := range []string{"CUSTOM", "custom", "SERVICE_TRIGGER_TYPE_CUSTOM", "32", "0x20"} {
		got, err := svctrig.ParseTriggerType(in)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if got != trigger.SERVICE_TRIGGER_TYPE_CUSTOM {
			t.Errorf("%q parsed to %v", in, got)
		}
	}
}

func TestParseAction(t *testing.T) {
	for _, in := range []string{"START", "service_start", "SERVICE_TRIGGER_ACTION_SERVICE_START", "1"} {
		got, err := svctrig.ParseAction(in)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if got != trigger.SERVICE_TRIGGER_ACTION_SERVICE_START {
			t.Errorf("%q parsed to %v", in, got)
		}
	}
}

func TestParseSubtype(t *testing.T) {
	for _, in := range []string{
		"1ce20aba-9851-4421-9430-1ddeb766e809",
		"DOMAIN_JOIN",
		"domain_join_guid",
		"domain join",
	} {
		got, err := svctrig.ParseSubtype(in)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if got != trigger.DOMAIN_JOIN_GUID {
			t.Errorf("%q parsed to %v", in, got)
		}
	}

	zero, err := svctrig.ParseSubtype("")
	if err != nil {
		t.Fatal(err)
	}
	if !zero.IsZero() {
		t.Errorf("empty subtype parsed to %v", zero)
	}

	if _, err := svctrig.ParseSubtype("NOT_A_THING"); err == nil {
		t.Error("no error for an unknown subtype name")
	}
}
