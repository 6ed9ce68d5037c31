package svctrig

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/5amu/svctrig/pkg/mstypes"
	"github.com/5amu/svctrig/pkg/trigger"
)

// DefinitionFile is the YAML schema the build command consumes.
//
//	triggers:
//	  - type: DEVICE_INTERFACE_ARRIVAL
//	    action: SERVICE_START
//	    subtype: a5dcbf10-6530-11d2-901f-00c04fb951ed
//	    data:
//	      - string: USB\VID_1234
//	      - binary: deadbeef
//
// Types, actions and well-known subtypes accept their winsvc.h names
// (with or without the SERVICE_TRIGGER_* prefix) or plain numbers.
type DefinitionFile struct {
	Triggers []TriggerDefinition `yaml:"triggers"`
}

type TriggerDefinition struct {
	Type    string           `yaml:"type"`
	Action  string           `yaml:"action"`
	Subtype string           `yaml:"subtype,omitempty"`
	Data    []DataDefinition `yaml:"data,omitempty"`
}

// DataDefinition carries exactly one of the two payload kinds. Binary
// payloads are hex encoded in the file.
type DataDefinition struct {
	String *string `yaml:"string,omitempty"`
	Binary *string `yaml:"binary,omitempty"`
}

// LoadDefinitions parses a YAML definition document into triggers.
func LoadDefinitions(b []byte) ([]trigger.Trigger, error) {
	var file DefinitionFile
	if err := yaml.Unmarshal(b, &file); err != nil {
		return nil, fmt.Errorf("parsing definitions: %w", err)
	}
	if len(file.Triggers) == 0 {
		return nil, fmt.Errorf("no triggers defined")
	}

	ts := make([]trigger.Trigger, 0, len(file.Triggers))
	for i, td := range file.Triggers {
		t, err := td.Trigger()
		if err != nil {
			return nil, fmt.Errorf("trigger %d: %w", i, err)
		}
		ts = append(ts, t)
	}
	return ts, nil
}

// ReadDefinitionFile loads triggers from a YAML file on disk.
func ReadDefinitionFile(path string) ([]trigger.Trigger, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return LoadDefinitions(b)
}

func (td TriggerDefinition) Trigger() (trigger.Trigger, error) {
	typ, err := ParseTriggerType(td.Type)
	if err != nil {
		return trigger.Trigger{}, err
	}
	action, err := ParseAction(td.Action)
	if err != nil {
		return trigger.Trigger{}, err
	}
	subtype, err := ParseSubtype(td.Subtype)
	if err != nil {
		return trigger.Trigger{}, err
	}

	var items []trigger.Data
	for i, dd := range td.Data {
		d, err := dd.toData()
		if err != nil {
			return trigger.Trigger{}, fmt.Errorf("data item %d: %w", i, err)
		}
		items = append(items, d)
	}
	return trigger.New(typ, action, subtype, items), nil
}

func (dd DataDefinition) toData() (trigger.Data, error) {
	switch {
	case dd.String != nil && dd.Binary != nil:
		return trigger.Data{}, fmt.Errorf("sets both string and binary")
	case dd.String != nil:
		return trigger.StringData(*dd.String), nil
	case dd.Binary != nil:
		raw, err := hex.DecodeString(strings.ReplaceAll(*dd.Binary, " ", ""))
		if err != nil {
			return trigger.Data{}, fmt.Errorf("binary payload: %w", err)
		}
		return trigger.BinaryData(raw), nil
	}
	return trigger.Data{}, fmt.Errorf("needs either string or binary")
}

// ParseTriggerType resolves a trigger type from its name or number.
func ParseTriggerType(s string) (trigger.Type, error) {
	if v, ok := parseNumber(s); ok {
		return trigger.Type(v), nil
	}
	name := normalizeName(s, "SERVICE_TRIGGER_TYPE_")
	for _, t := range trigger.KnownTypes {
		if t.String() == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown trigger type %q", s)
}

// ParseAction resolves an action from its name or number. Both
// SERVICE_START and the short form START are accepted.
func ParseAction(s string) (trigger.Action, error) {
	if v, ok := parseNumber(s); ok {
		return trigger.Action(v), nil
	}
	name := normalizeName(s, "SERVICE_TRIGGER_ACTION_")
	for _, a := range trigger.KnownActions {
		if a.String() == name || a.String() == "SERVICE_"+name {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown trigger action %q", s)
}

// ParseSubtype resolves a subtype from a GUID string or a well-known
// name. The empty string is the zero GUID.
func ParseSubtype(s string) (mstypes.GUID, error) {
	if strings.TrimSpace(s) == "" {
		return mstypes.GUID{}, nil
	}
	if g, err := mstypes.GUIDFromString(s); err == nil {
		return g, nil
	}

	name := normalizeName(s, "")
	if !strings.HasSuffix(name, "_GUID") {
		name += "_GUID"
	}
	for _, g := range trigger.KnownSubtypes {
		if n, ok := trigger.SubtypeName(g); ok && n == name {
			return g, nil
		}
	}
	return mstypes.GUID{}, fmt.Errorf("subtype %q is neither a guid nor a known name", s)
}

func parseNumber(s string) (uint32, bool) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	return uint32(v), err == nil
}

func normalizeName(s, prefix string) string {
	name := strings.ToUpper(strings.TrimSpace(s))
	name = strings.ReplaceAll(name, "-", "_")
	name = strings.ReplaceAll(name, " ", "_")
	return strings.TrimPrefix(name, prefix)
}
