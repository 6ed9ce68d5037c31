// Package trigger models Windows service triggers and converts them to and
// from the native SERVICE_TRIGGER structures consumed by the service
// control manager.
package trigger

import (
	"errors"
	"fmt"

	"github.com/5amu/svctrig/pkg/encoder"
	"github.com/5amu/svctrig/pkg/mstypes"
)

var (
	// ErrInvalidPayload marks construction from a value that is neither a
	// string nor a byte slice.
	ErrInvalidPayload = errors.New("payload must be a string or a byte slice")

	// ErrUnknownDataType marks a native data item whose type tag is neither
	// BINARY nor STRING.
	ErrUnknownDataType = errors.New("unknown trigger data type")
)

// Data is the payload of one SERVICE_TRIGGER_SPECIFIC_DATA_ITEM: a string
// or a binary blob. Values are immutable once constructed; use the
// constructors, the zero value carries no valid type tag.
type Data struct {
	typ DataType
	str string
	bin []byte
}

// StringData builds a string payload.
func StringData(s string) Data {
	return Data{typ: SERVICE_TRIGGER_DATA_TYPE_STRING, str: s}
}

// BinaryData builds a binary payload. The slice is captured, not copied;
// nil stays nil and marshals to a null pointer with size zero.
func BinaryData(b []byte) Data {
	return Data{typ: SERVICE_TRIGGER_DATA_TYPE_BINARY, bin: b}
}

// NewData builds a payload from a runtime-typed value: a string or a byte
// slice. Anything else fails with ErrInvalidPayload.
func NewData(v any) (Data, error) {
	switch x := v.(type) {
	case string:
		return StringData(x), nil
	case []byte:
		return BinaryData(x), nil
	}
	return Data{}, fmt.Errorf("%w, got %T", ErrInvalidPayload, v)
}

// Type returns the payload's type tag.
func (d Data) Type() DataType {
	return d.typ
}

// Value returns the payload as its dynamic type: a string for string
// items, a byte slice (possibly nil) for binary items.
func (d Data) Value() any {
	if d.typ == SERVICE_TRIGGER_DATA_TYPE_STRING {
		return d.str
	}
	return d.bin
}

// PayloadBytes renders the payload exactly as it sits in native memory:
// strings as UTF-16LE with one trailing NUL code unit, binary blobs as-is.
// A nil binary payload returns nil (no buffer at all), while an empty one
// returns an empty non-nil slice.
func (d Data) PayloadBytes() ([]byte, error) {
	switch d.typ {
	case SERVICE_TRIGGER_DATA_TYPE_STRING:
		return append(encoder.StringToUnicode(d.str), 0x00, 0x00), nil
	case SERVICE_TRIGGER_DATA_TYPE_BINARY:
		if d.bin == nil {
			return nil, nil
		}
		if len(d.bin) == 0 {
			return []byte{}, nil
		}
		return d.bin, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownDataType, uint32(d.typ))
}

func (d Data) String() string {
	switch d.typ {
	case SERVICE_TRIGGER_DATA_TYPE_STRING:
		return fmt.Sprintf("string %q", d.str)
	case SERVICE_TRIGGER_DATA_TYPE_BINARY:
		if d.bin == nil {
			return "binary <nil>"
		}
		return fmt.Sprintf("binary %x", d.bin)
	}
	return fmt.Sprintf("invalid data type %d", uint32(d.typ))
}

// Trigger is one service trigger: when an event of the given type and
// subtype occurs, the SCM performs the action. Data items qualify the
// event (device interface classes, port numbers, ETW payload filters).
// Values are immutable once constructed.
type Trigger struct {
	typ     Type
	action  Action
	subtype mstypes.GUID
	items   []Data
}

// New builds a trigger. The items slice is copied, so later changes to it
// do not reach the constructed value.
func New(typ Type, action Action, subtype mstypes.GUID, items []Data) Trigger {
	t := Trigger{typ: typ, action: action, subtype: subtype}
	if len(items) > 0 {
		t.items = make([]Data, len(items))
		copy(t.items, items)
	}
	return t
}

// Type returns the trigger's event class.
func (t Trigger) Type() Type {
	return t.typ
}

// Action returns what happens to the service when the trigger fires.
func (t Trigger) Action() Action {
	return t.action
}

// Subtype returns the event subtype identifier. For CUSTOM triggers this
// is the ETW provider GUID; the zero GUID means no subtype was set.
func (t Trigger) Subtype() mstypes.GUID {
	return t.subtype
}

// DataItems returns a copy of the ordered data item sequence, nil when
// the trigger has none.
func (t Trigger) DataItems() []Data {
	if len(t.items) == 0 {
		return nil
	}
	out := make([]Data, len(t.items))
	copy(out, t.items)
	return out
}

func (t Trigger) String() string {
	return fmt.Sprintf("%s on %s subtype %s, %d data item(s)",
		t.action, t.typ, t.subtype, len(t.items))
}
