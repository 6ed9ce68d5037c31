package trigger

import (
	"fmt"
	"unsafe"

	"github.com/5amu/svctrig/pkg/encoder"
	"github.com/5amu/svctrig/pkg/mstypes"
	"github.com/5amu/svctrig/pkg/nativemem"
)

// The Native* structs mirror the winsvc.h declarations field for field, so
// a pointer to one can be handed to the service configuration APIs as-is.
// https://learn.microsoft.com/en-us/windows/win32/api/winsvc/ns-winsvc-service_trigger

// NativeDataItem is SERVICE_TRIGGER_SPECIFIC_DATA_ITEM.
type NativeDataItem struct {
	DataType uint32
	Size     uint32
	Data     *byte
}

// NativeTrigger is SERVICE_TRIGGER.
type NativeTrigger struct {
	Type           uint32
	Action         uint32
	Subtype        *mstypes.GUID
	DataItemsCount uint32
	DataItems      *NativeDataItem
}

// NativeTriggerInfo is SERVICE_TRIGGER_INFO.
type NativeTriggerInfo struct {
	TriggersCount uint32
	Triggers      *NativeTrigger
	Reserved      *byte
}

// MarshalNative encodes the payload into a native data item backed by a.
// String payloads become UTF-16LE with the trailing NUL code unit counted
// in Size; a nil binary payload yields a null pointer and size zero, an
// empty one a valid zero-length allocation.
func (d Data) MarshalNative(a nativemem.Allocator) (NativeDataItem, error) {
	buf, err := d.PayloadBytes()
	if err != nil {
		return NativeDataItem{}, err
	}
	it := NativeDataItem{DataType: uint32(d.typ)}
	if buf == nil {
		return it, nil
	}
	p, err := a.Alloc(len(buf))
	if err != nil {
		return NativeDataItem{}, fmt.Errorf("allocating %d payload bytes: %w", len(buf), err)
	}
	copy(unsafe.Slice((*byte)(p), len(buf)), buf)
	it.Size = uint32(len(buf))
	it.Data = (*byte)(p)
	return it, nil
}

// Free releases the payload allocation, if any, and zeroes the item so a
// second call finds nothing left to release.
func (it *NativeDataItem) Free(a nativemem.Allocator) error {
	if it.Data != nil {
		if err := a.Free(unsafe.Pointer(it.Data)); err != nil {
			return err
		}
	}
	it.Data = nil
	it.Size = 0
	return nil
}

// DataFromNative decodes a native item into its managed form, copying the
// payload out of native memory. A null data pointer decodes to the nil
// binary payload or the empty string, depending on the tag; an unknown tag
// fails with ErrUnknownDataType.
func DataFromNative(it NativeDataItem) (Data, error) {
	switch DataType(it.DataType) {
	case SERVICE_TRIGGER_DATA_TYPE_BINARY:
		if it.Data == nil {
			return BinaryData(nil), nil
		}
		b := make([]byte, it.Size)
		copy(b, unsafe.Slice(it.Data, it.Size))
		return BinaryData(b), nil
	case SERVICE_TRIGGER_DATA_TYPE_STRING:
		if it.Data == nil {
			return StringData(""), nil
		}
		return StringData(encoder.UnicodeToString(unsafe.Slice(it.Data, it.Size))), nil
	}
	return Data{}, fmt.Errorf("%w: %d", ErrUnknownDataType, it.DataType)
}

// MarshalNative encodes the trigger into its native form: one block for
// the subtype GUID, one contiguous array for the data items (a valid
// zero-length block when there are none), and one block per payload. A
// failure part-way through releases everything allocated so far.
func (t Trigger) MarshalNative(a nativemem.Allocator) (NativeTrigger, error) {
	nt := NativeTrigger{
		Type:   uint32(t.typ),
		Action: uint32(t.action),
	}

	gp, err := a.Alloc(int(unsafe.Sizeof(mstypes.GUID{})))
	if err != nil {
		return NativeTrigger{}, fmt.Errorf("allocating subtype block: %w", err)
	}
	*(*mstypes.GUID)(gp) = t.subtype
	nt.Subtype = (*mstypes.GUID)(gp)

	ap, err := a.Alloc(len(t.items) * int(unsafe.Sizeof(NativeDataItem{})))
	if err != nil {
		_ = a.Free(gp)
		return NativeTrigger{}, fmt.Errorf("allocating item array: %w", err)
	}
	slots := unsafe.Slice((*NativeDataItem)(ap), len(t.items))
	for i, d := range t.items {
		it, err := d.MarshalNative(a)
		if err != nil {
			for j := 0; j < i; j++ {
				_ = slots[j].Free(a)
			}
			_ = a.Free(ap)
			_ = a.Free(gp)
			return NativeTrigger{}, fmt.Errorf("data item %d: %w", i, err)
		}
		slots[i] = it
	}

	nt.DataItemsCount = uint32(len(t.items))
	nt.DataItems = (*NativeDataItem)(ap)
	return nt, nil
}

// Free releases a marshaled trigger: every payload first, then the item
// array, then the subtype block. Pointers and the count are zeroed along
// the way, so calling Free again is a no-op. Only values produced by
// MarshalNative may be freed; decoded views do not own their memory.
func (nt *NativeTrigger) Free(a nativemem.Allocator) error {
	if nt.DataItems != nil {
		items := unsafe.Slice(nt.DataItems, nt.DataItemsCount)
		for i := range items {
			if err := items[i].Free(a); err != nil {
				return fmt.Errorf("data item %d: %w", i, err)
			}
		}
		if err := a.Free(unsafe.Pointer(nt.DataItems)); err != nil {
			return err
		}
		nt.DataItems = nil
	}
	nt.DataItemsCount = 0

	if nt.Subtype != nil {
		if err := a.Free(unsafe.Pointer(nt.Subtype)); err != nil {
			return err
		}
		nt.Subtype = nil
	}
	return nil
}

// FromNative decodes a native trigger into its managed form. The subtype
// is read through its pointer when present (a null pointer leaves the zero
// GUID); data items are decoded in array order with their payloads copied
// out.
func FromNative(nt NativeTrigger) (Trigger, error) {
	t := Trigger{
		typ:    Type(nt.Type),
		action: Action(nt.Action),
	}
	if nt.Subtype != nil {
		t.subtype = *nt.Subtype
	}
	if n := int(nt.DataItemsCount); n > 0 {
		if nt.DataItems == nil {
			return Trigger{}, fmt.Errorf("%d data items with a null array pointer", n)
		}
		items := unsafe.Slice(nt.DataItems, n)
		t.items = make([]Data, n)
		for i := range items {
			d, err := DataFromNative(items[i])
			if err != nil {
				return Trigger{}, fmt.Errorf("data item %d: %w", i, err)
			}
			t.items[i] = d
		}
	}
	return t, nil
}

// MarshalNativeTriggerInfo encodes a whole trigger set into the
// SERVICE_TRIGGER_INFO aggregate handed to the configuration APIs. A
// failure part-way through releases everything allocated so far.
func MarshalNativeTriggerInfo(a nativemem.Allocator, ts []Trigger) (NativeTriggerInfo, error) {
	ap, err := a.Alloc(len(ts) * int(unsafe.Sizeof(NativeTrigger{})))
	if err != nil {
		return NativeTriggerInfo{}, fmt.Errorf("allocating trigger array: %w", err)
	}
	slots := unsafe.Slice((*NativeTrigger)(ap), len(ts))
	for i, t := range ts {
		nt, err := t.MarshalNative(a)
		if err != nil {
			for j := 0; j < i; j++ {
				_ = slots[j].Free(a)
			}
			_ = a.Free(ap)
			return NativeTriggerInfo{}, fmt.Errorf("trigger %d: %w", i, err)
		}
		slots[i] = nt
	}
	return NativeTriggerInfo{
		TriggersCount: uint32(len(ts)),
		Triggers:      (*NativeTrigger)(ap),
	}, nil
}

// Free releases a marshaled trigger set and zeroes the struct.
func (ti *NativeTriggerInfo) Free(a nativemem.Allocator) error {
	if ti.Triggers != nil {
		ts := unsafe.Slice(ti.Triggers, ti.TriggersCount)
		for i := range ts {
			if err := ts[i].Free(a); err != nil {
				return fmt.Errorf("trigger %d: %w", i, err)
			}
		}
		if err := a.Free(unsafe.Pointer(ti.Triggers)); err != nil {
			return err
		}
		ti.Triggers = nil
	}
	ti.TriggersCount = 0
	ti.Reserved = nil
	return nil
}

// TriggersFromNative decodes a whole native trigger set.
func TriggersFromNative(ti NativeTriggerInfo) ([]Trigger, error) {
	if ti.TriggersCount == 0 {
		return nil, nil
	}
	if ti.Triggers == nil {
		return nil, fmt.Errorf("%d triggers with a null array pointer", ti.TriggersCount)
	}
	nts := unsafe.Slice(ti.Triggers, ti.TriggersCount)
	out := make([]Trigger, len(nts))
	for i := range nts {
		t, err := FromNative(nts[i])
		if err != nil {
			return nil, fmt.Errorf("trigger %d: %w", i, err)
		}
		out[i] = t
	}
	return out, nil
}
