package msrpc

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/5amu/svctrig/pkg/encoder"
	"github.com/5amu/svctrig/pkg/mstypes"
	"github.com/5amu/svctrig/pkg/trigger"
)

var le = binary.LittleEndian

// IDL range limits on SERVICE_TRIGGER_INFO and its members
// https://learn.microsoft.com/en-us/openspecs/windows_protocols/ms-scmr/0c85a18c-a275-4632-a956-2b6bc114fa64
const (
	MaxTriggers        = 64
	MaxTriggerItems    = 64
	MaxTriggerDataSize = 1024
)

// refGen hands out NDR referent ids in the order the pointer fields
// appear on the wire.
type refGen uint32

func (g *refGen) next() uint32 {
	*g++
	return uint32(*g)
}

// NewTriggerChangeStub builds the request stub for RChangeServiceConfig2W
// carrying a SERVICE_TRIGGER_INFO: the service handle, then the
// SC_RPC_CONFIG_INFOW union with the trigger info as its selected arm.
func NewTriggerChangeStub(handle [20]byte, ts []trigger.Trigger) ([]byte, error) {
	var g refGen
	var buf bytes.Buffer
	buf.Write(handle[:])
	_ = binary.Write(&buf, le, uint32(SERVICE_CONFIG_TRIGGER_INFO))
	// the union encodes its discriminant again before the selected arm
	_ = binary.Write(&buf, le, uint32(SERVICE_CONFIG_TRIGGER_INFO))
	_ = binary.Write(&buf, le, g.next())
	body, err := encodeTriggerInfo(&g, ts)
	if err != nil {
		return nil, err
	}
	buf.Write(body)
	return buf.Bytes(), nil
}

// EncodeTriggerInfo encodes a trigger set as the NDR wire form of
// SERVICE_TRIGGER_INFO, the layout RChangeServiceConfig2W carries inside
// its config union.
func EncodeTriggerInfo(ts []trigger.Trigger) ([]byte, error) {
	var g refGen
	return encodeTriggerInfo(&g, ts)
}

func encodeTriggerInfo(g *refGen, ts []trigger.Trigger) ([]byte, error) {
	if len(ts) > MaxTriggers {
		return nil, fmt.Errorf("%d triggers exceed the protocol maximum of %d", len(ts), MaxTriggers)
	}

	var buf bytes.Buffer
	_ = binary.Write(&buf, le, uint32(len(ts)))
	if len(ts) == 0 {
		_ = binary.Write(&buf, le, uint32(0)) // null pTriggers
		_ = binary.Write(&buf, le, uint32(0)) // null pReserved
		return buf.Bytes(), nil
	}
	_ = binary.Write(&buf, le, g.next()) // pTriggers
	_ = binary.Write(&buf, le, uint32(0))

	// conformant array: the element count, the flat part of every
	// element, then each element's pointees in order
	_ = binary.Write(&buf, le, uint32(len(ts)))

	payloads := make([][][]byte, len(ts))
	for i, t := range ts {
		items := t.DataItems()
		if len(items) > MaxTriggerItems {
			return nil, fmt.Errorf("trigger %d: %d data items exceed the protocol maximum of %d", i, len(items), MaxTriggerItems)
		}
		payloads[i] = make([][]byte, len(items))
		for j, d := range items {
			p, err := d.PayloadBytes()
			if err != nil {
				return nil, fmt.Errorf("trigger %d data item %d: %w", i, j, err)
			}
			if len(p) > MaxTriggerDataSize {
				return nil, fmt.Errorf("trigger %d data item %d: %d payload bytes exceed the protocol maximum of %d", i, j, len(p), MaxTriggerDataSize)
			}
			payloads[i][j] = p
		}

		_ = binary.Write(&buf, le, uint32(t.Type()))
		_ = binary.Write(&buf, le, uint32(t.Action()))
		_ = binary.Write(&buf, le, g.next()) // pTriggerSubtype
		_ = binary.Write(&buf, le, uint32(len(items)))
		if len(items) == 0 {
			_ = binary.Write(&buf, le, uint32(0)) // null pDataItems
		} else {
			_ = binary.Write(&buf, le, g.next())
		}
	}

	for i, t := range ts {
		sub := t.Subtype()
		buf.Write(sub.Bytes())
		items := t.DataItems()
		if len(items) == 0 {
			continue
		}
		_ = binary.Write(&buf, le, uint32(len(items)))
		for j, d := range items {
			_ = binary.Write(&buf, le, uint32(d.Type()))
			_ = binary.Write(&buf, le, uint32(len(payloads[i][j])))
			if payloads[i][j] == nil {
				_ = binary.Write(&buf, le, uint32(0)) // null pData
			} else {
				_ = binary.Write(&buf, le, g.next())
			}
		}
		for _, p := range payloads[i] {
			if p == nil {
				continue
			}
			_ = binary.Write(&buf, le, uint32(len(p)))
			buf.Write(p)
			buf.Write(make([]byte, roundup(len(p), 4)-len(p)))
		}
	}
	return buf.Bytes(), nil
}

type stubReader struct {
	b   []byte
	off int
}

func (r *stubReader) u32() (uint32, error) {
	if r.off+4 > len(r.b) {
		return 0, fmt.Errorf("stub truncated at offset %d", r.off)
	}
	v := le.Uint32(r.b[r.off : r.off+4])
	r.off += 4
	return v, nil
}

func (r *stubReader) take(n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.b) {
		return nil, fmt.Errorf("stub truncated at offset %d", r.off)
	}
	v := r.b[r.off : r.off+n]
	r.off += n
	return v, nil
}

func (r *stubReader) align4() {
	r.off = roundup(r.off, 4)
}

// DecodeTriggerInfo decodes the NDR wire form of SERVICE_TRIGGER_INFO as
// produced by EncodeTriggerInfo. Referent ids only matter as null against
// non-null; payload bytes are copied out of the stub.
func DecodeTriggerInfo(b []byte) ([]trigger.Trigger, error) {
	r := &stubReader{b: b}
	count, err := r.u32()
	if err != nil {
		return nil, err
	}
	if count > MaxTriggers {
		return nil, fmt.Errorf("%d triggers exceed the protocol maximum of %d", count, MaxTriggers)
	}
	trigRef, err := r.u32()
	if err != nil {
		return nil, err
	}
	if _, err := r.u32(); err != nil { // pReserved
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	if trigRef == 0 {
		return nil, fmt.Errorf("%d triggers with a null array referent", count)
	}
	maxCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	if maxCount != count {
		return nil, fmt.Errorf("conformant count %d does not match cTriggers %d", maxCount, count)
	}

	type flatTrigger struct {
		typ, action, subRef, itemCount, itemsRef uint32
	}
	flats := make([]flatTrigger, count)
	for i := range flats {
		var ft flatTrigger
		fields := []*uint32{&ft.typ, &ft.action, &ft.subRef, &ft.itemCount, &ft.itemsRef}
		for _, f := range fields {
			if *f, err = r.u32(); err != nil {
				return nil, err
			}
		}
		if ft.itemCount > MaxTriggerItems {
			return nil, fmt.Errorf("trigger %d: %d data items exceed the protocol maximum of %d", i, ft.itemCount, MaxTriggerItems)
		}
		if ft.itemCount > 0 && ft.itemsRef == 0 {
			return nil, fmt.Errorf("trigger %d: %d data items with a null array referent", i, ft.itemCount)
		}
		flats[i] = ft
	}

	out := make([]trigger.Trigger, count)
	for i, ft := range flats {
		var sub mstypes.GUID
		if ft.subRef != 0 {
			gb, err := r.take(16)
			if err != nil {
				return nil, err
			}
			if sub, err = mstypes.GUIDFromBytes(gb); err != nil {
				return nil, fmt.Errorf("trigger %d subtype: %w", i, err)
			}
		}
		var items []trigger.Data
		if ft.itemsRef != 0 {
			mc, err := r.u32()
			if err != nil {
				return nil, err
			}
			if mc != ft.itemCount {
				return nil, fmt.Errorf("trigger %d: conformant count %d does not match cDataItems %d", i, mc, ft.itemCount)
			}
			type flatItem struct {
				typ, size, ref uint32
			}
			fitems := make([]flatItem, ft.itemCount)
			for j := range fitems {
				var fi flatItem
				fields := []*uint32{&fi.typ, &fi.size, &fi.ref}
				for _, f := range fields {
					if *f, err = r.u32(); err != nil {
						return nil, err
					}
				}
				if fi.size > MaxTriggerDataSize {
					return nil, fmt.Errorf("trigger %d data item %d: %d payload bytes exceed the protocol maximum of %d", i, j, fi.size, MaxTriggerDataSize)
				}
				fitems[j] = fi
			}
			items = make([]trigger.Data, ft.itemCount)
			for j, fi := range fitems {
				var payload []byte
				if fi.ref != 0 {
					mcd, err := r.u32()
					if err != nil {
						return nil, err
					}
					if mcd != fi.size {
						return nil, fmt.Errorf("trigger %d data item %d: conformant count %d does not match cbData %d", i, j, mcd, fi.size)
					}
					p, err := r.take(int(fi.size))
					if err != nil {
						return nil, err
					}
					payload = append([]byte(nil), p...)
					r.align4()
				}
				d, err := wireData(fi.typ, payload, fi.ref == 0)
				if err != nil {
					return nil, fmt.Errorf("trigger %d data item %d: %w", i, j, err)
				}
				items[j] = d
			}
		}
		out[i] = trigger.New(trigger.Type(ft.typ), trigger.Action(ft.action), sub, items)
	}
	return out, nil
}

// wireData rebuilds a data item from its wire fields. A null payload
// referent keeps binary items nil and string items empty.
func wireData(dataType uint32, payload []byte, null bool) (trigger.Data, error) {
	switch trigger.DataType(dataType) {
	case trigger.SERVICE_TRIGGER_DATA_TYPE_BINARY:
		if null {
			return trigger.BinaryData(nil), nil
		}
		if payload == nil {
			payload = []byte{}
		}
		return trigger.BinaryData(payload), nil
	case trigger.SERVICE_TRIGGER_DATA_TYPE_STRING:
		if null {
			return trigger.StringData(""), nil
		}
		return trigger.StringData(encoder.UnicodeToString(payload)), nil
	}
	return trigger.Data{}, fmt.Errorf("%w: %d", trigger.ErrUnknownDataType, dataType)
}

// EncodeTriggerInfoImage lays a trigger set out the way
// RQueryServiceConfig2W returns it: a single contiguous buffer holding
// SERVICE_TRIGGER_INFO with every pointer field replaced by the offset
// of its target from the start of the buffer. ptrSize is the pointer
// width of the address space the image describes, 4 or 8.
func EncodeTriggerInfoImage(ts []trigger.Trigger, ptrSize int) ([]byte, error) {
	if ptrSize != 4 && ptrSize != 8 {
		return nil, fmt.Errorf("pointer size must be 4 or 8, got %d", ptrSize)
	}
	if len(ts) > MaxTriggers {
		return nil, fmt.Errorf("%d triggers exceed the protocol maximum of %d", len(ts), MaxTriggers)
	}

	hdrSize := roundup(4, ptrSize) + 2*ptrSize
	itemsPtrOff := roundup(8+ptrSize+4, ptrSize)
	trigSize := itemsPtrOff + ptrSize
	itemSize := 8 + ptrSize

	off := hdrSize
	trigBase := off
	off += len(ts) * trigSize

	subOff := make([]int, len(ts))
	itemsOff := make([]int, len(ts))
	payloads := make([][][]byte, len(ts))
	dataOff := make([][]int, len(ts))
	for i, t := range ts {
		items := t.DataItems()
		if len(items) > MaxTriggerItems {
			return nil, fmt.Errorf("trigger %d: %d data items exceed the protocol maximum of %d", i, len(items), MaxTriggerItems)
		}
		subOff[i] = off
		off += 16
		if len(items) > 0 {
			itemsOff[i] = off
			off += len(items) * itemSize
		}
		payloads[i] = make([][]byte, len(items))
		dataOff[i] = make([]int, len(items))
		for j, d := range items {
			p, err := d.PayloadBytes()
			if err != nil {
				return nil, fmt.Errorf("trigger %d data item %d: %w", i, j, err)
			}
			if len(p) > MaxTriggerDataSize {
				return nil, fmt.Errorf("trigger %d data item %d: %d payload bytes exceed the protocol maximum of %d", i, j, len(p), MaxTriggerDataSize)
			}
			payloads[i][j] = p
			if p != nil {
				dataOff[i][j] = off
				off += roundup(len(p), ptrSize)
			}
		}
	}

	b := make([]byte, off)
	le.PutUint32(b[0:4], uint32(len(ts)))
	if len(ts) > 0 {
		putPtr(b, roundup(4, ptrSize), uint64(trigBase), ptrSize)
	}
	// pReserved stays zero
	for i, t := range ts {
		o := trigBase + i*trigSize
		le.PutUint32(b[o:], uint32(t.Type()))
		le.PutUint32(b[o+4:], uint32(t.Action()))
		putPtr(b, o+8, uint64(subOff[i]), ptrSize)
		le.PutUint32(b[o+8+ptrSize:], uint32(len(payloads[i])))
		putPtr(b, o+itemsPtrOff, uint64(itemsOff[i]), ptrSize)

		sub := t.Subtype()
		copy(b[subOff[i]:], sub.Bytes())
		items := t.DataItems()
		for j, p := range payloads[i] {
			io := itemsOff[i] + j*itemSize
			le.PutUint32(b[io:], uint32(items[j].Type()))
			le.PutUint32(b[io+4:], uint32(len(p)))
			putPtr(b, io+8, uint64(dataOff[i][j]), ptrSize)
			if p != nil {
				copy(b[dataOff[i][j]:], p)
			}
		}
	}
	return b, nil
}

// DecodeTriggerInfoImage decodes a buffer produced by
// EncodeTriggerInfoImage or returned by RQueryServiceConfig2W. The
// buffer comes from the remote side, so every offset and count is range
// checked before use.
func DecodeTriggerInfoImage(b []byte, ptrSize int) ([]trigger.Trigger, error) {
	if ptrSize != 4 && ptrSize != 8 {
		return nil, fmt.Errorf("pointer size must be 4 or 8, got %d", ptrSize)
	}

	hdrSize := roundup(4, ptrSize) + 2*ptrSize
	itemsPtrOff := roundup(8+ptrSize+4, ptrSize)
	trigSize := itemsPtrOff + ptrSize
	itemSize := 8 + ptrSize

	if len(b) < hdrSize {
		return nil, fmt.Errorf("trigger info image is %d bytes, need at least %d", len(b), hdrSize)
	}
	count := le.Uint32(b[0:4])
	if count > MaxTriggers {
		return nil, fmt.Errorf("%d triggers exceed the protocol maximum of %d", count, MaxTriggers)
	}
	if count == 0 {
		return nil, nil
	}
	trigBase := getPtr(b, roundup(4, ptrSize), ptrSize)
	if trigBase == 0 {
		return nil, fmt.Errorf("%d triggers with a null array offset", count)
	}
	if err := imageRange(b, trigBase, int(count)*trigSize); err != nil {
		return nil, err
	}

	out := make([]trigger.Trigger, count)
	for i := range out {
		o := int(trigBase) + i*trigSize
		typ := le.Uint32(b[o:])
		action := le.Uint32(b[o+4:])
		sOff := getPtr(b, o+8, ptrSize)
		cItems := le.Uint32(b[o+8+ptrSize:])
		iOff := getPtr(b, o+itemsPtrOff, ptrSize)
		if cItems > MaxTriggerItems {
			return nil, fmt.Errorf("trigger %d: %d data items exceed the protocol maximum of %d", i, cItems, MaxTriggerItems)
		}

		var sub mstypes.GUID
		if sOff != 0 {
			if err := imageRange(b, sOff, 16); err != nil {
				return nil, fmt.Errorf("trigger %d subtype: %w", i, err)
			}
			var err error
			if sub, err = mstypes.GUIDFromBytes(b[sOff : sOff+16]); err != nil {
				return nil, fmt.Errorf("trigger %d subtype: %w", i, err)
			}
		}

		var items []trigger.Data
		if cItems > 0 {
			if iOff == 0 {
				return nil, fmt.Errorf("trigger %d: %d data items with a null array offset", i, cItems)
			}
			if err := imageRange(b, iOff, int(cItems)*itemSize); err != nil {
				return nil, fmt.Errorf("trigger %d data items: %w", i, err)
			}
			items = make([]trigger.Data, cItems)
			for j := range items {
				io := int(iOff) + j*itemSize
				dtyp := le.Uint32(b[io:])
				size := le.Uint32(b[io+4:])
				dOff := getPtr(b, io+8, ptrSize)
				if size > MaxTriggerDataSize {
					return nil, fmt.Errorf("trigger %d data item %d: %d payload bytes exceed the protocol maximum of %d", i, j, size, MaxTriggerDataSize)
				}
				var payload []byte
				if dOff != 0 {
					if err := imageRange(b, dOff, int(size)); err != nil {
						return nil, fmt.Errorf("trigger %d data item %d: %w", i, j, err)
					}
					payload = append([]byte(nil), b[dOff:dOff+uint64(size)]...)
				}
				d, err := wireData(dtyp, payload, dOff == 0)
				if err != nil {
					return nil, fmt.Errorf("trigger %d data item %d: %w", i, j, err)
				}
				items[j] = d
			}
		}
		out[i] = trigger.New(trigger.Type(typ), trigger.Action(action), sub, items)
	}
	return out, nil
}

func putPtr(b []byte, off int, v uint64, ptrSize int) {
	if ptrSize == 8 {
		le.PutUint64(b[off:], v)
		return
	}
	le.PutUint32(b[off:], uint32(v))
}

func getPtr(b []byte, off, ptrSize int) uint64 {
	if ptrSize == 8 {
		return le.Uint64(b[off:])
	}
	return uint64(le.Uint32(b[off:]))
}

func imageRange(b []byte, off uint64, n int) error {
	if off > uint64(len(b)) || uint64(len(b))-off < uint64(n) {
		return fmt.Errorf("offset %d with %d bytes runs past the %d byte buffer", off, n, len(b))
	}
	return nil
}
