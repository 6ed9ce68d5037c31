package msrpc

import (
	"bytes"
	"encoding/binary"
)

type RequestStruct struct {
	HeaderStruct
	AllocHint uint32
	ContextID uint16
	OpNum     uint16
	Stub      []byte
}

// NewRequest builds a request PDU around an already encoded NDR stub.
func NewRequest(callId uint32, opnum uint16, stub []byte) *RequestStruct {
	header := NewHeader()
	header.CallId = callId
	return &RequestStruct{
		HeaderStruct: *header,
		ContextID:    0,
		OpNum:        opnum,
		Stub:         stub,
	}
}

func (req *RequestStruct) Bytes() []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, req.HeaderStruct)
	_ = binary.Write(&buf, binary.LittleEndian, req.AllocHint)
	_ = binary.Write(&buf, binary.LittleEndian, req.ContextID)
	_ = binary.Write(&buf, binary.LittleEndian, req.OpNum)
	buf.Write(req.Stub)
	b := buf.Bytes()
	sz := len(b)

	// Set FragLength to the size of the RPC request
	binary.LittleEndian.PutUint16(b[8:10], uint16(sz))

	// Set AllocHint to the size of the RPC body (the header is 24 bytes)
	binary.LittleEndian.PutUint32(b[16:20], uint32(sz)-24)
	return b
}
