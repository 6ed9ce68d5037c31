// Package msrpc speaks connection-oriented DCE/RPC (MS-RPCE) over any
// stream transport, enough to drive the remote service control manager.
package msrpc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/rand"
)

// HeaderSize is the size of the common PDU header shared by every
// connection-oriented packet type.
const HeaderSize = 16

// PDU PacketType
// https://pubs.opengroup.org/onlinepubs/9629399/chap12.htm
const (
	PDURequest = iota
	PDUPing
	PDUResponse
	PDUFault
	PDUWorking
	PDUNoCall
	PDUReject
	PDUAck
	PDUClCancel
	PDUFack
	PDUCancelAck
	PDUBind
	PDUBindAck
	PDUBindNak
	PDUAlterContext
	PDUAlterContextResp
	PDUShutdown
	PDUCoCancel
	PDUOrphaned
)

// PDU PacketFlags
// https://pubs.opengroup.org/onlinepubs/9629399/chap12.htm
const (
	FirstFrag          = 0x01
	LastFrag           = 0x02
	PDUFlagPending     = 0x03
	CancelPending      = 0x04
	PDUFlagNoFack      = 0x08
	PDUFlagMayBe       = 0x10
	PDUFlagIdemPotent  = 0x20
	PDUFlagBroadcast   = 0x40
	PDUFlagReserved_80 = 0x80
)

// Supported version is 5.0
const (
	PDUVersion      = 5
	PDUVersionMinor = 0
)

type HeaderStruct struct {
	RpcVersion         uint8
	RpcVersionMinor    uint8
	PacketType         uint8
	PacketFlags        byte
	DataRepresentation [4]byte
	FragLength         uint16
	AuthLength         uint16
	CallId             uint32
}

func NewHeader() *HeaderStruct {
	return &HeaderStruct{
		RpcVersion:         PDUVersion,
		RpcVersionMinor:    PDUVersionMinor,
		PacketType:         PDURequest,
		PacketFlags:        FirstFrag | LastFrag,
		DataRepresentation: [4]byte{0x10, 0, 0, 0}, // Little-Endian, float = IEEE, char = ASCII
		FragLength:         0,                      // must be updated before sending
		AuthLength:         0,
		CallId:             rand.Uint32(),
	}
}

// ParseHeader decodes the common header at the start of any PDU.
func ParseHeader(b []byte) (HeaderStruct, error) {
	var h HeaderStruct
	if len(b) < HeaderSize {
		return h, fmt.Errorf("pdu is too short (<%d bytes)", HeaderSize)
	}
	if err := binary.Read(bytes.NewReader(b[:HeaderSize]), binary.LittleEndian, &h); err != nil {
		return h, err
	}
	if h.RpcVersion != PDUVersion || h.RpcVersionMinor != PDUVersionMinor {
		return h, fmt.Errorf("unsupported rpc version %d.%d", h.RpcVersion, h.RpcVersionMinor)
	}
	return h, nil
}

type ResponseStruct struct {
	HeaderStruct
	AllocHint   uint32 // len of stub
	ContextID   uint16
	CancelCount uint8
	Reserved    uint8
	Stub        []byte
}

// ParseResponse decodes a single response PDU. The stub is the NDR body
// of this fragment only; callers accumulate stubs until a fragment with
// the LastFrag flag arrives. A fault PDU decodes into an error carrying
// the fault status.
func ParseResponse(b []byte) (rs ResponseStruct, err error) {
	header, err := ParseHeader(b)
	if err != nil {
		return rs, err
	}
	if len(b) < int(header.FragLength) {
		return rs, fmt.Errorf("pdu is shorter than its frag length (%d < %d)", len(b), header.FragLength)
	}
	if header.AuthLength != 0 {
		return rs, fmt.Errorf("authenticated pdus are not supported")
	}

	switch header.PacketType {
	case PDUResponse:
	case PDUFault:
		if len(b) < 28 {
			return rs, fmt.Errorf("fault pdu is too short (<28 bytes)")
		}
		return rs, fmt.Errorf("fault pdu: status 0x%08x", binary.LittleEndian.Uint32(b[24:28]))
	default:
		return rs, fmt.Errorf("unexpected packet type %d", header.PacketType)
	}

	if header.FragLength < 24 {
		return rs, fmt.Errorf("response is too short (<24 bytes)")
	}

	rs.HeaderStruct = header
	rs.AllocHint = binary.LittleEndian.Uint32(b[16:20])
	rs.ContextID = binary.LittleEndian.Uint16(b[20:22])
	rs.CancelCount = b[22]
	rs.Reserved = b[23]
	rs.Stub = b[24:header.FragLength]
	return rs, nil
}
