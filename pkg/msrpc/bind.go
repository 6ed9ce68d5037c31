package msrpc

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/5amu/svctrig/pkg/encoder"
)

type BindContextEntry struct {
	ContextID             uint16
	TransItemCount        uint16
	InterfaceUUID         [16]byte
	InterfaceVersion      uint16
	InterfaceVersionMinor uint16
	TransferSyntaxUUID    [16]byte
	TransferSyntaxVersion uint32
}

// https://learn.microsoft.com/en-us/openspecs/windows_protocols/ms-rpce/a6b7b03c-4ac5-4c25-8c52-f2bec872ac97
type BindStruct struct {
	HeaderStruct
	MaxSendFrag  uint16
	MaxRecvFrag  uint16
	AssocGroup   uint32
	ContextCount uint32
	CtxEntries   []BindContextEntry
}

func NewBindStruct(syntax string, syntaxVer int, iface string, ifaceVer int, ifaceVerMinor int) *BindStruct {
	header := NewHeader()
	header.PacketType = PDUBind
	entry := BindContextEntry{
		ContextID:             0,
		TransItemCount:        1,
		InterfaceVersion:      uint16(ifaceVer),
		InterfaceVersionMinor: uint16(ifaceVerMinor),
		TransferSyntaxVersion: uint32(syntaxVer),
	}
	copy(entry.InterfaceUUID[:], encoder.UUIDFromString(iface))
	copy(entry.TransferSyntaxUUID[:], encoder.UUIDFromString(syntax))
	return &BindStruct{
		HeaderStruct: *header,
		MaxSendFrag:  4280,
		MaxRecvFrag:  4280,
		AssocGroup:   0,
		ContextCount: 1,
		CtxEntries:   []BindContextEntry{entry},
	}
}

func (req *BindStruct) Bytes() []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, req.HeaderStruct)
	_ = binary.Write(&buf, binary.LittleEndian, req.MaxSendFrag)
	_ = binary.Write(&buf, binary.LittleEndian, req.MaxRecvFrag)
	_ = binary.Write(&buf, binary.LittleEndian, req.AssocGroup)
	_ = binary.Write(&buf, binary.LittleEndian, req.ContextCount)
	for _, entry := range req.CtxEntries {
		_ = binary.Write(&buf, binary.LittleEndian, entry)
	}
	b := buf.Bytes()

	// Set FragLength to the size of the RPC request
	binary.LittleEndian.PutUint16(b[8:10], uint16(len(b)))
	return b
}

type AckResult struct {
	Result         uint16
	Reason         uint16
	TransferSyntax [16]byte
	SyntaxVersion  uint32
}

type AckResponse struct {
	MaxXmitFrag      uint16
	MaxRecvFrag      uint16
	AssocGroup       uint32
	SecondaryAddrLen uint16
	SecondaryAddr    []byte
	NumResults       uint8
	CtxItems         []AckResult
}

type VersionT struct {
	Major uint8
	Minor uint8
}

type PrtVersionsSupportedT struct {
	NProtocols uint8
	PProtocols []VersionT
}

type NackResponse struct {
	ProviderRejectReason uint16
	Versions             PrtVersionsSupportedT
	Signature            []byte // optional
	ExtendedErrorInfo    []byte
}

// Nack reasons
// https://learn.microsoft.com/en-us/openspecs/windows_protocols/ms-rpce/6f81bffe-8fce-498a-addf-94654a57b329
const (
	REASON_NOT_SPECIFIED               = 0x00
	TEMPORARY_CONGESTION               = 0x01 // not used
	LOCAL_LIMIT_EXCEEDED               = 0x02
	PROTOCOL_VERSION_NOT_SPECIFIED     = 0x04
	AUTHENTICATION_TYPE_NOT_RECOGNIZED = 0x08
	INVALID_CHECKSUM                   = 0x09
)

// Context negotiation results
const (
	ACCEPTANCE         = 0
	USER_REJECTION     = 1
	PROVIDER_REJECTION = 2
	NEGOTIATE_ACK      = 3
)

type BindResponse struct {
	HeaderStruct
	Body interface{}
}

func ParseBindResponse(res []byte) (br BindResponse, err error) {
	header, err := ParseHeader(res)
	if err != nil {
		return br, err
	}
	if len(res) < int(header.FragLength) {
		return br, fmt.Errorf("pdu is shorter than its frag length (%d < %d)", len(res), header.FragLength)
	}

	br.HeaderStruct = header
	b := res[HeaderSize:header.FragLength]

	switch br.PacketType {
	case PDUBindAck:
		if len(b) < 10 {
			return br, fmt.Errorf("ack response too small (<10 bytes)")
		}

		var ack AckResponse
		ack.MaxXmitFrag = binary.LittleEndian.Uint16(b[0:2])
		ack.MaxRecvFrag = binary.LittleEndian.Uint16(b[2:4])
		ack.AssocGroup = binary.LittleEndian.Uint32(b[4:8])
		ack.SecondaryAddrLen = binary.LittleEndian.Uint16(b[8:10])

		// the secondary address is followed by padding so that the
		// result list lands on a 4 byte boundary
		off := 10 + int(ack.SecondaryAddrLen)
		if len(b) < off {
			return br, fmt.Errorf("ack response too small (<%d bytes)", off)
		}
		ack.SecondaryAddr = b[10:off]
		off = roundup(off, 4)

		if len(b) < off+4 {
			return br, fmt.Errorf("ack response too small (<%d bytes)", off+4)
		}
		ack.NumResults = b[off]
		off += 4

		l := off + int(ack.NumResults)*24
		if len(b) < l {
			return br, fmt.Errorf("ack response too small (<%d bytes)", l)
		}
		for i := 0; i < int(ack.NumResults); i++ {
			var ackRes AckResult
			ackRes.Result = binary.LittleEndian.Uint16(b[off : off+2])
			ackRes.Reason = binary.LittleEndian.Uint16(b[off+2 : off+4])
			copy(ackRes.TransferSyntax[:], b[off+4:off+20])
			ackRes.SyntaxVersion = binary.LittleEndian.Uint32(b[off+20 : off+24])
			off += 24
			ack.CtxItems = append(ack.CtxItems, ackRes)
		}
		br.Body = ack
		return br, nil
	case PDUBindNak:
		// https://learn.microsoft.com/en-us/openspecs/windows_protocols/ms-rpce/92ba4942-0b1f-41aa-8924-69dd6e49b546
		//
		// typedef struct {
		//	u_int8 n_protocols; /* count */
		// 	p_rt_version_t [size_is(n_protocols)] p_protocols[];
		// } p_rt_versions_supported_t;
		//
		// typedef version_t p_rt_version_t;
		//
		// typedef struct {
		//	u_int8 major;
		//	u_int8 minor;
		// } version_t;
		if len(b) < 3 {
			return br, fmt.Errorf("nack response too small (<3 bytes)")
		}

		var nack NackResponse
		nack.ProviderRejectReason = binary.LittleEndian.Uint16(b[0:2])
		nack.Versions.NProtocols = b[2]

		l := 3 + int(nack.Versions.NProtocols)*2
		if len(b) < l {
			return br, fmt.Errorf("nack response too small (<%d bytes)", l)
		}

		off := 3
		for i := 0; i < int(nack.Versions.NProtocols); i++ {
			var vers VersionT
			vers.Major = b[off]
			vers.Minor = b[off+1]
			off += 2
			nack.Versions.PProtocols = append(nack.Versions.PProtocols, vers)
		}

		// if the body extends past the protocol versions => signature
		if len(b) >= off+16 {
			nack.Signature = b[off : off+16]
		}

		// there might be an extended blob present
		if len(b) > off+16 {
			nack.ExtendedErrorInfo = b[off+16:]
		}
		br.Body = nack
		return br, NackReason(br)
	}
	return br, fmt.Errorf("unexpected bind response")
}

func NackReason(br BindResponse) error {
	nack, ok := br.Body.(NackResponse)
	if !ok {
		return fmt.Errorf("not a NackResponse")
	}

	switch nack.ProviderRejectReason {
	case REASON_NOT_SPECIFIED:
		return fmt.Errorf("error code %d: REASON_NOT_SPECIFIED", nack.ProviderRejectReason)
	case TEMPORARY_CONGESTION:
		return fmt.Errorf("error code %d: TEMPORARY_CONGESTION", nack.ProviderRejectReason)
	case LOCAL_LIMIT_EXCEEDED:
		return fmt.Errorf("error code %d: LOCAL_LIMIT_EXCEEDED", nack.ProviderRejectReason)
	case PROTOCOL_VERSION_NOT_SPECIFIED:
		return fmt.Errorf("error code %d: PROTOCOL_VERSION_NOT_SPECIFIED", nack.ProviderRejectReason)
	case AUTHENTICATION_TYPE_NOT_RECOGNIZED:
		return fmt.Errorf("error code %d: AUTHENTICATION_TYPE_NOT_RECOGNIZED", nack.ProviderRejectReason)
	case INVALID_CHECKSUM:
		return fmt.Errorf("error code %d: INVALID_CHECKSUM", nack.ProviderRejectReason)
	default:
		return fmt.Errorf("unknown code %d", nack.ProviderRejectReason)
	}
}
