package msrpc

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

// Client drives request/response calls on one bound connection. It does
// not own the transport; callers dial and close it.
type Client struct {
	// expose functions like the Conn interface https://pkg.go.dev/net#Conn
	// could also be using a named pipe or NETBIOS, as long as the methods
	// are exposed correctly
	Transport net.Conn

	// X64Syntax binds the NDR64 transfer syntax instead of NDR32.
	X64Syntax bool

	callId uint32
	bound  bool
}

func (c *Client) nextCallId() uint32 {
	c.callId++
	return c.callId
}

// Bind negotiates a presentation context for the given interface. It must
// succeed before Call can be used.
func (c *Client) Bind(iface string, ver, verMinor int) error {
	syntax := MSRPC_NDR32
	if c.X64Syntax {
		syntax = MSRPC_NDR64
	}

	req := NewBindStruct(syntax.UUID, syntax.Version, iface, ver, verMinor)
	req.CallId = c.nextCallId()
	if _, err := c.Transport.Write(req.Bytes()); err != nil {
		return fmt.Errorf("sending bind: %w", err)
	}

	res, err := c.readPDU()
	if err != nil {
		return err
	}
	br, err := ParseBindResponse(res)
	if err != nil {
		return fmt.Errorf("bind rejected: %w", err)
	}
	ack, ok := br.Body.(AckResponse)
	if !ok {
		return fmt.Errorf("bind rejected: unexpected body")
	}
	if len(ack.CtxItems) < 1 || ack.CtxItems[0].Result != ACCEPTANCE {
		return fmt.Errorf("bind context rejected: %+v", ack.CtxItems)
	}
	c.bound = true
	return nil
}

// Call sends one request and reassembles the response stub across
// fragments.
func (c *Client) Call(opnum uint16, stub []byte) ([]byte, error) {
	if !c.bound {
		return nil, fmt.Errorf("client is not bound to an interface")
	}

	req := NewRequest(c.nextCallId(), opnum, stub)
	if _, err := c.Transport.Write(req.Bytes()); err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}

	var out []byte
	for {
		raw, err := c.readPDU()
		if err != nil {
			return nil, err
		}
		rs, err := ParseResponse(raw)
		if err != nil {
			return nil, err
		}
		if rs.CallId != req.CallId {
			return nil, fmt.Errorf("response call id %d does not match request %d", rs.CallId, req.CallId)
		}
		out = append(out, rs.Stub...)
		if rs.PacketFlags&LastFrag != 0 {
			return out, nil
		}
	}
}

// readPDU reads exactly one PDU off the transport: the common header
// first, then the rest of the fragment.
func (c *Client) readPDU() ([]byte, error) {
	hdr := make([]byte, HeaderSize)
	if _, err := io.ReadFull(c.Transport, hdr); err != nil {
		return nil, fmt.Errorf("reading pdu header: %w", err)
	}
	fragLen := binary.LittleEndian.Uint16(hdr[8:10])
	if int(fragLen) < HeaderSize {
		return nil, fmt.Errorf("invalid frag length %d", fragLen)
	}
	pdu := make([]byte, fragLen)
	copy(pdu, hdr)
	if _, err := io.ReadFull(c.Transport, pdu[HeaderSize:]); err != nil {
		return nil, fmt.Errorf("reading pdu body: %w", err)
	}
	return pdu, nil
}
