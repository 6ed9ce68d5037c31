package msrpc_test

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net"
	"reflect"
	"strings"
	"testing"

	"github.com/5amu/svctrig/pkg/msrpc"
	"github.com/5amu/svctrig/pkg/trigger"
)

func testHandle() (h [20]byte) {
	for i := range h {
		h[i] = byte(i + 1)
	}
	return h
}

func TestNewTriggerChangeStub(t *testing.T) {
	handle := testHandle()
	ts := mixedTriggers()
	stub, err := msrpc.NewTriggerChangeStub(handle, ts)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(stub[0:20], handle[:]) {
		t.Errorf("handle = %x", stub[0:20])
	}
	if got := binary.LittleEndian.Uint32(stub[20:24]); got != msrpc.SERVICE_CONFIG_TRIGGER_INFO {
		t.Errorf("dwInfoLevel = %d", got)
	}
	// the union repeats its discriminant before the selected arm
	if got := binary.LittleEndian.Uint32(stub[24:28]); got != msrpc.SERVICE_CONFIG_TRIGGER_INFO {
		t.Errorf("union discriminant = %d", got)
	}
	if binary.LittleEndian.Uint32(stub[28:32]) == 0 {
		t.Error("union arm referent is null")
	}

	got, err := msrpc.DecodeTriggerInfo(stub[32:])
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, ts) {
		t.Fatalf("embedded trigger info mismatch:\n got %v\nwant %v", got, ts)
	}
}

func changeHandler(level uint32, sink *[][]trigger.Trigger, ret uint32) func(uint16, []byte) ([]byte, error) {
	return func(opnum uint16, stub []byte) ([]byte, error) {
		if opnum != msrpc.RChangeServiceConfig2W {
			return nil, fmt.Errorf("opnum = %d", opnum)
		}
		if len(stub) < 32 {
			return nil, fmt.Errorf("stub is %d bytes", len(stub))
		}
		if got := binary.LittleEndian.Uint32(stub[20:24]); got != level {
			return nil, fmt.Errorf("info level = %d", got)
		}
		ts, err := msrpc.DecodeTriggerInfo(stub[32:])
		if err != nil {
			return nil, err
		}
		*sink = append(*sink, ts)
		out := make([]byte, 4)
		binary.LittleEndian.PutUint32(out, ret)
		return out, nil
	}
}

func TestChangeServiceTriggersRPC(t *testing.T) {
	cliConn, srvConn := net.Pipe()
	var seen [][]trigger.Trigger
	errc := make(chan error, 1)
	go func() {
		errc <- serveSCM(srvConn, 0, changeHandler(msrpc.SERVICE_CONFIG_TRIGGER_INFO, &seen, msrpc.ERROR_SUCCESS))
	}()

	c := &msrpc.Client{Transport: cliConn}
	if err := c.Bind(msrpc.SCMRUUID, msrpc.SCMRVersion, msrpc.SCMRVersionMinor); err != nil {
		t.Fatal(err)
	}
	ts := mixedTriggers()
	if err := msrpc.ChangeServiceTriggers(c, testHandle(), ts); err != nil {
		t.Fatal(err)
	}
	// an empty set clears the triggers off the service
	if err := msrpc.ChangeServiceTriggers(c, testHandle(), nil); err != nil {
		t.Fatal(err)
	}
	cliConn.Close()
	if err := <-errc; err != nil {
		t.Fatal(err)
	}

	if len(seen) != 2 {
		t.Fatalf("server saw %d change calls", len(seen))
	}
	if !reflect.DeepEqual(seen[0], ts) {
		t.Fatalf("server decoded %v, want %v", seen[0], ts)
	}
	if seen[1] != nil {
		t.Fatalf("clearing call carried %v", seen[1])
	}
}

func TestChangeServiceTriggersDenied(t *testing.T) {
	cliConn, srvConn := net.Pipe()
	var seen [][]trigger.Trigger
	errc := make(chan error, 1)
	go func() {
		errc <- serveSCM(srvConn, 0, changeHandler(msrpc.SERVICE_CONFIG_TRIGGER_INFO, &seen, msrpc.ERROR_ACCESS_DENIED))
	}()

	c := &msrpc.Client{Transport: cliConn}
	if err := c.Bind(msrpc.SCMRUUID, msrpc.SCMRVersion, msrpc.SCMRVersionMinor); err != nil {
		t.Fatal(err)
	}
	err := msrpc.ChangeServiceTriggers(c, testHandle(), mixedTriggers())
	if err == nil || !strings.Contains(err.Error(), "ERROR_ACCESS_DENIED") {
		t.Fatalf("err = %v", err)
	}
	cliConn.Close()
	if err := <-errc; err != nil {
		t.Fatal(err)
	}
}

func queryHandler(image []byte) func(uint16, []byte) ([]byte, error) {
	return func(opnum uint16, stub []byte) ([]byte, error) {
		if opnum != msrpc.RQueryServiceConfig2W {
			return nil, fmt.Errorf("opnum = %d", opnum)
		}
		if len(stub) != 28 {
			return nil, fmt.Errorf("stub is %d bytes", len(stub))
		}
		if got := binary.LittleEndian.Uint32(stub[20:24]); got != msrpc.SERVICE_CONFIG_TRIGGER_INFO {
			return nil, fmt.Errorf("info level = %d", got)
		}
		bufSize := binary.LittleEndian.Uint32(stub[24:28])

		var out bytes.Buffer
		if int(bufSize) < len(image) {
			_ = binary.Write(&out, binary.LittleEndian, uint32(0))
			_ = binary.Write(&out, binary.LittleEndian, uint32(len(image)))
			_ = binary.Write(&out, binary.LittleEndian, uint32(msrpc.ERROR_INSUFFICIENT_BUFFER))
			return out.Bytes(), nil
		}
		_ = binary.Write(&out, binary.LittleEndian, uint32(len(image)))
		out.Write(image)
		for out.Len()%4 != 0 {
			out.WriteByte(0)
		}
		_ = binary.Write(&out, binary.LittleEndian, uint32(len(image)))
		_ = binary.Write(&out, binary.LittleEndian, uint32(msrpc.ERROR_SUCCESS))
		return out.Bytes(), nil
	}
}

func TestQueryServiceTriggersRPC(t *testing.T) {
	ts := mixedTriggers()
	for _, ptrSize := range []int{4, 8} {
		image, err := msrpc.EncodeTriggerInfoImage(ts, ptrSize)
		if err != nil {
			t.Fatal(err)
		}

		cliConn, srvConn := net.Pipe()
		errc := make(chan error, 1)
		go func() {
			errc <- serveSCM(srvConn, 0, queryHandler(image))
		}()

		c := &msrpc.Client{Transport: cliConn}
		if err := c.Bind(msrpc.SCMRUUID, msrpc.SCMRVersion, msrpc.SCMRVersionMinor); err != nil {
			t.Fatal(err)
		}
		got, err := msrpc.QueryServiceTriggers(c, testHandle())
		if err != nil {
			t.Fatalf("ptrSize %d: %v", ptrSize, err)
		}
		if !reflect.DeepEqual(got, ts) {
			t.Fatalf("ptrSize %d mismatch:\n got %v\nwant %v", ptrSize, got, ts)
		}
		cliConn.Close()
		if err := <-errc; err != nil {
			t.Fatal(err)
		}
	}
}

func TestQueryServiceTriggersEmpty(t *testing.T) {
	image, err := msrpc.EncodeTriggerInfoImage(nil, 8)
	if err != nil {
		t.Fatal(err)
	}

	cliConn, srvConn := net.Pipe()
	errc := make(chan error, 1)
	go func() {
		errc <- serveSCM(srvConn, 0, queryHandler(image))
	}()

	c := &msrpc.Client{Transport: cliConn}
	if err := c.Bind(msrpc.SCMRUUID, msrpc.SCMRVersion, msrpc.SCMRVersionMinor); err != nil {
		t.Fatal(err)
	}
	got, err := msrpc.QueryServiceTriggers(c, testHandle())
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("got %v from a service with no triggers", got)
	}
	cliConn.Close()
	if err := <-errc; err != nil {
		t.Fatal(err)
	}
}

func TestTriggerOpsRejectNDR64(t *testing.T) {
	c := &msrpc.Client{X64Syntax: true}
	if err := msrpc.ChangeServiceTriggers(c, testHandle(), nil); err == nil || !strings.Contains(err.Error(), "NDR64") {
		t.Errorf("change err = %v", err)
	}
	if _, err := msrpc.QueryServiceTriggers(c, testHandle()); err == nil || !strings.Contains(err.Error(), "NDR64") {
		t.Errorf("query err = %v", err)
	}
}

func TestSCMRErrFmt(t *testing.T) {
	if err := msrpc.SCMRErrFmt(msrpc.ERROR_SUCCESS); err != nil {
		t.Errorf("success maps to %v", err)
	}
	if err := msrpc.SCMRErrFmt(msrpc.ERROR_ACCESS_DENIED); err == nil || !strings.Contains(err.Error(), "ERROR_ACCESS_DENIED") {
		t.Errorf("err = %v", err)
	}
	if err := msrpc.SCMRErrFmt(424242); err == nil || !strings.Contains(err.Error(), "unknown return code") {
		t.Errorf("err = %v", err)
	}
}
