//go:build windows

package trigger

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/5amu/svctrig/pkg/nativemem"
)

// QueryServiceTriggers reads the trigger set of an open service. The
// handle needs SERVICE_QUERY_CONFIG access. The returned triggers are
// fully decoded copies; no native memory stays referenced.
func QueryServiceTriggers(svc windows.Handle) ([]Trigger, error) {
	var buf []byte
	sz := uint32(256)
	for {
		buf = make([]byte, sz)
		var needed uint32
		err := windows.QueryServiceConfig2(svc, windows.SERVICE_CONFIG_TRIGGER_INFO,
			&buf[0], sz, &needed)
		if err == nil {
			break
		}
		if err != windows.ERROR_INSUFFICIENT_BUFFER || needed <= sz {
			return nil, fmt.Errorf("querying trigger info: %w", err)
		}
		sz = needed
	}
	ti := (*NativeTriggerInfo)(unsafe.Pointer(&buf[0]))
	ts, err := TriggersFromNative(*ti)
	if err != nil {
		return nil, fmt.Errorf("decoding trigger info: %w", err)
	}
	return ts, nil
}

// ChangeServiceTriggers replaces the trigger set of an open service. The
// handle needs SERVICE_CHANGE_CONFIG access. An empty set clears every
// trigger off the service.
func ChangeServiceTriggers(a nativemem.Allocator, svc windows.Handle, ts []Trigger) error {
	ti, err := MarshalNativeTriggerInfo(a, ts)
	if err != nil {
		return err
	}
	defer ti.Free(a)

	err = windows.ChangeServiceConfig2(svc, windows.SERVICE_CONFIG_TRIGGER_INFO,
		(*byte)(unsafe.Pointer(&ti)))
	if err != nil {
		return fmt.Errorf("changing trigger info: %w", err)
	}
	return nil
}
