package msrpc

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/5amu/svctrig/pkg/trigger"
)

// https://learn.microsoft.com/en-us/openspecs/windows_protocols/ms-scmr/e7a38186-cde2-40ad-90c7-650822bd6333
const (
	SCMRUUID         = "367abb81-9844-35f1-ad32-98f038001003"
	SCMRVersion      = 2
	SCMRVersionMinor = 0

	SCMRNamedPipe = "svcctl"
)

// opnum
// https://docs.microsoft.com/en-us/openspecs/windows_protocols/ms-scmr/0d7a7011-9f41-470d-ad52-8535b47ac282
const (
	RCloseServiceHandle = iota
	RControlService
	RDeleteService
	RLockServiceDatabase
	RQueryServiceObjectSecurity
	RSetServiceObjectSecurity
	RQueryServiceStatus
	RSetServiceStatus
	RUnlockServiceDatabase
	RNotifyBootConfigStatus
	_ // 10 is skipped (not used on wire)
	RChangeServiceConfigW
	RCreateServiceW
	REnumDependentServicesW
	REnumServicesStatusW
	ROpenSCManagerW
	ROpenServiceW
	RQueryServiceConfigW
	RQueryServiceLockStatusW
	RStartServiceW
	RGetServiceDisplayNameW
	RGetServiceKeyNameW
	_ // 22 is skipped (not used on wire)
	RChangeServiceConfigA
	RCreateServiceA
	REnumDependentServicesA
	REnumServicesStatusA
	ROpenSCManagerA
	ROpenServiceA
	RQueryServiceConfigA
	RQueryServiceLockStatusA
	RStartServiceA
	RGetServiceDisplayNameA
	RGetServiceKeyNameA
	_ // 34 is skipped (not used on wire)
	REnumServiceGroupW
	RChangeServiceConfig2A
	RChangeServiceConfig2W
	RQueryServiceConfig2A
	RQueryServiceConfig2W
	RQueryServiceStatusEx
	REnumServicesStatusExA
	REnumServicesStatusExW
	_ // 43 is skipped (not used on wire)
	RCreateServiceWOW64A
	RCreateServiceWOW64W
	_ // 46 is skipped (not used on wire)
	RNotifyServiceStatusChange
	RGetNotifyResults
	RCloseNotifyHandle
	RControlServiceExA
	RControlServiceExW
	_ // 52 is skipped (not used on wire)
	_ // 53 is skipped (not used on wire)
	_ // 54 is skipped (not used on wire)
	_ // 55 is skipped (not used on wire)
	RQueryServiceConfigEx
	_ // 57 is skipped (not used on wire)
	_ // 58 is skipped (not used on wire)
	_ // 59 is skipped (not used on wire)
	RCreateWowService
	_ // 61 is skipped (not used on wire)
	_ // 62 is skipped (not used on wire)
	_ // 63 is skipped (not used on wire)
	ROpenSCManager2
)

// access request (access mask)
// https://learn.microsoft.com/en-us/openspecs/windows_protocols/ms-scmr/0d7a7011-9f41-470d-ad52-8535b47ac282
const (
	SERVICE_ALL_ACCESS           = 0x000F01FF
	SERVICE_CHANGE_CONFIG        = 0x00000002
	SERVICE_ENUMERATE_DEPENDENTS = 0x00000008
	SERVICE_INTERROGATE          = 0x00000080
	SERVICE_PAUSE_CONTINUE       = 0x00000040
	SERVICE_QUERY_CONFIG         = 0x00000001
	SERVICE_QUERY_STATUS         = 0x00000004
	SERVICE_START                = 0x00000010
	SERVICE_STOP                 = 0x00000020
	SERVICE_USER_DEFINED_CONTROL = 0x00000100
	SERVICE_SET_STATUS           = 0x00008000
)

// Service Config2 Info Levels
const (
	SERVICE_CONFIG_DESCRIPTION              = 0x00000001
	SERVICE_CONFIG_FAILURE_ACTIONS          = 0x00000002
	SERVICE_CONFIG_DELAYED_AUTO_START_INFO  = 0x00000003
	SERVICE_CONFIG_FAILURE_ACTIONS_FLAG     = 0x00000004
	SERVICE_CONFIG_SERVICE_SID_INFO         = 0x00000005
	SERVICE_CONFIG_REQUIRED_PRIVILEGES_INFO = 0x00000006
	SERVICE_CONFIG_PRESHUTDOWN_INFO         = 0x00000007
	SERVICE_CONFIG_TRIGGER_INFO             = 0x00000008
	SERVICE_CONFIG_PREFERRED_NODE           = 0x00000009
	SERVICE_CONFIG_RUNLEVEL_INFO            = 0x0000000A
)

// Return Values for SCMR Operations
const (
	ERROR_SUCCESS                   = 0
	ERROR_ACCESS_DENIED             = 5
	ERROR_INVALID_HANDLE            = 6
	ERROR_INVALID_DATA              = 13
	ERROR_INVALID_PARAMETER         = 87
	ERROR_INSUFFICIENT_BUFFER       = 122
	ERROR_SERVICE_DATABASE_LOCKED   = 1055
	ERROR_INVALID_SERVICE_ACCOUNT   = 1057
	ERROR_CIRCULAR_DEPENDENCY       = 1059
	ERROR_INVALID_SERVICE_LOCK      = 1071
	ERROR_SERVICE_MARKED_FOR_DELETE = 1072
	ERROR_DUPLICATE_SERVICE_NAME    = 1078
	ERROR_SHUTDOWN_IN_PROGRESS      = 1115
)

func SCMRErrFmt(ret uint32) error {
	switch ret {
	case ERROR_SUCCESS:
		return nil
	case ERROR_ACCESS_DENIED:
		return fmt.Errorf("error code %d: ERROR_ACCESS_DENIED", ret)
	case ERROR_INVALID_HANDLE:
		return fmt.Errorf("error code %d: ERROR_INVALID_HANDLE", ret)
	case ERROR_INVALID_DATA:
		return fmt.Errorf("error code %d: ERROR_INVALID_DATA", ret)
	case ERROR_INVALID_PARAMETER:
		return fmt.Errorf("error code %d: ERROR_INVALID_PARAMETER", ret)
	case ERROR_INSUFFICIENT_BUFFER:
		return fmt.Errorf("error code %d: ERROR_INSUFFICIENT_BUFFER", ret)
	case ERROR_SERVICE_DATABASE_LOCKED:
		return fmt.Errorf("error code %d: ERROR_SERVICE_DATABASE_LOCKED", ret)
	case ERROR_INVALID_SERVICE_ACCOUNT:
		return fmt.Errorf("error code %d: ERROR_INVALID_SERVICE_ACCOUNT", ret)
	case ERROR_CIRCULAR_DEPENDENCY:
		return fmt.Errorf("error code %d: ERROR_CIRCULAR_DEPENDENCY", ret)
	case ERROR_INVALID_SERVICE_LOCK:
		return fmt.Errorf("error code %d: ERROR_INVALID_SERVICE_LOCK", ret)
	case ERROR_SERVICE_MARKED_FOR_DELETE:
		return fmt.Errorf("error code %d: ERROR_SERVICE_MARKED_FOR_DELETE", ret)
	case ERROR_DUPLICATE_SERVICE_NAME:
		return fmt.Errorf("error code %d: ERROR_DUPLICATE_SERVICE_NAME", ret)
	case ERROR_SHUTDOWN_IN_PROGRESS:
		return fmt.Errorf("error code %d: ERROR_SHUTDOWN_IN_PROGRESS", ret)
	default:
		return fmt.Errorf("unknown return code %d", ret)
	}
}

// ChangeServiceTriggers replaces the trigger set of the service behind an
// already opened handle. The handle must carry SERVICE_CHANGE_CONFIG
// access; an empty set clears every trigger off the service.
func ChangeServiceTriggers(c *Client, handle [20]byte, ts []trigger.Trigger) error {
	if c.X64Syntax {
		return fmt.Errorf("trigger stubs are not supported under the NDR64 syntax")
	}
	stub, err := NewTriggerChangeStub(handle, ts)
	if err != nil {
		return err
	}
	res, err := c.Call(RChangeServiceConfig2W, stub)
	if err != nil {
		return err
	}
	ret, err := parseReturnCode(res)
	if err != nil {
		return err
	}
	return SCMRErrFmt(ret)
}

// QueryServiceTriggers reads the trigger set of the service behind an
// already opened handle. The handle must carry SERVICE_QUERY_CONFIG
// access. The operation runs twice: once to learn the required buffer
// size, then again with a buffer that fits.
func QueryServiceTriggers(c *Client, handle [20]byte) ([]trigger.Trigger, error) {
	if c.X64Syntax {
		return nil, fmt.Errorf("trigger stubs are not supported under the NDR64 syntax")
	}

	buf, needed, ret, err := queryConfig2(c, handle, SERVICE_CONFIG_TRIGGER_INFO, 0)
	if err != nil {
		return nil, err
	}
	switch ret {
	case ERROR_SUCCESS:
	case ERROR_INSUFFICIENT_BUFFER:
		buf, _, ret, err = queryConfig2(c, handle, SERVICE_CONFIG_TRIGGER_INFO, needed)
		if err != nil {
			return nil, err
		}
		if ret != ERROR_SUCCESS {
			return nil, SCMRErrFmt(ret)
		}
	default:
		return nil, SCMRErrFmt(ret)
	}

	// the buffer is the structure as laid out in the server's address
	// space, with offsets from the buffer start in place of pointers
	ts, err := DecodeTriggerInfoImage(buf, 8)
	if err != nil {
		if ts32, err32 := DecodeTriggerInfoImage(buf, 4); err32 == nil {
			return ts32, nil
		}
		return nil, err
	}
	return ts, nil
}

func queryConfig2(c *Client, handle [20]byte, infoLevel, bufSize uint32) ([]byte, uint32, uint32, error) {
	var req bytes.Buffer
	req.Write(handle[:])
	_ = binary.Write(&req, binary.LittleEndian, infoLevel)
	_ = binary.Write(&req, binary.LittleEndian, bufSize)

	stub, err := c.Call(RQueryServiceConfig2W, req.Bytes())
	if err != nil {
		return nil, 0, 0, err
	}

	// conformant byte buffer, then the needed size and the return code
	if len(stub) < 12 {
		return nil, 0, 0, fmt.Errorf("query response stub is too short (<12 bytes)")
	}
	maxCount := binary.LittleEndian.Uint32(stub[0:4])
	if int(maxCount) > len(stub)-12 {
		return nil, 0, 0, fmt.Errorf("query response buffer length %d exceeds the stub", maxCount)
	}
	needed := binary.LittleEndian.Uint32(stub[len(stub)-8 : len(stub)-4])
	ret := binary.LittleEndian.Uint32(stub[len(stub)-4:])
	return stub[4 : 4+maxCount], needed, ret, nil
}

func parseReturnCode(stub []byte) (uint32, error) {
	if len(stub) < 4 {
		return 0, fmt.Errorf("response stub is too short (<4 bytes)")
	}
	return binary.LittleEndian.Uint32(stub[len(stub)-4:]), nil
}
