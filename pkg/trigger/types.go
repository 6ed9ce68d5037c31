package trigger

import (
	"fmt"

	"github.com/5amu/svctrig/pkg/mstypes"
)

// Type selects the event class a trigger fires on.
// https://learn.microsoft.com/en-us/windows/win32/api/winsvc/ns-winsvc-service_trigger
type Type uint32

const (
	SERVICE_TRIGGER_TYPE_DEVICE_INTERFACE_ARRIVAL Type = 0x00000001
	SERVICE_TRIGGER_TYPE_IP_ADDRESS_AVAILABILITY  Type = 0x00000002
	SERVICE_TRIGGER_TYPE_DOMAIN_JOIN              Type = 0x00000003
	SERVICE_TRIGGER_TYPE_FIREWALL_PORT_EVENT      Type = 0x00000004
	SERVICE_TRIGGER_TYPE_GROUP_POLICY             Type = 0x00000005
	SERVICE_TRIGGER_TYPE_CUSTOM                   Type = 0x00000020
)

func (t Type) String() string {
	switch t {
	case SERVICE_TRIGGER_TYPE_DEVICE_INTERFACE_ARRIVAL:
		return "DEVICE_INTERFACE_ARRIVAL"
	case SERVICE_TRIGGER_TYPE_IP_ADDRESS_AVAILABILITY:
		return "IP_ADDRESS_AVAILABILITY"
	case SERVICE_TRIGGER_TYPE_DOMAIN_JOIN:
		return "DOMAIN_JOIN"
	case SERVICE_TRIGGER_TYPE_FIREWALL_PORT_EVENT:
		return "FIREWALL_PORT_EVENT"
	case SERVICE_TRIGGER_TYPE_GROUP_POLICY:
		return "GROUP_POLICY"
	case SERVICE_TRIGGER_TYPE_CUSTOM:
		return "CUSTOM"
	}
	return fmt.Sprintf("0x%08x", uint32(t))
}

// Action is what the SCM does to the service when the trigger fires.
type Action uint32

const (
	SERVICE_TRIGGER_ACTION_SERVICE_START Action = 0x00000001
	SERVICE_TRIGGER_ACTION_SERVICE_STOP  Action = 0x00000002
)

func (a Action) String() string {
	switch a {
	case SERVICE_TRIGGER_ACTION_SERVICE_START:
		return "SERVICE_START"
	case SERVICE_TRIGGER_ACTION_SERVICE_STOP:
		return "SERVICE_STOP"
	}
	return fmt.Sprintf("0x%08x", uint32(a))
}

// DataType tags the payload kind of a trigger-specific data item.
type DataType uint32

const (
	SERVICE_TRIGGER_DATA_TYPE_BINARY DataType = 0x00000001
	SERVICE_TRIGGER_DATA_TYPE_STRING DataType = 0x00000002
)

func (d DataType) String() string {
	switch d {
	case SERVICE_TRIGGER_DATA_TYPE_BINARY:
		return "BINARY"
	case SERVICE_TRIGGER_DATA_TYPE_STRING:
		return "STRING"
	}
	return fmt.Sprintf("0x%08x", uint32(d))
}

// Well-known trigger subtypes.
// https://learn.microsoft.com/en-us/windows/win32/api/winsvc/ns-winsvc-service_trigger
var (
	DOMAIN_JOIN_GUID                              = mstypes.MustGUID("1ce20aba-9851-4421-9430-1ddeb766e809")
	DOMAIN_LEAVE_GUID                             = mstypes.MustGUID("ddaf516e-58c2-4866-9574-c3b615d42ea1")
	FIREWALL_PORT_OPEN_GUID                       = mstypes.MustGUID("b7569e07-8421-4ee0-ad10-86915afdad09")
	FIREWALL_PORT_CLOSE_GUID                      = mstypes.MustGUID("a144ed38-8e12-4de4-9d96-e64740b1a524")
	MACHINE_POLICY_PRESENT_GUID                   = mstypes.MustGUID("659FCAE6-5BDB-4DA9-B1FF-CA2A178D46E0")
	NETWORK_MANAGER_FIRST_IP_ADDRESS_ARRIVAL_GUID = mstypes.MustGUID("4f27f2de-14e2-430b-a549-7cd48cbc8245")
	NETWORK_MANAGER_LAST_IP_ADDRESS_REMOVAL_GUID  = mstypes.MustGUID("cc4ba62a-162e-4648-847a-b6bdf993e335")
	USER_POLICY_PRESENT_GUID                      = mstypes.MustGUID("54FB46C8-F089-464C-B1FD-59D1B62C3B50")
)

// SubtypeName resolves a well-known subtype GUID to its winsvc.h name.
func SubtypeName(g mstypes.GUID) (string, bool) {
	switch g {
	case DOMAIN_JOIN_GUID:
		return "DOMAIN_JOIN_GUID", true
	case DOMAIN_LEAVE_GUID:
		return "DOMAIN_LEAVE_GUID", true
	case FIREWALL_PORT_OPEN_GUID:
		return "FIREWALL_PORT_OPEN_GUID", true
	case FIREWALL_PORT_CLOSE_GUID:
		return "FIREWALL_PORT_CLOSE_GUID", true
	case MACHINE_POLICY_PRESENT_GUID:
		return "MACHINE_POLICY_PRESENT_GUID", true
	case NETWORK_MANAGER_FIRST_IP_ADDRESS_ARRIVAL_GUID:
		return "NETWORK_MANAGER_FIRST_IP_ADDRESS_ARRIVAL_GUID", true
	case NETWORK_MANAGER_LAST_IP_ADDRESS_REMOVAL_GUID:
		return "NETWORK_MANAGER_LAST_IP_ADDRESS_REMOVAL_GUID", true
	case USER_POLICY_PRESENT_GUID:
		return "USER_POLICY_PRESENT_GUID", true
	}
	return "", false
}

// KnownTypes, KnownActions, KnownDataTypes and KnownSubtypes list the
// documented vocabulary in display order.
var (
	KnownTypes = []Type{
		SERVICE_TRIGGER_TYPE_DEVICE_INTERFACE_ARRIVAL,
		SERVICE_TRIGGER_TYPE_IP_ADDRESS_AVAILABILITY,
		SERVICE_TRIGGER_TYPE_DOMAIN_JOIN,
		SERVICE_TRIGGER_TYPE_FIREWALL_PORT_EVENT,
		SERVICE_TRIGGER_TYPE_GROUP_POLICY,
		SERVICE_TRIGGER_TYPE_CUSTOM,
	}

	KnownActions = []Action{
		SERVICE_TRIGGER_ACTION_SERVICE_START,
		SERVICE_TRIGGER_ACTION_SERVICE_STOP,
	}

	KnownDataTypes = []DataType{
		SERVICE_TRIGGER_DATA_TYPE_BINARY,
		SERVICE_TRIGGER_DATA_TYPE_STRING,
	}

	KnownSubtypes = []mstypes.GUID{
		DOMAIN_JOIN_GUID,
		DOMAIN_LEAVE_GUID,
		FIREWALL_PORT_OPEN_GUID,
		FIREWALL_PORT_CLOSE_GUID,
		MACHINE_POLICY_PRESENT_GUID,
		NETWORK_MANAGER_FIRST_IP_ADDRESS_ARRIVAL_GUID,
		NETWORK_MANAGER_LAST_IP_ADDRESS_REMOVAL_GUID,
		USER_POLICY_PRESENT_GUID,
	}
)
