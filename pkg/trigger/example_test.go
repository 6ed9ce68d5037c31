package trigger_test

import (
	"fmt"

	"github.com/5amu/svctrig/pkg/nativemem"
	"github.com/5amu/svctrig/pkg/trigger"
)

func Example() {
	heap := nativemem.NewHeap()

	tr := trigger.New(
		trigger.SERVICE_TRIGGER_TYPE_DEVICE_INTERFACE_ARRIVAL,
		trigger.SERVICE_TRIGGER_ACTION_SERVICE_START,
		usbDeviceClass,
		[]trigger.Data{trigger.StringData("USB\\VID_1234")},
	)

	ti, err := trigger.MarshalNativeTriggerInfo(heap, []trigger.Trigger{tr})
	if err != nil {
		panic(err)
	}
	// &ti can be handed to ChangeServiceConfig2 as-is.

	back, err := trigger.TriggersFromNative(ti)
	if err != nil {
		panic(err)
	}
	for _, t := range back {
		fmt.Println(t.Type(), t.Action())
		for _, d := range t.DataItems() {
			fmt.Println(d)
		}
	}

	if err := ti.Free(heap); err != nil {
		panic(err)
	}
	fmt.Println(heap.LiveAllocs(), "live blocks")

	// Output:
	// DEVICE_INTERFACE_ARRIVAL SERVICE_START
	// string "USB\\VID_1234"
	// 0 live blocks
}
