package svctrig

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/rodaine/table"

	"github.com/5amu/svctrig/pkg/trigger"
)

type TypesOptions struct{}

// Execute prints the documented trigger vocabulary: types, actions, data
// types and the well-known subtype guids.
func (o *TypesOptions) Execute(args []string) error {
	hdr := color.New(color.FgGreen, color.Underline).SprintfFunc()
	first := color.New(color.FgYellow).SprintfFunc()

	tbl := table.New("Trigger Type", "Value")
	tbl.WithHeaderFormatter(hdr).WithFirstColumnFormatter(first)
	for _, t := range trigger.KnownTypes {
		tbl.AddRow(t, fmt.Sprintf("0x%08x", uint32(t)))
	}
	tbl.Print()
	fmt.Println()

	tbl = table.New("Action", "Value")
	tbl.WithHeaderFormatter(hdr).WithFirstColumnFormatter(first)
	for _, a := range trigger.KnownActions {
		tbl.AddRow(a, fmt.Sprintf("0x%08x", uint32(a)))
	}
	tbl.Print()
	fmt.Println()

	tbl = table.New("Data Type", "Value")
	tbl.WithHeaderFormatter(hdr).WithFirstColumnFormatter(first)
	for _, d := range trigger.KnownDataTypes {
		tbl.AddRow(d, fmt.Sprintf("0x%08x", uint32(d)))
	}
	tbl.Print()
	fmt.Println()

	tbl = table.New("Well-Known Subtype", "GUID")
	tbl.WithHeaderFormatter(hdr).WithFirstColumnFormatter(first)
	for _, g := range trigger.KnownSubtypes {
		name, _ := trigger.SubtypeName(g)
		tbl.AddRow(name, g)
	}
	tbl.Print()
	return nil
}
