package svctrig

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/rodaine/table"

	"github.com/5amu/svctrig/internal/printer"
	"github.com/5amu/svctrig/pkg/msrpc"
	"github.com/5amu/svctrig/pkg/trigger"
)

type InspectOptions struct {
	Args struct {
		BLOB string `description:"Path of a captured trigger info blob"`
	} `positional-args:"yes"`

	Hex     string `long:"hex" description:"Decode a hex string instead of a file"`
	PtrSize int    `long:"ptr-size" default:"8" choice:"4" choice:"8" description:"Pointer width the image was captured with"`
	NDR     bool   `long:"ndr" description:"Treat the input as an RChangeServiceConfig2W NDR body instead of a flat image"`
}

func (o *InspectOptions) Execute(args []string) error {
	src := o.Args.BLOB
	if o.Hex != "" {
		src = "hex input"
	}
	p := printer.NewPrinter("inspect", src)

	raw, err := o.input()
	if err != nil {
		p.PrintFailure(err.Error())
		return err
	}

	var ts []trigger.Trigger
	if o.NDR {
		ts, err = msrpc.DecodeTriggerInfo(raw)
	} else {
		ts, err = msrpc.DecodeTriggerInfoImage(raw, o.PtrSize)
	}
	if err != nil {
		p.PrintFailure(err.Error())
		return err
	}

	p.PrintSuccess(fmt.Sprintf("decoded %d trigger(s) from %d bytes", len(ts), len(raw)))
	if len(ts) == 0 {
		return nil
	}
	printTriggerTable(ts)
	return nil
}

func (o *InspectOptions) input() ([]byte, error) {
	if o.Hex != "" {
		raw, err := hex.DecodeString(strings.ReplaceAll(o.Hex, " ", ""))
		if err != nil {
			return nil, fmt.Errorf("decoding hex input: %w", err)
		}
		return raw, nil
	}
	if o.Args.BLOB == "" {
		return nil, fmt.Errorf("provide a blob path or --hex")
	}
	return os.ReadFile(o.Args.BLOB)
}

func printTriggerTable(ts []trigger.Trigger) {
	tbl := table.New("#", "Type", "Action", "Subtype", "Data")
	tbl.WithHeaderFormatter(color.New(color.FgGreen, color.Underline).SprintfFunc()).
		WithFirstColumnFormatter(color.New(color.FgYellow).SprintfFunc())

	for i, t := range ts {
		sub := subtypeLabel(t)
		items := t.DataItems()
		if len(items) == 0 {
			tbl.AddRow(i, t.Type(), t.Action(), sub, "")
			continue
		}
		for j, d := range items {
			if j == 0 {
				tbl.AddRow(i, t.Type(), t.Action(), sub, d)
			} else {
				tbl.AddRow("", "", "", "", d)
			}
		}
	}
	tbl.Print()
}

func subtypeLabel(t trigger.Trigger) string {
	g := t.Subtype()
	if g.IsZero() {
		return "-"
	}
	if name, ok := trigger.SubtypeName(g); ok {
		return name
	}
	return g.String()
}
