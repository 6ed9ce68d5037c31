package svctrig

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/5amu/svctrig/internal/printer"
	"github.com/5amu/svctrig/pkg/msrpc"
)

type BuildOptions struct {
	Args struct {
		DEFINITIONS string `description:"YAML trigger definition file"`
	} `positional-args:"yes"`

	Output  string `short:"o" long:"output" description:"Write the blob to a file instead of printing hex"`
	PtrSize int    `long:"ptr-size" default:"8" choice:"4" choice:"8" description:"Pointer width of the emitted image"`
	NDR     bool   `long:"ndr" description:"Emit the RChangeServiceConfig2W NDR body instead of a flat image"`
}

func (o *BuildOptions) Execute(args []string) error {
	p := printer.NewPrinter("build", o.Args.DEFINITIONS)

	if o.Args.DEFINITIONS == "" {
		err := fmt.Errorf("provide a definition file")
		p.PrintFailure(err.Error())
		return err
	}
	ts, err := ReadDefinitionFile(o.Args.DEFINITIONS)
	if err != nil {
		p.PrintFailure(err.Error())
		return err
	}

	var blob []byte
	if o.NDR {
		blob, err = msrpc.EncodeTriggerInfo(ts)
	} else {
		blob, err = msrpc.EncodeTriggerInfoImage(ts, o.PtrSize)
	}
	if err != nil {
		p.PrintFailure(err.Error())
		return err
	}

	if o.Output == "" {
		p.PrintSuccess(fmt.Sprintf("built %d trigger(s), %d bytes", len(ts), len(blob)))
		p.Print(hex.EncodeToString(blob))
		return nil
	}
	if err := os.WriteFile(o.Output, blob, 0644); err != nil {
		p.PrintFailure(err.Error())
		return err
	}
	p.PrintSuccess(fmt.Sprintf("built %d trigger(s), %d bytes into %s", len(ts), len(blob), o.Output))
	return nil
}
