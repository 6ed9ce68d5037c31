package main

import (
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/5amu/svctrig/internal/svctrig"
)

func main() {
	p := flags.NewNamedParser("svctrig", flags.Default)

	p.AddCommand("inspect",
		"Decode a captured trigger info blob",
		"Decode a SERVICE_TRIGGER_INFO image (or NDR body with --ndr) from a file or hex string and print the triggers it carries.",
		&svctrig.InspectOptions{})
	p.AddCommand("build",
		"Build a trigger info blob from YAML definitions",
		"Read trigger definitions from a YAML file and emit the corresponding SERVICE_TRIGGER_INFO image or NDR body.",
		&svctrig.BuildOptions{})
	p.AddCommand("types",
		"List the known trigger vocabulary",
		"Print the documented trigger types, actions, data types and well-known subtype GUIDs.",
		&svctrig.TypesOptions{})

	if _, err := p.Parse(); err != nil {
		os.Exit(1)
	}
}
