package printer

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

type Formatter func(string, ...interface{}) string

// Printer writes aligned, colored status rows for one command run: the
// command name, the input it works on, then the message.
type Printer struct {
	module string
	source string
	config *PrinterConfig
}

type PrinterConfig struct {
	Writer               io.Writer
	FirstColumnFormatter Formatter
	OutputFormatter      Formatter
	SuccessFormatter     Formatter
	SuccessSymbol        string
	FailureFormatter     Formatter
	FailureSymbol        string
}

func DefaultPrinterConfig() *PrinterConfig {
	return &PrinterConfig{
		Writer:               os.Stdout,
		FirstColumnFormatter: color.New(color.FgBlue, color.Bold).SprintfFunc(),
		OutputFormatter:      color.New(color.FgHiYellow).SprintfFunc(),
		SuccessFormatter:     color.New(color.FgGreen, color.Bold).SprintfFunc(),
		FailureFormatter:     color.New(color.FgRed, color.Bold).SprintfFunc(),
		SuccessSymbol:        "[*]",
		FailureSymbol:        "[-]",
	}
}

func NewPrinter(module, source string) *Printer {
	if source == "" {
		source = "-"
	}
	return &Printer{
		module: module,
		source: source,
		config: DefaultPrinterConfig(),
	}
}

func (p *Printer) SetConfigs(cfg *PrinterConfig) *Printer {
	p.config = cfg
	return p
}

func (p *Printer) print(symbol string, msg ...string) {
	var row strings.Builder
	row.WriteString(p.config.FirstColumnFormatter("%-10s", p.module))
	row.WriteString(fmt.Sprintf("%-28s", p.source))

	txt := strings.Join(msg, " ")
	if symbol == "" {
		txt = p.config.OutputFormatter(txt)
	}
	fmt.Fprintf(p.config.Writer, "%s%s%s\n", row.String(), symbol, txt)
}

func (p *Printer) Print(msg ...string) {
	p.print("", msg...)
}

func (p *Printer) PrintSuccess(msg ...string) {
	p.print(
		p.config.SuccessFormatter("%s ", p.config.SuccessSymbol),
		msg...,
	)
}

func (p *Printer) PrintFailure(msg ...string) {
	p.print(
		p.config.FailureFormatter("%s ", p.config.FailureSymbol),
		msg...,
	)
}

func (p *Printer) PrintInfo(msg ...string) {
	p.print(
		color.BlueString("%s ", p.config.SuccessSymbol),
		msg...,
	)
}
