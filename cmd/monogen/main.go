package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"monogen/internal/version"
)

// errFailed signals that diagnostics were already printed and only the exit
// status remains to be set.
var errFailed = errors.New("resolution reported errors")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "monogen",
		Short:         "Generic resolution and monomorphization core",
		Long:          `monogen resolves generic programs into concrete instances and lowers them to IR`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Глобальные флаги
	flags := root.PersistentFlags()
	flags.String("color", "auto", "colorize output (auto|on|off)")
	flags.Bool("quiet", false, "suppress non-essential output")
	flags.String("config", "", "path to monogen.toml (default: nearest one above the working directory)")
	flags.StringArray("cfg", nil, "conditional compilation option key[=value] (repeatable)")
	flags.Bool("debug", false, "set the `debug` cfg flag")
	flags.Int("max-diagnostics", 0, "maximum number of diagnostics per program (0: from config)")
	flags.Int("max-depth", 0, "instantiation depth limit (0: from config)")
	flags.String("trace", "", "trace output file (- for stderr)")
	flags.String("trace-level", "off", "trace level (off|program|phase|detail|debug)")
	flags.String("trace-mode", "stream", "trace storage (stream|ring|both); ring events are dumped for failed programs")
	flags.String("trace-format", "auto", "trace format (auto|text|ndjson)")
	flags.Int("trace-ring-size", 4096, "ring buffer capacity for --trace-mode ring|both")

	root.AddCommand(newResolveCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintf(os.Stderr, "monogen: %v\n", err)
		}
		os.Exit(1)
	}
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
