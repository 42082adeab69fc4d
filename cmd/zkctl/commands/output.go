package commands

import (
	"io"
	"os"

	"github.com/marmos91/zkgo/internal/cli/output"
)

// printResult renders data as JSON/YAML/table depending on the global
// --output flag, mirroring cmd/dittofsctl/cmdutil.PrintResource.
func printResult(data any, table output.TableRenderer) error {
	format, err := output.ParseFormat(Flags.Output)
	if err != nil {
		return err
	}

	w := os.Stdout
	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, data)
	case output.FormatYAML:
		return output.PrintYAML(w, data)
	default:
		return output.PrintTable(w, table)
	}
}

// printSuccess prints a plain confirmation line in table mode; JSON/YAML
// callers get the structured result from printResult instead.
func printSuccess(w io.Writer, msg string) {
	format, err := output.ParseFormat(Flags.Output)
	if err != nil || format != output.FormatTable {
		return
	}
	_, _ = io.WriteString(w, msg+"\n")
}
