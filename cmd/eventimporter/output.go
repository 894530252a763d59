package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

const (
	detailLabelWidth = 14
	detailIndent     = "  "
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeDetail prints one aligned "Label: value" line of a detail view.
func writeDetail(w io.Writer, label, value string) {
	fmt.Fprintf(w, "%s%-*s %s\n", detailIndent, detailLabelWidth, label+":", value)
}

// isTerminal reports whether the writer is an interactive terminal. Live
// progress lines stay off redirected and captured output.
func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
