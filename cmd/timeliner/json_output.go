package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

// jsonView lists the payloads the --json flags emit.
type jsonView interface {
	projectView | []probeResult
}

// writeJSON encodes v as indented JSON to the command's stdout. URIs are
// written as given, without HTML escaping of '&' in query strings.
func writeJSON[V jsonView](cmd *cobra.Command, v V) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
