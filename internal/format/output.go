package format

import (
	"fmt"
	"io"

	json "github.com/goccy/go-json"
)

const (
	JSON  = "json"
	EDN   = "edn"
	Table = "table"
)

// Write writes output in the requested format.
//
// Supported formats:
// - json (default)
// - edn
// - table (values implementing Tabler; anything else falls back to
// indented json)
func Write(w io.Writer, v any, format string, pretty bool) error {
	switch format {
	case "", JSON:
		return WriteJSON(w, v, pretty)
	case EDN:
		return WriteEDN(w, v, pretty)
	case Table:
		if t, ok := tableOf(v); ok {
			return WriteTable(w, t)
		}
		return WriteJSON(w, v, true)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteJSON writes strict JSON output for CLI commands.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(b))
	return err
}
