// Package iojson writes JSON-lines output for machine consumers.
package iojson

import (
	"encoding/json"
	"io"
)

// WriteLine encodes v as a single JSON line to w.
func WriteLine(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
