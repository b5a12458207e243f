package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// marshalParams converts run parameters to JSON TEXT. Map keys come out
// sorted and HTML escaping is off, so equal parameters give equal text.
func marshalParams(params map[string]any) (string, error) {
	if len(params) == 0 {
		return "{}", nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(params); err != nil {
		return "", fmt.Errorf("marshal params: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalParams parses JSON TEXT to a parameter map. Numbers are kept as
// json.Number to avoid float64 precision loss.
func unmarshalParams(data string) (map[string]any, error) {
	out := map[string]any{}
	if data == "" || data == "{}" {
		return out, nil
	}
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	return out, nil
}
