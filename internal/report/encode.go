package report

import (
	"encoding/json"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteMsgpack writes v as msgpack, keyed by the same field names as JSON.
func WriteMsgpack(w io.Writer, v any) error {
	enc := msgpack.NewEncoder(w)
	enc.SetCustomStructTag("json")
	return enc.Encode(v)
}

// ReadMsgpack decodes a report written by WriteMsgpack.
func ReadMsgpack(r io.Reader) (*Report, error) {
	dec := msgpack.NewDecoder(r)
	dec.SetCustomStructTag("json")
	var out Report
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
