package commsutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// EncodePayload serializes a value to JSON bytes.
func EncodePayload(v any) ([]byte, error) {
	return json.Marshal(v)
}

// DecodePayload deserializes a single JSON document into v. Numbers decoded
// into interface values are kept as json.Number so no precision is lost
// before parameter binding.
func DecodePayload(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("commsutil:codec - trailing data after JSON payload")
	}
	return nil
}
