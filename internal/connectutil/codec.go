package connectutil

import (
	"encoding/json"
	"fmt"
)

// JSONCodec lets Connect handlers exchange plain Go structs as JSON. It
// replaces Connect's protobuf JSON codec under the same name, so clients
// send Content-Type application/json.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (JSONCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("decode json message: %w", err)
	}
	return nil
}
