package api

import (
	"github.com/bytedance/sonic"
)

// Codec is the Connect codec for the GroupService messages. It is registered
// under the "json" name, replacing Connect's protobuf JSON codec.
type Codec struct{}

// Name implements connect.Codec.
func (Codec) Name() string { return "json" }

// Marshal implements connect.Codec.
func (Codec) Marshal(msg any) ([]byte, error) {
	return sonic.Marshal(msg)
}

// Unmarshal implements connect.Codec.
func (Codec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return sonic.Unmarshal(data, msg)
}
