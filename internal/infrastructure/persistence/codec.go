package persistence

import "encoding/json"

// Codec turns an entity into the payload document stored with its row and back.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONCodec stores payloads as JSON documents.
type JSONCodec struct{}

// Marshal encodes v as JSON
func (JSONCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal decodes JSON data into v
func (JSONCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
