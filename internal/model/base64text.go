package model

import (
	"encoding/base64"
	"encoding/json"
)

// Base64Text is a binary blob that always serializes as
// {"base64": "<url-safe, unpadded>"} on the wire, matching every
// ciphertext/key/signature field in the protocol.
type Base64Text []byte

type base64Wire struct {
	Base64 string `json:"base64"`
}

func (b Base64Text) MarshalJSON() ([]byte, error) {
	return json.Marshal(base64Wire{Base64: base64.RawURLEncoding.EncodeToString(b)})
}

func (b *Base64Text) UnmarshalJSON(data []byte) error {
	var wire base64Wire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	decoded, err := base64.RawURLEncoding.DecodeString(wire.Base64)
	if err != nil {
		return err
	}
	// An empty string decodes to nil, so a nil Base64Text round-trips
	// unchanged.
	if len(decoded) == 0 {
		decoded = nil
	}
	*b = decoded
	return nil
}
