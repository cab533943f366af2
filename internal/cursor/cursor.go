// Package cursor implements the opaque keyset-pagination token: a base64url
// encoding of the last-seen sort position plus a tie-break id.
package cursor

import (
	"encoding/base64"
	"encoding/json"

	"lovelink/backend/internal/apperr"
)

// Payload is the decoded cursor. SortAt holds the sort-key timestamp as an
// ISO-8601 string; exactly one of RoomID/MessageID is set depending on the
// listing being paged. The codec does not parse SortAt — callers coerce it
// to a timestamp and fail separately on a bad value.
type Payload struct {
	SortAt    string `json:"sortAt"`
	RoomID    string `json:"roomId,omitempty"`
	MessageID string `json:"messageId,omitempty"`
}

// Encode serializes a payload into the opaque token form.
func Encode(p Payload) string {
	raw, _ := json.Marshal(p)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// Decode parses a token back into its payload. Any token that is not
// base64url-encoded JSON with a non-empty sortAt and a tie-break id fails
// with ValidationInvalidFormat.
func Decode(token string) (Payload, error) {
	var p Payload
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return p, apperr.New(apperr.ValidationInvalidFormat, "invalid cursor")
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, apperr.New(apperr.ValidationInvalidFormat, "invalid cursor")
	}
	if p.SortAt == "" || (p.RoomID == "" && p.MessageID == "") {
		return p, apperr.New(apperr.ValidationInvalidFormat, "invalid cursor")
	}
	return p, nil
}
