package cursor_test

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"lovelink/backend/internal/apperr"
	"lovelink/backend/internal/cursor"
)

func TestCursor_RoundTrip(t *testing.T) {
	cases := []cursor.Payload{
		{SortAt: "2026-01-02T15:04:05Z", RoomID: "42"},
		{SortAt: "2026-01-02T15:04:05.123Z", MessageID: "987"},
		{SortAt: "1999-12-31T23:59:59Z", RoomID: "1", MessageID: "2"},
	}

	for _, want := range cases {
		token := cursor.Encode(want)
		got, err := cursor.Decode(token)
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestCursor_DecodeRejectsMalformed(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"not base64url", "%%%not-base64%%%"},
		{"base64 of non-JSON", base64.RawURLEncoding.EncodeToString([]byte("hello"))},
		{"missing sortAt", cursor.Encode(cursor.Payload{RoomID: "5"})},
		{"missing tie-break", cursor.Encode(cursor.Payload{SortAt: "2026-01-02T15:04:05Z"})},
		{"empty token", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := cursor.Decode(tt.token)
			assert.Error(t, err)

			var appErr *apperr.Error
			assert.True(t, errors.As(err, &appErr))
			assert.Equal(t, apperr.ValidationInvalidFormat, appErr.Code)
		})
	}
}

func TestCursor_OpaqueSortAt(t *testing.T) {
	// The codec itself does not validate the timestamp format.
	token := cursor.Encode(cursor.Payload{SortAt: "not-a-timestamp", RoomID: "3"})
	got, err := cursor.Decode(token)
	assert.NoError(t, err)
	assert.Equal(t, "not-a-timestamp", got.SortAt)
}
