package media_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"lovelink/backend/internal/apperr"
	"lovelink/backend/internal/media"
)

func assertInvalidFormat(t *testing.T, err error) {
	t.Helper()
	var appErr *apperr.Error
	if assert.ErrorAs(t, err, &appErr) {
		assert.Equal(t, apperr.ValidationInvalidFormat, appErr.Code)
	}
}

func TestToStoredRef_AcceptedForms(t *testing.T) {
	norm := media.NewNormalizer([]string{"lovelink-media"})

	cases := []struct {
		name  string
		input string
	}{
		{"native scheme", "s3://lovelink-media/chat/6/photo/abc.jpg"},
		{"virtual hosted", "https://lovelink-media.s3.ap-northeast-2.amazonaws.com/chat/6/photo/abc.jpg"},
		{"virtual hosted no region", "https://lovelink-media.s3.amazonaws.com/chat/6/photo/abc.jpg"},
		{"path style", "https://s3.ap-northeast-2.amazonaws.com/lovelink-media/chat/6/photo/abc.jpg"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ref, err := norm.ToStoredRef(tc.input)
			assert.NoError(t, err)
			assert.Equal(t, "lovelink-media", ref.Bucket)
			assert.Equal(t, "chat/6/photo/abc.jpg", ref.Key)
			assert.Equal(t, "s3://lovelink-media/chat/6/photo/abc.jpg", ref.String())
		})
	}
}

func TestToStoredRef_Rejected(t *testing.T) {
	norm := media.NewNormalizer([]string{"lovelink-media"})

	cases := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"unknown scheme", "ftp://lovelink-media/chat/6/a.jpg"},
		{"bucket not allow-listed", "s3://someone-elses-bucket/chat/6/a.jpg"},
		{"missing key", "s3://lovelink-media"},
		{"missing bucket", "s3:///chat/6/a.jpg"},
		{"non-s3 host", "https://cdn.example.com/chat/6/a.jpg"},
		{"path style without key", "https://s3.ap-northeast-2.amazonaws.com/lovelink-media"},
		{"spoofed suffix", "https://lovelink-media.s3.evil.example.com/chat/6/a.jpg"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := norm.ToStoredRef(tc.input)
			assertInvalidFormat(t, err)
		})
	}
}

// TestToChatScopedRef_PinsRoomPrefix: a reference under another room's
// prefix must not be attachable, even when the bucket itself is allowed.
func TestToChatScopedRef_PinsRoomPrefix(t *testing.T) {
	norm := media.NewNormalizer([]string{"lovelink-media"})

	ref, err := norm.ToChatScopedRef(6, "s3://lovelink-media/chat/6/audio/x.m4a")
	assert.NoError(t, err)
	assert.Equal(t, "chat/6/audio/x.m4a", ref.Key)

	_, err = norm.ToChatScopedRef(6, "s3://lovelink-media/chat/5/audio/x.m4a")
	assertInvalidFormat(t, err)

	// chat/66/ shares a string prefix with chat/6 but not the scoped one.
	_, err = norm.ToChatScopedRef(6, "s3://lovelink-media/chat/66/audio/x.m4a")
	assertInvalidFormat(t, err)

	_, err = norm.ToChatScopedRef(6, "s3://lovelink-media/profile/6/x.m4a")
	assertInvalidFormat(t, err)
}

func TestToStoredRef_ErrorIsTyped(t *testing.T) {
	norm := media.NewNormalizer(nil)
	_, err := norm.ToStoredRef("nonsense")
	var appErr *apperr.Error
	assert.True(t, errors.As(err, &appErr))
}
