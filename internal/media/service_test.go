package media_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"lovelink/backend/internal/apperr"
	"lovelink/backend/internal/config"
	"lovelink/backend/internal/media"
	"lovelink/backend/internal/models"
	"lovelink/backend/internal/storage"
)

// grantStore stubs the three storage calls CreateUploadGrant makes.
// Embedding the interface keeps the stub small; anything else panics.
type grantStore struct {
	storage.Storage
	participant bool
	peerID      uint
	peerFound   bool
	blocked     bool
}

func (s *grantStore) IsParticipant(ctx context.Context, userID, roomID uint) (bool, error) {
	return s.participant, nil
}

func (s *grantStore) FindPeer(ctx context.Context, roomID, userID uint) (uint, bool, error) {
	return s.peerID, s.peerFound, nil
}

func (s *grantStore) IsBlocked(ctx context.Context, userA, userB uint) (bool, error) {
	return s.blocked, nil
}

type mockPresigner struct {
	mock.Mock
}

func (m *mockPresigner) PresignGet(ctx context.Context, ref media.Ref, ttl time.Duration) (string, error) {
	args := m.Called(ctx, ref, ttl)
	return args.String(0), args.Error(1)
}

func (m *mockPresigner) PresignPut(ctx context.Context, ref media.Ref, contentType string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, ref, contentType, ttl)
	return args.String(0), args.Error(1)
}

func grantConfig() *config.Config {
	return &config.Config{
		MediaBuckets:    []string{"lovelink-media"},
		UploadGrantTTL:  10 * time.Minute,
		DownloadLinkTTL: 15 * time.Minute,
		MaxAudioBytes:   20 << 20,
		MaxPhotoBytes:   10 << 20,
		MaxVideoBytes:   300 << 20,
	}
}

func newGrantService(store *grantStore, presigner *mockPresigner) *media.Service {
	return media.NewService(media.NewNormalizer([]string{"lovelink-media"}), presigner, store, grantConfig(), zap.NewNop())
}

func assertGrantCode(t *testing.T, err error, code apperr.Code) {
	t.Helper()
	var appErr *apperr.Error
	if assert.ErrorAs(t, err, &appErr) {
		assert.Equal(t, code, appErr.Code)
	}
}

func okStore() *grantStore {
	return &grantStore{participant: true, peerID: 2, peerFound: true}
}

func TestCreateUploadGrant_IssuesScopedKey(t *testing.T) {
	presigner := new(mockPresigner)
	presigner.On("PresignPut", mock.Anything, mock.MatchedBy(func(ref media.Ref) bool {
		return ref.Bucket == "lovelink-media" && strings.HasPrefix(ref.Key, "chat/6/photo/")
	}), "image/jpeg", 10*time.Minute).Return("https://signed.example/put", nil)

	grant, err := newGrantService(okStore(), presigner).CreateUploadGrant(
		context.Background(), 1, 6, models.MediaTypePhoto, "image/jpeg", 1<<20)

	assert.NoError(t, err)
	assert.Equal(t, "https://signed.example/put", grant.UploadURL)
	assert.True(t, strings.HasPrefix(grant.Ref, "s3://lovelink-media/chat/6/photo/"))
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), grant.ExpiresAt, 5*time.Second)
}

func TestCreateUploadGrant_AccessChecks(t *testing.T) {
	cases := []struct {
		name  string
		store *grantStore
		want  apperr.Code
	}{
		{"non-participant", &grantStore{participant: false}, apperr.ChatRoomAccessFailed},
		{"room without peer", &grantStore{participant: true, peerFound: false}, apperr.ChatRoomAccessFailed},
		{"blocked pair", &grantStore{participant: true, peerID: 2, peerFound: true, blocked: true}, apperr.ChatMessageBlocked},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			presigner := new(mockPresigner)
			_, err := newGrantService(tc.store, presigner).CreateUploadGrant(
				context.Background(), 1, 6, models.MediaTypePhoto, "image/jpeg", 1<<20)
			assertGrantCode(t, err, tc.want)
			presigner.AssertNotCalled(t, "PresignPut", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestCreateUploadGrant_UploadValidation(t *testing.T) {
	cases := []struct {
		name        string
		mediaType   string
		contentType string
		sizeBytes   int64
		want        apperr.Code
	}{
		{"text is not uploadable", models.MediaTypeText, "text/plain", 10, apperr.ValidationInvalidFormat},
		{"unknown type", "GIF", "image/gif", 10, apperr.ValidationInvalidFormat},
		{"content type mismatch", models.MediaTypeAudio, "image/png", 10, apperr.MediaUnsupportedType},
		{"missing size", models.MediaTypePhoto, "image/jpeg", 0, apperr.ValidationRequiredFieldMissing},
		{"photo too large", models.MediaTypePhoto, "image/jpeg", (10 << 20) + 1, apperr.MediaPayloadTooLarge},
		{"audio too large", models.MediaTypeAudio, "audio/mp4", (20 << 20) + 1, apperr.MediaPayloadTooLarge},
		{"video too large", models.MediaTypeVideo, "video/mp4", (300 << 20) + 1, apperr.MediaPayloadTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newGrantService(okStore(), new(mockPresigner)).CreateUploadGrant(
				context.Background(), 1, 6, tc.mediaType, tc.contentType, tc.sizeBytes)
			assertGrantCode(t, err, tc.want)
		})
	}
}

func TestCreateUploadGrant_SizeAtCeilingAllowed(t *testing.T) {
	presigner := new(mockPresigner)
	presigner.On("PresignPut", mock.Anything, mock.Anything, "video/mp4", mock.Anything).Return("https://signed.example/put", nil)

	_, err := newGrantService(okStore(), presigner).CreateUploadGrant(
		context.Background(), 1, 6, models.MediaTypeVideo, "video/mp4", 300<<20)
	assert.NoError(t, err)
}

func TestToClientURL_EmptyRefIsEmpty(t *testing.T) {
	svc := newGrantService(okStore(), new(mockPresigner))
	got, err := svc.ToClientURL(context.Background(), "")
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestToClientURL_ResignsStoredRef(t *testing.T) {
	presigner := new(mockPresigner)
	presigner.On("PresignGet", mock.Anything,
		media.Ref{Bucket: "lovelink-media", Key: "chat/6/photo/a.jpg"},
		15*time.Minute).Return("https://signed.example/get", nil)

	svc := newGrantService(okStore(), presigner)
	got, err := svc.ToClientURL(context.Background(), "s3://lovelink-media/chat/6/photo/a.jpg")
	assert.NoError(t, err)
	assert.Equal(t, "https://signed.example/get", got)
}

func TestToClientURL_RejectsForeignBucket(t *testing.T) {
	svc := newGrantService(okStore(), new(mockPresigner))
	_, err := svc.ToClientURL(context.Background(), "s3://foreign-bucket/chat/6/photo/a.jpg")
	assertGrantCode(t, err, apperr.ValidationInvalidFormat)
}
