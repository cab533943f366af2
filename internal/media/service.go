package media

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lovelink/backend/internal/apperr"
	"lovelink/backend/internal/config"
	"lovelink/backend/internal/models"
	"lovelink/backend/internal/storage"
)

// UploadGrant is a time-boxed write permission. The client uploads to
// UploadURL and echoes Ref back as the mediaUrl of the message.send that
// follows.
type UploadGrant struct {
	UploadURL string    `json:"uploadUrl"`
	Ref       string    `json:"ref"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Service combines the normalizer and presigner with the participation and
// block checks every grant requires.
type Service struct {
	norm      *Normalizer
	presigner Presigner
	store     storage.Storage
	cfg       *config.Config
	log       *zap.Logger
}

func NewService(norm *Normalizer, presigner Presigner, store storage.Storage, cfg *config.Config, log *zap.Logger) *Service {
	return &Service{norm: norm, presigner: presigner, store: store, cfg: cfg, log: log}
}

// Normalizer exposes the parsing half for callers that only validate.
func (s *Service) Normalizer() *Normalizer {
	return s.norm
}

// ToClientURL re-signs a stored reference into a time-limited fetch URL.
// An empty stored reference (TEXT messages) resolves to "".
func (s *Service) ToClientURL(ctx context.Context, storedRef string) (string, error) {
	if storedRef == "" {
		return "", nil
	}
	ref, err := s.norm.ToStoredRef(storedRef)
	if err != nil {
		return "", err
	}
	return s.presigner.PresignGet(ctx, ref, s.cfg.DownloadLinkTTL)
}

// CreateUploadGrant validates the caller and the declared upload, then
// issues a presigned PUT under the room's chat/{roomID}/ prefix.
func (s *Service) CreateUploadGrant(ctx context.Context, userID, roomID uint, mediaType, contentType string, sizeBytes int64) (*UploadGrant, error) {
	ok, err := s.store.IsParticipant(ctx, userID, roomID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.New(apperr.ChatRoomAccessFailed, "not a participant of this chat room")
	}

	peerID, found, err := s.store.FindPeer(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperr.New(apperr.ChatRoomAccessFailed, "chat room has no active peer")
	}
	blocked, err := s.store.IsBlocked(ctx, userID, peerID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, apperr.New(apperr.ChatMessageBlocked, "messaging is blocked between these users")
	}

	if err := s.validateUpload(mediaType, contentType, sizeBytes); err != nil {
		return nil, err
	}

	ref := Ref{
		Bucket: s.cfg.MediaBuckets[0],
		Key:    fmt.Sprintf("chat/%d/%s/%s", roomID, strings.ToLower(mediaType), uuid.NewString()),
	}
	uploadURL, err := s.presigner.PresignPut(ctx, ref, contentType, s.cfg.UploadGrantTTL)
	if err != nil {
		return nil, err
	}

	s.log.Info("upload grant issued",
		zap.Uint("userId", userID),
		zap.Uint("roomId", roomID),
		zap.String("mediaType", mediaType))

	return &UploadGrant{
		UploadURL: uploadURL,
		Ref:       ref.String(),
		ExpiresAt: time.Now().Add(s.cfg.UploadGrantTTL),
	}, nil
}

// validateUpload checks the declared content-type against the media type
// and the declared size against the per-type ceiling.
func (s *Service) validateUpload(mediaType, contentType string, sizeBytes int64) error {
	var prefix string
	var maxBytes int64
	switch mediaType {
	case models.MediaTypeAudio:
		prefix, maxBytes = "audio/", s.cfg.MaxAudioBytes
	case models.MediaTypePhoto:
		prefix, maxBytes = "image/", s.cfg.MaxPhotoBytes
	case models.MediaTypeVideo:
		prefix, maxBytes = "video/", s.cfg.MaxVideoBytes
	default:
		return apperr.New(apperr.ValidationInvalidFormat, "unsupported media type")
	}

	if !strings.HasPrefix(contentType, prefix) {
		return apperr.New(apperr.MediaUnsupportedType, "content type does not match media type")
	}
	if sizeBytes <= 0 {
		return apperr.New(apperr.ValidationRequiredFieldMissing, "sizeBytes is required")
	}
	if sizeBytes > maxBytes {
		return apperr.New(apperr.MediaPayloadTooLarge, fmt.Sprintf("%s uploads are limited to %d bytes", strings.ToLower(mediaType), maxBytes))
	}
	return nil
}
