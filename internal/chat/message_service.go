package chat

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"lovelink/backend/internal/apperr"
	"lovelink/backend/internal/config"
	"lovelink/backend/internal/cursor"
	"lovelink/backend/internal/media"
	"lovelink/backend/internal/metrics"
	"lovelink/backend/internal/models"
	"lovelink/backend/internal/storage"
)

// MessageService is the message-send control plane: it validates,
// authorizes, persists and fans out messages and their read/delete
// transitions. Both the socket gateway and the REST handlers go through it,
// so there is exactly one canonical pipeline.
type MessageService struct {
	store       storage.Storage
	media       *media.Service
	broadcaster Broadcaster
	cfg         *config.Config
	log         *zap.Logger
}

func NewMessageService(store storage.Storage, mediaSvc *media.Service, broadcaster Broadcaster, cfg *config.Config, log *zap.Logger) *MessageService {
	return &MessageService{store: store, media: mediaSvc, broadcaster: broadcaster, cfg: cfg, log: log}
}

// Send runs the full pipeline for one message. The validation steps are
// ordered and fail-fast; participation and block state are re-checked on
// every send, never cached from an earlier join.
func (s *MessageService) Send(ctx context.Context, senderID uint, req models.SendMessageRequest) (*models.MessageEvent, error) {
	if req.ChatRoomID <= 0 {
		metrics.MessagesTotal.WithLabelValues("rejected").Inc()
		return nil, apperr.New(apperr.ValidationInvalidFormat, "chatRoomId must be a positive integer")
	}
	roomID := uint(req.ChatRoomID)

	if !models.ValidMediaType(req.Type) {
		metrics.MessagesTotal.WithLabelValues("rejected").Inc()
		return nil, apperr.New(apperr.ValidationInvalidFormat, "unsupported message type")
	}

	ok, err := s.store.IsParticipant(ctx, senderID, roomID)
	if err != nil {
		return nil, err
	}
	if !ok {
		metrics.MessagesTotal.WithLabelValues("rejected").Inc()
		return nil, apperr.New(apperr.ChatRoomAccessFailed, "not a participant of this chat room")
	}

	peerID, found, err := s.store.FindPeer(ctx, roomID, senderID)
	if err != nil {
		return nil, err
	}
	if !found {
		metrics.MessagesTotal.WithLabelValues("rejected").Inc()
		return nil, apperr.New(apperr.ChatRoomAccessFailed, "chat room has no active peer")
	}

	blocked, err := s.store.IsBlocked(ctx, senderID, peerID)
	if err != nil {
		return nil, err
	}
	if blocked {
		metrics.MessagesTotal.WithLabelValues("blocked").Inc()
		return nil, apperr.New(apperr.ChatMessageBlocked, "messaging is blocked between these users")
	}

	mediaRow := models.ChatMedia{Type: req.Type}
	switch req.Type {
	case models.MediaTypeText:
		text := strings.TrimSpace(req.Text)
		if text == "" {
			metrics.MessagesTotal.WithLabelValues("rejected").Inc()
			return nil, apperr.New(apperr.ValidationRequiredFieldMissing, "text is required")
		}
		mediaRow.Text = text
	default:
		if strings.TrimSpace(req.MediaURL) == "" {
			metrics.MessagesTotal.WithLabelValues("rejected").Inc()
			return nil, apperr.New(apperr.ValidationRequiredFieldMissing, "mediaUrl is required")
		}
		if req.Type == models.MediaTypeAudio || req.Type == models.MediaTypeVideo {
			if req.DurationSec <= 0 {
				metrics.MessagesTotal.WithLabelValues("rejected").Inc()
				return nil, apperr.New(apperr.ValidationRequiredFieldMissing, "durationSec is required")
			}
			mediaRow.DurationSec = req.DurationSec
		}
		ref, err := s.media.Normalizer().ToChatScopedRef(roomID, req.MediaURL)
		if err != nil {
			metrics.MessagesTotal.WithLabelValues("rejected").Inc()
			return nil, err
		}
		mediaRow.URL = ref.String()
	}

	msg := models.ChatMessage{
		RoomID:   roomID,
		SentByID: senderID,
		SentToID: peerID,
		SentAt:   time.Now(),
	}
	if err := s.store.CreateMessage(ctx, &msg, &mediaRow); err != nil {
		return nil, err
	}
	metrics.MessagesTotal.WithLabelValues("sent").Inc()

	event, err := s.toMessageEvent(ctx, &msg)
	if err != nil {
		return nil, err
	}

	if err := s.broadcaster.Broadcast(ctx, RoomChannel(roomID), models.EventMessageNew, event); err != nil {
		// The store is the source of truth; a failed broadcast is
		// recoverable by refetch, so the send still succeeds.
		metrics.BroadcastFailures.Inc()
		s.log.Error("message.new broadcast failed", zap.Uint("messageId", msg.ID), zap.Error(err))
	}

	go s.notifyPeer(senderID, peerID, event)

	return event, nil
}

// notifyPeer persists a notification record for the recipient and emits
// notification.new on their personal channel. Best effort: failures are
// logged and swallowed, message delivery never depends on it. The detached
// context is bounded by the same store-call timeout as request work.
func (s *MessageService) notifyPeer(senderID, peerID uint, event *models.MessageEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.StoreCallTimeout)
	defer cancel()

	body := event.Text
	if event.Type != models.MediaTypeText {
		body = event.Type[:1] + strings.ToLower(event.Type[1:])
	}
	data, _ := json.Marshal(map[string]any{
		"chatRoomId": event.ChatRoomID,
		"messageId":  event.MessageID,
	})

	senders, err := s.store.GetUsersByIDs(ctx, []uint{senderID})
	title := "New message"
	if err == nil {
		if sender, ok := senders[senderID]; ok && sender.Nickname != "" {
			title = sender.Nickname
		}
	}

	n := models.Notification{
		UserID: peerID,
		Type:   models.NotificationTypeChatMessage,
		Title:  title,
		Body:   body,
		Data:   string(data),
	}
	if err := s.store.CreateNotification(ctx, &n); err != nil {
		metrics.NotificationFailures.Inc()
		s.log.Error("notification create failed", zap.Uint("userId", peerID), zap.Error(err))
		return
	}

	payload := models.NotificationEvent{
		NotificationID: n.ID,
		Type:           n.Type,
		Title:          n.Title,
		Body:           n.Body,
		IsRead:         n.IsRead,
		CreatedAt:      n.CreatedAt,
		Data:           json.RawMessage(n.Data),
	}
	if err := s.broadcaster.Broadcast(ctx, UserChannel(peerID), models.EventNotificationNew, payload); err != nil {
		metrics.NotificationFailures.Inc()
		s.log.Error("notification.new broadcast failed", zap.Uint("userId", peerID), zap.Error(err))
	}
}

// MarkRead transitions a message to read. Only the recipient may read, and
// only while they are an active participant. Already-read is a silent
// no-op; the broadcast fires on the first transition only.
func (s *MessageService) MarkRead(ctx context.Context, readerID, messageID uint) error {
	msg, err := s.authorizeMessageAccess(ctx, readerID, messageID)
	if err != nil {
		return err
	}
	if msg.SentToID != readerID {
		return apperr.New(apperr.ChatRoomAccessFailed, "not the recipient of this message")
	}

	now := time.Now()
	updated, err := s.store.MarkMessageRead(ctx, messageID, readerID, now)
	if err != nil {
		return err
	}
	if !updated {
		return nil
	}

	event := models.ReadEvent{
		ChatRoomID:   msg.RoomID,
		MessageID:    msg.ID,
		ReaderUserID: readerID,
		ReadAt:       now,
	}
	s.broadcastToRoomAndParties(ctx, models.EventMessageRead, msg, event)
	return nil
}

// Delete soft-deletes a message for both parties. Sender or receiver may
// delete; double-delete is a silent no-op with no second broadcast.
func (s *MessageService) Delete(ctx context.Context, requesterID, messageID uint) error {
	msg, err := s.authorizeMessageAccess(ctx, requesterID, messageID)
	if err != nil {
		return err
	}
	if msg.SentByID != requesterID && msg.SentToID != requesterID {
		return apperr.New(apperr.ChatRoomAccessFailed, "not a party of this message")
	}

	now := time.Now()
	updated, err := s.store.SoftDeleteMessage(ctx, messageID, requesterID, now)
	if err != nil {
		return err
	}
	if !updated {
		return nil
	}

	event := models.DeletedEvent{
		ChatRoomID:      msg.RoomID,
		MessageID:       msg.ID,
		DeletedByUserID: requesterID,
		DeletedAt:       now,
	}
	s.broadcastToRoomAndParties(ctx, models.EventMessageDeleted, msg, event)
	return nil
}

// MessagePage is a cursor-paginated slice of room history.
type MessagePage struct {
	Messages   []models.MessageEvent `json:"messages"`
	NextCursor string                `json:"nextCursor,omitempty"`
}

// ListMessages pages a room's history scoped to the caller's join window.
func (s *MessageService) ListMessages(ctx context.Context, meID, roomID uint, cursorToken string, pageSize int) (*MessagePage, error) {
	if pageSize < 1 {
		return nil, apperr.New(apperr.ValidationInvalidFormat, "invalid page size")
	}
	ok, err := s.store.IsParticipant(ctx, meID, roomID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.New(apperr.ChatRoomAccessFailed, "not a participant of this chat room")
	}

	joinedAt, err := s.store.JoinedAt(ctx, meID, roomID)
	if err != nil {
		return nil, err
	}

	var cursorSortAt *time.Time
	var cursorID uint64
	if cursorToken != "" {
		payload, err := cursor.Decode(cursorToken)
		if err != nil {
			return nil, err
		}
		at, err := time.Parse(time.RFC3339Nano, payload.SortAt)
		if err != nil {
			return nil, apperr.New(apperr.ValidationInvalidFormat, "invalid cursor")
		}
		cursorID, err = strconv.ParseUint(payload.MessageID, 10, 64)
		if err != nil {
			return nil, apperr.New(apperr.ValidationInvalidFormat, "invalid cursor")
		}
		cursorSortAt = &at
	}

	messages, err := s.store.FindMessagePage(ctx, roomID, joinedAt, cursorSortAt, uint(cursorID), pageSize)
	if err != nil {
		return nil, err
	}

	hasNext := len(messages) > pageSize
	if hasNext {
		messages = messages[:pageSize]
	}

	page := &MessagePage{Messages: make([]models.MessageEvent, 0, len(messages))}
	for i := range messages {
		event, err := s.toMessageEvent(ctx, &messages[i])
		if err != nil {
			return nil, err
		}
		page.Messages = append(page.Messages, *event)
	}
	if hasNext && len(messages) > 0 {
		tail := messages[len(messages)-1]
		page.NextCursor = cursor.Encode(cursor.Payload{
			SortAt:    tail.SentAt.Format(time.RFC3339Nano),
			MessageID: strconv.FormatUint(uint64(tail.ID), 10),
		})
	}
	return page, nil
}

// authorizeMessageAccess loads a message and requires the caller to be an
// active participant of its room. Missing messages surface as access
// failures so message existence is not leaked.
func (s *MessageService) authorizeMessageAccess(ctx context.Context, userID, messageID uint) (*models.ChatMessage, error) {
	if messageID == 0 {
		return nil, apperr.New(apperr.ValidationInvalidFormat, "messageId must be a positive integer")
	}
	msg, err := s.store.GetMessageByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, apperr.New(apperr.ChatRoomAccessFailed, "message is not accessible")
	}
	ok, err := s.store.IsParticipant(ctx, userID, msg.RoomID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.New(apperr.ChatRoomAccessFailed, "message is not accessible")
	}
	return msg, nil
}

// broadcastToRoomAndParties emits an event to the room channel and both
// participants' personal channels. Broadcast failures are logged; the state
// transition already committed.
func (s *MessageService) broadcastToRoomAndParties(ctx context.Context, eventName string, msg *models.ChatMessage, payload any) {
	channels := []string{
		RoomChannel(msg.RoomID),
		UserChannel(msg.SentByID),
		UserChannel(msg.SentToID),
	}
	for _, ch := range channels {
		if err := s.broadcaster.Broadcast(ctx, ch, eventName, payload); err != nil {
			metrics.BroadcastFailures.Inc()
			s.log.Error("broadcast failed",
				zap.String("event", eventName),
				zap.String("channel", ch),
				zap.Error(err))
		}
	}
}

// toMessageEvent shapes a stored message for clients, re-signing the media
// reference into a time-limited URL. The stored reference itself never
// leaves the backend. Deleted messages keep their type but lose text and
// media: history queries already exclude them, and any path that still
// loads one must not resurface the content.
func (s *MessageService) toMessageEvent(ctx context.Context, msg *models.ChatMessage) (*models.MessageEvent, error) {
	event := &models.MessageEvent{
		MessageID:    msg.ID,
		ChatRoomID:   msg.RoomID,
		SenderUserID: msg.SentByID,
		SentAt:       msg.SentAt,
	}
	if msg.Media == nil {
		return event, nil
	}
	event.Type = msg.Media.Type
	if msg.DeletedAt != nil {
		return event, nil
	}
	event.Text = msg.Media.Text
	event.DurationSec = msg.Media.DurationSec
	if msg.Media.URL != "" {
		url, err := s.media.ToClientURL(ctx, msg.Media.URL)
		if err != nil {
			return nil, err
		}
		event.MediaURL = url
	}
	return event, nil
}
