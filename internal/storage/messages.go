package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"lovelink/backend/internal/models"
)

// CreateMessage inserts the message and its media payload in one
// transaction; a message is never observable without its payload row.
func (s *Service) CreateMessage(ctx context.Context, msg *models.ChatMessage, media *models.ChatMedia) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		media.MessageID = msg.ID
		if err := tx.Create(media).Error; err != nil {
			return err
		}
		msg.Media = media
		return nil
	})
}

func (s *Service) GetMessageByID(ctx context.Context, messageID uint) (*models.ChatMessage, error) {
	var msg models.ChatMessage
	err := s.DB.WithContext(ctx).Preload("Media").First(&msg, messageID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// FindMessagePage returns up to pageSize+1 messages of the room at or after
// the caller's visibility floor, newest first with id as the tie-break,
// filtered below the cursor position. Soft-deleted rows are excluded, the
// same visibility rule as the unread counters and previews. The extra row
// lets the caller detect a next page without a count query.
func (s *Service) FindMessagePage(ctx context.Context, roomID uint, joinedAtFloor time.Time, cursorSortAt *time.Time, cursorID uint, pageSize int) ([]models.ChatMessage, error) {
	q := s.DB.WithContext(ctx).Preload("Media").
		Where("room_id = ? AND sent_at >= ? AND deleted_at IS NULL", roomID, joinedAtFloor)
	if cursorSortAt != nil {
		q = q.Where("(sent_at < ?) OR (sent_at = ? AND id < ?)", *cursorSortAt, *cursorSortAt, cursorID)
	}

	var messages []models.ChatMessage
	err := q.Order("sent_at DESC, id DESC").Limit(pageSize + 1).Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkMessageRead sets read_at iff the reader is the recipient and the
// message is still unread. Returns false on the no-op path, so repeated
// calls stay idempotent and the caller can suppress duplicate broadcasts.
func (s *Service) MarkMessageRead(ctx context.Context, messageID, readerID uint, at time.Time) (bool, error) {
	result := s.DB.WithContext(ctx).Model(&models.ChatMessage{}).
		Where("id = ? AND sent_to_id = ? AND read_at IS NULL", messageID, readerID).
		Update("read_at", at)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SoftDeleteMessage sets deleted_at iff the requester is the sender or the
// receiver and the message is not already deleted. The row itself is never
// removed.
func (s *Service) SoftDeleteMessage(ctx context.Context, messageID, requesterID uint, at time.Time) (bool, error) {
	result := s.DB.WithContext(ctx).Model(&models.ChatMessage{}).
		Where("id = ? AND (sent_by_id = ? OR sent_to_id = ?) AND deleted_at IS NULL",
			messageID, requesterID, requesterID).
		Update("deleted_at", at)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

type roomCount struct {
	RoomID uint
	N      int64
}

// UnreadCountByRoom batches the unread badge counters for a page of rooms.
func (s *Service) UnreadCountByRoom(ctx context.Context, userID uint, roomIDs []uint) (map[uint]int64, error) {
	out := make(map[uint]int64, len(roomIDs))
	if len(roomIDs) == 0 {
		return out, nil
	}
	var rows []roomCount
	err := s.DB.WithContext(ctx).Model(&models.ChatMessage{}).
		Select("room_id, COUNT(*) AS n").
		Where("room_id IN ? AND sent_to_id = ? AND read_at IS NULL AND deleted_at IS NULL", roomIDs, userID).
		Group("room_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.RoomID] = r.N
	}
	return out, nil
}

type roomLastSent struct {
	RoomID uint
	LastAt time.Time
}

// LastSentAtByRoom batches the newest sent_at per room, used as the
// room-list sort key. Intentionally floor-free: sorting considers all
// traffic, only previews are floor-scoped.
func (s *Service) LastSentAtByRoom(ctx context.Context, roomIDs []uint) (map[uint]time.Time, error) {
	out := make(map[uint]time.Time, len(roomIDs))
	if len(roomIDs) == 0 {
		return out, nil
	}
	var rows []roomLastSent
	err := s.DB.WithContext(ctx).Model(&models.ChatMessage{}).
		Select("room_id, MAX(sent_at) AS last_at").
		Where("room_id IN ?", roomIDs).
		Group("room_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.RoomID] = r.LastAt
	}
	return out, nil
}

// LastMessageInRoom returns the newest message at or after the caller's
// visibility floor, for the room-list preview. A reactivated room must not
// preview a pre-reactivation message, hence the floor.
func (s *Service) LastMessageInRoom(ctx context.Context, roomID uint, joinedAtFloor time.Time) (*models.ChatMessage, error) {
	var msg models.ChatMessage
	err := s.DB.WithContext(ctx).Preload("Media").
		Where("room_id = ? AND sent_at >= ? AND deleted_at IS NULL", roomID, joinedAtFloor).
		Order("sent_at DESC, id DESC").
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}
