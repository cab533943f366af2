package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"lovelink/backend/internal/models"
)

func (s *Service) GetRoomByID(ctx context.Context, roomID uint) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := s.DB.WithContext(ctx).First(&room, roomID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// IsParticipant reports whether the user currently belongs to the room,
// i.e. has a participant row with ended_at unset.
func (s *Service) IsParticipant(ctx context.Context, userID, roomID uint) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.ChatParticipant{}).
		Where("room_id = ? AND user_id = ? AND ended_at IS NULL", roomID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindPeer returns the other active participant of the room, if any.
func (s *Service) FindPeer(ctx context.Context, roomID, userID uint) (uint, bool, error) {
	var peer models.ChatParticipant
	err := s.DB.WithContext(ctx).
		Where("room_id = ? AND user_id <> ? AND ended_at IS NULL", roomID, userID).
		First(&peer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return peer.UserID, true, nil
}

func (s *Service) MyRoomIDs(ctx context.Context, userID uint) ([]uint, error) {
	var roomIDs []uint
	err := s.DB.WithContext(ctx).Model(&models.ChatParticipant{}).
		Where("user_id = ? AND ended_at IS NULL", userID).
		Pluck("room_id", &roomIDs).Error
	if err != nil {
		return nil, err
	}
	return roomIDs, nil
}

// JoinedAt returns the caller's current join timestamp for the room — the
// visibility floor for message listing.
func (s *Service) JoinedAt(ctx context.Context, userID, roomID uint) (time.Time, error) {
	var participant models.ChatParticipant
	err := s.DB.WithContext(ctx).
		Where("room_id = ? AND user_id = ? AND ended_at IS NULL", roomID, userID).
		First(&participant).Error
	if err != nil {
		return time.Time{}, err
	}
	return participant.JoinedAt, nil
}

func (s *Service) ParticipantsByRooms(ctx context.Context, roomIDs []uint) ([]models.ChatParticipant, error) {
	if len(roomIDs) == 0 {
		return nil, nil
	}
	var participants []models.ChatParticipant
	err := s.DB.WithContext(ctx).
		Where("room_id IN ? AND ended_at IS NULL", roomIDs).
		Find(&participants).Error
	if err != nil {
		return nil, err
	}
	return participants, nil
}

// FindLatestRoomBetween returns the most relevant room shared by the pair:
// an ACTIVE one when it exists, otherwise the most recently started ended
// one, otherwise nil. Used by the create→reuse→reactivate resolution.
func (s *Service) FindLatestRoomBetween(ctx context.Context, userA, userB uint) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := s.DB.WithContext(ctx).
		Joins("JOIN chat_participants pa ON pa.room_id = chat_rooms.id AND pa.user_id = ?", userA).
		Joins("JOIN chat_participants pb ON pb.room_id = chat_rooms.id AND pb.user_id = ?", userB).
		Order("chat_rooms.status ASC, chat_rooms.started_at DESC"). // ACTIVE < INACTIVE
		First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// CreateRoomWithParticipants atomically creates the room and both membership
// rows with an identical JoinedAt, so an ACTIVE room can never be observed
// with fewer than two active participants. A pair-keyed advisory lock
// serializes concurrent creates for the same two users; the transaction
// rechecks under the lock and returns the already-created room instead of a
// duplicate when it loses the race.
func (s *Service) CreateRoomWithParticipants(ctx context.Context, userA, userB uint, now time.Time) (*models.ChatRoom, error) {
	lo, hi := userA, userB
	if lo > hi {
		lo, hi = hi, lo
	}

	room := &models.ChatRoom{
		Status:    models.RoomStatusActive,
		StartedAt: now,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?, ?)", int32(lo), int32(hi)).Error; err != nil {
			return err
		}

		var existing models.ChatRoom
		err := tx.
			Joins("JOIN chat_participants pa ON pa.room_id = chat_rooms.id AND pa.user_id = ?", userA).
			Joins("JOIN chat_participants pb ON pb.room_id = chat_rooms.id AND pb.user_id = ?", userB).
			Where("chat_rooms.status = ?", models.RoomStatusActive).
			First(&existing).Error
		if err == nil {
			*room = existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Create(room).Error; err != nil {
			return err
		}
		participants := []models.ChatParticipant{
			{RoomID: room.ID, UserID: userA, JoinedAt: now},
			{RoomID: room.ID, UserID: userB, JoinedAt: now},
		}
		return tx.Create(&participants).Error
	})
	if err != nil {
		return nil, err
	}
	return room, nil
}

// ReactivateRoom atomically restores an ended room for the same pair: the
// room goes ACTIVE with EndedAt cleared, both participants get a fresh
// JoinedAt, and any still-unread messages addressed to them from before the
// reactivation are marked read so stale unread counts do not leak into the
// new conversation.
func (s *Service) ReactivateRoom(ctx context.Context, roomID uint, userIDs []uint, now time.Time) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ChatRoom{}).
			Where("id = ?", roomID).
			Updates(map[string]any{"status": models.RoomStatusActive, "ended_at": nil}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.ChatParticipant{}).
			Where("room_id = ? AND user_id IN ?", roomID, userIDs).
			Updates(map[string]any{"joined_at": now, "ended_at": nil}).Error; err != nil {
			return err
		}
		return tx.Model(&models.ChatMessage{}).
			Where("room_id = ? AND sent_to_id IN ? AND read_at IS NULL AND sent_at < ?", roomID, userIDs, now).
			Update("read_at", now).Error
	})
}

// LeaveRoom atomically ends the caller's membership and the room itself.
// Rooms are strictly two-party, so one participant leaving ends the
// conversation; the peer's membership row is left open and both rows are
// refreshed on reactivation.
func (s *Service) LeaveRoom(ctx context.Context, roomID, userID uint, now time.Time) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.ChatParticipant{}).
			Where("room_id = ? AND user_id = ? AND ended_at IS NULL", roomID, userID).
			Update("ended_at", now)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&models.ChatRoom{}).
			Where("id = ?", roomID).
			Updates(map[string]any{"status": models.RoomStatusInactive, "ended_at": now}).Error
	})
}
