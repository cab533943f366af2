package chat_test

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"

	"lovelink/backend/internal/media"
	"lovelink/backend/internal/models"
)

// MockStorage is a testify/mock implementation of storage.Storage used by
// the service tests.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GetActiveUser(ctx context.Context, userID uint) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStorage) GetUsersByIDs(ctx context.Context, userIDs []uint) (map[uint]models.User, error) {
	args := m.Called(ctx, userIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uint]models.User), args.Error(1)
}

func (m *MockStorage) GetRoomByID(ctx context.Context, roomID uint) (*models.ChatRoom, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatRoom), args.Error(1)
}

func (m *MockStorage) IsParticipant(ctx context.Context, userID, roomID uint) (bool, error) {
	args := m.Called(ctx, userID, roomID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) FindPeer(ctx context.Context, roomID, userID uint) (uint, bool, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Get(0).(uint), args.Bool(1), args.Error(2)
}

func (m *MockStorage) MyRoomIDs(ctx context.Context, userID uint) ([]uint, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uint), args.Error(1)
}

func (m *MockStorage) JoinedAt(ctx context.Context, userID, roomID uint) (time.Time, error) {
	args := m.Called(ctx, userID, roomID)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *MockStorage) ParticipantsByRooms(ctx context.Context, roomIDs []uint) ([]models.ChatParticipant, error) {
	args := m.Called(ctx, roomIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ChatParticipant), args.Error(1)
}

func (m *MockStorage) FindLatestRoomBetween(ctx context.Context, userA, userB uint) (*models.ChatRoom, error) {
	args := m.Called(ctx, userA, userB)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatRoom), args.Error(1)
}

func (m *MockStorage) CreateRoomWithParticipants(ctx context.Context, userA, userB uint, now time.Time) (*models.ChatRoom, error) {
	args := m.Called(ctx, userA, userB, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	room := args.Get(0).(*models.ChatRoom)
	// Mimic the store: a fresh room starts now, a raced create keeps the
	// winner's original StartedAt.
	if room.StartedAt.IsZero() {
		room.StartedAt = now
	}
	return room, args.Error(1)
}

func (m *MockStorage) ReactivateRoom(ctx context.Context, roomID uint, userIDs []uint, now time.Time) error {
	args := m.Called(ctx, roomID, userIDs, now)
	return args.Error(0)
}

func (m *MockStorage) LeaveRoom(ctx context.Context, roomID, userID uint, now time.Time) error {
	args := m.Called(ctx, roomID, userID, now)
	return args.Error(0)
}

func (m *MockStorage) IsBlocked(ctx context.Context, userA, userB uint) (bool, error) {
	args := m.Called(ctx, userA, userB)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) CreateMessage(ctx context.Context, msg *models.ChatMessage, mediaRow *models.ChatMedia) error {
	args := m.Called(ctx, msg, mediaRow)
	if args.Error(0) == nil {
		// Mimic the store: assign an id and attach the payload row.
		if msg.ID == 0 {
			msg.ID = 1001
		}
		mediaRow.MessageID = msg.ID
		msg.Media = mediaRow
	}
	return args.Error(0)
}

func (m *MockStorage) GetMessageByID(ctx context.Context, messageID uint) (*models.ChatMessage, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatMessage), args.Error(1)
}

func (m *MockStorage) FindMessagePage(ctx context.Context, roomID uint, joinedAtFloor time.Time, cursorSortAt *time.Time, cursorID uint, pageSize int) ([]models.ChatMessage, error) {
	args := m.Called(ctx, roomID, joinedAtFloor, cursorSortAt, cursorID, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ChatMessage), args.Error(1)
}

func (m *MockStorage) MarkMessageRead(ctx context.Context, messageID, readerID uint, at time.Time) (bool, error) {
	args := m.Called(ctx, messageID, readerID, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) SoftDeleteMessage(ctx context.Context, messageID, requesterID uint, at time.Time) (bool, error) {
	args := m.Called(ctx, messageID, requesterID, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) UnreadCountByRoom(ctx context.Context, userID uint, roomIDs []uint) (map[uint]int64, error) {
	args := m.Called(ctx, userID, roomIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uint]int64), args.Error(1)
}

func (m *MockStorage) LastSentAtByRoom(ctx context.Context, roomIDs []uint) (map[uint]time.Time, error) {
	args := m.Called(ctx, roomIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uint]time.Time), args.Error(1)
}

func (m *MockStorage) LastMessageInRoom(ctx context.Context, roomID uint, joinedAtFloor time.Time) (*models.ChatMessage, error) {
	args := m.Called(ctx, roomID, joinedAtFloor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatMessage), args.Error(1)
}

func (m *MockStorage) CreateNotification(ctx context.Context, n *models.Notification) error {
	args := m.Called(ctx, n)
	if args.Error(0) == nil && n.ID == 0 {
		n.ID = 5001
	}
	return args.Error(0)
}

func (m *MockStorage) Publish(ctx context.Context, channel string, payload []byte) error {
	args := m.Called(ctx, channel, payload)
	return args.Error(0)
}

func (m *MockStorage) PSubscribe(ctx context.Context, patterns ...string) *redis.PubSub {
	args := m.Called(ctx, patterns)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*redis.PubSub)
}

// MockBroadcaster records every fan-out so tests can assert on channel,
// event and payload.
type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) Broadcast(ctx context.Context, channel, event string, payload any) error {
	args := m.Called(ctx, channel, event, payload)
	return args.Error(0)
}

// MockPresigner avoids AWS in unit tests.
type MockPresigner struct {
	mock.Mock
}

func (m *MockPresigner) PresignGet(ctx context.Context, ref media.Ref, ttl time.Duration) (string, error) {
	args := m.Called(ctx, ref, ttl)
	return args.String(0), args.Error(1)
}

func (m *MockPresigner) PresignPut(ctx context.Context, ref media.Ref, contentType string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, ref, contentType, ttl)
	return args.String(0), args.Error(1)
}
