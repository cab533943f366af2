package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"lovelink/backend/internal/models"
)

// Storage is the durable-state boundary of the chat core. Everything behind
// it runs against PostgreSQL (via gorm) plus Redis for pub/sub fan-out.
type Storage interface {
	// Users
	GetActiveUser(ctx context.Context, userID uint) (*models.User, error)
	GetUsersByIDs(ctx context.Context, userIDs []uint) (map[uint]models.User, error)

	// Rooms and participants
	GetRoomByID(ctx context.Context, roomID uint) (*models.ChatRoom, error)
	IsParticipant(ctx context.Context, userID, roomID uint) (bool, error)
	FindPeer(ctx context.Context, roomID, userID uint) (uint, bool, error)
	MyRoomIDs(ctx context.Context, userID uint) ([]uint, error)
	JoinedAt(ctx context.Context, userID, roomID uint) (time.Time, error)
	ParticipantsByRooms(ctx context.Context, roomIDs []uint) ([]models.ChatParticipant, error)
	FindLatestRoomBetween(ctx context.Context, userA, userB uint) (*models.ChatRoom, error)
	CreateRoomWithParticipants(ctx context.Context, userA, userB uint, now time.Time) (*models.ChatRoom, error)
	ReactivateRoom(ctx context.Context, roomID uint, userIDs []uint, now time.Time) error
	LeaveRoom(ctx context.Context, roomID, userID uint, now time.Time) error

	// Blocks
	IsBlocked(ctx context.Context, userA, userB uint) (bool, error)

	// Messages
	CreateMessage(ctx context.Context, msg *models.ChatMessage, media *models.ChatMedia) error
	GetMessageByID(ctx context.Context, messageID uint) (*models.ChatMessage, error)
	FindMessagePage(ctx context.Context, roomID uint, joinedAtFloor time.Time, cursorSortAt *time.Time, cursorID uint, pageSize int) ([]models.ChatMessage, error)
	MarkMessageRead(ctx context.Context, messageID, readerID uint, at time.Time) (bool, error)
	SoftDeleteMessage(ctx context.Context, messageID, requesterID uint, at time.Time) (bool, error)
	UnreadCountByRoom(ctx context.Context, userID uint, roomIDs []uint) (map[uint]int64, error)
	LastSentAtByRoom(ctx context.Context, roomIDs []uint) (map[uint]time.Time, error)
	LastMessageInRoom(ctx context.Context, roomID uint, joinedAtFloor time.Time) (*models.ChatMessage, error)

	// Notifications
	CreateNotification(ctx context.Context, n *models.Notification) error

	// Pub/sub fan-out
	Publish(ctx context.Context, channel string, payload []byte) error
	PSubscribe(ctx context.Context, patterns ...string) *redis.PubSub
}

// Service is the production Storage implementation.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Log   *zap.Logger
}

func NewService(db *gorm.DB, rdb *redis.Client, log *zap.Logger) *Service {
	return &Service{DB: db, Redis: rdb, Log: log}
}

// GetActiveUser resolves a user that may authenticate or be addressed:
// status ACTIVE and not soft-deleted. A missing or inactive user returns
// (nil, nil) so the caller decides the error class.
func (s *Service) GetActiveUser(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).
		Where("id = ? AND status = ?", userID, models.UserStatusActive).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) GetUsersByIDs(ctx context.Context, userIDs []uint) (map[uint]models.User, error) {
	out := make(map[uint]models.User, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var users []models.User
	if err := s.DB.WithContext(ctx).Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// IsBlocked is the symmetric block check: an active BLOCKED row in either
// direction blocks all new interaction between the pair.
func (s *Service) IsBlocked(ctx context.Context, userA, userB uint) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.Block{}).
		Where("status = ? AND deleted_at IS NULL", models.BlockStatusBlocked).
		Where("(blocked_by_id = ? AND blocked_id = ?) OR (blocked_by_id = ? AND blocked_id = ?)",
			userA, userB, userB, userA).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Service) CreateNotification(ctx context.Context, n *models.Notification) error {
	return s.DB.WithContext(ctx).Create(n).Error
}

// Publish pushes an already-encoded event onto a Redis channel. Every hub
// instance subscribes to room:*/user:*, so broadcasts reach clients
// connected to other processes too.
func (s *Service) Publish(ctx context.Context, channel string, payload []byte) error {
	return s.Redis.Publish(ctx, channel, payload).Err()
}

func (s *Service) PSubscribe(ctx context.Context, patterns ...string) *redis.PubSub {
	return s.Redis.PSubscribe(ctx, patterns...)
}
