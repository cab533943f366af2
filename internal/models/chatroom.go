package models

import "time"

const (
	RoomStatusActive   = "ACTIVE"
	RoomStatusInactive = "INACTIVE"
)

// ChatRoom models one ongoing conversation between exactly two users.
// A room is never deleted: leaving ends it (INACTIVE, EndedAt set) and a new
// match between the same pair reactivates it with history preserved.
type ChatRoom struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Status    string     `gorm:"type:text;not null;default:ACTIVE;index" json:"status"`
	StartedAt time.Time  `gorm:"not null" json:"startedAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
}

// ChatParticipant is a user's membership row in a room. JoinedAt is the
// message-visibility floor: after reactivation a participant only sees
// messages sent at or after their current JoinedAt.
type ChatParticipant struct {
	ID       uint       `gorm:"primaryKey" json:"id"`
	RoomID   uint       `gorm:"not null;index:idx_room_user,unique" json:"roomId"`
	UserID   uint       `gorm:"not null;index:idx_room_user,unique;index" json:"userId"`
	JoinedAt time.Time  `gorm:"not null" json:"joinedAt"`
	EndedAt  *time.Time `json:"endedAt,omitempty"`
}
