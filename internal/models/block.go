package models

import "time"

const (
	BlockStatusBlocked   = "BLOCKED"
	BlockStatusUnblocked = "UNBLOCKED"
)

// Block is a directed block row. Two users count as blocked for messaging
// when an active BLOCKED row exists in either direction.
type Block struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	BlockedByID uint       `gorm:"not null;index:idx_block_pair" json:"blockedById"`
	BlockedID   uint       `gorm:"not null;index:idx_block_pair" json:"blockedId"`
	Status      string     `gorm:"type:text;not null;default:BLOCKED" json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	DeletedAt   *time.Time `json:"-"`
}
