package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

const (
	UserStatusActive   = "ACTIVE"
	UserStatusInactive = "INACTIVE"
)

// User is the profile entity. The chat core only reads ID, Status and the
// soft-delete marker; the remaining fields back the room-list previews
// (nickname, area) produced by the onboarding surface.
type User struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Nickname  string `gorm:"type:text;not null" json:"nickname"`
	Gender    string `gorm:"type:text" json:"gender"`
	BirthYear int    `json:"birthYear"`
	AreaName  string `gorm:"type:text" json:"areaName"`
	// Interests stores onboarding tags as a PostgreSQL array.
	Interests pq.StringArray `gorm:"type:text[]" json:"interests"`
	Status    string         `gorm:"type:text;not null;default:ACTIVE;index" json:"status"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsAddressable reports whether the user may authenticate or receive
// messages: ACTIVE and not soft-deleted.
func (u *User) IsAddressable() bool {
	return u.Status == UserStatusActive && !u.DeletedAt.Valid
}
