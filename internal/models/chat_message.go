package models

import "time"

const (
	MediaTypeText  = "TEXT"
	MediaTypeAudio = "AUDIO"
	MediaTypePhoto = "PHOTO"
	MediaTypeVideo = "VIDEO"
)

// ValidMediaType reports whether t is one of the four message types.
func ValidMediaType(t string) bool {
	switch t {
	case MediaTypeText, MediaTypeAudio, MediaTypePhoto, MediaTypeVideo:
		return true
	}
	return false
}

// ChatMessage is an append-only log entry. Rows are immutable after insert
// except for the ReadAt and DeletedAt transitions; DeletedAt is an explicit
// soft-delete marker, not a gorm soft delete, because deleted messages must
// stay reachable for moderation queries.
type ChatMessage struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	RoomID    uint       `gorm:"not null;index:idx_room_sent" json:"roomId"`
	SentByID  uint       `gorm:"not null;index" json:"sentById"`
	SentToID  uint       `gorm:"not null;index" json:"sentToId"`
	SentAt    time.Time  `gorm:"not null;index:idx_room_sent" json:"sentAt"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`

	Media *ChatMedia `gorm:"foreignKey:MessageID" json:"media,omitempty"`
}

// ChatMedia is the 1:1 payload row of a message. Exactly one of Text/URL is
// populated depending on Type; AUDIO and VIDEO additionally carry a positive
// DurationSec.
type ChatMedia struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	MessageID   uint   `gorm:"not null;uniqueIndex" json:"messageId"`
	Type        string `gorm:"type:text;not null" json:"type"`
	Text        string `gorm:"type:text" json:"text,omitempty"`
	URL         string `gorm:"type:text" json:"url,omitempty"`
	DurationSec int    `json:"durationSec,omitempty"`
}
