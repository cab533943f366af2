package models

import "time"

const NotificationTypeChatMessage = "CHAT_MESSAGE"

// Notification is the durable record behind the notification.new event and
// the badge counters. Data holds event-specific fields as a JSON document.
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"userId"`
	Type      string    `gorm:"type:text;not null" json:"type"`
	Title     string    `gorm:"type:text;not null" json:"title"`
	Body      string    `gorm:"type:text" json:"body"`
	IsRead    bool      `gorm:"not null;default:false" json:"isRead"`
	Data      string    `gorm:"type:text" json:"data,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
