package models

import (
	"encoding/json"
	"time"
)

// Socket event names, both directions.
const (
	EventRoomJoin        = "room.join"
	EventMessageSend     = "message.send"
	EventMessageNew      = "message.new"
	EventMessageRead     = "message.read"
	EventMessageDelete   = "message.delete"
	EventMessageDeleted  = "message.deleted"
	EventNotificationNew = "notification.new"
	EventException       = "exception"
)

// Envelope is the framing for every socket message: an event name plus a
// JSON payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinRoomRequest is the client payload of room.join.
type JoinRoomRequest struct {
	ChatRoomID int64 `json:"chatRoomId"`
}

// JoinRoomAck confirms a room.join.
type JoinRoomAck struct {
	OK     bool   `json:"ok"`
	Joined string `json:"joined"`
}

// SendMessageRequest is the client payload of message.send.
type SendMessageRequest struct {
	ChatRoomID  int64  `json:"chatRoomId"`
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	MediaURL    string `json:"mediaUrl,omitempty"`
	DurationSec int    `json:"durationSec,omitempty"`
}

// SendMessageAck confirms a message.send.
type SendMessageAck struct {
	OK        bool `json:"ok"`
	MessageID uint `json:"messageId"`
}

// MessageEvent is the message.new broadcast payload. MediaURL carries a
// time-limited signed URL, never the stored reference.
type MessageEvent struct {
	MessageID    uint      `json:"messageId"`
	ChatRoomID   uint      `json:"chatRoomId"`
	SenderUserID uint      `json:"senderUserId"`
	Type         string    `json:"type"`
	Text         string    `json:"text,omitempty"`
	MediaURL     string    `json:"mediaUrl,omitempty"`
	DurationSec  int       `json:"durationSec,omitempty"`
	SentAt       time.Time `json:"sentAt"`
}

// MessageRef is the client payload of message.read and message.delete.
type MessageRef struct {
	ChatRoomID int64 `json:"chatRoomId"`
	MessageID  int64 `json:"messageId"`
}

// ReadEvent is the message.read broadcast payload.
type ReadEvent struct {
	ChatRoomID   uint      `json:"chatRoomId"`
	MessageID    uint      `json:"messageId"`
	ReaderUserID uint      `json:"readerUserId"`
	ReadAt       time.Time `json:"readAt"`
}

// DeletedEvent is the message.deleted broadcast payload.
type DeletedEvent struct {
	ChatRoomID      uint      `json:"chatRoomId"`
	MessageID       uint      `json:"messageId"`
	DeletedByUserID uint      `json:"deletedByUserId"`
	DeletedAt       time.Time `json:"deletedAt"`
}

// NotificationEvent is the notification.new broadcast payload.
type NotificationEvent struct {
	NotificationID uint            `json:"notificationId"`
	Type           string          `json:"type"`
	Title          string          `json:"title"`
	Body           string          `json:"body"`
	IsRead         bool            `json:"isRead"`
	CreatedAt      time.Time       `json:"createdAt"`
	Data           json.RawMessage `json:"data,omitempty"`
}

// ExceptionEvent is the error envelope sent on the socket's error channel.
type ExceptionEvent struct {
	ResultType string         `json:"resultType"`
	Error      ExceptionError `json:"error"`
	Meta       map[string]any `json:"meta,omitempty"`
}

type ExceptionError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
