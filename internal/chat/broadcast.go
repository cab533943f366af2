package chat

import (
	"context"
	"fmt"
)

// Broadcaster fans an event out to every connection subscribed to a
// channel. The hub implements it on top of Redis pub/sub so events reach
// subscribers on every instance.
type Broadcaster interface {
	Broadcast(ctx context.Context, channel, event string, payload any) error
}

// RoomChannel is the fan-out channel for a room's subscribers.
func RoomChannel(roomID uint) string {
	return fmt.Sprintf("room:%d", roomID)
}

// UserChannel is a user's personal fan-out channel; every authenticated
// connection of that user is subscribed to it.
func UserChannel(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}
