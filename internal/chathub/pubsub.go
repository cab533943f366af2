package chathub

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"lovelink/backend/internal/models"
	"lovelink/backend/internal/storage"
)

// startPubSubListener subscribes this instance to every room and user
// channel pattern and feeds received frames into the hub's delivery
// channel. Publishing always goes through Redis — even for two clients on
// the same instance — so delivery semantics do not depend on placement.
func (m *Manager) startPubSubListener(ctx context.Context) {
	if m.store == nil {
		return
	}
	pubsub := m.store.PSubscribe(ctx, "room:*", "user:*")

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				m.Deliver(msg.Channel, []byte(msg.Payload))
			}
		}
	}()
}

// Deliver hands one encoded frame to the hub for local fan-out. Normally
// fed by the Redis listener.
func (m *Manager) Deliver(channel string, payload []byte) {
	m.deliverCh <- delivery{channel: channel, payload: payload}
}

// Publisher implements chat.Broadcaster by encoding events as envelopes and
// publishing them to the Redis fan-out channels.
type Publisher struct {
	store storage.Storage
	log   *zap.Logger
}

func NewPublisher(store storage.Storage, log *zap.Logger) *Publisher {
	return &Publisher{store: store, log: log}
}

func (p *Publisher) Broadcast(ctx context.Context, channel, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(models.Envelope{Event: event, Data: data})
	if err != nil {
		return err
	}
	return p.store.Publish(ctx, channel, raw)
}
