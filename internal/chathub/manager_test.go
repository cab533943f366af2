package chathub_test

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"lovelink/backend/internal/chat"
	"lovelink/backend/internal/chathub"
	"lovelink/backend/internal/presence"
)

// fakeClient satisfies the hub's Client interface without a real socket.
type fakeClient struct {
	userID   uint
	socketID string
	send     chan []byte
	closed   atomic.Bool
}

func newFakeClient(userID uint, socketID string, buffer int) *fakeClient {
	return &fakeClient{userID: userID, socketID: socketID, send: make(chan []byte, buffer)}
}

func (c *fakeClient) GetUserID() uint               { return c.userID }
func (c *fakeClient) GetSocketID() string           { return c.socketID }
func (c *fakeClient) GetSendChannel() chan<- []byte { return c.send }
func (c *fakeClient) Run()                          {}
func (c *fakeClient) Close()                        { c.closed.Store(true) }

func (c *fakeClient) recv(t *testing.T) []byte {
	t.Helper()
	select {
	case raw := <-c.send:
		return raw
	case <-time.After(time.Second):
		t.Fatal("no frame received")
		return nil
	}
}

func (c *fakeClient) recvNothing(t *testing.T) {
	t.Helper()
	select {
	case raw := <-c.send:
		t.Fatalf("unexpected frame: %s", raw)
	case <-time.After(50 * time.Millisecond):
	}
}

func startHub(t *testing.T) (*chathub.Manager, *presence.Tracker) {
	t.Helper()
	tracker := presence.NewTracker()
	hub := chathub.NewManager(nil, tracker, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub, tracker
}

// barrier waits for the hub loop to drain everything sent before it.
func barrier(hub *chathub.Manager, c chathub.Client) {
	done := make(chan struct{})
	hub.UnsubscribeCh <- chathub.Subscription{Client: c, Channel: "noop", Done: done}
	<-done
}

func subscribe(hub *chathub.Manager, c chathub.Client, channel string) {
	done := make(chan struct{})
	hub.SubscribeCh <- chathub.Subscription{Client: c, Channel: channel, Done: done}
	<-done
}

func TestManager_RegisterRoutesUserChannel(t *testing.T) {
	hub, tracker := startHub(t)
	c := newFakeClient(1, "sock-1", 8)

	hub.RegisterCh <- c
	barrier(hub, c)
	assert.True(t, tracker.IsOnline(1))

	// Registration auto-subscribes the personal channel.
	hub.Deliver(chat.UserChannel(1), []byte(`{"event":"notification.new"}`))
	assert.JSONEq(t, `{"event":"notification.new"}`, string(c.recv(t)))
}

func TestManager_RoomFanOutReachesSubscribersOnly(t *testing.T) {
	hub, _ := startHub(t)
	a := newFakeClient(1, "sock-a", 8)
	b := newFakeClient(2, "sock-b", 8)
	stranger := newFakeClient(3, "sock-c", 8)

	for _, c := range []*fakeClient{a, b, stranger} {
		hub.RegisterCh <- c
	}
	subscribe(hub, a, chat.RoomChannel(10))
	subscribe(hub, b, chat.RoomChannel(10))

	hub.Deliver(chat.RoomChannel(10), []byte(`{"event":"message.new"}`))

	a.recv(t)
	b.recv(t)
	stranger.recvNothing(t)
}

func TestManager_SubscribeRequiresRegistration(t *testing.T) {
	hub, _ := startHub(t)
	c := newFakeClient(1, "sock-1", 8)

	// Never registered: the subscription is ignored but Done still closes.
	subscribe(hub, c, chat.RoomChannel(10))
	hub.Deliver(chat.RoomChannel(10), []byte(`{}`))
	c.recvNothing(t)
}

func TestManager_UnregisterStopsDelivery(t *testing.T) {
	hub, tracker := startHub(t)
	c := newFakeClient(1, "sock-1", 8)

	hub.RegisterCh <- c
	subscribe(hub, c, chat.RoomChannel(10))

	hub.UnregisterCh <- c
	barrier(hub, c)

	assert.True(t, c.closed.Load())
	assert.False(t, tracker.IsOnline(1))
	hub.Deliver(chat.RoomChannel(10), []byte(`{}`))
	c.recvNothing(t)
}

// A subscriber whose send buffer is full gets dropped instead of stalling
// the dispatcher.
func TestManager_SlowClientIsDropped(t *testing.T) {
	hub, tracker := startHub(t)
	slow := newFakeClient(1, "sock-slow", 1)
	healthy := newFakeClient(2, "sock-ok", 8)

	hub.RegisterCh <- slow
	hub.RegisterCh <- healthy
	subscribe(hub, slow, chat.RoomChannel(10))
	subscribe(hub, healthy, chat.RoomChannel(10))

	// First frame fills the slow client's buffer, second overflows it.
	hub.Deliver(chat.RoomChannel(10), []byte(`{"n":1}`))
	hub.Deliver(chat.RoomChannel(10), []byte(`{"n":2}`))
	barrier(hub, healthy)

	assert.True(t, slow.closed.Load())
	assert.False(t, tracker.IsOnline(1))
	assert.True(t, tracker.IsOnline(2))

	healthy.recv(t)
	healthy.recv(t)
}

func TestManager_MultiDevicePresence(t *testing.T) {
	hub, tracker := startHub(t)
	phone := newFakeClient(1, "sock-phone", 8)
	laptop := newFakeClient(1, "sock-laptop", 8)

	hub.RegisterCh <- phone
	hub.RegisterCh <- laptop
	barrier(hub, phone)
	assert.Equal(t, 1, tracker.OnlineCount())

	// Both sockets share the personal channel.
	hub.Deliver(chat.UserChannel(1), []byte(`{"event":"notification.new"}`))
	phone.recv(t)
	laptop.recv(t)

	hub.UnregisterCh <- phone
	barrier(hub, phone)
	assert.True(t, tracker.IsOnline(1))

	hub.UnregisterCh <- laptop
	barrier(hub, laptop)
	assert.False(t, tracker.IsOnline(1))
}

func TestManager_DeliveryPayloadUnchanged(t *testing.T) {
	hub, _ := startHub(t)
	c := newFakeClient(1, "sock-1", 8)
	hub.RegisterCh <- c
	barrier(hub, c)

	payload, _ := json.Marshal(map[string]any{"event": "message.new", "data": map[string]any{"messageId": 7}})
	hub.Deliver(chat.UserChannel(1), payload)
	assert.Equal(t, payload, c.recv(t))
}
