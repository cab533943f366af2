package chathub

import (
	"context"

	"go.uber.org/zap"

	"lovelink/backend/internal/chat"
	"lovelink/backend/internal/metrics"
	"lovelink/backend/internal/presence"
	"lovelink/backend/internal/storage"
)

// Subscription attaches a client to a broadcast channel. Done, when set, is
// closed once the hub has applied the change, letting callers acknowledge a
// join only after it is effective.
type Subscription struct {
	Client  Client
	Channel string
	Done    chan struct{}
}

// delivery is one fan-out frame received from Redis pub/sub.
type delivery struct {
	channel string
	payload []byte
}

// Manager is the connection hub. A single Run goroutine owns the client and
// subscription maps; all mutation flows through the command channels, so no
// locking is needed and registration order is deterministic per client.
type Manager struct {
	clients       map[string]Client            // socketID -> client
	subscriptions map[string]map[string]Client // channel -> socketID -> client

	RegisterCh    chan Client
	UnregisterCh  chan Client
	SubscribeCh   chan Subscription
	UnsubscribeCh chan Subscription

	deliverCh chan delivery

	store    storage.Storage
	presence *presence.Tracker
	log      *zap.Logger
}

func NewManager(store storage.Storage, tracker *presence.Tracker, log *zap.Logger) *Manager {
	return &Manager{
		clients:       make(map[string]Client),
		subscriptions: make(map[string]map[string]Client),
		RegisterCh:    make(chan Client),
		UnregisterCh:  make(chan Client),
		SubscribeCh:   make(chan Subscription),
		UnsubscribeCh: make(chan Subscription),
		deliverCh:     make(chan delivery, 256),
		store:         store,
		presence:      tracker,
		log:           log,
	}
}

// Presence exposes the tracker for pong/liveness updates from the pumps.
func (m *Manager) Presence() *presence.Tracker {
	return m.presence
}

// Run is the hub dispatcher. It must be started exactly once.
func (m *Manager) Run(ctx context.Context) {
	m.startPubSubListener(ctx)

	for {
		select {
		case <-ctx.Done():
			for _, client := range m.clients {
				client.Close()
			}
			return

		case client := <-m.RegisterCh:
			m.handleRegister(client)

		case client := <-m.UnregisterCh:
			m.handleUnregister(client)

		case sub := <-m.SubscribeCh:
			m.handleSubscribe(sub)

		case sub := <-m.UnsubscribeCh:
			m.handleUnsubscribe(sub)

		case d := <-m.deliverCh:
			m.handleDelivery(d)
		}
	}
}

func (m *Manager) handleRegister(client Client) {
	m.clients[client.GetSocketID()] = client
	m.subscribe(chat.UserChannel(client.GetUserID()), client)
	m.presence.Connect(client.GetUserID(), client.GetSocketID())

	metrics.ConnectionsTotal.Set(float64(len(m.clients)))
	metrics.OnlineUsers.Set(float64(m.presence.OnlineCount()))
	m.log.Info("client registered",
		zap.Uint("userId", client.GetUserID()),
		zap.String("socketId", client.GetSocketID()))
}

func (m *Manager) handleUnregister(client Client) {
	socketID := client.GetSocketID()
	if _, ok := m.clients[socketID]; !ok {
		return
	}
	delete(m.clients, socketID)
	for channel, subs := range m.subscriptions {
		delete(subs, socketID)
		if len(subs) == 0 {
			delete(m.subscriptions, channel)
		}
	}
	m.presence.Disconnect(client.GetUserID(), socketID)
	client.Close()

	metrics.ConnectionsTotal.Set(float64(len(m.clients)))
	metrics.OnlineUsers.Set(float64(m.presence.OnlineCount()))
	m.log.Info("client unregistered",
		zap.Uint("userId", client.GetUserID()),
		zap.String("socketId", socketID))
}

func (m *Manager) handleSubscribe(sub Subscription) {
	if _, ok := m.clients[sub.Client.GetSocketID()]; ok {
		m.subscribe(sub.Channel, sub.Client)
	}
	if sub.Done != nil {
		close(sub.Done)
	}
}

func (m *Manager) handleUnsubscribe(sub Subscription) {
	if subs, ok := m.subscriptions[sub.Channel]; ok {
		delete(subs, sub.Client.GetSocketID())
		if len(subs) == 0 {
			delete(m.subscriptions, sub.Channel)
		}
	}
	if sub.Done != nil {
		close(sub.Done)
	}
}

func (m *Manager) subscribe(channel string, client Client) {
	subs, ok := m.subscriptions[channel]
	if !ok {
		subs = make(map[string]Client)
		m.subscriptions[channel] = subs
	}
	subs[client.GetSocketID()] = client
}

// handleDelivery forwards one fan-out frame to every local subscriber of
// its channel. A subscriber whose send buffer is full is dropped — a stuck
// connection must not stall the hub.
func (m *Manager) handleDelivery(d delivery) {
	for _, client := range m.subscriptions[d.channel] {
		select {
		case client.GetSendChannel() <- d.payload:
		default:
			m.log.Warn("dropping slow client",
				zap.Uint("userId", client.GetUserID()),
				zap.String("socketId", client.GetSocketID()))
			m.handleUnregister(client)
		}
	}
}
