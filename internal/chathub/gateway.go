package chathub

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"lovelink/backend/internal/apperr"
	"lovelink/backend/internal/chat"
	"lovelink/backend/internal/config"
	"lovelink/backend/internal/models"
)

// Gateway dispatches client socket events to the domain services and writes
// acks and exceptions back to the originating connection. Connections reach
// Dispatch only after authentication; every room-level check is re-run per
// event, never cached from an earlier join.
type Gateway struct {
	rooms    *chat.RoomService
	messages *chat.MessageService
	hub      *Manager
	cfg      *config.Config
	log      *zap.Logger
}

func NewGateway(rooms *chat.RoomService, messages *chat.MessageService, hub *Manager, cfg *config.Config, log *zap.Logger) *Gateway {
	return &Gateway{rooms: rooms, messages: messages, hub: hub, cfg: cfg, log: log}
}

// Dispatch handles one inbound envelope from an authenticated connection.
// The socket itself is long-lived; the work behind each event is bounded by
// the store-call timeout so a stalled backend cannot wedge the read pump.
func (g *Gateway) Dispatch(ctx context.Context, client Client, env models.Envelope) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.StoreCallTimeout)
	defer cancel()

	switch env.Event {
	case models.EventRoomJoin:
		g.handleJoin(ctx, client, env.Data)
	case models.EventMessageSend:
		g.handleSend(ctx, client, env.Data)
	case models.EventMessageRead:
		g.handleRead(ctx, client, env.Data)
	case models.EventMessageDelete:
		g.handleDelete(ctx, client, env.Data)
	default:
		g.sendException(client, env.Event,
			apperr.New(apperr.ValidationInvalidFormat, "unknown event"))
	}
}

func (g *Gateway) handleJoin(ctx context.Context, client Client, data json.RawMessage) {
	var req models.JoinRoomRequest
	if err := json.Unmarshal(data, &req); err != nil {
		g.sendException(client, models.EventRoomJoin,
			apperr.New(apperr.ValidationInvalidFormat, "malformed payload"))
		return
	}

	roomID, err := g.rooms.AuthorizeJoin(ctx, client.GetUserID(), req.ChatRoomID)
	if err != nil {
		g.sendException(client, models.EventRoomJoin, err)
		return
	}

	// Re-joining is a no-op beyond re-subscription. The ack waits for the
	// hub to apply the subscription so a message.new sent right after the
	// ack is guaranteed to reach this connection.
	channel := chat.RoomChannel(roomID)
	done := make(chan struct{})
	g.hub.SubscribeCh <- Subscription{Client: client, Channel: channel, Done: done}
	<-done

	g.sendEvent(client, models.EventRoomJoin, models.JoinRoomAck{OK: true, Joined: channel})
}

func (g *Gateway) handleSend(ctx context.Context, client Client, data json.RawMessage) {
	var req models.SendMessageRequest
	if err := json.Unmarshal(data, &req); err != nil {
		g.sendException(client, models.EventMessageSend,
			apperr.New(apperr.ValidationInvalidFormat, "malformed payload"))
		return
	}

	event, err := g.messages.Send(ctx, client.GetUserID(), req)
	if err != nil {
		g.sendException(client, models.EventMessageSend, err)
		return
	}
	g.sendEvent(client, models.EventMessageSend, models.SendMessageAck{OK: true, MessageID: event.MessageID})
}

func (g *Gateway) handleRead(ctx context.Context, client Client, data json.RawMessage) {
	var req models.MessageRef
	if err := json.Unmarshal(data, &req); err != nil || req.MessageID <= 0 {
		g.sendException(client, models.EventMessageRead,
			apperr.New(apperr.ValidationInvalidFormat, "malformed payload"))
		return
	}
	if err := g.messages.MarkRead(ctx, client.GetUserID(), uint(req.MessageID)); err != nil {
		g.sendException(client, models.EventMessageRead, err)
	}
}

func (g *Gateway) handleDelete(ctx context.Context, client Client, data json.RawMessage) {
	var req models.MessageRef
	if err := json.Unmarshal(data, &req); err != nil || req.MessageID <= 0 {
		g.sendException(client, models.EventMessageDelete,
			apperr.New(apperr.ValidationInvalidFormat, "malformed payload"))
		return
	}
	if err := g.messages.Delete(ctx, client.GetUserID(), uint(req.MessageID)); err != nil {
		g.sendException(client, models.EventMessageDelete, err)
	}
}

// sendEvent writes an event straight to the connection, bypassing fan-out.
// Used for acks addressed to one socket.
func (g *Gateway) sendEvent(client Client, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		g.log.Error("encoding ack failed", zap.String("event", event), zap.Error(err))
		return
	}
	raw, _ := json.Marshal(models.Envelope{Event: event, Data: data})
	select {
	case client.GetSendChannel() <- raw:
	default:
		g.log.Warn("ack dropped, send buffer full",
			zap.Uint("userId", client.GetUserID()),
			zap.String("event", event))
	}
}

// sendException maps any error to the client-visible exception envelope.
// Domain errors keep their code; everything else becomes a generic
// temporary-server-error with details only in the server log.
func (g *Gateway) sendException(client Client, sourceEvent string, err error) {
	appErr := apperr.Wrap(err)
	if appErr.Code == apperr.ServerTemporaryError {
		g.log.Error("unexpected gateway error",
			zap.Uint("userId", client.GetUserID()),
			zap.String("event", sourceEvent),
			zap.Error(err))
	}
	g.sendEvent(client, models.EventException, models.ExceptionEvent{
		ResultType: "FAIL",
		Error:      models.ExceptionError{Code: string(appErr.Code), Message: appErr.Message},
		Meta:       map[string]any{"event": sourceEvent},
	})
}
