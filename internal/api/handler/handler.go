package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lovelink/backend/internal/apperr"
	"lovelink/backend/internal/auth"
	"lovelink/backend/internal/chat"
	"lovelink/backend/internal/chathub"
	"lovelink/backend/internal/config"
	"lovelink/backend/internal/media"
)

const ctxUserIDKey = "userID"

// Handler bundles the HTTP surface's dependencies.
type Handler struct {
	Auth     *auth.Authenticator
	Rooms    *chat.RoomService
	Messages *chat.MessageService
	Media    *media.Service
	Hub      *chathub.Manager
	Gateway  *chathub.Gateway
	Cfg      *config.Config
	Log      *zap.Logger
}

func NewHandler(authn *auth.Authenticator, rooms *chat.RoomService, messages *chat.MessageService, mediaSvc *media.Service, hub *chathub.Manager, gateway *chathub.Gateway, cfg *config.Config, log *zap.Logger) *Handler {
	return &Handler{
		Auth:     authn,
		Rooms:    rooms,
		Messages: messages,
		Media:    mediaSvc,
		Hub:      hub,
		Gateway:  gateway,
		Cfg:      cfg,
		Log:      log,
	}
}

// RegisterRoutes wires the REST and socket surface onto the router.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws", h.ServeWebSocket)

	api := r.Group("/", h.BoundedContext(), h.AuthRequired())
	{
		api.POST("/chats/rooms", h.CreateRoom)
		api.GET("/chats/rooms", h.ListRooms)
		api.GET("/chats/rooms/:id", h.GetRoomDetail)
		api.DELETE("/chats/rooms/:id", h.LeaveRoom)
		api.GET("/chats/rooms/:id/messages", h.ListMessages)
		api.POST("/chats/rooms/:id/media/presign", h.CreateUploadGrant)
		api.PATCH("/messages/:id/read", h.MarkMessageRead)
		api.PATCH("/messages/:id", h.DeleteMessage)
	}
}

// abortWithError shapes any error into the client-visible {code, message}
// pair. Unexpected errors are logged in full here and surface as a generic
// temporary server error.
func (h *Handler) abortWithError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		h.Log.Error("unexpected handler error",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		appErr = apperr.New(apperr.ServerTemporaryError, "temporary server error")
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus(), gin.H{
		"error": gin.H{"code": appErr.Code, "message": appErr.Message},
	})
}

// currentUserID reads the authenticated user id that AuthRequired stored.
func currentUserID(c *gin.Context) uint {
	return c.GetUint(ctxUserIDKey)
}

// pathID parses a positive integer path parameter.
func pathID(c *gin.Context, name string) (uint, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.New(apperr.ValidationInvalidFormat, name+" must be a positive integer")
	}
	return uint(id), nil
}

// pageSize reads the size query parameter, bounded to [1, 100].
func (h *Handler) pageSize(c *gin.Context) int {
	raw := c.Query("size")
	if raw == "" {
		return h.Cfg.DefaultPageSize
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return h.Cfg.DefaultPageSize
	}
	if n > 100 {
		return 100
	}
	return n
}
