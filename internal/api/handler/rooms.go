package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lovelink/backend/internal/apperr"
)

type createRoomRequest struct {
	TargetUserID uint `json:"targetUserId"`
}

// CreateRoom creates, reuses or reactivates the conversation with the
// target user.
func (h *Handler) CreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.abortWithError(c, apperr.New(apperr.ValidationInvalidFormat, "malformed request body"))
		return
	}

	result, err := h.Rooms.CreateRoom(c.Request.Context(), currentUserID(c), req.TargetUserID)
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	c.JSON(status, result)
}

// ListRooms returns the caller's rooms, cursor-paginated.
func (h *Handler) ListRooms(c *gin.Context) {
	page, err := h.Rooms.ListRooms(c.Request.Context(), currentUserID(c), c.Query("cursor"), h.pageSize(c))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetRoomDetail returns one room with the peer profile and the caller's
// join timestamp.
func (h *Handler) GetRoomDetail(c *gin.Context) {
	roomID, err := pathID(c, "id")
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	detail, err := h.Rooms.GetRoomDetail(c.Request.Context(), currentUserID(c), roomID)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// LeaveRoom ends the caller's participation in the room.
func (h *Handler) LeaveRoom(c *gin.Context) {
	roomID, err := pathID(c, "id")
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	if err := h.Rooms.LeaveRoom(c.Request.Context(), currentUserID(c), roomID); err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ListMessages returns the room history visible to the caller,
// cursor-paginated.
func (h *Handler) ListMessages(c *gin.Context) {
	roomID, err := pathID(c, "id")
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	page, err := h.Messages.ListMessages(c.Request.Context(), currentUserID(c), roomID, c.Query("cursor"), h.pageSize(c))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

type presignRequest struct {
	Type        string `json:"type"`
	ContentType string `json:"contentType"`
	SizeBytes   int64  `json:"sizeBytes"`
}

// CreateUploadGrant issues a time-boxed presigned upload for chat media.
func (h *Handler) CreateUploadGrant(c *gin.Context) {
	roomID, err := pathID(c, "id")
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	var req presignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.abortWithError(c, apperr.New(apperr.ValidationInvalidFormat, "malformed request body"))
		return
	}

	grant, err := h.Media.CreateUploadGrant(c.Request.Context(), currentUserID(c), roomID, req.Type, req.ContentType, req.SizeBytes)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, grant)
}
