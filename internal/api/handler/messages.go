package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MarkMessageRead marks a received message as read. Repeats are silent
// no-ops; the read broadcast fires once.
func (h *Handler) MarkMessageRead(c *gin.Context) {
	messageID, err := pathID(c, "id")
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	if err := h.Messages.MarkRead(c.Request.Context(), currentUserID(c), messageID); err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// DeleteMessage soft-deletes a message the caller sent or received.
func (h *Handler) DeleteMessage(c *gin.Context) {
	messageID, err := pathID(c, "id")
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	if err := h.Messages.Delete(c.Request.Context(), currentUserID(c), messageID); err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
