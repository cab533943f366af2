package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"lovelink/backend/internal/auth"
)

// AuthRequired authenticates every REST request through the credential
// path. There is no header-based identity fallback: an unverifiable request
// never reaches a handler.
func (h *Handler) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.TokenFromRequest(c.Request)
		user, err := h.Auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			h.abortWithError(c, err)
			return
		}
		c.Set(ctxUserIDKey, user.ID)
		c.Next()
	}
}

// BoundedContext caps every REST request's context with the store-call
// timeout, so handler work inherits a deadline instead of running unbounded.
func (h *Handler) BoundedContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.Cfg.StoreCallTimeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
