// Package auth verifies bearer credentials on connection handshakes and
// REST requests and resolves them to active users. Raw tokens are never
// logged and never appear in client-visible errors — only an error class
// leaves this package.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"lovelink/backend/internal/apperr"
	"lovelink/backend/internal/models"
	"lovelink/backend/internal/storage"
)

const issuer = "lovelink-backend"

type Authenticator struct {
	secret []byte
	store  storage.Storage
	log    *zap.Logger
}

func NewAuthenticator(secret string, store storage.Storage, log *zap.Logger) *Authenticator {
	return &Authenticator{secret: []byte(secret), store: store, log: log}
}

// TokenFromRequest extracts the bearer credential from the Authorization
// header or the token query parameter, with or without a scheme prefix.
// Returns "" when absent.
func TokenFromRequest(r *http.Request) string {
	raw := r.Header.Get("Authorization")
	if raw == "" {
		raw = r.URL.Query().Get("token")
	}
	raw = strings.TrimSpace(raw)
	if len(raw) >= 7 && strings.EqualFold(raw[:7], "bearer ") {
		raw = strings.TrimSpace(raw[7:])
	}
	return raw
}

// Authenticate verifies the credential's signature and expiry and resolves
// the subject to an active, non-deleted user. Every failure is a typed
// auth error; verification internals stay in the server log.
func (a *Authenticator) Authenticate(ctx context.Context, tokenString string) (*models.User, error) {
	if tokenString == "" {
		return nil, apperr.New(apperr.AuthLoginRequired, "authentication required")
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			a.log.Info("credential rejected", zap.String("reason", "expired"))
			return nil, apperr.New(apperr.AuthSessionExpired, "session expired")
		}
		a.log.Info("credential rejected", zap.String("reason", "verification failed"))
		return nil, apperr.New(apperr.AuthLoginRequired, "authentication required")
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return nil, apperr.New(apperr.AuthLoginRequired, "authentication required")
	}
	userID, err := strconv.ParseUint(subject, 10, 64)
	if err != nil {
		return nil, apperr.New(apperr.AuthLoginRequired, "authentication required")
	}

	user, err := a.store.GetActiveUser(ctx, uint(userID))
	if err != nil {
		return nil, err
	}
	if user == nil {
		a.log.Info("credential rejected", zap.String("reason", "no active user"))
		return nil, apperr.New(apperr.AuthLoginRequired, "authentication required")
	}
	return user, nil
}

// IssueToken signs a credential for the user. Used by the login surface and
// by tests.
func (a *Authenticator) IssueToken(userID uint, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"exp": time.Now().Add(ttl).Unix(),
		"iss": issuer,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}
