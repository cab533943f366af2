// Package apperr defines the application error taxonomy. Every domain
// violation is raised as an *Error carrying a stable code and a client-safe
// message; the HTTP and socket boundaries are the only places that turn it
// into a response envelope.
package apperr

import (
	"errors"
	"net/http"
)

type Code string

const (
	ValidationInvalidFormat        Code = "VALIDATION_INVALID_FORMAT"
	ValidationRequiredFieldMissing Code = "VALIDATION_REQUIRED_FIELD_MISSING"
	AuthLoginRequired              Code = "AUTH_LOGIN_REQUIRED"
	AuthSessionExpired             Code = "AUTH_SESSION_EXPIRED"
	ChatRoomAccessFailed           Code = "CHAT_ROOM_ACCESS_FAILED"
	ChatMessageBlocked             Code = "CHAT_MESSAGE_BLOCKED"
	MediaPayloadTooLarge           Code = "MEDIA_PAYLOAD_TOO_LARGE"
	MediaUnsupportedType           Code = "MEDIA_UNSUPPORTED_TYPE"
	ServerTemporaryError           Code = "SERVER_TEMPORARY_ERROR"
)

type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap converts any error into an *Error. Errors already carrying a code
// pass through unchanged; everything else becomes a ServerTemporaryError so
// internals never leak to clients.
func Wrap(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(ServerTemporaryError, "temporary server error")
}

// HTTPStatus maps an error code to the REST status for that code.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case ValidationInvalidFormat, ValidationRequiredFieldMissing:
		return http.StatusBadRequest
	case AuthLoginRequired, AuthSessionExpired:
		return http.StatusUnauthorized
	case ChatRoomAccessFailed, ChatMessageBlocked:
		return http.StatusForbidden
	case MediaPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case MediaUnsupportedType:
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}

// Is lets errors.Is match two coded errors by code alone.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}
