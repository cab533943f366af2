package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsAddressable(t *testing.T) {
	active := &User{Status: UserStatusActive}
	assert.True(t, active.IsAddressable())

	inactive := &User{Status: UserStatusInactive}
	assert.False(t, inactive.IsAddressable())

	deleted := &User{
		Status:    UserStatusActive,
		DeletedAt: gorm.DeletedAt{Time: time.Now(), Valid: true},
	}
	assert.False(t, deleted.IsAddressable())
}

func TestValidMediaType(t *testing.T) {
	for _, ok := range []string{MediaTypeText, MediaTypeAudio, MediaTypePhoto, MediaTypeVideo} {
		assert.True(t, ValidMediaType(ok), ok)
	}
	for _, bad := range []string{"", "text", "GIF", "STICKER"} {
		assert.False(t, ValidMediaType(bad), bad)
	}
}
