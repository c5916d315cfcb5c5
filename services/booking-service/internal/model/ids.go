package model

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/google/uuid"
)

func NewID() string {
	return uuid.NewString()
}

// NewManageToken returns an unguessable token granting holder-based access
// to one booking. 24 random bytes, URL-safe so it can ride in a link.
func NewManageToken() string {
	var b [24]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
