package auth

import (
	"errors"
	"time"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
)

const (
	ProviderJWT      = "jwt"
	ProviderFirebase = "firebase"
)

type AccessClaims struct {
	UID       string
	Provider  string
	ExpiresAt time.Time
}
