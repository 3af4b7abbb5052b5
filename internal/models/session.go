package models

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by the server layers when a record does not exist
	// or belongs to another user.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique record already exists.
	ErrConflict = errors.New("already exists")
)

// AuthSession is the server-side record of an issued token pair.
type AuthSession struct {
	AccessToken      string
	RefreshToken     string
	UserID           string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// AccessValid reports whether the access token is still usable at now.
func (s AuthSession) AccessValid(now time.Time) bool {
	return now.Before(s.AccessExpiresAt)
}

// RefreshValid reports whether the refresh token is still usable at now.
func (s AuthSession) RefreshValid(now time.Time) bool {
	return now.Before(s.RefreshExpiresAt)
}
