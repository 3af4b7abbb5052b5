// Package models defines the core data structures shared by the trade journal
// client and the API server: users, tickers, tags, trades and their request payloads.
package models

import "time"

// User represents an application user.
type User struct {
	// ID is the unique identifier for the user.
	ID string `json:"id"`
	// Name is the display name chosen at registration.
	Name string `json:"name"`
	// Email is the login identity of the user.
	Email string `json:"email"`
	// PhoneNumber is an optional contact number.
	PhoneNumber *string `json:"phone_number,omitempty"`
	// IsAdmin marks administrative accounts.
	IsAdmin bool `json:"is_admin"`
	// CreatedAt is the registration time.
	CreatedAt time.Time `json:"created_at"`
	// PasswordHash is the bcrypt hash of the password. Never serialized.
	PasswordHash []byte `json:"-"`
}

// Ticker is a tradable instrument reference.
type Ticker struct {
	ID          string    `json:"id"`
	Symbol      string    `json:"symbol"`
	Exchange    string    `json:"exchange"`
	Name        string    `json:"name"`
	LastPrice   float64   `json:"last_price"`
	LastUpdated time.Time `json:"last_updated"`
}

// Tag is a free-form label attached to trades by name.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TagInput names a tag in create and update requests.
type TagInput struct {
	Name string `json:"name"`
}
