package models

import "time"

// TelegramVerification is the one-time code a user sends to the bot to link
// their Telegram account.
type TelegramVerification struct {
	VerificationCode string    `json:"verification_code"`
	ExpiresAt        time.Time `json:"expires_at"`
	BotUsername      string    `json:"bot_username"`
}

// TelegramStatus reports whether a Telegram account is linked.
type TelegramStatus struct {
	Connected   bool       `json:"connected"`
	Username    *string    `json:"username"`
	ConnectedAt *time.Time `json:"connected_at"`
}

// TelegramLink is the server-side record of a user's Telegram linking. A
// pending link has a code and no ConnectedAt.
type TelegramLink struct {
	UserID        string
	Code          *string
	CodeExpiresAt *time.Time
	Username      *string
	ConnectedAt   *time.Time
}

// Connected reports whether the bot has confirmed the link.
func (l TelegramLink) Connected() bool {
	return l.ConnectedAt != nil
}
