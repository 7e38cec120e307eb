package models

import "time"

// ChatTokenTTL is how long an issued token stays current.
const ChatTokenTTL = 24 * time.Hour

// ChatToken is the cached "current" token for one provider identity.
// One row per identity; issuing a new token replaces the row but does not
// revoke links already delivered (expiry is time-based only).
type ChatToken struct {
	ID              int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	Identity        string     `gorm:"not null;unique_index" json:"identity"`
	Token           string     `gorm:"not null" json:"token"`
	ConversationURL string     `gorm:"column:conversation_url;not null" json:"conversation_url"`
	IssuedAt        time.Time  `gorm:"not null" json:"issued_at"`
	ExpiresAt       time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt       *time.Time `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at"`
}

func (t ChatToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
