package models

import "time"

// LinkPlaceholder is the token a user puts in the message template where the
// chat link should go.
const LinkPlaceholder = "{link}"

// DefaultMessageTemplate is used until the user edits the template.
const DefaultMessageTemplate = "Sorry I missed your call! You can reach me right now in my web chat: " + LinkPlaceholder

// AutomationConfig is the single local copy of the automation settings.
// Exactly one row exists (id=1). The remote copy is authoritative for
// IsEnabled/Message/FilterKnownContacts; the counters are bumped locally and
// reconciled against the remote value on pull.
type AutomationConfig struct {
	ID                  int64      `gorm:"primary_key" json:"id"`
	IsEnabled           bool       `gorm:"not null;default:false" json:"is_enabled"`
	Message             string     `gorm:"type:text" json:"message"`
	FilterKnownContacts bool       `gorm:"not null;default:false" json:"filter_known_contacts"`
	SentCount           int64      `gorm:"not null;default:0" json:"sent_count"`
	LastSentTime        *time.Time `json:"last_sent_time"`
	// DeviceID is the locally generated stable identity used before any
	// authenticated identity exists.
	DeviceID string `gorm:"not null;default:''" json:"-"`
	// LocalEditAt stamps the last explicit user edit. A pull arriving inside
	// the grace window after it must not overwrite the edit.
	LocalEditAt *time.Time `json:"-"`
	Dirty       bool       `gorm:"not null;default:false" json:"-"`
	CreatedAt   *time.Time `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

// EditedWithin reports whether a user edit happened inside the grace window.
func (c AutomationConfig) EditedWithin(window time.Duration, now time.Time) bool {
	if c.LocalEditAt == nil {
		return false
	}
	return now.Sub(*c.LocalEditAt) < window
}
