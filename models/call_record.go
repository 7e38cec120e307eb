package models

import (
	"fmt"
	"time"
)

/************************************************
/**** MARK: CALL SOURCE ****/
/************************************************/
const CALL_SOURCE_LIVE = "live"
const CALL_SOURCE_TEST = "test"

// CallEvent is one notification from the external call monitor.
// It is consumed once and never persisted as-is; the durable trace of a call
// is the CallRecord derived from it.
type CallEvent struct {
	PhoneNumber string `json:"phoneNumber"`
	Timestamp   int64  `json:"timestamp"` // epoch millis
	ContactName string `json:"contactName,omitempty"`
	Source      string `json:"source"`
}

// CallID derives the dedup key for this event. Same call delivered twice
// (the monitor is at-least-once) yields the same id.
func (e CallEvent) CallID() string {
	return fmt.Sprintf("%d_%s", e.Timestamp, e.PhoneNumber)
}

// CallRecord is the persisted trace of a processed call. Rows are immutable
// once MessageSent is true; the ledger keeps only the most recent ones.
type CallRecord struct {
	ID          int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	CallID      string     `gorm:"not null;unique_index" json:"call_id"`
	PhoneNumber string     `gorm:"not null" json:"phone_number"`
	Processed   bool       `gorm:"not null;default:false" json:"processed"`
	MessageSent bool       `gorm:"not null;default:false" json:"message_sent"`
	SentAt      *time.Time `json:"sent_at"`
	Synced      bool       `gorm:"not null;default:false;index" json:"-"`
	CreatedAt   *time.Time `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}
