package automation

import (
	"sync"
	"time"

	"ringback/models"

	"github.com/jinzhu/gorm"
	"github.com/rs/zerolog"
)

// Ledger guarantees at most one outgoing message per call id, across process
// restarts. Check-then-mark is a critical section: two near-simultaneous
// deliveries of the same event must not both pass ShouldProcess, so every
// entry point holds the mutex.
type Ledger struct {
	mu      sync.Mutex
	db      *gorm.DB
	maxSize int
	log     zerolog.Logger
}

func NewLedger(db *gorm.DB, maxSize int, log zerolog.Logger) *Ledger {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &Ledger{
		db:      db,
		maxSize: maxSize,
		log:     log.With().Str("component", "ledger").Logger(),
	}
}

// ShouldProcess reports whether callID has never been processed.
func (l *Ledger) ShouldProcess(callID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	var count int
	if err := l.db.Model(&models.CallRecord{}).
		Where("call_id = ? AND processed = ?", callID, true).
		Count(&count).Error; err != nil {
		l.log.Error().Str("call_id", callID).Err(err).Msg("ledger lookup failed")
		// When the ledger cannot answer, err on the side of not sending:
		// a duplicate message is worse than a missed one.
		return false
	}
	return count == 0
}

// MarkProcessed records the outcome for callID. Called regardless of whether
// the send succeeded, so redelivered events never retry-storm.
func (l *Ledger) MarkProcessed(callID, phoneNumber string, sent bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	record := models.CallRecord{
		CallID:      callID,
		PhoneNumber: phoneNumber,
		Processed:   true,
		MessageSent: sent,
	}
	if sent {
		now := time.Now()
		record.SentAt = &now
	}

	if err := l.db.Where(models.CallRecord{CallID: callID}).
		Assign(map[string]any{
			"processed":    true,
			"message_sent": record.MessageSent,
			"sent_at":      record.SentAt,
			"phone_number": phoneNumber,
		}).
		FirstOrCreate(&record).Error; err != nil {
		return err
	}

	l.evictOldest()
	return nil
}

// evictOldest trims the ledger to its bounded window, oldest rows first.
// Caller holds the mutex.
func (l *Ledger) evictOldest() {
	var count int
	if err := l.db.Model(&models.CallRecord{}).Count(&count).Error; err != nil {
		return
	}
	if count <= l.maxSize {
		return
	}

	var oldest []models.CallRecord
	if err := l.db.Order("id asc").Limit(count - l.maxSize).Find(&oldest).Error; err != nil {
		return
	}
	for _, r := range oldest {
		if err := l.db.Delete(&models.CallRecord{}, "id = ?", r.ID).Error; err != nil {
			l.log.Warn().Int64("id", r.ID).Err(err).Msg("eviction failed")
		}
	}
}

// Count returns how many processed calls the ledger currently holds.
func (l *Ledger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	var count int
	if err := l.db.Model(&models.CallRecord{}).
		Where("processed = ?", true).
		Count(&count).Error; err != nil {
		return 0
	}
	return count
}

// Clear wipes the ledger. User-initiated: previously seen calls become
// eligible again, which is the documented meaning of "clear history".
func (l *Ledger) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.db.Delete(&models.CallRecord{}).Error
}

// Unsynced returns processed records not yet uploaded to the backend.
func (l *Ledger) Unsynced(limit int) ([]models.CallRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var records []models.CallRecord
	err := l.db.Where("processed = ? AND synced = ?", true, false).
		Order("id asc").Limit(limit).Find(&records).Error
	return records, err
}

// MarkSynced flags records as uploaded.
func (l *Ledger) MarkSynced(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.db.Model(&models.CallRecord{}).
		Where("id IN (?)", ids).
		Update("synced", true).Error
}
