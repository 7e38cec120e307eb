package automation

import (
	"context"
	"sync"
	"time"

	"ringback/models"
	"ringback/tools"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
	"github.com/rs/zerolog"
)

// Synchronizer reconciles the local automation settings with the remote
// authoritative copy. Offline-first: every read is served from the local row,
// user edits land locally immediately and are pushed in the background, and a
// pull never overwrites an edit made inside the grace window.
type Synchronizer struct {
	mu      sync.Mutex
	db      *gorm.DB
	backend *tools.BackendClient
	grace   time.Duration
	log     zerolog.Logger
}

func NewSynchronizer(db *gorm.DB, backend *tools.BackendClient, grace time.Duration, log zerolog.Logger) (*Synchronizer, error) {
	s := &Synchronizer{
		db:      db,
		backend: backend,
		grace:   grace,
		log:     log.With().Str("component", "sync").Logger(),
	}
	if err := s.ensureRow(); err != nil {
		return nil, err
	}
	return s, nil
}

// ensureRow creates the singleton config row with safe defaults on first run:
// automation off, default template, stable device id.
func (s *Synchronizer) ensureRow() error {
	var cfg models.AutomationConfig
	err := s.db.Where("id = ?", 1).First(&cfg).Error
	if err == nil {
		if cfg.DeviceID == "" {
			return s.db.Model(&cfg).Update("device_id", uuid.NewString()).Error
		}
		return nil
	}
	if !gorm.IsRecordNotFoundError(err) {
		return err
	}
	cfg = models.AutomationConfig{
		ID:        1,
		IsEnabled: false,
		Message:   models.DefaultMessageTemplate,
		DeviceID:  uuid.NewString(),
	}
	return s.db.Create(&cfg).Error
}

// Snapshot returns a copy of the current config. Callers processing one call
// work off a single snapshot so settings cannot change mid-pipeline.
func (s *Synchronizer) Snapshot() models.AutomationConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Synchronizer) load() models.AutomationConfig {
	var cfg models.AutomationConfig
	if err := s.db.Where("id = ?", 1).First(&cfg).Error; err != nil {
		s.log.Error().Err(err).Msg("config row read failed")
	}
	return cfg
}

// DeviceID returns the stable local device identity.
func (s *Synchronizer) DeviceID() string {
	return s.Snapshot().DeviceID
}

func (s *Synchronizer) SetEnabled(enabled bool) error {
	return s.edit(map[string]any{"is_enabled": enabled})
}

func (s *Synchronizer) SetTemplate(message string) error {
	return s.edit(map[string]any{"message": message})
}

func (s *Synchronizer) SetFilterKnownContacts(filter bool) error {
	return s.edit(map[string]any{"filter_known_contacts": filter})
}

// edit writes a user action locally right away (the UI reflects it with no
// delay) and pushes it remotely in the background.
func (s *Synchronizer) edit(fields map[string]any) error {
	s.mu.Lock()
	now := time.Now()
	fields["local_edit_at"] = &now
	fields["dirty"] = true
	err := s.db.Model(&models.AutomationConfig{}).Where("id = ?", 1).Updates(fields).Error
	s.mu.Unlock()
	if err != nil {
		return err
	}
	go s.pushAsync()
	return nil
}

// ReportSent bumps the counters exactly once per successful delivery and
// schedules a remote push for dashboard parity.
func (s *Synchronizer) ReportSent() error {
	s.mu.Lock()
	now := time.Now()
	err := s.db.Model(&models.AutomationConfig{}).Where("id = ?", 1).
		Updates(map[string]any{
			"sent_count":     gorm.Expr("sent_count + 1"),
			"last_sent_time": &now,
			"dirty":          true,
		}).Error
	s.mu.Unlock()
	if err != nil {
		return err
	}
	go s.pushAsync()
	return nil
}

func (s *Synchronizer) pushAsync() {
	if !s.backend.Available() {
		return
	}
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 2 * time.Minute

	err := backoff.Retry(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.push(ctx)
	}, policy)
	if err != nil {
		s.log.Warn().Err(err).Msg("background push gave up, next reconcile retries")
	}
}

func (s *Synchronizer) push(ctx context.Context) error {
	s.mu.Lock()
	cfg := s.load()
	s.mu.Unlock()

	remote := tools.RemoteConfig{
		IsEnabled:           cfg.IsEnabled,
		Message:             cfg.Message,
		FilterKnownContacts: cfg.FilterKnownContacts,
		SentCount:           &cfg.SentCount,
		LastSentTime:        cfg.LastSentTime,
	}
	if err := s.backend.PutConfig(ctx, remote); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Model(&models.AutomationConfig{}).Where("id = ?", 1).
		Update("dirty", false).Error
}

// Reconcile runs on a fixed timer: flush a pending local edit first, then
// pull the authoritative copy. Remote unavailability is not an error state;
// the last-known-good local cache keeps serving.
func (s *Synchronizer) Reconcile(ctx context.Context) {
	if !s.backend.Available() {
		return
	}

	if s.Snapshot().Dirty {
		if err := s.push(ctx); err != nil {
			s.log.Debug().Err(err).Msg("push during reconcile failed, keeping local state")
			return
		}
	}

	remote, err := s.backend.GetConfig(ctx)
	if err != nil {
		s.log.Debug().Err(err).Msg("pull failed, keeping local state")
		return
	}
	if remote == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.load()
	if cfg.EditedWithin(s.grace, time.Now()) {
		// A concurrently-arriving stale pull must not clobber what the user
		// just tapped.
		s.log.Debug().Msg("local edit inside grace window, skipping pull merge")
		return
	}

	fields := map[string]any{
		"is_enabled":            remote.IsEnabled,
		"message":               remote.Message,
		"filter_known_contacts": remote.FilterKnownContacts,
	}
	if remote.SentCount != nil {
		fields["sent_count"] = *remote.SentCount
	}
	if remote.LastSentTime != nil {
		fields["last_sent_time"] = remote.LastSentTime
	}
	if err := s.db.Model(&models.AutomationConfig{}).Where("id = ?", 1).Updates(fields).Error; err != nil {
		s.log.Error().Err(err).Msg("pull merge failed")
	}
}

// UploadCalls pushes processed call records for dashboard parity.
// Best-effort: a failure leaves them flagged for the next cycle.
func (s *Synchronizer) UploadCalls(ctx context.Context, ledger *Ledger) {
	if !s.backend.Available() {
		return
	}

	records, err := ledger.Unsynced(50)
	if err != nil || len(records) == 0 {
		return
	}

	payload := make([]tools.CallSyncRecord, 0, len(records))
	ids := make([]int64, 0, len(records))
	for _, r := range records {
		payload = append(payload, tools.CallSyncRecord{
			CallID:      r.CallID,
			PhoneNumber: r.PhoneNumber,
			MessageSent: r.MessageSent,
			SentAt:      r.SentAt,
		})
		ids = append(ids, r.ID)
	}

	if err := s.backend.SyncCalls(ctx, payload); err != nil {
		s.log.Debug().Err(err).Int("count", len(payload)).Msg("call upload failed, will retry")
		return
	}
	if err := ledger.MarkSynced(ids); err != nil {
		s.log.Warn().Err(err).Msg("could not flag uploaded calls")
	}
}
