package automation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ringback/models"
	"ringback/tools"

	"github.com/cenkalti/backoff/v4"
	"github.com/jinzhu/gorm"
	"github.com/rs/zerolog"
)

const chatTokenLength = 12

// CredentialProvider is the opaque session layer. UserID returns the
// authenticated identity, or "" when no session exists yet.
type CredentialProvider interface {
	UserID() string
}

// StaticCredentials satisfies CredentialProvider with a fixed id, which is
// how the config file injects the session today.
type StaticCredentials struct {
	ID string
}

func (s StaticCredentials) UserID() string { return s.ID }

// TokenManager owns the chat token lifecycle per provider identity:
// NoToken -> Current -> (24h or regenerate) -> Stale -> Current.
//
// The remote store is authoritative; the local cache (one row per identity)
// keeps sends working offline. Expiry is time-based only: issuing a new
// current token never revokes a link someone already received.
type TokenManager struct {
	mu       sync.Mutex
	db       *gorm.DB
	backend  *tools.BackendClient
	creds    CredentialProvider
	deviceID string
	chatBase string
	log      zerolog.Logger
}

func NewTokenManager(db *gorm.DB, backend *tools.BackendClient, creds CredentialProvider, deviceID, chatBase string, log zerolog.Logger) *TokenManager {
	return &TokenManager{
		db:       db,
		backend:  backend,
		creds:    creds,
		deviceID: deviceID,
		chatBase: chatBase,
		log:      log.With().Str("component", "tokens").Logger(),
	}
}

// identity resolves the canonical provider identity. The authenticated id
// always wins; the device id is the interim identity before login.
func (m *TokenManager) identity() (key string, authenticated bool) {
	if m.creds != nil {
		if id := m.creds.UserID(); id != "" {
			return "user:" + id, true
		}
	}
	return "device:" + m.deviceID, false
}

// ResolveCurrentLink returns the conversation URL for the active identity,
// refreshing lazily from the remote store and falling back to local issuance
// when the network is unavailable. It never blocks a send on the backend
// beyond one bounded fetch.
func (m *TokenManager) ResolveCurrentLink(ctx context.Context) (string, error) {
	key, authenticated := m.identity()

	m.mu.Lock()
	defer m.mu.Unlock()

	if authenticated {
		m.adoptDeviceTokenLocked(key)
	}

	if remote := m.fetchRemote(ctx, authenticated); remote != nil && time.Now().Before(remote.ExpiresAt) {
		m.storeLocked(key, *remote)
		return remote.ConversationURL, nil
	}

	if cached, ok := m.cachedLocked(key); ok && !cached.IsExpired(time.Now()) {
		return cached.ConversationURL, nil
	}

	token := m.issueLocalLocked(key)
	go m.registerRemote(authenticated, token)
	return token.ConversationURL, nil
}

// Regenerate forces a brand-new current token even if one exists. Links
// already delivered keep working until their own expiry.
func (m *TokenManager) Regenerate(ctx context.Context) (string, error) {
	key, authenticated := m.identity()

	m.mu.Lock()
	defer m.mu.Unlock()

	var remote *tools.RemoteToken
	var err error
	if m.backend.Available() {
		if authenticated {
			remote, err = m.backend.RegenerateToken(ctx)
		} else {
			remote, err = m.backend.RegenerateDeviceToken(ctx, m.deviceID)
		}
		if err != nil {
			m.log.Warn().Err(err).Msg("remote regenerate failed, issuing locally")
		}
	}

	if remote != nil {
		m.storeLocked(key, *remote)
		return remote.ConversationURL, nil
	}

	token := m.issueLocalLocked(key)
	go m.registerRemote(authenticated, token)
	return token.ConversationURL, nil
}

// CurrentURL returns the cached conversation URL without triggering issuance,
// for display surfaces that must not mint tokens as a side effect.
func (m *TokenManager) CurrentURL() string {
	key, authenticated := m.identity()

	m.mu.Lock()
	defer m.mu.Unlock()

	if authenticated {
		m.adoptDeviceTokenLocked(key)
	}
	if cached, ok := m.cachedLocked(key); ok && !cached.IsExpired(time.Now()) {
		return cached.ConversationURL
	}
	return ""
}

// adoptDeviceTokenLocked remaps a token issued under the device identity onto
// the freshly available authenticated identity, so links already sent keep a
// single lineage. The device row stays behind as a fallback key.
func (m *TokenManager) adoptDeviceTokenLocked(authKey string) {
	if _, ok := m.cachedLocked(authKey); ok {
		return
	}
	deviceToken, ok := m.cachedLocked("device:" + m.deviceID)
	if !ok || deviceToken.IsExpired(time.Now()) {
		return
	}
	m.storeLocked(authKey, tools.RemoteToken{
		Token:           deviceToken.Token,
		ConversationURL: deviceToken.ConversationURL,
		IssuedAt:        deviceToken.IssuedAt,
		ExpiresAt:       deviceToken.ExpiresAt,
	})
	m.log.Info().Msg("adopted device token for authenticated identity")
}

func (m *TokenManager) fetchRemote(ctx context.Context, authenticated bool) *tools.RemoteToken {
	if !m.backend.Available() {
		return nil
	}
	var (
		remote *tools.RemoteToken
		err    error
	)
	if authenticated {
		remote, err = m.backend.CurrentToken(ctx)
	} else {
		remote, err = m.backend.InitializeDeviceToken(ctx, m.deviceID)
	}
	if err != nil {
		m.log.Debug().Err(err).Msg("remote token fetch failed, using local state")
		return nil
	}
	return remote
}

func (m *TokenManager) cachedLocked(key string) (models.ChatToken, bool) {
	var token models.ChatToken
	if err := m.db.Where("identity = ?", key).First(&token).Error; err != nil {
		return models.ChatToken{}, false
	}
	return token, true
}

func (m *TokenManager) storeLocked(key string, remote tools.RemoteToken) {
	token := models.ChatToken{Identity: key}
	err := m.db.Where(models.ChatToken{Identity: key}).
		Assign(map[string]any{
			"token":            remote.Token,
			"conversation_url": remote.ConversationURL,
			"issued_at":        remote.IssuedAt,
			"expires_at":       remote.ExpiresAt,
		}).
		FirstOrCreate(&token).Error
	if err != nil {
		m.log.Error().Str("identity", key).Err(err).Msg("token cache write failed")
	}
}

// issueLocalLocked mints a token locally when the backend cannot. Same shape
// the backend would produce, so a later registration is a plain upload.
func (m *TokenManager) issueLocalLocked(key string) tools.RemoteToken {
	now := time.Now()
	token := tools.RemoteToken{
		Token:     tools.RandomString(chatTokenLength),
		IssuedAt:  now,
		ExpiresAt: now.Add(models.ChatTokenTTL),
	}
	token.ConversationURL = fmt.Sprintf("%s/chat/%s", m.chatBase, token.Token)
	m.storeLocked(key, token)
	m.log.Info().Str("identity", key).Msg("issued local fallback token")
	return token
}

// registerRemote uploads a locally issued token in the background so the
// dashboard can resolve the same link. Sends never wait on this.
func (m *TokenManager) registerRemote(authenticated bool, token tools.RemoteToken) {
	if !m.backend.Available() {
		return
	}
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 2 * time.Minute

	err := backoff.Retry(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return m.backend.RegisterToken(ctx, m.deviceID, authenticated, token)
	}, policy)
	if err != nil {
		m.log.Warn().Err(err).Msg("background token registration gave up, will retry on next issuance")
	}
}
