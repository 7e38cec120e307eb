package automation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ringback/models"
	"ringback/tools"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChatBase = "https://chat.example"

func offlineBackend() *tools.BackendClient {
	return tools.NewBackendClient("", "")
}

func TestResolveFallsBackToLocalIssuance(t *testing.T) {
	m := NewTokenManager(openTestDB(t), offlineBackend(), StaticCredentials{}, "dev-1", testChatBase, testLogger())

	url, err := m.ResolveCurrentLink(context.Background())
	require.NoError(t, err)
	assert.Contains(t, url, testChatBase+"/chat/")

	token := url[len(testChatBase+"/chat/"):]
	assert.GreaterOrEqual(t, len(token), 8, "token needs at least 8 chars of entropy")
}

func TestResolveIsIdempotentWithoutExpiry(t *testing.T) {
	m := NewTokenManager(openTestDB(t), offlineBackend(), StaticCredentials{}, "dev-1", testChatBase, testLogger())

	first, err := m.ResolveCurrentLink(context.Background())
	require.NoError(t, err)
	second, err := m.ResolveCurrentLink(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, first, m.CurrentURL())
}

func TestResolveHonorsExpiryBoundary(t *testing.T) {
	db := openTestDB(t)
	m := NewTokenManager(db, offlineBackend(), StaticCredentials{}, "dev-1", testChatBase, testLogger())

	// still valid for one more hour: reused
	valid := models.ChatToken{
		Identity:        "device:dev-1",
		Token:           "stillvalid01",
		ConversationURL: testChatBase + "/chat/stillvalid01",
		IssuedAt:        time.Now().Add(-23 * time.Hour),
		ExpiresAt:       time.Now().Add(1 * time.Hour),
	}
	require.NoError(t, db.Create(&valid).Error)

	url, err := m.ResolveCurrentLink(context.Background())
	require.NoError(t, err)
	assert.Equal(t, valid.ConversationURL, url)

	// push it past 24h: a fresh token is issued
	require.NoError(t, db.Model(&models.ChatToken{}).
		Where("identity = ?", "device:dev-1").
		Update("expires_at", time.Now().Add(-time.Second)).Error)

	renewed, err := m.ResolveCurrentLink(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, valid.ConversationURL, renewed)
}

func TestRegenerateForcesNewToken(t *testing.T) {
	m := NewTokenManager(openTestDB(t), offlineBackend(), StaticCredentials{}, "dev-1", testChatBase, testLogger())

	current, err := m.ResolveCurrentLink(context.Background())
	require.NoError(t, err)

	regenerated, err := m.Regenerate(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, current, regenerated)

	// the new token is now the current one
	resolved, err := m.ResolveCurrentLink(context.Background())
	require.NoError(t, err)
	assert.Equal(t, regenerated, resolved)
}

func TestResolvePrefersRemoteToken(t *testing.T) {
	remote := tools.RemoteToken{
		Token:           "remotetok123",
		ConversationURL: testChatBase + "/chat/remotetok123",
		IssuedAt:        time.Now(),
		ExpiresAt:       time.Now().Add(models.ChatTokenTTL),
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/chat/tokens/initialize-device" && r.Method == http.MethodPost {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(remote)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	backend := tools.NewBackendClient(server.URL, "")
	m := NewTokenManager(openTestDB(t), backend, StaticCredentials{}, "dev-1", testChatBase, testLogger())

	url, err := m.ResolveCurrentLink(context.Background())
	require.NoError(t, err)
	assert.Equal(t, remote.ConversationURL, url)

	// cached locally, so going offline keeps the same link
	offline := NewTokenManager(m.db, offlineBackend(), StaticCredentials{}, "dev-1", testChatBase, testLogger())
	url, err = offline.ResolveCurrentLink(context.Background())
	require.NoError(t, err)
	assert.Equal(t, remote.ConversationURL, url)
}

func TestAuthenticatedIdentityAdoptsDeviceToken(t *testing.T) {
	db := openTestDB(t)

	device := NewTokenManager(db, offlineBackend(), StaticCredentials{}, "dev-1", testChatBase, testLogger())
	deviceURL, err := device.ResolveCurrentLink(context.Background())
	require.NoError(t, err)

	// session appears: the same database now serves the authenticated identity
	authed := NewTokenManager(db, offlineBackend(), StaticCredentials{ID: "user-42"}, "dev-1", testChatBase, testLogger())
	authedURL, err := authed.ResolveCurrentLink(context.Background())
	require.NoError(t, err)

	assert.Equal(t, deviceURL, authedURL, "links already sent must stay continuous across login")

	// the device row stays behind as a fallback key
	var fallback models.ChatToken
	require.NoError(t, db.Where("identity = ?", "device:dev-1").First(&fallback).Error)
	assert.Equal(t, deviceURL, fallback.ConversationURL)
}
