package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// RemoteConfig is the wire shape of the authoritative automation settings.
type RemoteConfig struct {
	IsEnabled           bool       `json:"isEnabled"`
	Message             string     `json:"message"`
	FilterKnownContacts bool       `json:"filterKnownContacts"`
	SentCount           *int64     `json:"sentCount,omitempty"`
	LastSentTime        *time.Time `json:"lastSentTime,omitempty"`
}

// RemoteToken is the wire shape of a chat access token.
type RemoteToken struct {
	Token           string    `json:"token"`
	ConversationURL string    `json:"conversationUrl"`
	IssuedAt        time.Time `json:"issuedAt"`
	ExpiresAt       time.Time `json:"expiresAt"`
}

// CallSyncRecord is one processed call uploaded for dashboard parity.
type CallSyncRecord struct {
	CallID      string     `json:"callId"`
	PhoneNumber string     `json:"phoneNumber"`
	MessageSent bool       `json:"messageSent"`
	SentAt      *time.Time `json:"sentAt,omitempty"`
}

// BackendClient talks to the remote backend. All calls are bearer-authed when
// a session credential exists; device-identity endpoints work without one.
type BackendClient struct {
	http *resty.Client
}

func NewBackendClient(baseURL, bearerToken string) *BackendClient {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetHeader("Content-Type", "application/json")
	if bearerToken != "" {
		c.SetAuthToken(bearerToken)
	}
	return &BackendClient{http: c}
}

// Available reports whether a backend is configured at all. Everything must
// keep working locally when it is not.
func (b *BackendClient) Available() bool {
	return b != nil && b.http.BaseURL != ""
}

func (b *BackendClient) GetConfig(ctx context.Context) (*RemoteConfig, error) {
	if !b.Available() {
		return nil, fmt.Errorf("backend not configured")
	}
	var out RemoteConfig
	resp, err := b.http.R().SetContext(ctx).SetResult(&out).Get("/automation/config")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() == 404 {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("get config: status=%d body=%s", resp.StatusCode(), resp.String())
	}
	return &out, nil
}

func (b *BackendClient) PutConfig(ctx context.Context, cfg RemoteConfig) error {
	if !b.Available() {
		return fmt.Errorf("backend not configured")
	}
	resp, err := b.http.R().SetContext(ctx).SetBody(cfg).Put("/automation/config")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("put config: status=%d body=%s", resp.StatusCode(), resp.String())
	}
	return nil
}

// CurrentToken fetches the current token for the authenticated identity.
// Returns (nil, nil) when the backend has none yet.
func (b *BackendClient) CurrentToken(ctx context.Context) (*RemoteToken, error) {
	return b.fetchToken(ctx, resty.MethodGet, "/chat/tokens/current", nil)
}

func (b *BackendClient) RegenerateToken(ctx context.Context) (*RemoteToken, error) {
	return b.fetchToken(ctx, resty.MethodPost, "/chat/tokens/regenerate", nil)
}

func (b *BackendClient) InitializeDeviceToken(ctx context.Context, deviceID string) (*RemoteToken, error) {
	return b.fetchToken(ctx, resty.MethodPost, "/chat/tokens/initialize-device", map[string]string{"deviceId": deviceID})
}

func (b *BackendClient) RegenerateDeviceToken(ctx context.Context, deviceID string) (*RemoteToken, error) {
	return b.fetchToken(ctx, resty.MethodPost, "/chat/tokens/regenerate-device", map[string]string{"deviceId": deviceID})
}

func (b *BackendClient) fetchToken(ctx context.Context, method, path string, body any) (*RemoteToken, error) {
	if !b.Available() {
		return nil, fmt.Errorf("backend not configured")
	}
	var out RemoteToken
	req := b.http.R().SetContext(ctx).SetResult(&out)
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() == 404 {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%s %s: status=%d body=%s", method, path, resp.StatusCode(), resp.String())
	}
	if out.Token == "" {
		return nil, nil
	}
	return &out, nil
}

// SyncCalls uploads processed call records. Best-effort: callers treat a
// failure as non-fatal and retry on the next cycle.
func (b *BackendClient) SyncCalls(ctx context.Context, records []CallSyncRecord) error {
	if !b.Available() {
		return fmt.Errorf("backend not configured")
	}
	resp, err := b.http.R().SetContext(ctx).SetBody(map[string]any{"calls": records}).Post("/calls/sync")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("sync calls: status=%d body=%s", resp.StatusCode(), resp.String())
	}
	return nil
}

// RegisterToken uploads a locally issued token so the remote store and the
// dashboard resolve the same link. The regenerate endpoints accept a proposed
// token for exactly this offline-recovery case.
func (b *BackendClient) RegisterToken(ctx context.Context, deviceID string, authenticated bool, token RemoteToken) error {
	if !b.Available() {
		return fmt.Errorf("backend not configured")
	}
	path := "/chat/tokens/regenerate-device"
	body := map[string]any{
		"deviceId":        deviceID,
		"token":           token.Token,
		"conversationUrl": token.ConversationURL,
		"issuedAt":        token.IssuedAt,
		"expiresAt":       token.ExpiresAt,
	}
	if authenticated {
		path = "/chat/tokens/regenerate"
		delete(body, "deviceId")
	}
	resp, err := b.http.R().SetContext(ctx).SetBody(body).Post(path)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("register token: status=%d body=%s", resp.StatusCode(), resp.String())
	}
	return nil
}
