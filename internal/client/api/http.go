package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wesigned/wesigned/internal/client/models"
	"github.com/wesigned/wesigned/internal/common"
	"github.com/wesigned/wesigned/internal/logging"
)

// TokenSource supplies the current auth token, or "" when signed out.
type TokenSource func(ctx context.Context) (string, error)

// HTTPClient implements Client over the server's JSON API.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	token   TokenSource
	log     logging.Logger
}

// NewHTTPClient returns a client rooted at baseURL (".../api", no trailing
// slash). A nil httpClient gets a default with a 10s timeout; a nil token
// source means unauthenticated requests.
func NewHTTPClient(baseURL string, httpClient *http.Client, token TokenSource, log logging.Logger) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if token == nil {
		token = func(ctx context.Context) (string, error) { return "", nil }
	}
	return &HTTPClient{baseURL: baseURL, http: httpClient, token: token, log: log}
}

// syncPaths maps a channel to its server endpoint.
var syncPaths = map[string]string{
	common.ChannelAttendance: "/sync/attendance",
	common.ChannelSessions:   "/sync/sessions",
}

type batchRequest struct {
	Items []json.RawMessage `json:"items"`
}

type sessionEnvelope struct {
	AttSession models.SessionDraft `json:"attSession"`
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ping", nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrSyncTransportFailure, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	// reachability only; the status does not matter
	return nil
}

func (c *HTTPClient) SyncBatch(ctx context.Context, channel string, items []json.RawMessage) (*SyncResult, error) {
	path, ok := syncPaths[channel]
	if !ok {
		return nil, fmt.Errorf("unknown sync channel %q", channel)
	}

	resp, err := c.post(ctx, path, batchRequest{Items: items})
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", common.ErrSyncTransportFailure, err)
	}
	defer resp.Body.Close()

	result := &SyncResult{HTTPStatus: resp.StatusCode}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		// a response arrived; an unreadable body is a rejection, not a
		// transport failure
		c.log.Warn(ctx, "undecodable sync response", "channel", channel, "status", resp.StatusCode, "error", err)
		result.Success = false
	}
	return result, nil
}

func (c *HTTPClient) SignAttendance(ctx context.Context, specialID string, signin *models.SignIn) error {
	resp, err := c.post(ctx, "/attendance-sessions/"+specialID+"/sign", signin)
	if err != nil {
		return fmt.Errorf("sign attendance: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sign attendance failed: %s: %s", resp.Status, string(b))
	}
	return nil
}

func (c *HTTPClient) CreateSession(ctx context.Context, draft *models.SessionDraft) (*models.SessionDraft, error) {
	resp, err := c.post(ctx, "/attendance-sessions", map[string]any{"payload": draft})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("create session failed: %s: %s", resp.Status, string(b))
	}

	var env sessionEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("create session: decode response: %w", err)
	}
	return &env.AttSession, nil
}

func (c *HTTPClient) GetSession(ctx context.Context, specialID string) (*models.SessionDraft, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/attendance-sessions/"+specialID, nil)
	if err != nil {
		return nil, err
	}
	if err := c.authorize(ctx, req); err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: session %s", common.ErrNotFound, specialID)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("get session failed: %s", resp.Status)
	}

	var env sessionEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("get session: decode response: %w", err)
	}
	return &env.AttSession, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.authorize(ctx, req); err != nil {
		return nil, err
	}

	return c.http.Do(req)
}

// authorize attaches the auth header in the server's expected
// "x-auth-token" scheme. An expired token is never sent.
func (c *HTTPClient) authorize(ctx context.Context, req *http.Request) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}
	if token == "" {
		return nil
	}
	if err := checkTokenExpiry(token); err != nil {
		return err
	}
	req.Header.Set("Authorization", "x-auth-token "+token)
	return nil
}

// checkTokenExpiry inspects the token's exp claim locally, without verifying
// the signature (the server does that). Malformed tokens are passed through;
// the server rejects them with a clearer error than we could produce.
func checkTokenExpiry(raw string) error {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return common.ErrTokenExpired
	}
	return nil
}
