package devicenet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/voltride/fleet-api/internal/client/tokencache"
	"github.com/voltride/fleet-api/internal/config"
)

// SessionGetter exchanges the static device network API key for a
// short-lived session JWT. It implements tokencache.TokenGetter.
type SessionGetter struct {
	httpClient *http.Client
	sessionURL string
	apiKey     string
}

// NewSessionGetter creates a session token getter from settings.
func NewSessionGetter(settings *config.Settings, httpClient *http.Client) (*SessionGetter, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("HTTP client is required")
	}
	sessionURL, err := url.JoinPath(settings.DeviceAPIURL, "auth", "session")
	if err != nil {
		return nil, fmt.Errorf("create session URL: %w", err)
	}
	return &SessionGetter{
		httpClient: httpClient,
		sessionURL: sessionURL,
		apiKey:     settings.DeviceAPIKey,
	}, nil
}

type sessionRequest struct {
	NetworkID string `json:"network_id"`
	Key       string `json:"key"`
}

type sessionResponse struct {
	Token string `json:"token"`
}

// GetToken fetches a fresh session token for the network encoded in key.
func (g *SessionGetter) GetToken(ctx context.Context, key string) (string, error) {
	networkID, err := tokencache.NetworkIDFromKey(key)
	if err != nil {
		return "", fmt.Errorf("invalid token key: %w", err)
	}

	reqBytes, err := json.Marshal(sessionRequest{NetworkID: networkID, Key: g.apiKey})
	if err != nil {
		return "", fmt.Errorf("failed to marshal session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.sessionURL, bytes.NewBuffer(reqBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send session request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("non-200 response from session endpoint: %d: %s", resp.StatusCode, string(body))
	}

	var session sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return "", fmt.Errorf("failed to decode session response: %w", err)
	}
	if session.Token == "" {
		return "", fmt.Errorf("session endpoint returned an empty token")
	}
	return session.Token, nil
}
