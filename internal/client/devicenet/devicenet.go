// Package devicenet dispatches lock control commands to the device network.
package devicenet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/voltride/fleet-api/internal/client/tokencache"
	"github.com/voltride/fleet-api/internal/config"
)

var (
	// ErrDispatchFailed is returned when a command cannot be delivered.
	ErrDispatchFailed = errors.New("device network dispatch failed")
	// ErrNotConfigured wraps ErrDispatchFailed for deployments without
	// device network credentials. Permanent until the config changes.
	ErrNotConfigured = fmt.Errorf("%w: device network credentials not configured", ErrDispatchFailed)
)

// Client is a client for the device network command API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	networkID  string
	tokenCache *tokencache.Cache
	configured bool
}

// NewClient creates a new instance of Client. Missing credentials do
// not fail construction; Send reports ErrNotConfigured instead so the
// rest of the service keeps running.
func NewClient(settings *config.Settings, tokenCache *tokencache.Cache, httpClient *http.Client) (*Client, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("HTTP client is required")
	}
	if tokenCache == nil {
		return nil, fmt.Errorf("token cache is required")
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    settings.DeviceAPIURL,
		networkID:  settings.DeviceNetworkID,
		tokenCache: tokenCache,
		configured: settings.DeviceAPIURL != "" && settings.DeviceAPIKey != "" && settings.DeviceNetworkID != "",
	}, nil
}

type commandRequest struct {
	Command string `json:"command"`
}

type commandAck struct {
	Status string `json:"status"`
}

// Send delivers one command to a device. Success is an upstream 200
// with an acknowledging body.
func (c *Client) Send(ctx context.Context, deviceID, command string) error {
	if !c.configured {
		return ErrNotConfigured
	}

	endpoint, err := url.JoinPath(c.baseURL, "devices", deviceID, "commands")
	if err != nil {
		return fmt.Errorf("%w: build command URL: %v", ErrDispatchFailed, err)
	}

	token, err := c.tokenCache.GetToken(ctx, tokencache.NetworkTokenKey(c.networkID))
	if err != nil {
		return fmt.Errorf("%w: get session token: %v", ErrDispatchFailed, err)
	}

	reqBytes, err := json.Marshal(commandRequest{Command: command})
	if err != nil {
		return fmt.Errorf("%w: marshal command: %v", ErrDispatchFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(reqBytes))
	if err != nil {
		return fmt.Errorf("%w: create request: %v", ErrDispatchFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: status %d: %s", ErrDispatchFailed, resp.StatusCode, string(body))
	}

	var ack commandAck
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return fmt.Errorf("%w: decode ack: %v", ErrDispatchFailed, err)
	}
	return nil
}
