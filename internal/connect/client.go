package connect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to the backend's /api/whatsapp surface on behalf of a connect
// view. It is the Go counterpart of the dashboard's API client.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// PairingData is the artifact payload rendered by the view.
type PairingData struct {
	Code        string `json:"code"`
	Base64      string `json:"base64"`
	PairingCode string `json:"pairingCode"`
	Count       int    `json:"count"`
}

type PairingResponse struct {
	Instance string      `json:"instance"`
	Data     PairingData `json:"data"`
}

type StatusResponse struct {
	Instance    string `json:"instance"`
	IsConnected bool   `json:"isConnected"`
	Status      string `json:"status"`
}

// RequestPairing starts a pairing attempt for the agent.
func (c *Client) RequestPairing(ctx context.Context, agentID string) (*PairingResponse, error) {
	body, err := json.Marshal(map[string]string{"agentId": agentID})
	if err != nil {
		return nil, err
	}
	var resp PairingResponse
	if err := c.do(ctx, http.MethodPost, "/api/whatsapp/connect-instance", bytes.NewReader(body), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status asks for the current connection state of an instance.
func (c *Client) Status(ctx context.Context, instanceName string) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/whatsapp/status-instance/"+instanceName, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if decErr := json.NewDecoder(resp.Body).Decode(&apiErr); decErr == nil && apiErr.Error != "" {
			return fmt.Errorf("api error (status %d): %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("api error: status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
