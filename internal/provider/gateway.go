package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const requestTimeout = 15 * time.Second

// ErrUnavailable is returned when the provider base URL or API key is not
// configured. Callers treat it as fatal for the request.
var ErrUnavailable = errors.New("whatsapp provider is not configured")

// RejectedError carries an explicit provider error so handlers can pass the
// message through to the user.
type RejectedError struct {
	StatusCode int
	Message    string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("provider rejected request (status %d): %s", e.StatusCode, e.Message)
}

// ArtifactKind distinguishes the two pairing artifact shapes the provider has
// returned across integrations: a raw code for a client-side QR encoder, or a
// pre-rendered image data URI.
type ArtifactKind string

const (
	ArtifactCode  ArtifactKind = "code"
	ArtifactImage ArtifactKind = "image"
)

// PairingArtifact is what the end user scans to authorize the device link.
type PairingArtifact struct {
	Kind  ArtifactKind `json:"kind"`
	Code  string       `json:"code,omitempty"`
	Image string       `json:"image,omitempty"`
}

// Payload returns the value persisted as the connection code: the raw code
// when present, otherwise the image data URI.
func (a PairingArtifact) Payload() string {
	if a.Kind == ArtifactImage {
		return a.Image
	}
	return a.Code
}

// ConnectResult is the normalized outcome of a connect call.
type ConnectResult struct {
	Artifact    PairingArtifact
	PairingCode string
	Count       int
}

// Gateway wraps the messaging provider's instance endpoints. The provider's
// response field names have changed between integrations; all of that is
// normalized here so callers see one fixed contract.
type Gateway struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *slog.Logger
}

func NewGateway(baseURL, apiKey string, log *slog.Logger) *Gateway {
	if log == nil {
		log = slog.Default()
	}
	return &Gateway{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: requestTimeout},
		log:        log,
	}
}

func (g *Gateway) configured() bool {
	return g.baseURL != "" && g.apiKey != ""
}

// CreateInstance registers a named instance with the provider. Creation is
// idempotent on the provider side, so re-creating after a lost local record
// is safe.
func (g *Gateway) CreateInstance(ctx context.Context, instanceName string, agentID uuid.UUID) error {
	if !g.configured() {
		return ErrUnavailable
	}
	body, err := json.Marshal(map[string]any{
		"instanceName": instanceName,
		"agentId":      agentID.String(),
		"qrcode":       true,
	})
	if err != nil {
		return fmt.Errorf("marshal create instance payload: %w", err)
	}
	resp, err := g.do(ctx, http.MethodPost, "/instance/create", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create instance %q: %w", instanceName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return g.rejected(resp)
	}
	return nil
}

// Connect requests a pairing artifact for the instance. The artifact is
// returned opaquely; callers must not assume code vs image.
func (g *Gateway) Connect(ctx context.Context, instanceName string) (*ConnectResult, error) {
	if !g.configured() {
		return nil, ErrUnavailable
	}
	resp, err := g.do(ctx, http.MethodGet, "/instance/connect/"+instanceName, nil)
	if err != nil {
		return nil, fmt.Errorf("connect instance %q: %w", instanceName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, g.rejected(resp)
	}

	// The two provider iterations disagree on field names and nesting:
	// {code}, {qrCode}, {base64}, or everything under {data:{...}}.
	var raw connectPayload
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode connect response: %w", err)
	}
	if raw.Data != nil {
		raw.lift(raw.Data)
	}

	result := &ConnectResult{PairingCode: raw.PairingCode, Count: raw.Count}
	switch {
	case raw.Base64 != "":
		result.Artifact = PairingArtifact{Kind: ArtifactImage, Image: raw.Base64}
	case raw.Code != "":
		result.Artifact = PairingArtifact{Kind: ArtifactCode, Code: raw.Code}
	case raw.QRCode != "":
		result.Artifact = PairingArtifact{Kind: ArtifactCode, Code: raw.QRCode}
	default:
		return nil, fmt.Errorf("connect instance %q: provider returned no pairing artifact", instanceName)
	}
	return result, nil
}

// CheckStatus reports whether the instance link is up. A reachable provider
// that has not confirmed the link yet is (false, nil); only transport and
// auth failures return an error.
func (g *Gateway) CheckStatus(ctx context.Context, instanceName string) (bool, error) {
	if !g.configured() {
		return false, ErrUnavailable
	}
	resp, err := g.do(ctx, http.MethodGet, "/instance/connectionState/"+instanceName, nil)
	if err != nil {
		return false, fmt.Errorf("check status %q: %w", instanceName, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return false, g.rejected(resp)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		// Instance unknown or still initializing: not connected yet.
		return false, nil
	}

	var raw struct {
		IsConnected *bool  `json:"isConnected"`
		State       string `json:"state"`
		Instance    *struct {
			State string `json:"state"`
		} `json:"instance"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return false, fmt.Errorf("decode status response: %w", err)
	}
	if raw.IsConnected != nil {
		return *raw.IsConnected, nil
	}
	state := raw.State
	if raw.Instance != nil && raw.Instance.State != "" {
		state = raw.Instance.State
	}
	return strings.EqualFold(state, "open") || strings.EqualFold(state, "connected"), nil
}

func (g *Gateway) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", g.apiKey)
	return g.httpClient.Do(req)
}

// rejected drains the response body for the provider's error message.
func (g *Gateway) rejected(resp *http.Response) error {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	msg := resp.Status
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		if body.Error != "" {
			msg = body.Error
		} else if body.Message != "" {
			msg = body.Message
		}
	}
	return &RejectedError{StatusCode: resp.StatusCode, Message: msg}
}

type connectPayload struct {
	Code        string          `json:"code"`
	PairingCode string          `json:"pairingCode"`
	QRCode      string          `json:"qrCode"`
	Base64      string          `json:"base64"`
	Count       int             `json:"count"`
	Data        *connectPayload `json:"data"`
}

func (p *connectPayload) lift(d *connectPayload) {
	if d.Code != "" {
		p.Code = d.Code
	}
	if d.PairingCode != "" {
		p.PairingCode = d.PairingCode
	}
	if d.QRCode != "" {
		p.QRCode = d.QRCode
	}
	if d.Base64 != "" {
		p.Base64 = d.Base64
	}
	if d.Count != 0 {
		p.Count = d.Count
	}
}
