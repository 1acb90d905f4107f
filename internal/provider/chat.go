package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// SendAgentMessage forwards a dashboard test-chat message to the provider-hosted
// agent and returns the agent's reply text.
func (g *Gateway) SendAgentMessage(ctx context.Context, agentID, userID uuid.UUID, message string) (string, error) {
	if !g.configured() {
		return "", ErrUnavailable
	}
	body, err := json.Marshal(map[string]string{
		"userId":  userID.String(),
		"message": message,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat payload: %w", err)
	}
	resp, err := g.do(ctx, http.MethodPost, "/agent/chat/"+agentID.String(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("agent chat %s: %w", agentID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", g.rejected(resp)
	}
	var raw struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	return raw.Response, nil
}
