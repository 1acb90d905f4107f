package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/oichat/backend/internal/models"
)

// mockRepo keeps agents in a map and reproduces the CountActiveByUser
// contract (count ACTIVE agents for the user, excluding one ID).
type mockRepo struct {
	agents map[uuid.UUID]*models.Agent
}

func newMockRepo() *mockRepo {
	return &mockRepo{agents: map[uuid.UUID]*models.Agent{}}
}

func (m *mockRepo) Create(_ context.Context, ag *models.Agent) error {
	m.agents[ag.ID] = ag
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Agent, error) {
	return m.agents[id], nil
}

func (m *mockRepo) Update(_ context.Context, ag *models.Agent) error {
	m.agents[ag.ID] = ag
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.agents, id)
	return nil
}

func (m *mockRepo) ListByUserID(_ context.Context, userID uuid.UUID) ([]*models.Agent, error) {
	var out []*models.Agent
	for _, ag := range m.agents {
		if ag.UserID == userID {
			out = append(out, ag)
		}
	}
	return out, nil
}

func (m *mockRepo) CountActiveByUser(_ context.Context, userID, excludeID uuid.UUID) (int, error) {
	n := 0
	for _, ag := range m.agents {
		if ag.UserID == userID && ag.ID != excludeID && ag.Status == models.AgentStatusActive {
			n++
		}
	}
	return n, nil
}

func TestCreateDefaultsToInactive(t *testing.T) {
	svc := NewService(newMockRepo())

	ag, err := svc.Create(context.Background(), uuid.New(), "Sales Bot", "", "You sell things.", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ag.Status != models.AgentStatusInactive {
		t.Fatalf("expected INACTIVE default, got %q", ag.Status)
	}
}

func TestCreateRejectsInvalidStatus(t *testing.T) {
	svc := NewService(newMockRepo())

	_, err := svc.Create(context.Background(), uuid.New(), "Sales Bot", "", "", "PAUSED")
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestOneActiveAgentPerUser(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	userID := uuid.New()

	first, err := svc.Create(context.Background(), userID, "First", "", "", models.AgentStatusActive)
	if err != nil {
		t.Fatalf("Create first: %v", err)
	}

	// A second ACTIVE agent for the same user is refused.
	if _, err := svc.Create(context.Background(), userID, "Second", "", "", models.AgentStatusActive); !errors.Is(err, ErrActiveAgentExists) {
		t.Fatalf("expected ErrActiveAgentExists, got %v", err)
	}

	// An inactive one is fine, but activating it while the first is still
	// active is refused.
	second, err := svc.Create(context.Background(), userID, "Second", "", "", models.AgentStatusInactive)
	if err != nil {
		t.Fatalf("Create inactive: %v", err)
	}
	active := models.AgentStatusActive
	if _, err := svc.Update(context.Background(), userID, second.ID, UpdateParams{Status: &active}); !errors.Is(err, ErrActiveAgentExists) {
		t.Fatalf("expected ErrActiveAgentExists on activation, got %v", err)
	}

	// Deactivate the first, then activation goes through.
	inactive := models.AgentStatusInactive
	if _, err := svc.Update(context.Background(), userID, first.ID, UpdateParams{Status: &inactive}); err != nil {
		t.Fatalf("deactivate first: %v", err)
	}
	updated, err := svc.Update(context.Background(), userID, second.ID, UpdateParams{Status: &active})
	if err != nil {
		t.Fatalf("activate second: %v", err)
	}
	if updated.Status != models.AgentStatusActive {
		t.Fatalf("expected ACTIVE, got %q", updated.Status)
	}

	// A different user's active agent does not interfere.
	if _, err := svc.Create(context.Background(), uuid.New(), "Other", "", "", models.AgentStatusActive); err != nil {
		t.Fatalf("other user's active agent: %v", err)
	}
}

func TestUpdatePatchesOnlyProvidedFields(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	userID := uuid.New()

	ag, err := svc.Create(context.Background(), userID, "Sales Bot", "sells", "You sell things.", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	name := "Support Bot"
	updated, err := svc.Update(context.Background(), userID, ag.ID, UpdateParams{Name: &name})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != "Support Bot" {
		t.Errorf("expected name updated, got %q", updated.Name)
	}
	if updated.Prompt != "You sell things." || updated.Description != "sells" {
		t.Errorf("unpatched fields must be preserved: %+v", updated)
	}
}

func TestGetScopedToOwner(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	owner := uuid.New()
	ag, err := svc.Create(context.Background(), owner, "Sales Bot", "", "", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Get(context.Background(), uuid.New(), ag.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign user, got %v", err)
	}
	if err := svc.Delete(context.Background(), uuid.New(), ag.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on foreign delete, got %v", err)
	}
	if _, err := svc.Get(context.Background(), owner, ag.ID); err != nil {
		t.Fatalf("owner Get: %v", err)
	}
}
