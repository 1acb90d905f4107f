package agents

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/oichat/backend/internal/models"
)

// ErrNotFound covers both a missing agent and one owned by another user.
var ErrNotFound = errors.New("agent not found")

// ErrActiveAgentExists enforces the one-active-agent-per-user business rule.
var ErrActiveAgentExists = errors.New("user already has an active agent")

var ErrInvalidStatus = errors.New("invalid status")

// Repo is the agent repository contract.
type Repo interface {
	Create(ctx context.Context, ag *models.Agent) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Agent, error)
	Update(ctx context.Context, ag *models.Agent) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Agent, error)
	CountActiveByUser(ctx context.Context, userID, excludeID uuid.UUID) (int, error)
}

// UpdateParams carries the PATCH fields; nil means unchanged.
type UpdateParams struct {
	Name        *string
	Description *string
	Prompt      *string
	Status      *string
}

type Service interface {
	Create(ctx context.Context, userID uuid.UUID, name, description, prompt, status string) (*models.Agent, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*models.Agent, error)
	List(ctx context.Context, userID uuid.UUID) ([]*models.Agent, error)
	Update(ctx context.Context, userID, id uuid.UUID, params UpdateParams) (*models.Agent, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type service struct {
	repo Repo
}

func NewService(repo Repo) *service {
	return &service{repo: repo}
}

var _ Service = (*service)(nil)

func validStatus(status string) bool {
	return status == models.AgentStatusActive || status == models.AgentStatusInactive
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, name, description, prompt, status string) (*models.Agent, error) {
	if status == "" {
		status = models.AgentStatusInactive
	}
	if !validStatus(status) {
		return nil, ErrInvalidStatus
	}
	if status == models.AgentStatusActive {
		if err := s.checkNoOtherActive(ctx, userID, uuid.Nil); err != nil {
			return nil, err
		}
	}
	ag := &models.Agent{
		ID:          uuid.New(),
		UserID:      userID,
		Name:        name,
		Description: description,
		Prompt:      prompt,
		Status:      status,
	}
	if err := s.repo.Create(ctx, ag); err != nil {
		return nil, err
	}
	return ag, nil
}

func (s *service) Get(ctx context.Context, userID, id uuid.UUID) (*models.Agent, error) {
	ag, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ag == nil || ag.UserID != userID {
		return nil, ErrNotFound
	}
	return ag, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]*models.Agent, error) {
	return s.repo.ListByUserID(ctx, userID)
}

func (s *service) Update(ctx context.Context, userID, id uuid.UUID, params UpdateParams) (*models.Agent, error) {
	ag, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if params.Name != nil {
		ag.Name = *params.Name
	}
	if params.Description != nil {
		ag.Description = *params.Description
	}
	if params.Prompt != nil {
		ag.Prompt = *params.Prompt
	}
	if params.Status != nil {
		if !validStatus(*params.Status) {
			return nil, ErrInvalidStatus
		}
		if *params.Status == models.AgentStatusActive && ag.Status != models.AgentStatusActive {
			if err := s.checkNoOtherActive(ctx, userID, id); err != nil {
				return nil, err
			}
		}
		ag.Status = *params.Status
	}
	if err := s.repo.Update(ctx, ag); err != nil {
		return nil, err
	}
	return ag, nil
}

func (s *service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *service) checkNoOtherActive(ctx context.Context, userID, excludeID uuid.UUID) error {
	n, err := s.repo.CountActiveByUser(ctx, userID, excludeID)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrActiveAgentExists
	}
	return nil
}
