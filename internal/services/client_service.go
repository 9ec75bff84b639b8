package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"courier-backend/internal/models"
	"courier-backend/internal/state"
)

type ClientService struct {
	State *state.Manager
}

func NewClientService(st *state.Manager) *ClientService {
	return &ClientService{State: st}
}

func (s *ClientService) CreateClient(ctx context.Context, ownerID string, req *models.CreateClientRequest) (*models.Client, error) {
	// Validate input
	if req.Name == "" {
		return nil, errors.New("name is required")
	}

	// Offline-created records arrive with a client-generated id so the
	// same record replays as an upsert instead of a duplicate.
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	now := time.Now()
	client := &models.Client{
		ID:        id,
		OwnerID:   ownerID,
		Name:      req.Name,
		Phone:     req.Phone,
		Email:     req.Email,
		Address:   req.Address,
		Notes:     req.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.State.SaveClient(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

func (s *ClientService) GetClient(ctx context.Context, ownerID, id string) (*models.Client, error) {
	client, ok, err := s.State.GetClient(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("client not found")
	}
	return client, nil
}

func (s *ClientService) ListClients(ctx context.Context, ownerID string) ([]*models.Client, error) {
	return s.State.Clients(ctx, ownerID)
}

func (s *ClientService) UpdateClient(ctx context.Context, ownerID, id string, req *models.UpdateClientRequest) (*models.Client, error) {
	// Validate input
	if req.Name == "" {
		return nil, errors.New("name is required")
	}

	existing, ok, err := s.State.GetClient(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("client not found")
	}

	client := &models.Client{
		ID:        id,
		OwnerID:   ownerID,
		Name:      req.Name,
		Phone:     req.Phone,
		Email:     req.Email,
		Address:   req.Address,
		Notes:     req.Notes,
		CreatedAt: existing.CreatedAt,
		UpdatedAt: time.Now(),
	}

	if err := s.State.UpdateClient(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

func (s *ClientService) DeleteClient(ctx context.Context, ownerID, id string) error {
	return s.State.DeleteClient(ctx, ownerID, id)
}

func (s *ClientService) RestoreClient(ctx context.Context, ownerID, id string) error {
	return s.State.RestoreClient(ctx, ownerID, id)
}
