package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"courier-backend/internal/models"
	"courier-backend/internal/state"
	"courier-backend/internal/timeutil"
)

type ServiceRecordService struct {
	State *state.Manager
}

func NewServiceRecordService(st *state.Manager) *ServiceRecordService {
	return &ServiceRecordService{State: st}
}

func (s *ServiceRecordService) CreateService(ctx context.Context, ownerID string, req *models.CreateServiceRequest) (*models.ServiceRecord, error) {
	// Validate input
	if req.ClientID == "" {
		return nil, errors.New("client_id is required")
	}
	if req.Date == "" {
		return nil, errors.New("date is required")
	}
	date, err := timeutil.ParseDate(req.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid date: %w", err)
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	now := time.Now()
	record := &models.ServiceRecord{
		ID:          id,
		OwnerID:     ownerID,
		ClientID:    req.ClientID,
		Date:        date,
		Pickup:      req.Pickup,
		Dropoff:     req.Dropoff,
		Description: req.Description,
		Cost:        req.Cost,
		DriverFee:   req.DriverFee,
		WaitingTime: req.WaitingTime,
		ExtraFee:    req.ExtraFee,
		Status:      req.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.State.SaveService(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *ServiceRecordService) ListServices(ctx context.Context, ownerID string, start, end *time.Time) ([]*models.ServiceRecord, error) {
	return s.State.Services(ctx, ownerID, start, end)
}

func (s *ServiceRecordService) ListServicesByClient(ctx context.Context, ownerID, clientID string) ([]*models.ServiceRecord, error) {
	if clientID == "" {
		return nil, errors.New("client_id is required")
	}
	return s.State.ServicesByClient(ctx, ownerID, clientID)
}

func (s *ServiceRecordService) UpdateService(ctx context.Context, ownerID, id string, req *models.UpdateServiceRequest) (*models.ServiceRecord, error) {
	if req.ClientID == "" {
		return nil, errors.New("client_id is required")
	}
	date, err := timeutil.ParseDate(req.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid date: %w", err)
	}

	record := &models.ServiceRecord{
		ID:          id,
		OwnerID:     ownerID,
		ClientID:    req.ClientID,
		Date:        date,
		Pickup:      req.Pickup,
		Dropoff:     req.Dropoff,
		Description: req.Description,
		Cost:        req.Cost,
		DriverFee:   req.DriverFee,
		WaitingTime: req.WaitingTime,
		ExtraFee:    req.ExtraFee,
		Status:      req.Status,
		UpdatedAt:   time.Now(),
	}

	if err := s.State.UpdateService(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *ServiceRecordService) DeleteService(ctx context.Context, ownerID, id string) error {
	return s.State.DeleteService(ctx, ownerID, id)
}

func (s *ServiceRecordService) RestoreService(ctx context.Context, ownerID, id string) error {
	return s.State.RestoreService(ctx, ownerID, id)
}
