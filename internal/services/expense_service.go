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

type ExpenseService struct {
	State *state.Manager
}

func NewExpenseService(st *state.Manager) *ExpenseService {
	return &ExpenseService{State: st}
}

func (s *ExpenseService) CreateExpense(ctx context.Context, ownerID string, req *models.CreateExpenseRequest) (*models.ExpenseRecord, error) {
	// Validate input
	if req.Category == "" {
		return nil, errors.New("category is required")
	}
	if req.Amount < 0 {
		return nil, errors.New("amount must not be negative")
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
	expense := &models.ExpenseRecord{
		ID:          id,
		OwnerID:     ownerID,
		Category:    req.Category,
		Description: req.Description,
		Amount:      req.Amount,
		Date:        date,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.State.SaveExpense(ctx, expense); err != nil {
		return nil, err
	}
	return expense, nil
}

func (s *ExpenseService) ListExpenses(ctx context.Context, ownerID string, start, end *time.Time) ([]*models.ExpenseRecord, error) {
	return s.State.Expenses(ctx, ownerID, start, end)
}

func (s *ExpenseService) UpdateExpense(ctx context.Context, ownerID, id string, req *models.UpdateExpenseRequest) (*models.ExpenseRecord, error) {
	if req.Category == "" {
		return nil, errors.New("category is required")
	}
	if req.Amount < 0 {
		return nil, errors.New("amount must not be negative")
	}
	date, err := timeutil.ParseDate(req.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid date: %w", err)
	}

	expense := &models.ExpenseRecord{
		ID:          id,
		OwnerID:     ownerID,
		Category:    req.Category,
		Description: req.Description,
		Amount:      req.Amount,
		Date:        date,
		UpdatedAt:   time.Now(),
	}

	if err := s.State.UpdateExpense(ctx, expense); err != nil {
		return nil, err
	}
	return expense, nil
}

func (s *ExpenseService) DeleteExpense(ctx context.Context, ownerID, id string) error {
	return s.State.DeleteExpense(ctx, ownerID, id)
}
