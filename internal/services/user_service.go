package services

import (
	"context"
	"errors"
	"strings"

	"courier-backend/internal/models"
	"courier-backend/internal/repositories"
)

// UserService manages dispatcher accounts. Account administration goes
// straight to the backend database and is not part of the offline data
// set: creating users while disconnected is not supported.
type UserService struct {
	Repo *repositories.UserRepository
}

func NewUserService(repo *repositories.UserRepository) *UserService {
	return &UserService{Repo: repo}
}

func (s *UserService) CreateUser(ctx context.Context, req *models.CreateUserRequest) (*models.User, error) {
	if req.Name == "" || req.Email == "" {
		return nil, errors.New("name and email are required")
	}
	if !strings.Contains(req.Email, "@") {
		return nil, errors.New("invalid email")
	}
	if req.Role != "" && req.Role != "admin" && req.Role != "dispatcher" {
		return nil, errors.New("role must be admin or dispatcher")
	}

	user := &models.User{
		Name:  req.Name,
		Email: req.Email,
		Role:  req.Role,
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.Repo.Get(ctx, id)
}

func (s *UserService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.Repo.List(ctx)
}

func (s *UserService) UpdateUser(ctx context.Context, id string, req *models.UpdateUserRequest) (*models.User, error) {
	if req.Name == "" || req.Email == "" {
		return nil, errors.New("name and email are required")
	}
	if req.Role != "admin" && req.Role != "dispatcher" {
		return nil, errors.New("role must be admin or dispatcher")
	}

	user := &models.User{
		ID:       id,
		Name:     req.Name,
		Email:    req.Email,
		Role:     req.Role,
		IsActive: req.IsActive,
	}
	if err := s.Repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return s.Repo.Get(ctx, id)
}

func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	return s.Repo.Delete(ctx, id)
}
