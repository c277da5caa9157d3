package users

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/kerucko/taskboard/internal/models"
	"github.com/kerucko/taskboard/internal/repository"
	"github.com/kerucko/taskboard/internal/utils"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrEmailTaken   = errors.New("email already registered")
)

type userRepository interface {
	Create(ctx context.Context, u *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetAll(ctx context.Context) ([]models.User, error)
}

type Service struct {
	repo userRepository
	auth *utils.AuthManager
}

func NewService(r userRepository, auth *utils.AuthManager) *Service {
	return &Service{repo: r, auth: auth}
}

func (s *Service) Register(ctx context.Context, input models.RegisterRequest) (*models.User, error) {
	if _, err := s.repo.GetByEmail(ctx, input.Email); err == nil {
		return nil, ErrEmailTaken
	}

	hash, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        input.Email,
		Name:         input.Name,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) Login(ctx context.Context, input models.LoginRequest) (*models.LoginResponse, error) {
	user, err := s.repo.GetByEmail(ctx, input.Email)
	if err != nil || !utils.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, ErrUnauthorized
	}

	token, err := s.auth.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &models.LoginResponse{Token: token, User: user}, nil
}

func (s *Service) GetAll(ctx context.Context) ([]models.User, error) {
	return s.repo.GetAll(ctx)
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	return user, nil
}
