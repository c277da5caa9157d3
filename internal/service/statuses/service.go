package statuses

import (
	"context"

	"github.com/kerucko/taskboard/internal/models"
)

type statusRepository interface {
	GetAll(ctx context.Context) ([]models.Status, error)
}

type Service struct {
	repo statusRepository
}

func NewService(r statusRepository) *Service {
	return &Service{repo: r}
}

func (s *Service) GetAll(ctx context.Context) ([]models.Status, error) {
	return s.repo.GetAll(ctx)
}
