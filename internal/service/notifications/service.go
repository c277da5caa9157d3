package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kerucko/taskboard/internal/models"
)

type notificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	GetByUser(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) error
}

type userGetter interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

type taskGetter interface {
	GetByID(ctx context.Context, id string) (*models.Task, error)
}

// Pusher delivers a notification to the user's live socket, if any.
type Pusher interface {
	SendToUser(userID, event string, data any)
}

type Service struct {
	repo   notificationRepository
	users  userGetter
	tasks  taskGetter
	pusher Pusher
	log    zerolog.Logger
}

func NewService(repo notificationRepository, users userGetter, tasks taskGetter, pusher Pusher, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		users:  users,
		tasks:  tasks,
		pusher: pusher,
		log:    log.With().Str("component", "notifications").Logger(),
	}
}

// Send resolves a queued task notification job, persists it and
// pushes it to the recipient's socket. A job whose user or task has
// disappeared in the meantime is dropped without error.
func (s *Service) Send(ctx context.Context, job Job) error {
	if _, err := s.users.GetByID(ctx, job.UserID); err != nil {
		s.log.Debug().Str("user_id", job.UserID).Msg("dropping notification for unknown user")
		return nil
	}
	task, err := s.tasks.GetByID(ctx, job.TaskID)
	if err != nil {
		s.log.Debug().Str("task_id", job.TaskID).Msg("dropping notification for vanished task")
		return nil
	}

	var kind, message string
	switch job.Action {
	case "created":
		kind = models.NotificationTaskAssigned
		message = fmt.Sprintf("A new task %q has been assigned to you.", task.Title)
	case "reassigned":
		kind = models.NotificationTaskReassigned
		message = fmt.Sprintf("The task %q has been reassigned to you.", task.Title)
	default:
		return fmt.Errorf("unknown notification action %q", job.Action)
	}

	taskID := job.TaskID
	notification := &models.Notification{
		ID:        uuid.NewString(),
		UserID:    job.UserID,
		TaskID:    &taskID,
		Type:      kind,
		Message:   message,
		CreatedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return fmt.Errorf("persist notification: %w", err)
	}

	s.pusher.SendToUser(job.UserID, "notification", notification)
	return nil
}

func (s *Service) GetForUser(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	return s.repo.GetByUser(ctx, userID, unreadOnly)
}

func (s *Service) MarkRead(ctx context.Context, id, userID string) error {
	return s.repo.MarkRead(ctx, id, userID)
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) error {
	return s.repo.MarkAllRead(ctx, userID)
}
