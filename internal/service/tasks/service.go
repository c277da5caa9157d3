package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kerucko/taskboard/internal/models"
	"github.com/kerucko/taskboard/internal/repository"
)

var (
	ErrInvalidRange       = errors.New("start date must not be after end date")
	ErrSchedulingConflict = errors.New("user already has an overlapping task")
	ErrTaskNotFound       = errors.New("task not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrStatusNotFound     = errors.New("status not found")
)

const (
	ActionCreated    = "created"
	ActionReassigned = "reassigned"
)

const (
	EventTaskCreated    = "task:created"
	EventTaskUpdated    = "task:updated"
	EventTaskReassigned = "task:reassigned"
	EventTaskDeleted    = "task:deleted"
)

type taskRepository interface {
	Create(ctx context.Context, t *models.Task) error
	GetByID(ctx context.Context, id string) (*models.Task, error)
	Update(ctx context.Context, t *models.Task) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filters repository.TaskFilters) ([]models.Task, error)
	FindOverlapping(ctx context.Context, userID string, start, end models.Date, excludeTaskID string) ([]models.Task, error)
}

type availabilityRepository interface {
	Upsert(ctx context.Context, taskID, userID string, start, end models.Date) error
	DeleteByTask(ctx context.Context, taskID string) error
}

type userDirectory interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type statusCatalog interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Notifier enqueues a task notification job. Delivery is asynchronous
// and fire-and-forget from the engine's point of view.
type Notifier interface {
	EnqueueTaskNotification(userID, taskID, action string) error
}

// Broadcaster pushes a task event to currently connected clients.
// Best-effort, at-most-once.
type Broadcaster interface {
	BroadcastTaskEvent(event, taskID string)
}

type CreateTaskInput struct {
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	StartDate      models.Date `json:"startDate"`
	EndDate        models.Date `json:"endDate"`
	AssignedUserID string      `json:"assignedUserId"`
	StatusID       string      `json:"statusId"`
}

type UpdateTaskInput struct {
	Title          *string      `json:"title"`
	Description    *string      `json:"description"`
	StartDate      *models.Date `json:"startDate"`
	EndDate        *models.Date `json:"endDate"`
	AssignedUserID *string      `json:"assignedUserId"`
	StatusID       *string      `json:"statusId"`
}

type Service struct {
	tasks        taskRepository
	availability availabilityRepository
	users        userDirectory
	statuses     statusCatalog
	notifier     Notifier
	broadcaster  Broadcaster
	locks        userLocks
	log          zerolog.Logger
}

func NewService(
	tasks taskRepository,
	availability availabilityRepository,
	users userDirectory,
	statuses statusCatalog,
	notifier Notifier,
	broadcaster Broadcaster,
	log zerolog.Logger,
) *Service {
	return &Service{
		tasks:        tasks,
		availability: availability,
		users:        users,
		statuses:     statuses,
		notifier:     notifier,
		broadcaster:  broadcaster,
		log:          log.With().Str("component", "tasks").Logger(),
	}
}

func (s *Service) Get(ctx context.Context, id string) (*models.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

func (s *Service) List(ctx context.Context, filters repository.TaskFilters) ([]models.Task, error) {
	return s.tasks.List(ctx, filters)
}

func (s *Service) Create(ctx context.Context, input CreateTaskInput) (*models.Task, error) {
	if input.StartDate.After(input.EndDate.Time) {
		return nil, ErrInvalidRange
	}

	if err := s.checkUserExists(ctx, input.AssignedUserID); err != nil {
		return nil, err
	}
	if err := s.checkStatusExists(ctx, input.StatusID); err != nil {
		return nil, err
	}

	// Serialize scan-then-write per assignee so two concurrent creates
	// cannot both pass the overlap check against a stale snapshot.
	unlock := s.locks.lock(input.AssignedUserID)
	defer unlock()

	if err := s.checkAvailability(ctx, input.AssignedUserID, input.StartDate, input.EndDate, ""); err != nil {
		return nil, err
	}

	now := time.Now()
	task := &models.Task{
		ID:             uuid.NewString(),
		Title:          input.Title,
		Description:    input.Description,
		StartDate:      input.StartDate,
		EndDate:        input.EndDate,
		AssignedUserID: input.AssignedUserID,
		StatusID:       input.StatusID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}
	if err := s.availability.Upsert(ctx, task.ID, task.AssignedUserID, task.StartDate, task.EndDate); err != nil {
		return nil, err
	}

	s.enqueueNotification(task.AssignedUserID, task.ID, ActionCreated)
	s.broadcaster.BroadcastTaskEvent(EventTaskCreated, task.ID)

	return task, nil
}

func (s *Service) Update(ctx context.Context, id string, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, ErrTaskNotFound
	}

	scheduleTouched := input.StartDate != nil || input.EndDate != nil || input.AssignedUserID != nil

	newStart := task.StartDate
	newEnd := task.EndDate
	newUserID := task.AssignedUserID
	if input.StartDate != nil {
		newStart = *input.StartDate
	}
	if input.EndDate != nil {
		newEnd = *input.EndDate
	}
	if input.AssignedUserID != nil {
		newUserID = *input.AssignedUserID
	}

	if scheduleTouched && newStart.After(newEnd.Time) {
		return nil, ErrInvalidRange
	}

	scheduleChanged := newUserID != task.AssignedUserID ||
		!newStart.Equal(task.StartDate.Time) ||
		!newEnd.Equal(task.EndDate.Time)

	if input.AssignedUserID != nil {
		if err := s.checkUserExists(ctx, *input.AssignedUserID); err != nil {
			return nil, err
		}
	}
	if input.StatusID != nil {
		if err := s.checkStatusExists(ctx, *input.StatusID); err != nil {
			return nil, err
		}
	}

	unlock := s.locks.lock(newUserID)
	defer unlock()

	// A task may keep, shrink, or shift its own range freely; the scan
	// excludes the task itself and runs only when something moved.
	if scheduleTouched && scheduleChanged {
		if err := s.checkAvailability(ctx, newUserID, newStart, newEnd, task.ID); err != nil {
			return nil, err
		}
	}

	oldAssignee := task.AssignedUserID

	if input.Title != nil {
		task.Title = *input.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.StatusID != nil {
		task.StatusID = *input.StatusID
	}
	task.StartDate = newStart
	task.EndDate = newEnd
	task.AssignedUserID = newUserID
	task.UpdatedAt = time.Now()

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, err
	}

	if scheduleChanged {
		if err := s.availability.Upsert(ctx, task.ID, task.AssignedUserID, task.StartDate, task.EndDate); err != nil {
			return nil, err
		}
	}

	if task.AssignedUserID != oldAssignee {
		s.enqueueNotification(task.AssignedUserID, task.ID, ActionReassigned)
	}

	s.broadcaster.BroadcastTaskEvent(EventTaskUpdated, task.ID)

	return task, nil
}

func (s *Service) Reassign(ctx context.Context, id, newUserID string) (*models.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, ErrTaskNotFound
	}

	// Reassigning to the current assignee is an idempotent no-op.
	if task.AssignedUserID == newUserID {
		return task, nil
	}

	if err := s.checkUserExists(ctx, newUserID); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(newUserID)
	defer unlock()

	if err := s.checkAvailability(ctx, newUserID, task.StartDate, task.EndDate, task.ID); err != nil {
		return nil, err
	}

	task.AssignedUserID = newUserID
	task.UpdatedAt = time.Now()

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, err
	}
	if err := s.availability.Upsert(ctx, task.ID, task.AssignedUserID, task.StartDate, task.EndDate); err != nil {
		return nil, err
	}

	s.enqueueNotification(task.AssignedUserID, task.ID, ActionReassigned)
	s.broadcaster.BroadcastTaskEvent(EventTaskReassigned, task.ID)

	return task, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return ErrTaskNotFound
	}

	if err := s.tasks.Delete(ctx, task.ID); err != nil {
		return err
	}
	if err := s.availability.DeleteByTask(ctx, task.ID); err != nil {
		return err
	}

	s.broadcaster.BroadcastTaskEvent(EventTaskDeleted, task.ID)

	return nil
}

// checkAvailability rejects when any task of userID intersects the
// closed interval [start, end]. Touching endpoints count as overlap.
func (s *Service) checkAvailability(ctx context.Context, userID string, start, end models.Date, excludeTaskID string) error {
	overlapping, err := s.tasks.FindOverlapping(ctx, userID, start, end, excludeTaskID)
	if err != nil {
		return err
	}
	if len(overlapping) > 0 {
		return ErrSchedulingConflict
	}
	return nil
}

func (s *Service) checkUserExists(ctx context.Context, id string) error {
	ok, err := s.users.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUserNotFound
	}
	return nil
}

func (s *Service) checkStatusExists(ctx context.Context, id string) error {
	ok, err := s.statuses.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrStatusNotFound
	}
	return nil
}

func (s *Service) enqueueNotification(userID, taskID, action string) {
	if err := s.notifier.EnqueueTaskNotification(userID, taskID, action); err != nil {
		s.log.Error().Err(err).
			Str("task_id", taskID).
			Str("user_id", userID).
			Str("action", action).
			Msg("failed to enqueue notification job")
	}
}
