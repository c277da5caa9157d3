package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kerucko/taskboard/internal/models"
	"github.com/kerucko/taskboard/internal/repository"
	"github.com/kerucko/taskboard/internal/service/chat"
	"github.com/kerucko/taskboard/internal/service/tasks"
	"github.com/kerucko/taskboard/internal/service/users"
	"github.com/kerucko/taskboard/internal/utils"
)

type stubTaskService struct {
	task *models.Task
	err  error
}

func (s *stubTaskService) Create(context.Context, tasks.CreateTaskInput) (*models.Task, error) {
	return s.task, s.err
}

func (s *stubTaskService) Get(context.Context, string) (*models.Task, error) {
	return s.task, s.err
}

func (s *stubTaskService) List(context.Context, repository.TaskFilters) ([]models.Task, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []models.Task{*s.task}, nil
}

func (s *stubTaskService) Update(context.Context, string, tasks.UpdateTaskInput) (*models.Task, error) {
	return s.task, s.err
}

func (s *stubTaskService) Reassign(context.Context, string, string) (*models.Task, error) {
	return s.task, s.err
}

func (s *stubTaskService) Delete(context.Context, string) error {
	return s.err
}

func newTestHandler(ts taskService) *Handler {
	log := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	auth := utils.NewAuthManager("test-secret", time.Hour)
	return NewHandler(nil, ts, nil, nil, nil, nil, auth, nil, nil, nil, log)
}

func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{tasks.ErrInvalidRange, http.StatusBadRequest},
		{chat.ErrSelfChat, http.StatusBadRequest},
		{chat.ErrInvalidGroup, http.StatusBadRequest},
		{users.ErrUnauthorized, http.StatusUnauthorized},
		{chat.ErrForbidden, http.StatusForbidden},
		{chat.ErrNotAdmin, http.StatusForbidden},
		{tasks.ErrTaskNotFound, http.StatusNotFound},
		{tasks.ErrUserNotFound, http.StatusNotFound},
		{chat.ErrChatNotFound, http.StatusNotFound},
		{repository.ErrNotFound, http.StatusNotFound},
		{tasks.ErrSchedulingConflict, http.StatusBadRequest},
		{users.ErrEmailTaken, http.StatusConflict},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, errorStatus(tc.err), "error %v", tc.err)
	}
}

func TestAuthMiddleware(t *testing.T) {
	h := newTestHandler(nil)

	var gotUserID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = callerID(r)
		w.WriteHeader(http.StatusOK)
	})
	protected := h.AuthMiddleware(next)

	// no token
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tasks", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// malformed token
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	protected.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// valid token
	user := &models.User{ID: uuid.NewString(), Email: "dev@example.com"}
	token, err := h.Auth.GenerateToken(user)
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	protected.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, user.ID, gotUserID)
}

func TestAdminOnly(t *testing.T) {
	h := newTestHandler(nil)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	guarded := h.AuthMiddleware(h.AdminOnly(next))

	regular, err := h.Auth.GenerateToken(&models.User{ID: uuid.NewString()})
	require.NoError(t, err)
	admin, err := h.Auth.GenerateToken(&models.User{ID: uuid.NewString(), IsAdmin: true})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set("Authorization", "Bearer "+regular)
	guarded.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	guarded.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTaskEndpointsMapServiceErrors(t *testing.T) {
	stub := &stubTaskService{err: tasks.ErrSchedulingConflict}
	h := newTestHandler(stub)

	router := chi.NewRouter()
	router.Post("/tasks", h.CreateTask)
	router.Get("/tasks/{id}", h.GetTask)
	router.Delete("/tasks/{id}", h.DeleteTask)

	body := strings.NewReader(`{"title":"x","startDate":"2026-01-01","endDate":"2026-01-02","assignedUserId":"u","statusId":"s"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tasks", body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	stub.err = tasks.ErrTaskNotFound
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tasks/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	stub.err = nil
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/tasks/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
