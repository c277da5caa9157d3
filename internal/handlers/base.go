package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kerucko/taskboard/internal/models"
	"github.com/kerucko/taskboard/internal/repository"
	"github.com/kerucko/taskboard/internal/service/chat"
	"github.com/kerucko/taskboard/internal/service/tasks"
	"github.com/kerucko/taskboard/internal/service/users"
	"github.com/kerucko/taskboard/internal/storage"
	"github.com/kerucko/taskboard/internal/utils"
	"github.com/kerucko/taskboard/internal/ws"
)

type userService interface {
	Register(ctx context.Context, input models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, input models.LoginRequest) (*models.LoginResponse, error)
	GetAll(ctx context.Context) ([]models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}

type taskService interface {
	Create(ctx context.Context, input tasks.CreateTaskInput) (*models.Task, error)
	Get(ctx context.Context, id string) (*models.Task, error)
	List(ctx context.Context, filters repository.TaskFilters) ([]models.Task, error)
	Update(ctx context.Context, id string, input tasks.UpdateTaskInput) (*models.Task, error)
	Reassign(ctx context.Context, id, newUserID string) (*models.Task, error)
	Delete(ctx context.Context, id string) error
}

type statusService interface {
	GetAll(ctx context.Context) ([]models.Status, error)
}

type notificationService interface {
	GetForUser(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) error
}

type chatService interface {
	FindOrCreateDirect(ctx context.Context, callerID, otherID string) (*models.Chat, error)
	CreateGroup(ctx context.Context, callerID string, input chat.CreateGroupInput) (*models.Chat, error)
	ListForUser(ctx context.Context, userID string) ([]models.Chat, error)
	UpdateGroup(ctx context.Context, callerID, chatID string, input chat.UpdateGroupInput) (*models.Chat, error)
	SendMessage(ctx context.Context, callerID, chatID string, input chat.SendMessageInput) (*models.Message, error)
	ListMessages(ctx context.Context, callerID, chatID string, limit int64, before time.Time) ([]models.Message, error)
	ToggleReaction(ctx context.Context, callerID, chatID, messageID, emoji string) (*models.Message, error)
	MarkRead(ctx context.Context, callerID, chatID string) (int64, error)
}

type uploader interface {
	Upload(ctx context.Context, r io.Reader, originalName, mimeType string, size int64) (*storage.UploadResult, error)
}

type Handler struct {
	UserService         userService
	TaskService         taskService
	StatusService       statusService
	NotificationService notificationService
	ChatService         chatService
	Storage             uploader
	Auth                *utils.AuthManager

	TaskHub   *ws.Hub
	ChatHub   *ws.Hub
	NotifyHub *ws.Hub

	log zerolog.Logger
}

func NewHandler(
	us userService,
	ts taskService,
	ss statusService,
	ns notificationService,
	cs chatService,
	st uploader,
	auth *utils.AuthManager,
	taskHub, chatHub, notifyHub *ws.Hub,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		UserService:         us,
		TaskService:         ts,
		StatusService:       ss,
		NotificationService: ns,
		ChatService:         cs,
		Storage:             st,
		Auth:                auth,
		TaskHub:             taskHub,
		ChatHub:             chatHub,
		NotifyHub:           notifyHub,
		log:                 log.With().Str("component", "handlers").Logger(),
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("encode response")
	}
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("request failed")
		http.Error(w, "internal error", status)
		return
	}
	http.Error(w, err.Error(), status)
}

// errorStatus maps service sentinels onto HTTP status codes. Anything
// unmapped is a 500.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, tasks.ErrInvalidRange),
		errors.Is(err, tasks.ErrSchedulingConflict),
		errors.Is(err, chat.ErrSelfChat),
		errors.Is(err, chat.ErrInvalidGroup):
		return http.StatusBadRequest
	case errors.Is(err, users.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, chat.ErrForbidden),
		errors.Is(err, chat.ErrNotAdmin):
		return http.StatusForbidden
	case errors.Is(err, tasks.ErrTaskNotFound),
		errors.Is(err, tasks.ErrUserNotFound),
		errors.Is(err, tasks.ErrStatusNotFound),
		errors.Is(err, chat.ErrChatNotFound),
		errors.Is(err, chat.ErrMessageNotFound),
		errors.Is(err, chat.ErrUserNotFound),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, users.ErrEmailTaken):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// AuthMiddleware validates the bearer token and puts the caller's id
// and claims into the request context.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}

		claims, err := h.Auth.ParseToken(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), utils.ContextUserID, claims.UserID)
		ctx = context.WithValue(ctx, utils.ContextClaims, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := r.Context().Value(utils.ContextClaims).(*models.Claims)
		if !ok || !claims.IsAdmin {
			http.Error(w, "admin only", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func callerID(r *http.Request) string {
	id, _ := r.Context().Value(utils.ContextUserID).(string)
	return id
}

func decodeBody(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
