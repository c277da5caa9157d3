package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/kerucko/taskboard/internal/chatstore"
	"github.com/kerucko/taskboard/internal/config"
	"github.com/kerucko/taskboard/internal/handlers"
	"github.com/kerucko/taskboard/internal/repository"
	"github.com/kerucko/taskboard/internal/service/chat"
	"github.com/kerucko/taskboard/internal/service/notifications"
	"github.com/kerucko/taskboard/internal/service/statuses"
	"github.com/kerucko/taskboard/internal/service/tasks"
	"github.com/kerucko/taskboard/internal/service/users"
	"github.com/kerucko/taskboard/internal/storage"
	"github.com/kerucko/taskboard/internal/utils"
	"github.com/kerucko/taskboard/internal/ws"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad()

	pool, err := repository.NewConnection(ctx, cfg.PostgresConfig, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()

	mongoDB, err := chatstore.NewConnection(ctx, cfg.MongoConfig, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mongo")
	}

	fileStorage, err := storage.New(ctx, cfg.MinioConfig, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to minio")
	}

	userRepo := repository.NewUserRepository(pool)
	taskRepo := repository.NewTaskRepository(pool)
	statusRepo := repository.NewStatusRepository(pool)
	availabilityRepo := repository.NewAvailabilityRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)

	chatStore := chatstore.NewChatStore(mongoDB)
	messageStore := chatstore.NewMessageStore(mongoDB)

	taskHub := ws.NewHub("tasks", log)
	chatHub := ws.NewHub("chat", log)
	notifyHub := ws.NewHub("notifications", log)
	go taskHub.Run(ctx)
	go chatHub.Run(ctx)
	go notifyHub.Run(ctx)

	authManager := utils.NewAuthManager(cfg.ServerConfig.JWTSecret, cfg.ServerConfig.TokenTTL)

	notificationService := notifications.NewService(notificationRepo, userRepo, taskRepo, notifyHub, log)
	queue := notifications.NewQueue(cfg.QueueConfig, notificationService, log)
	queue.Start(ctx)
	defer queue.Stop()

	userService := users.NewService(userRepo, authManager)
	taskService := tasks.NewService(taskRepo, availabilityRepo, userRepo, statusRepo, queue, taskHub, log)
	statusService := statuses.NewService(statusRepo)
	chatService := chat.NewService(chatStore, messageStore, userRepo, chatHub)

	h := handlers.NewHandler(
		userService, taskService, statusService, notificationService, chatService,
		fileStorage, authManager, taskHub, chatHub, notifyHub, log,
	)

	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Post("/register", h.Register)
	router.Post("/login", h.Login)

	router.Get("/ws/tasks", h.TaskSocket)
	router.Get("/ws/chat", h.ChatSocket)
	router.Get("/ws/notifications", h.NotificationSocket)

	router.Group(func(r chi.Router) {
		r.Use(h.AuthMiddleware)

		r.Get("/me", h.Me)
		r.Get("/users", h.ListUsers)
		r.Get("/users/{id}", h.GetUser)
		r.Get("/statuses", h.ListStatuses)

		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", h.CreateTask)
			r.Get("/", h.ListTasks)
			r.Get("/{id}", h.GetTask)
			r.Patch("/{id}", h.UpdateTask)
			r.Post("/{id}/reassign", h.ReassignTask)
			r.Delete("/{id}", h.DeleteTask)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", h.ListNotifications)
			r.Patch("/{id}/read", h.MarkNotificationRead)
			r.Patch("/read-all", h.MarkAllNotificationsRead)
		})

		r.Route("/chats", func(r chi.Router) {
			r.Get("/", h.ListChats)
			r.Post("/direct", h.CreateDirectChat)
			r.Post("/group", h.CreateGroupChat)
			r.Patch("/{chatID}", h.UpdateGroupChat)
			r.Get("/{chatID}/messages", h.ListMessages)
			r.Post("/{chatID}/messages", h.SendMessage)
			r.Post("/{chatID}/messages/{messageID}/reactions", h.ToggleReaction)
			r.Patch("/{chatID}/read", h.MarkChatRead)
		})

		r.Post("/storage/upload", h.UploadFile)
	})

	server := &http.Server{
		Addr:    "[::]:" + cfg.ServerConfig.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.ServerConfig.Port).Msg("start listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
