package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kerucko/taskboard/internal/repository"
	"github.com/kerucko/taskboard/internal/service/tasks"
)

func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var input tasks.CreateTaskInput
	if err := decodeBody(r, &input); err != nil {
		http.Error(w, "invalid input", http.StatusBadRequest)
		return
	}
	task, err := h.TaskService.Create(r.Context(), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, task)
}

func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.TaskService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, task)
}

func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	filters := repository.TaskFilters{
		StatusID:       r.URL.Query().Get("statusId"),
		AssignedUserID: r.URL.Query().Get("assignedUserId"),
		Search:         r.URL.Query().Get("search"),
	}
	list, err := h.TaskService.List(r.Context(), filters)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, list)
}

func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var input tasks.UpdateTaskInput
	if err := decodeBody(r, &input); err != nil {
		http.Error(w, "invalid input", http.StatusBadRequest)
		return
	}
	task, err := h.TaskService.Update(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, task)
}

func (h *Handler) ReassignTask(w http.ResponseWriter, r *http.Request) {
	var input struct {
		UserID string `json:"userId"`
	}
	if err := decodeBody(r, &input); err != nil || input.UserID == "" {
		http.Error(w, "invalid input", http.StatusBadRequest)
		return
	}
	task, err := h.TaskService.Reassign(r.Context(), chi.URLParam(r, "id"), input.UserID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, task)
}

func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.TaskService.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListStatuses(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.StatusService.GetAll(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, statuses)
}
