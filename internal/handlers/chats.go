package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kerucko/taskboard/internal/service/chat"
)

func (h *Handler) CreateDirectChat(w http.ResponseWriter, r *http.Request) {
	var input struct {
		UserID string `json:"userId"`
	}
	if err := decodeBody(r, &input); err != nil || input.UserID == "" {
		http.Error(w, "invalid input", http.StatusBadRequest)
		return
	}
	c, err := h.ChatService.FindOrCreateDirect(r.Context(), callerID(r), input.UserID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, c)
}

func (h *Handler) CreateGroupChat(w http.ResponseWriter, r *http.Request) {
	var input chat.CreateGroupInput
	if err := decodeBody(r, &input); err != nil {
		http.Error(w, "invalid input", http.StatusBadRequest)
		return
	}
	c, err := h.ChatService.CreateGroup(r.Context(), callerID(r), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, c)
}

func (h *Handler) ListChats(w http.ResponseWriter, r *http.Request) {
	list, err := h.ChatService.ListForUser(r.Context(), callerID(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, list)
}

func (h *Handler) UpdateGroupChat(w http.ResponseWriter, r *http.Request) {
	var input chat.UpdateGroupInput
	if err := decodeBody(r, &input); err != nil {
		http.Error(w, "invalid input", http.StatusBadRequest)
		return
	}
	c, err := h.ChatService.UpdateGroup(r.Context(), callerID(r), chi.URLParam(r, "chatID"), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, c)
}

func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var input chat.SendMessageInput
	if err := decodeBody(r, &input); err != nil {
		http.Error(w, "invalid input", http.StatusBadRequest)
		return
	}
	msg, err := h.ChatService.SendMessage(r.Context(), callerID(r), chi.URLParam(r, "chatID"), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, msg)
}

func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, _ := strconv.ParseInt(q.Get("limit"), 10, 64)
	var before time.Time
	if v := q.Get("before"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "invalid before timestamp", http.StatusBadRequest)
			return
		}
		before = parsed
	}

	msgs, err := h.ChatService.ListMessages(r.Context(), callerID(r), chi.URLParam(r, "chatID"), limit, before)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, msgs)
}

func (h *Handler) ToggleReaction(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Emoji string `json:"emoji"`
	}
	if err := decodeBody(r, &input); err != nil || input.Emoji == "" {
		http.Error(w, "invalid input", http.StatusBadRequest)
		return
	}
	msg, err := h.ChatService.ToggleReaction(
		r.Context(), callerID(r), chi.URLParam(r, "chatID"), chi.URLParam(r, "messageID"), input.Emoji)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, msg)
}

func (h *Handler) MarkChatRead(w http.ResponseWriter, r *http.Request) {
	count, err := h.ChatService.MarkRead(r.Context(), callerID(r), chi.URLParam(r, "chatID"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]int64{"marked": count})
}
