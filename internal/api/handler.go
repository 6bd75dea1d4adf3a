// Package api provides the local HTTP surface over the state containers
// and record services.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/chatpad/internal/assistant"
	"github.com/ashureev/chatpad/internal/chat"
	"github.com/ashureev/chatpad/internal/domain"
	"github.com/ashureev/chatpad/internal/profile"
	"github.com/ashureev/chatpad/internal/state"
	"github.com/ashureev/chatpad/internal/task"
)

// Handler serves the chatpad HTTP API. Mutations go through the state
// containers so the in-memory caches stay reconciled; document and query
// endpoints call the services directly.
type Handler struct {
	conversations *state.ConversationState
	tasks         *state.TaskState
	profile       *state.ProfileState

	chatSvc    *chat.Service
	taskSvc    *task.Service
	profileSvc *profile.Service

	provider assistant.Provider
}

// NewHandler creates a handler over the containers and services.
func NewHandler(
	conversations *state.ConversationState,
	tasks *state.TaskState,
	profileState *state.ProfileState,
	chatSvc *chat.Service,
	taskSvc *task.Service,
	profileSvc *profile.Service,
	provider assistant.Provider,
) *Handler {
	return &Handler{
		conversations: conversations,
		tasks:         tasks,
		profile:       profileState,
		chatSvc:       chatSvc,
		taskSvc:       taskSvc,
		profileSvc:    profileSvc,
		provider:      provider,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// ServiceError maps sentinel errors to HTTP status codes.
func ServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidData):
		Error(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrInvalidFormat):
		Error(w, http.StatusBadRequest, err.Error())
	default:
		Error(w, http.StatusInternalServerError, err.Error())
	}
}

// RegisterRoutes mounts all API routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", h.listConversations)
			r.Post("/", h.createConversation)
			r.Get("/search", h.searchConversations)
			r.Get("/{id}", h.getConversation)
			r.Put("/{id}", h.updateConversation)
			r.Delete("/{id}", h.deleteConversation)
			r.Get("/{id}/messages", h.listMessages)
			r.Post("/{id}/messages", h.addMessage)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", h.listTasks)
			r.Post("/", h.createTask)
			r.Get("/stats", h.taskStats)
			r.Get("/search", h.searchTasks)
			r.Put("/filter", h.setTaskFilter)
			r.Put("/{id}", h.updateTask)
			r.Post("/{id}/toggle", h.toggleTask)
			r.Delete("/{id}", h.deleteTask)
		})

		r.Route("/profile", func(r chi.Router) {
			r.Get("/", h.getProfile)
			r.Put("/", h.updateProfile)
			r.Put("/preferences", h.updatePreferences)
			r.Post("/reset", h.resetProfile)
			r.Get("/usage", h.usageStats)
		})

		r.Get("/export", h.exportData)
		r.Post("/import", h.importData)
		r.Delete("/data", h.clearData)

		r.Get("/settings", h.getSettings)
		r.Post("/settings/onboarded", h.setOnboarded)
	})
}

func (h *Handler) listConversations(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, h.conversations.Snapshot())
}

func (h *Handler) createConversation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	conv := h.conversations.Create(r.Context(), req.Title)
	if conv == nil {
		Error(w, http.StatusInternalServerError, h.conversations.Snapshot().LastError)
		return
	}
	JSON(w, http.StatusCreated, conv)
}

func (h *Handler) searchConversations(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.chatSvc.Search(r.Context(), r.URL.Query().Get("q")))
}

func (h *Handler) getConversation(w http.ResponseWriter, r *http.Request) {
	conv := h.chatSvc.Get(r.Context(), chi.URLParam(r, "id"))
	if conv == nil {
		Error(w, http.StatusNotFound, "conversation not found")
		return
	}
	JSON(w, http.StatusOK, conv)
}

func (h *Handler) updateConversation(w http.ResponseWriter, r *http.Request) {
	var conv domain.Conversation
	if err := json.NewDecoder(r.Body).Decode(&conv); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	conv.ID = chi.URLParam(r, "id")
	if err := h.chatSvc.Update(r.Context(), conv); err != nil {
		ServiceError(w, err)
		return
	}
	h.conversations.Load(r.Context())
	JSON(w, http.StatusOK, conv)
}

func (h *Handler) deleteConversation(w http.ResponseWriter, r *http.Request) {
	h.conversations.Delete(r.Context(), chi.URLParam(r, "id"))
	JSON(w, http.StatusOK, h.conversations.Snapshot())
}

func (h *Handler) listMessages(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	msgs := h.chatSvc.Messages(r.Context(), chi.URLParam(r, "id"), limit, offset)
	JSON(w, http.StatusOK, msgs)
}

// addMessage appends the user message and, when the assistant provider is
// available, a generated reply. The reply carries the suggested typing
// delay so the UI can pace the reveal.
func (h *Handler) addMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		Error(w, http.StatusBadRequest, "message text is required")
		return
	}

	id := chi.URLParam(r, "id")
	msg := h.conversations.AddMessage(r.Context(), id, req.Text, true)
	if msg == nil {
		Error(w, http.StatusNotFound, "conversation not found")
		return
	}

	resp := struct {
		Message       *domain.Message `json:"message"`
		Reply         *domain.Message `json:"reply,omitempty"`
		TypingDelayMS int64           `json:"typingDelayMs,omitempty"`
	}{Message: msg}

	if h.provider != nil && h.provider.Available() {
		if text, err := h.provider.SendMessage(r.Context(), req.Text); err == nil {
			resp.Reply = h.conversations.AddMessage(r.Context(), id, text, false)
			resp.TypingDelayMS = h.provider.TypingDelay().Milliseconds()
		}
	}

	JSON(w, http.StatusCreated, resp)
}

func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	if convID := r.URL.Query().Get("conversation"); convID != "" {
		JSON(w, http.StatusOK, h.taskSvc.FilterByConversation(r.Context(), convID))
		return
	}
	JSON(w, http.StatusOK, h.tasks.Snapshot())
}

func (h *Handler) createTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title          string `json:"title"`
		Description    string `json:"description"`
		ConversationID string `json:"conversationId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	t := h.tasks.Create(r.Context(), req.Title, req.Description, req.ConversationID)
	if t == nil {
		Error(w, http.StatusUnprocessableEntity, h.tasks.Snapshot().LastError)
		return
	}
	JSON(w, http.StatusCreated, t)
}

func (h *Handler) taskStats(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.taskSvc.Stats(r.Context()))
}

func (h *Handler) searchTasks(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.taskSvc.Search(r.Context(), r.URL.Query().Get("q")))
}

func (h *Handler) setTaskFilter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Filter state.TaskFilter `json:"filter"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.tasks.SetFilter(req.Filter)
	JSON(w, http.StatusOK, h.tasks.Snapshot())
}

func (h *Handler) updateTask(w http.ResponseWriter, r *http.Request) {
	var t domain.Task
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	t.ID = chi.URLParam(r, "id")
	if err := h.taskSvc.Update(r.Context(), t); err != nil {
		ServiceError(w, err)
		return
	}
	h.tasks.Load(r.Context())
	JSON(w, http.StatusOK, t)
}

func (h *Handler) toggleTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if h.taskSvc.Get(r.Context(), id) == nil {
		Error(w, http.StatusNotFound, "task not found")
		return
	}
	h.tasks.Toggle(r.Context(), id)
	JSON(w, http.StatusOK, h.tasks.Snapshot())
}

func (h *Handler) deleteTask(w http.ResponseWriter, r *http.Request) {
	h.tasks.Delete(r.Context(), chi.URLParam(r, "id"))
	JSON(w, http.StatusOK, h.tasks.Snapshot())
}

func (h *Handler) getProfile(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, h.profile.Snapshot())
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var u profile.Update
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.profile.ApplyUpdate(r.Context(), u)
	JSON(w, http.StatusOK, h.profile.Snapshot())
}

func (h *Handler) updatePreferences(w http.ResponseWriter, r *http.Request) {
	var u profile.PreferencesUpdate
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.profile.UpdatePreferences(r.Context(), u)
	JSON(w, http.StatusOK, h.profile.Snapshot())
}

func (h *Handler) resetProfile(w http.ResponseWriter, r *http.Request) {
	h.profile.Reset(r.Context())
	JSON(w, http.StatusOK, h.profile.Snapshot())
}

func (h *Handler) usageStats(w http.ResponseWriter, r *http.Request) {
	h.profile.RefreshUsage(r.Context())
	JSON(w, http.StatusOK, h.profile.Snapshot().Usage)
}

func (h *Handler) exportData(w http.ResponseWriter, r *http.Request) {
	doc, err := h.profileSvc.Export(r.Context())
	if err != nil {
		ServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="chatpad-export.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, doc)
}

func (h *Handler) importData(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		Error(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if err := h.profileSvc.Import(r.Context(), string(body)); err != nil {
		ServiceError(w, err)
		return
	}

	// Imported data replaced the persisted collections wholesale.
	h.conversations.Load(r.Context())
	h.tasks.Load(r.Context())
	h.profile.Load(r.Context())
	JSON(w, http.StatusOK, map[string]string{"status": "imported"})
}

func (h *Handler) clearData(w http.ResponseWriter, r *http.Request) {
	h.profile.ClearData(r.Context())
	h.conversations.Load(r.Context())
	h.tasks.Load(r.Context())
	JSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.profileSvc.Settings(r.Context()))
}

func (h *Handler) setOnboarded(w http.ResponseWriter, r *http.Request) {
	if err := h.profileSvc.SetOnboarded(r.Context()); err != nil {
		ServiceError(w, err)
		return
	}
	JSON(w, http.StatusOK, h.profileSvc.Settings(r.Context()))
}
