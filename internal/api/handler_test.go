package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/chatpad/internal/assistant"
	"github.com/ashureev/chatpad/internal/chat"
	"github.com/ashureev/chatpad/internal/domain"
	"github.com/ashureev/chatpad/internal/profile"
	"github.com/ashureev/chatpad/internal/state"
	"github.com/ashureev/chatpad/internal/storage"
	"github.com/ashureev/chatpad/internal/task"
)

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()

	store := storage.NewMemory()
	chatSvc := chat.NewService(store)
	taskSvc := task.NewService(store)
	profileSvc := profile.NewService(store, chatSvc, taskSvc)

	conversations := state.NewConversationState(chatSvc)
	tasks := state.NewTaskState(taskSvc)
	profileState := state.NewProfileState(profileSvc)

	provider := assistant.NewLocalProvider(assistant.Config{Enabled: true})

	h := NewHandler(conversations, tasks, profileState, chatSvc, taskSvc, profileSvc, provider)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func doJSON(t *testing.T, r chi.Router, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

func TestCreateConversationEndpoint(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/conversations", `{"title":"  Ideas  "}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var conv domain.Conversation
	if err := json.NewDecoder(w.Body).Decode(&conv); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if conv.Title != "Ideas" {
		t.Errorf("Title = %q, want trimmed", conv.Title)
	}
	if conv.ID == "" {
		t.Error("Expected an assigned ID")
	}
}

func TestGetConversationNotFound(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/conversations/ghost", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestAddMessageGetsAssistantReply(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/conversations", `{"title":"chat"}`)
	var conv domain.Conversation
	if err := json.NewDecoder(w.Body).Decode(&conv); err != nil {
		t.Fatalf("Decode: %v", err)
	}

	w = doJSON(t, r, http.MethodPost, "/api/conversations/"+conv.ID+"/messages", `{"text":"hello"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Message *domain.Message `json:"message"`
		Reply   *domain.Message `json:"reply"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if resp.Message == nil || resp.Message.Text != "hello" {
		t.Errorf("Message = %+v", resp.Message)
	}
	if resp.Reply == nil || resp.Reply.IsUser {
		t.Errorf("Expected assistant reply, got %+v", resp.Reply)
	}

	// Both messages are persisted on the conversation.
	w = doJSON(t, r, http.MethodGet, "/api/conversations/"+conv.ID+"/messages", "")
	var msgs []domain.Message
	if err := json.NewDecoder(w.Body).Decode(&msgs); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(msgs) != 2 {
		t.Errorf("Expected 2 messages, got %d", len(msgs))
	}
}

func TestAddMessageMissingConversation(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/conversations/ghost/messages", `{"text":"hi"}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestToggleMissingTask(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/tasks/ghost/toggle", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestCreateTaskRejectsBlankTitle(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/tasks", `{"title":"  "}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422, got %d", w.Code)
	}
}

func TestTaskStatsEndpoint(t *testing.T) {
	r := newTestRouter(t)

	for _, body := range []string{`{"title":"a"}`, `{"title":"b"}`} {
		if w := doJSON(t, r, http.MethodPost, "/api/tasks", body); w.Code != http.StatusCreated {
			t.Fatalf("Create task: %d", w.Code)
		}
	}

	w := doJSON(t, r, http.MethodGet, "/api/tasks/stats", "")
	var stats task.Stats
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if stats.Total != 2 || stats.Pending != 2 {
		t.Errorf("Stats = %+v", stats)
	}
}

func TestImportRejectsMissingData(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/import", `{"version":"1.0.0"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestUpdateProfileSurfacesErrorInSnapshot(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPut, "/api/profile", `{"preferences":{"theme":"neon"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 (errors surface via snapshot), got %d", w.Code)
	}

	var snap state.ProfileSnapshot
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if snap.LastError == "" {
		t.Error("Expected lastError in snapshot for invalid update")
	}
}

func TestSettingsOnboardedEndpoint(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/settings/onboarded", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var settings domain.Settings
	if err := json.NewDecoder(w.Body).Decode(&settings); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !settings.Onboarded {
		t.Error("Expected onboarded=true")
	}
}
