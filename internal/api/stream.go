package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/ashureev/chatpad/internal/state"
)

// StateSnapshot is the combined container state pushed over the stream.
type StateSnapshot struct {
	Conversations state.ConversationSnapshot `json:"conversations"`
	Tasks         state.TaskSnapshot         `json:"tasks"`
	Profile       state.ProfileSnapshot      `json:"profile"`
}

// StreamHandler pushes a StateSnapshot over a WebSocket whenever any
// container changes. Consecutive change ticks are coalesced by the
// subscriber channels, so a burst of actions yields one fresh snapshot.
type StreamHandler struct {
	conversations *state.ConversationState
	tasks         *state.TaskState
	profile       *state.ProfileState
}

// NewStreamHandler creates a stream handler over the containers.
func NewStreamHandler(conversations *state.ConversationState, tasks *state.TaskState, profileState *state.ProfileState) *StreamHandler {
	return &StreamHandler{
		conversations: conversations,
		tasks:         tasks,
		profile:       profileState,
	}
}

func (h *StreamHandler) snapshot() StateSnapshot {
	return StateSnapshot{
		Conversations: h.conversations.Snapshot(),
		Tasks:         h.tasks.Snapshot(),
		Profile:       h.profile.Snapshot(),
	}
}

// ServeHTTP implements http.Handler for the WebSocket upgrade.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "stream ended"); closeErr != nil {
			slog.Debug("WebSocket close", "error", closeErr)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	convCh, unsubConv := h.conversations.Subscribe()
	defer unsubConv()
	taskCh, unsubTask := h.tasks.Subscribe()
	defer unsubTask()
	profCh, unsubProf := h.profile.Subscribe()
	defer unsubProf()

	// Drain the read side so close frames and pings are processed; any
	// inbound data ends the stream.
	go func() {
		defer cancel()
		for {
			if _, _, err := ws.Read(ctx); err != nil {
				return
			}
		}
	}()

	if err := h.write(ctx, ws, h.snapshot()); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-convCh:
		case <-taskCh:
		case <-profCh:
		}
		if err := h.write(ctx, ws, h.snapshot()); err != nil {
			return
		}
	}
}

func (h *StreamHandler) write(ctx context.Context, ws *websocket.Conn, snap StateSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		slog.Error("Failed to encode state snapshot", "error", err)
		return err
	}

	writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := ws.Write(writeCtx, websocket.MessageText, payload); err != nil {
		slog.Debug("WebSocket write error", "error", err)
		return err
	}
	return nil
}
