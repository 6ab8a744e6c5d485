package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"finassist/internal/agent"
	"finassist/internal/api/middleware"
)

// sessionKey namespaces conversation memory by the authenticated user,
// so one user can never read or clear another user's session even when
// both pick the same session id.
func sessionKey(userID int64, sessionID string) string {
	return strconv.FormatInt(userID, 10) + "/" + sessionID
}

// ChatService is the agent surface the handler invokes.
type ChatService interface {
	Chat(ctx context.Context, sessionID, question string, tools []agent.Tool) (string, error)
}

// ToolsetBuilder constructs the per-user tool catalog for one request,
// carrying the caller's bearer token through to the ledger client.
type ToolsetBuilder func(token string, userID int64) []agent.Tool

// ChatHandler serves the conversational endpoints.
type ChatHandler struct {
	chat       ChatService
	buildTools ToolsetBuilder
	sessions   *agent.Sessions
	log        zerolog.Logger
}

// NewChatHandler creates a chat handler. chat may be nil when the agent
// failed to initialize; requests then get a 503.
func NewChatHandler(chat ChatService, buildTools ToolsetBuilder, sessions *agent.Sessions, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		chat:       chat,
		buildTools: buildTools,
		sessions:   sessions,
		log:        log,
	}
}

type chatRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id"`
	UserID    int64  `json:"user_id"`
}

type chatResponse struct {
	Answer    string `json:"answer"`
	SessionID string `json:"session_id"`
}

// Chat handles POST /chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	if h.chat == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Assistant not initialized")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Question == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Question is required")
		return
	}
	if req.SessionID == "" {
		req.SessionID = "default"
	}

	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	token, _ := middleware.TokenFromContext(r.Context())

	userID := req.UserID
	if userID == 0 {
		userID = identity.UserID
	}

	answer, err := h.chat.Chat(r.Context(), sessionKey(identity.UserID, req.SessionID), req.Question, h.buildTools(token, userID))
	if err != nil {
		h.log.Error().Err(err).Str("session_id", req.SessionID).Msg("Chat turn failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Error processing question")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, chatResponse{Answer: answer, SessionID: req.SessionID})
}

// History handles GET /chat/history/{sessionID}
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Session ID is required")
		return
	}

	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	messages := h.sessions.Messages(sessionKey(identity.UserID, sessionID))
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"session_id":    sessionID,
		"message_count": len(messages),
		"messages":      messages,
	})
}

// ClearHistory handles DELETE /chat/history/{sessionID}
func (h *ChatHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Session ID is required")
		return
	}

	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	h.sessions.Clear(sessionKey(identity.UserID, sessionID))
	h.log.Info().Str("session_id", sessionID).Msg("Session history cleared")
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Conversation history cleared",
	})
}

// HealthHandler reports component initialization flags.
type HealthHandler struct {
	AgentInitialized bool
	StoreInitialized bool
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if !h.AgentInitialized || !h.StoreInitialized {
		status = "degraded"
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":            status,
		"agent_initialized": h.AgentInitialized,
		"store_initialized": h.StoreInitialized,
	})
}
