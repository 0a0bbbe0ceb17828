package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/bfscompany/portfoliobot/internal/chat"
	"github.com/bfscompany/portfoliobot/internal/language"
	"github.com/bfscompany/portfoliobot/internal/session"
)

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message   string         `json:"message"`
	SessionID string         `json:"session_id,omitempty"`
	History   []chat.Message `json:"history,omitempty"`
}

// ChatResponse is the body of a successful POST /api/chat.
type ChatResponse struct {
	SessionID   string `json:"session_id"`
	Message     string `json:"message"`
	Timestamp   string `json:"timestamp"`
	RateLimited bool   `json:"rate_limited"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		s.writeError(w, "Message is required", http.StatusBadRequest)
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	lang := language.Detect(req.Message)

	state, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		s.logger.Event("chat_endpoint_error", "error", err.Error(), "session_id", sessionID)
		s.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	now := time.Now().UTC()
	if state == nil {
		state = session.NewState(now)
	} else {
		s.sessions.Touch(ctx, sessionID)
	}

	// An explicit history override replaces the stored history for this
	// turn; there is no merge.
	if len(req.History) > 0 {
		state.History = chat.Clone(req.History)
	}
	history := chat.Clone(state.History)

	state.LastInteraction = now
	s.archive.Store(ctx, sessionID, chat.RoleUser, req.Message, lang, false)

	s.logger.Event("chat_request",
		"session_id", sessionID,
		"language", lang,
		"history_length", len(history),
	)

	limited, advisory := s.limiter.Check(sessionID, state, lang)
	if err := s.sessions.Set(ctx, sessionID, state); err != nil {
		s.logger.Event("chat_endpoint_error", "error", err.Error(), "session_id", sessionID)
		s.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if limited {
		state.History = append(history, chat.User(req.Message), chat.Assistant(advisory))
		state.LastInteraction = time.Now().UTC()
		if err := s.sessions.Set(ctx, sessionID, state); err != nil {
			s.logger.Event("chat_endpoint_error", "error", err.Error(), "session_id", sessionID)
			s.writeError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		s.logger.Event("chat_rate_limited", "session_id", sessionID, "language", lang)
		s.archive.Store(ctx, sessionID, chat.RoleAssistant, advisory, lang, true)
		s.writeJSON(w, http.StatusOK, ChatResponse{
			SessionID:   sessionID,
			Message:     advisory,
			Timestamp:   state.LastInteraction.Format(time.RFC3339),
			RateLimited: true,
		})
		return
	}

	result := s.engine.Run(ctx, req.Message, history, lang)

	state.History = result.History
	state.LastInteraction = time.Now().UTC()
	if err := s.sessions.Set(ctx, sessionID, state); err != nil {
		s.logger.Event("chat_endpoint_error", "error", err.Error(), "session_id", sessionID)
		s.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.logger.Event("chat_response",
		"session_id", sessionID,
		"language", lang,
		"rate_limited", false,
		"degraded", result.Degraded,
	)

	s.archive.Store(ctx, sessionID, chat.RoleAssistant, result.Reply, lang, false)

	s.writeJSON(w, http.StatusOK, ChatResponse{
		SessionID:   sessionID,
		Message:     result.Reply,
		Timestamp:   state.LastInteraction.Format(time.RFC3339),
		RateLimited: false,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := mux.Vars(r)["id"]

	state, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		s.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if state == nil {
		s.writeError(w, "Session not found", http.StatusNotFound)
		return
	}
	s.sessions.Touch(ctx, sessionID)

	s.writeJSON(w, http.StatusOK, map[string]any{
		"session_id":       sessionID,
		"history":          state.History,
		"created_at":       state.CreatedAt.Format(time.RFC3339),
		"last_interaction": state.LastInteraction.Format(time.RFC3339),
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := mux.Vars(r)["id"]

	state, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		s.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if state == nil {
		s.writeError(w, "Session not found", http.StatusNotFound)
		return
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		s.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Session deleted successfully"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dbHealth := s.archive.Health(ctx)
	sessionHealth := s.sessions.Health(ctx)

	overall := "healthy"
	status := http.StatusOK
	if dbHealth.Status == "error" || sessionHealth.Status == "error" {
		overall = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	s.writeJSON(w, status, map[string]any{
		"status":        overall,
		"service":       "Portfolio Bot API",
		"timestamp":     nowISO(),
		"database":      dbHealth,
		"session_store": sessionHealth,
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"name":        s.persona.Name,
		"description": "AI-powered chatbot representing " + s.persona.Name,
		"capabilities": []string{
			"Answer questions about background and experience",
			"Capture lead information",
			"Record unanswered questions",
		},
	})
}
