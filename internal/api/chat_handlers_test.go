package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bfscompany/portfoliobot/internal/archive"
	"github.com/bfscompany/portfoliobot/internal/chat"
	"github.com/bfscompany/portfoliobot/internal/config"
	"github.com/bfscompany/portfoliobot/internal/engine"
	"github.com/bfscompany/portfoliobot/internal/events"
	"github.com/bfscompany/portfoliobot/internal/persona"
	"github.com/bfscompany/portfoliobot/internal/ratelimit"
	"github.com/bfscompany/portfoliobot/internal/session"
)

// stubEngine echoes a fixed reply and counts invocations.
type stubEngine struct {
	reply string
	calls int
}

func (e *stubEngine) Run(ctx context.Context, message string, history []chat.Message, languageHint string) engine.Result {
	e.calls++
	updated := append(chat.Clone(history), chat.User(message), chat.Assistant(e.reply))
	return engine.Result{Reply: e.reply, History: updated}
}

func newTestServer(t *testing.T, maxRequests int) (*Server, *stubEngine, session.Store) {
	t.Helper()
	logger := events.New("error")
	sessions := session.NewMemoryStore(time.Hour)
	eng := &stubEngine{reply: "Hei! Hva lurer du på?"}

	srv := NewServer(
		&config.Config{},
		logger,
		persona.New("Borgar Flaen Stensrud", "Summary.", "LinkedIn."),
		sessions,
		archive.New("", logger),
		ratelimit.New(time.Minute, maxRequests, logger),
		eng,
	)
	return srv, eng, sessions
}

func postChat(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeChat(t *testing.T, rec *httptest.ResponseRecorder) ChatResponse {
	t.Helper()
	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestChatRequiresMessage(t *testing.T) {
	srv, eng, _ := newTestServer(t, 8)
	router := srv.Router()

	for _, body := range []string{``, `{}`, `{"message":""}`, `not json`} {
		rec := postChat(t, router, body)
		require.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)

		var errResp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
		require.Equal(t, "Message is required", errResp["error"])
	}
	require.Zero(t, eng.calls)
}

func TestChatCreatesSession(t *testing.T) {
	srv, eng, sessions := newTestServer(t, 8)
	router := srv.Router()

	rec := postChat(t, router, `{"message":"Hei, hvem er du?"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeChat(t, rec)
	require.NotEmpty(t, resp.SessionID)
	require.Equal(t, "Hei! Hva lurer du på?", resp.Message)
	require.False(t, resp.RateLimited)
	require.Equal(t, 1, eng.calls)

	state, err := sessions.Get(context.Background(), resp.SessionID)
	require.NoError(t, err)
	require.NotNil(t, state)
	require.Len(t, state.History, 2)
	require.Equal(t, chat.RoleUser, state.History[0].Role)
	require.Equal(t, chat.RoleAssistant, state.History[1].Role)
}

func TestChatReusesSession(t *testing.T) {
	srv, _, sessions := newTestServer(t, 8)
	router := srv.Router()

	first := decodeChat(t, postChat(t, router, `{"message":"Hei"}`))
	second := decodeChat(t, postChat(t, router, fmt.Sprintf(`{"message":"Og hva mer?","session_id":%q}`, first.SessionID)))
	require.Equal(t, first.SessionID, second.SessionID)

	state, err := sessions.Get(context.Background(), first.SessionID)
	require.NoError(t, err)
	require.Len(t, state.History, 4, "second turn should extend the stored history")
}

func TestChatHistoryOverrideReplaces(t *testing.T) {
	srv, _, sessions := newTestServer(t, 8)
	router := srv.Router()

	first := decodeChat(t, postChat(t, router, `{"message":"Hei"}`))

	override := fmt.Sprintf(`{"message":"Ny start","session_id":%q,"history":[{"role":"user","content":"gammel melding"}]}`, first.SessionID)
	rec := postChat(t, router, override)
	require.Equal(t, http.StatusOK, rec.Code)

	state, err := sessions.Get(context.Background(), first.SessionID)
	require.NoError(t, err)
	// Override history (1) + user message + assistant reply, not the stored 2.
	require.Len(t, state.History, 3)
	require.Equal(t, "gammel melding", state.History[0].Content)
}

func TestChatRateLimiting(t *testing.T) {
	srv, eng, sessions := newTestServer(t, 8)
	router := srv.Router()

	var sessionID string
	for i := 0; i < 8; i++ {
		body := `{"message":"Hei"}`
		if sessionID != "" {
			body = fmt.Sprintf(`{"message":"Hei","session_id":%q}`, sessionID)
		}
		resp := decodeChat(t, postChat(t, router, body))
		require.False(t, resp.RateLimited, "request %d should pass", i+1)
		sessionID = resp.SessionID
	}
	require.Equal(t, 8, eng.calls)

	resp := decodeChat(t, postChat(t, router, fmt.Sprintf(`{"message":"Hei","session_id":%q}`, sessionID)))
	require.True(t, resp.RateLimited, "9th request in the window must be limited")
	require.Equal(t, ratelimit.Advisory("no"), resp.Message)
	require.Equal(t, 8, eng.calls, "limited request must not reach the engine")

	// The advisory turn is still recorded in the session history.
	state, err := sessions.Get(context.Background(), sessionID)
	require.NoError(t, err)
	last := state.History[len(state.History)-1]
	require.Equal(t, chat.RoleAssistant, last.Role)
	require.Equal(t, ratelimit.Advisory("no"), last.Content)
}

func TestGetSession(t *testing.T) {
	srv, _, _ := newTestServer(t, 8)
	router := srv.Router()

	created := decodeChat(t, postChat(t, router, `{"message":"Hei"}`))

	req := httptest.NewRequest(http.MethodGet, "/api/session/"+created.SessionID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		SessionID       string         `json:"session_id"`
		History         []chat.Message `json:"history"`
		CreatedAt       string         `json:"created_at"`
		LastInteraction string         `json:"last_interaction"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, created.SessionID, body.SessionID)
	require.Len(t, body.History, 2)
	require.NotEmpty(t, body.CreatedAt)
	require.NotEmpty(t, body.LastInteraction)
}

func TestGetSessionNotFound(t *testing.T) {
	srv, _, _ := newTestServer(t, 8)
	router := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/api/session/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var errResp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	require.Equal(t, "Session not found", errResp["error"])
}

func TestDeleteSession(t *testing.T) {
	srv, _, sessions := newTestServer(t, 8)
	router := srv.Router()

	created := decodeChat(t, postChat(t, router, `{"message":"Hei"}`))

	req := httptest.NewRequest(http.MethodDelete, "/api/session/"+created.SessionID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "Session deleted successfully", body["message"])

	state, err := sessions.Get(context.Background(), created.SessionID)
	require.NoError(t, err)
	require.Nil(t, state)

	// Deleting again is a 404, not a silent success.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/session/"+created.SessionID, nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t, 8)
	router := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status       string         `json:"status"`
		Service      string         `json:"service"`
		Database     archive.Health `json:"database"`
		SessionStore session.Health `json:"session_store"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "healthy", body.Status)
	require.Equal(t, "Portfolio Bot API", body.Service)
	require.Equal(t, "disabled", body.Database.Status)
	require.Equal(t, "in_memory", body.SessionStore.Status)
}

func TestInfo(t *testing.T) {
	srv, _, _ := newTestServer(t, 8)
	router := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/api/info", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Name         string   `json:"name"`
		Description  string   `json:"description"`
		Capabilities []string `json:"capabilities"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "Borgar Flaen Stensrud", body.Name)
	require.NotEmpty(t, body.Description)
	require.Len(t, body.Capabilities, 3)
}

func TestCORSPreflight(t *testing.T) {
	srv, _, _ := newTestServer(t, 8)
	router := srv.Router()

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
