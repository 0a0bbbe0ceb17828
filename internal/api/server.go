package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/bfscompany/portfoliobot/internal/archive"
	"github.com/bfscompany/portfoliobot/internal/chat"
	"github.com/bfscompany/portfoliobot/internal/config"
	"github.com/bfscompany/portfoliobot/internal/engine"
	"github.com/bfscompany/portfoliobot/internal/events"
	"github.com/bfscompany/portfoliobot/internal/persona"
	"github.com/bfscompany/portfoliobot/internal/ratelimit"
	"github.com/bfscompany/portfoliobot/internal/session"
)

// ChatEngine is the conversation engine surface the server depends on.
type ChatEngine interface {
	Run(ctx context.Context, message string, history []chat.Message, languageHint string) engine.Result
}

// Server is the HTTP API server composing the session store, message
// archive, rate limiter, and conversation engine per request.
type Server struct {
	cfg        *config.Config
	logger     *events.Logger
	persona    *persona.Persona
	sessions   session.Store
	archive    *archive.Store
	limiter    *ratelimit.Limiter
	engine     ChatEngine
	httpServer *http.Server
}

// NewServer wires the API server from its collaborators.
func NewServer(cfg *config.Config, logger *events.Logger, p *persona.Persona, sessions session.Store, arch *archive.Store, limiter *ratelimit.Limiter, eng ChatEngine) *Server {
	return &Server{
		cfg:      cfg,
		logger:   logger,
		persona:  p,
		sessions: sessions,
		archive:  arch,
		limiter:  limiter,
		engine:   eng,
	}
}

// Router builds the route table. Exposed for handler tests.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(s.recoverMiddleware, s.corsMiddleware)

	// OPTIONS is listed on every route so preflight requests reach the CORS
	// middleware instead of mux's method-not-allowed handler.
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods("GET", "OPTIONS")
	api.HandleFunc("/chat", s.handleChat).Methods("POST", "OPTIONS")
	api.HandleFunc("/session/{id}", s.handleGetSession).Methods("GET", "OPTIONS")
	api.HandleFunc("/session/{id}", s.handleDeleteSession).Methods("DELETE")
	api.HandleFunc("/info", s.handleInfo).Methods("GET", "OPTIONS")

	return router
}

// Start runs the HTTP server until Stop is called or the listener fails.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.logger.Event("api_server_starting", "addr", addr)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// corsMiddleware allows the frontend to call the API from any origin.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// recoverMiddleware converts panics anywhere in the request path into a 500
// so the process keeps serving other requests.
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Event("request_panic", "path", r.URL.Path, "error", fmt.Sprint(rec))
				s.writeError(w, fmt.Sprint(rec), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		s.logger.Debug("response_encode_failed", "error", err.Error())
	}
}

func (s *Server) writeError(w http.ResponseWriter, message string, code int) {
	s.writeJSON(w, code, map[string]string{"error": message})
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}
