package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/streed/study-notes/internal/config"
	interrors "github.com/streed/study-notes/internal/errors"
	"github.com/streed/study-notes/internal/logger"
	"github.com/streed/study-notes/internal/services"
)

type APIServer struct {
	cfg     *config.Config
	db      *sql.DB
	svc     *services.NoteService
	version string
	handler http.Handler
	server  *http.Server
}

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func NewAPIServer(cfg *config.Config, db *sql.DB, svc *services.NoteService, version string) *APIServer {
	s := &APIServer{
		cfg:     cfg,
		db:      db,
		svc:     svc,
		version: version,
	}
	s.handler = s.routes()
	return s
}

// Handler returns the fully wrapped router.
func (s *APIServer) Handler() http.Handler {
	return s.handler
}

func (s *APIServer) routes() http.Handler {
	router := mux.NewRouter()

	// The original clients call the bare paths; /api/v1 is kept for everything else.
	s.registerRoutes(router)
	s.registerRoutes(router.PathPrefix("/api/v1").Subrouter())

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("no route for %s %s", r.Method, r.URL.Path))
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed on %s", r.Method, r.URL.Path))
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           86400, // 24 hours
	})

	return c.Handler(logRequests(trimTrailingSlash(router)))
}

func (s *APIServer) registerRoutes(r *mux.Router) {
	// Notes
	r.HandleFunc("/notes", s.handleListNotes).Methods("GET")
	r.HandleFunc("/notes", s.handleCreateNote).Methods("POST")
	r.HandleFunc("/notes/search", s.handleSearchNotes).Methods("GET")
	r.HandleFunc("/notes/{id:[0-9]+}", s.handleGetNote).Methods("GET")
	r.HandleFunc("/notes/{id:[0-9]+}/quiz", s.handleGetQuiz).Methods("GET")
	r.HandleFunc("/notes/{id:[0-9]+}/quiz/grade", s.handleGradeQuiz).Methods("POST")

	r.HandleFunc("/tags", s.handleListTags).Methods("GET")

	r.HandleFunc("/transcribe", s.handleTranscribe).Methods("POST")

	// Templates
	r.HandleFunc("/templates", s.handleListTemplates).Methods("GET")
	r.HandleFunc("/templates", s.handleSaveTemplate).Methods("POST")
	r.HandleFunc("/templates/upload", s.handleSaveTemplate).Methods("POST")

	// Statistics and info
	r.HandleFunc("/stats", s.handleStats).Methods("GET")
	r.HandleFunc("/config", s.handleConfig).Methods("GET")
	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.HandleFunc("/docs", s.handleDocs).Methods("GET")
}

func (s *APIServer) Start() error {
	addr := s.cfg.ListenAddr()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Transcription, formatting and quiz generation all run inside one request.
		ReadTimeout:  s.cfg.Server.WriteTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("Starting HTTP API server on %s", addr)
	return s.server.ListenAndServe()
}

func (s *APIServer) Stop() error {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}
	return nil
}

// trimTrailingSlash lets /transcribe/ and /transcribe hit the same route
// without a redirect, which would drop POST bodies.
func trimTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(r.URL.Path) > 1 && strings.HasSuffix(r.URL.Path, "/") {
			r.URL.Path = strings.TrimRight(r.URL.Path, "/")
			if r.URL.Path == "" {
				r.URL.Path = "/"
			}
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger.LogRequest(r.Method, r.URL.Path, r.RemoteAddr)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		logger.LogResponse(r.Method, r.URL.Path, rec.status, time.Since(start).String())
	})
}

func (s *APIServer) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := APIResponse{
		Success: statusCode < 400,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error("Failed to encode JSON response: %v", err)
	}
}

func (s *APIServer) writeError(w http.ResponseWriter, statusCode int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := APIResponse{
		Success: false,
		Error:   err.Error(),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error("Failed to encode JSON response: %v", err)
	}
}

// writeServiceError maps the error taxonomy onto HTTP status codes.
func (s *APIServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	switch {
	case status >= 500 && status != http.StatusBadGateway:
		logger.Error("%s %s: %v", r.Method, r.URL.Path, err)
	case status == http.StatusBadGateway:
		logger.Warn("%s %s: upstream failure: %v", r.Method, r.URL.Path, err)
	}
	s.writeError(w, status, err)
}

func statusFor(err error) int {
	switch interrors.Kind(err) {
	case interrors.ErrValidation:
		return http.StatusBadRequest
	case interrors.ErrNotFound:
		return http.StatusNotFound
	case interrors.ErrConflict:
		return http.StatusConflict
	case interrors.ErrUpstream:
		return http.StatusBadGateway
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *APIServer) parseIDParam(r *http.Request) (int64, error) {
	str, exists := mux.Vars(r)["id"]
	if !exists {
		return 0, interrors.Validation("missing parameter: id")
	}
	id, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0, interrors.ErrInvalidNoteID
	}
	return id, nil
}

// parseQueryInt reads an optional integer query parameter.
func parseQueryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, interrors.Validation("%s must be an integer, got %q", name, raw)
	}
	return v, nil
}
