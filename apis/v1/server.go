// Package v1 serves the chat API over HTTP.
package v1

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"github.com/va6996/travelassist/agents"
	logcontext "github.com/va6996/travelassist/context"
	"github.com/va6996/travelassist/log"
)

const maxBodyBytes = 1 << 20

// ErrorMessage is returned with a 500 when a handler panics.
const ErrorMessage = "Sorry, an error occurred while processing your request."

// Chatter answers one chat turn. *agents.TravelAgent implements it.
type Chatter interface {
	ProcessMessage(ctx context.Context, message string, reqCtx map[string]any) agents.Reply
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message string         `json:"message"`
	Context map[string]any `json:"context"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server routes HTTP requests to the agent.
type Server struct {
	agent          Chatter
	allowedOrigins []string
}

// NewServer creates a Server. An empty origin list allows any origin.
func NewServer(agent Chatter, allowedOrigins []string) *Server {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return &Server{agent: agent, allowedOrigins: allowedOrigins}
}

// Routes builds the router. Every route is served both at the root and
// under /api.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(RequestID)
	r.Use(AccessLog)
	r.Use(Recover)

	mount := func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/chat", s.handleChat)
	}
	mount(r)
	r.Route("/api", mount)

	return cors.New(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{logcontext.RequestIDHeader},
		AllowCredentials: true,
	}).Handler(r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Message: "Travel Assistant API is running",
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ChatRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		msg := "invalid JSON body"
		if errors.Is(err, io.EOF) {
			msg = "request body is required"
		}
		log.Warnf(ctx, "Rejected chat request: %v", err)
		writeJSON(ctx, w, http.StatusBadRequest, errorResponse{Error: msg})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(ctx, w, http.StatusBadRequest, errorResponse{Error: "message is required"})
		return
	}

	reply := s.agent.ProcessMessage(ctx, req.Message, req.Context)
	writeJSON(ctx, w, http.StatusOK, reply)
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Errorf(ctx, "Failed to write response: %v", err)
	}
}

// RequestID reuses a valid incoming X-Request-ID or generates one, stores
// it in the request context and echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(logcontext.RequestIDHeader))
		if id == "" || len(id) > 128 {
			id = logcontext.NewRequestID()
		}
		w.Header().Set(logcontext.RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logcontext.WithRequestID(r.Context(), id)))
	})
}

// AccessLog logs one line per request.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.WithFields(r.Context(), logrus.Fields{
			"status":   ww.Status(),
			"bytes":    ww.BytesWritten(),
			"duration": time.Since(start).String(),
		}).Infof("%s %s", r.Method, r.URL.Path)
	})
}

// Recover turns a panic into a 500 carrying ErrorMessage.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Errorf(r.Context(), "Panic serving %s %s: %v", r.Method, r.URL.Path, rec)
				writeJSON(r.Context(), w, http.StatusInternalServerError, agents.Reply{Response: ErrorMessage})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
