// Package httpapi exposes the engine over HTTP: a turn endpoint, flow
// inspection, and conversation management.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/parleyhq/parley"
	"github.com/parleyhq/parley/pkg/domain"
	"github.com/parleyhq/parley/pkg/session"
)

// TurnRequest is the body of POST /v1/turn.
type TurnRequest struct {
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text"`
}

// TurnResponse is what a processed turn returns to the caller.
type TurnResponse struct {
	ConversationID string                `json:"conversation_id"`
	Response       string                `json:"response"`
	Pending        *domain.PendingPrompt `json:"pending,omitempty"`
	HandedOff      bool                  `json:"handed_off,omitempty"`
	Turn           int                   `json:"turn"`
}

// FlowSummary is the list-flows projection of a definition.
type FlowSummary struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Triggers    []string `json:"triggers,omitempty"`
	Steps       int      `json:"steps"`
}

type server struct {
	engine   *parley.Engine
	sessions *session.Manager
	logger   *slog.Logger
}

// NewRouter builds the HTTP API over an engine and its session manager.
func NewRouter(engine *parley.Engine, sessions *session.Manager, logger *slog.Logger) chi.Router {
	s := &server{engine: engine, sessions: sessions, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/turn", s.handleTurn)
		r.Get("/flows", s.handleListFlows)
		r.Get("/flows/{name}/graph", s.handleFlowGraph)
		r.Post("/flows/compile", s.handleCompile)
		r.Get("/conversations", s.handleListConversations)
		r.Delete("/conversations/{id}", s.handleResetConversation)
	})
	return r
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ConversationID == "" {
		writeError(w, http.StatusBadRequest, "conversation_id is required")
		return
	}

	res, err := s.sessions.HandleTurn(r.Context(), req.ConversationID, req.Text)
	if err != nil {
		s.logger.Error("turn failed", "conversation", req.ConversationID, "error", err)
		writeError(w, http.StatusInternalServerError, "turn processing failed")
		return
	}

	writeJSON(w, http.StatusOK, TurnResponse{
		ConversationID: req.ConversationID,
		Response:       res.Response,
		Pending:        res.Pending,
		HandedOff:      res.Snapshot.HandedOff,
		Turn:           res.Snapshot.Turn,
	})
}

func (s *server) handleListFlows(w http.ResponseWriter, _ *http.Request) {
	flows := s.engine.Flows()
	out := make([]FlowSummary, 0, len(flows))
	for _, f := range flows {
		out = append(out, FlowSummary{
			Name:        f.Name,
			Description: f.Description,
			Triggers:    f.Triggers,
			Steps:       len(f.Steps),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleFlowGraph(w http.ResponseWriter, r *http.Request) {
	info, err := s.engine.GraphInfo(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *server) handleCompile(w http.ResponseWriter, r *http.Request) {
	var def domain.FlowDefinition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	info, err := parley.CompileFlow(def)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	ids, err := s.sessions.Conversations(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing conversations failed")
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, ids)
}

func (s *server) handleResetConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sessions.Reset(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrConversationNotFound) {
			writeError(w, http.StatusNotFound, "unknown conversation")
			return
		}
		writeError(w, http.StatusInternalServerError, "reset failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
