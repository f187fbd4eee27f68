// Package handler exposes the paper wizard over a JSON HTTP API, one route per
// wizard action, plus the printable document and the archive export.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kvexam/papergen/internal/archive"
	"github.com/kvexam/papergen/internal/builder"
	"github.com/kvexam/papergen/internal/model"
	"github.com/kvexam/papergen/internal/render"
	"github.com/kvexam/papergen/internal/session"
	"github.com/kvexam/papergen/internal/syllabus"
)

// Config holds handler settings.
type Config struct {
	// AccessPasswordHash is a bcrypt hash. Empty disables authentication.
	AccessPasswordHash string
	SecureCookies      bool
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	registry *session.Registry
	gen      builder.Generator
	archive  *archive.Store
	config   Config
	auth     *authTokens
}

// New creates a Handler. The archive store may be nil when no archive path is
// configured; the archive route then reports 503.
func New(reg *session.Registry, gen builder.Generator, arch *archive.Store, cfg Config) *Handler {
	return &Handler{
		registry: reg,
		gen:      gen,
		archive:  arch,
		config:   cfg,
		auth:     newAuthTokens(),
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)

		r.Post("/sessions", h.handleCreateSession)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Use(h.sessionCtx)
			r.Get("/", h.handleGetSession)
			r.Delete("/", h.handleDeleteSession)
			r.Post("/reset", h.handleReset)
			r.Put("/class", h.handleSetClass)
			r.Put("/subject", h.handleSetSubject)
			r.Get("/topics", h.handleListTopics)
			r.Post("/topics/toggle", h.handleToggleTopic)
			r.Post("/topics/toggle-all", h.handleToggleAllTopics)
			r.Put("/structure", h.handleSetStructure)
			r.Put("/branding", h.handleSetBranding)
			r.Post("/generate", h.handleGenerate)
			r.Put("/questions/{questionID}", h.handleUpdateQuestion)
			r.Delete("/questions/{questionID}", h.handleDeleteQuestion)
			r.Get("/paper", h.handlePaper)
			r.Post("/archive", h.handleArchive)
		})
	})
}

// sessionState is the wizard state payload returned by most routes.
type sessionState struct {
	ID              string              `json:"id"`
	Spec            model.Specification `json:"spec"`
	ClassOptions    []int               `json:"class_options"`
	SubjectOptions  []string            `json:"subject_options"`
	AvailableTopics []string            `json:"available_topics"`
	HasPaper        bool                `json:"has_paper"`
	Paper           *model.Paper        `json:"paper,omitempty"`
}

func stateOf(s *session.Session) sessionState {
	spec := s.Spec()
	return sessionState{
		ID:              s.ID,
		Spec:            spec,
		ClassOptions:    syllabus.Classes,
		SubjectOptions:  syllabus.Subjects(spec.ClassLevel),
		AvailableTopics: syllabus.Topics(spec.ClassLevel, spec.Subject),
		HasPaper:        s.Paper() != nil,
		Paper:           s.Paper(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

// writeBuilderError maps builder errors onto HTTP statuses. Validation
// failures from bad input are 400s; the in-flight guard is a 409 because the
// state may change once the running generation settles.
func writeBuilderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, builder.ErrGenerationInFlight):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, builder.ErrNoPaper):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, builder.ErrValidationBlocked):
		writeError(w, http.StatusUnprocessableEntity, err)
	default:
		writeError(w, http.StatusBadRequest, err)
	}
}

type ctxKey int

const sessionKey ctxKey = 0

func contextWithSession(ctx context.Context, s *session.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

func sessionFromContext(ctx context.Context) *session.Session {
	s, _ := ctx.Value(sessionKey).(*session.Session)
	return s
}

// sessionCtx resolves {sessionID} and stores the session in the request context.
func (h *Handler) sessionCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := h.registry.Get(chi.URLParam(r, "sessionID"))
		if s == nil {
			writeError(w, http.StatusNotFound, errors.New("unknown session"))
			return
		}
		ctx := contextWithSession(r.Context(), s)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.registry.Create()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	slog.Info("session created", "session_id", s.ID)
	writeJSON(w, http.StatusCreated, stateOf(s))
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, stateOf(sessionFromContext(r.Context())))
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	s := sessionFromContext(r.Context())
	h.registry.Delete(s.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	s := sessionFromContext(r.Context())
	if err := s.With(func(b *builder.Builder) error { return b.Reset() }); err != nil {
		writeBuilderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stateOf(s))
}

func (h *Handler) handleSetClass(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClassLevel int `json:"class_level"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	s := sessionFromContext(r.Context())
	if err := s.With(func(b *builder.Builder) error { return b.SetClass(req.ClassLevel) }); err != nil {
		writeBuilderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stateOf(s))
}

func (h *Handler) handleSetSubject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Subject string `json:"subject"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	s := sessionFromContext(r.Context())
	if err := s.With(func(b *builder.Builder) error { return b.SetSubject(req.Subject) }); err != nil {
		writeBuilderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stateOf(s))
}

func (h *Handler) handleListTopics(w http.ResponseWriter, r *http.Request) {
	s := sessionFromContext(r.Context())
	query := r.URL.Query().Get("q")
	var topics []string
	_ = s.With(func(b *builder.Builder) error {
		topics = b.FilterTopics(query)
		return nil
	})
	spec := s.Spec()
	writeJSON(w, http.StatusOK, map[string]any{
		"topics":   topics,
		"selected": spec.SelectedTopics,
	})
}

func (h *Handler) handleToggleTopic(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Topic string `json:"topic"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	s := sessionFromContext(r.Context())
	var selected bool
	err := s.With(func(b *builder.Builder) error {
		var err error
		selected, err = b.ToggleTopic(req.Topic)
		return err
	})
	if err != nil {
		writeBuilderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"topic":    req.Topic,
		"selected": selected,
		"state":    stateOf(s),
	})
}

func (h *Handler) handleToggleAllTopics(w http.ResponseWriter, r *http.Request) {
	s := sessionFromContext(r.Context())
	var count int
	err := s.With(func(b *builder.Builder) error {
		var err error
		count, err = b.ToggleAllTopics()
		return err
	})
	if err != nil {
		writeBuilderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"selected_count": count,
		"state":          stateOf(s),
	})
}

func (h *Handler) handleSetStructure(w http.ResponseWriter, r *http.Request) {
	var req model.Structure
	if !decodeJSON(w, r, &req) {
		return
	}
	s := sessionFromContext(r.Context())
	if err := s.With(func(b *builder.Builder) error { return b.SetStructure(req) }); err != nil {
		writeBuilderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stateOf(s))
}

func (h *Handler) handleSetBranding(w http.ResponseWriter, r *http.Request) {
	var req model.Branding
	if !decodeJSON(w, r, &req) {
		return
	}
	s := sessionFromContext(r.Context())
	if err := s.With(func(b *builder.Builder) error { return b.SetBranding(req) }); err != nil {
		writeBuilderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stateOf(s))
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	s := sessionFromContext(r.Context())
	err := s.Generate(r.Context(), h.gen)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, stateOf(s))
	case errors.Is(err, builder.ErrValidationBlocked):
		writeError(w, http.StatusUnprocessableEntity, err)
	case errors.Is(err, builder.ErrGenerationInFlight):
		writeError(w, http.StatusConflict, err)
	default:
		slog.Error("generation failed", "session_id", s.ID, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error":  err.Error(),
			"advice": "the specification is unchanged; retry the request",
		})
	}
}

func (h *Handler) handleUpdateQuestion(w http.ResponseWriter, r *http.Request) {
	var req model.Question
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ID = chi.URLParam(r, "questionID")

	s := sessionFromContext(r.Context())
	var updated bool
	err := s.With(func(b *builder.Builder) error {
		var err error
		updated, err = b.UpdateQuestion(req)
		return err
	})
	if err != nil {
		writeBuilderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"updated": updated,
		"paper":   s.Paper(),
	})
}

func (h *Handler) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	s := sessionFromContext(r.Context())
	qid := chi.URLParam(r, "questionID")
	var deleted bool
	err := s.With(func(b *builder.Builder) error {
		var err error
		deleted, err = b.DeleteQuestion(qid)
		return err
	})
	if err != nil {
		writeBuilderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"deleted": deleted,
		"paper":   s.Paper(),
	})
}

func (h *Handler) handlePaper(w http.ResponseWriter, r *http.Request) {
	mode, err := render.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s := sessionFromContext(r.Context())
	paper := s.Paper()
	if paper == nil {
		writeError(w, http.StatusNotFound, builder.ErrNoPaper)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := render.Document(r.Context(), w, s.Spec(), paper, mode); err != nil {
		slog.Error("render error", "session_id", s.ID, "error", err)
	}
}

func (h *Handler) handleArchive(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("archive not configured"))
		return
	}
	s := sessionFromContext(r.Context())
	paper := s.Paper()
	if paper == nil {
		writeError(w, http.StatusNotFound, builder.ErrNoPaper)
		return
	}
	id, err := h.archive.Save(s.Spec(), *paper)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	slog.Info("paper archived", "session_id", s.ID, "archive_id", id)
	writeJSON(w, http.StatusCreated, map[string]any{"archive_id": id})
}
