package handlers

import (
	"net/http"

	"github.com/skyward-ops/droneops/internal/adapters/web/middleware"
	"github.com/skyward-ops/droneops/internal/core/domain"
	"github.com/skyward-ops/droneops/internal/core/services/ops"
)

// SessionHandler handles status, session lifecycle and raw event ingestion.
type SessionHandler struct {
	Service *ops.Service
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(service *ops.Service) *SessionHandler {
	return &SessionHandler{Service: service}
}

// HandleStatus returns the active session, policy snapshot and row counts.
func (h *SessionHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.Service.GetStatus(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"active_session": status.ActiveSession,
		"policy":         status.Policy,
		"counts":         status.Counts,
	})
}

// HandleList returns recent sessions.
func (h *SessionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50, 500)
	activeOnly := r.URL.Query().Get("active_only") == "true"

	sessions, err := h.Service.ListSessions(r.Context(), limit, activeOnly)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"sessions": sessions})
}

// HandleStart starts a collection session; idempotent when one is active.
func (h *SessionHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Mode     string         `json:"mode"`
		Label    *string        `json:"label"`
		Metadata map[string]any `json:"metadata"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	operator := actorName(r)
	session, err := h.Service.StartSession(r.Context(), domain.SessionMode(body.Mode), body.Label, operator, body.Metadata)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"session": session})
}

// HandleStop stops the addressed or active session.
func (h *SessionHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID      *int64         `json:"id"`
		Summary map[string]any `json:"summary"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := h.Service.StopSession(r.Context(), actorName(r), body.ID, body.Summary)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if session == nil {
		writeError(w, http.StatusNotFound, "No session to stop")
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"session": session})
}

// HandleIngest accepts one raw sensor event and returns what it yielded.
func (h *SessionHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Mode      string         `json:"mode"`
		Event     map[string]any `json:"event"`
		EventType string         `json:"event_type"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.Mode == "" || body.Event == nil {
		writeError(w, http.StatusBadRequest, "mode and event are required")
		return
	}

	detections, err := h.Service.IngestEvent(r.Context(), body.Mode, body.Event, body.EventType)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if detections == nil {
		detections = []domain.Detection{}
	}
	writeSuccess(w, http.StatusOK, map[string]any{"detections": detections})
}

// actorName resolves the acting username from the request context.
func actorName(r *http.Request) string {
	if user := middleware.UserFromContext(r.Context()); user != nil {
		return user.Username
	}
	return "unknown"
}
