package handlers

import (
	"net/http"

	"github.com/skyward-ops/droneops/internal/core/domain"
	"github.com/skyward-ops/droneops/internal/core/ports"
	"github.com/skyward-ops/droneops/internal/core/services/ops"
)

// IncidentHandler handles the incident lifecycle and artifacts.
type IncidentHandler struct {
	Service *ops.Service
}

// NewIncidentHandler creates a new IncidentHandler.
func NewIncidentHandler(service *ops.Service) *IncidentHandler {
	return &IncidentHandler{Service: service}
}

// HandleList returns incidents, optionally filtered by status.
func (h *IncidentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	status := domain.IncidentStatus(r.URL.Query().Get("status"))
	limit := queryInt(r, "limit", 50, 500)

	incidents, err := h.Service.ListIncidents(r.Context(), status, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if incidents == nil {
		incidents = []domain.Incident{}
	}
	writeSuccess(w, http.StatusOK, map[string]any{"incidents": incidents})
}

// HandleGet returns one incident with its artifacts.
func (h *IncidentHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid incident id")
		return
	}

	incident, err := h.Service.GetIncident(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if incident == nil {
		writeError(w, http.StatusNotFound, "Incident not found")
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"incident": incident})
}

// HandleCreate opens a new incident.
func (h *IncidentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title    string         `json:"title"`
		Severity string         `json:"severity"`
		Summary  *string        `json:"summary"`
		Metadata map[string]any `json:"metadata"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	incident, err := h.Service.CreateIncident(r.Context(), body.Title, domain.Severity(body.Severity), actorName(r), body.Summary, body.Metadata)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]any{"incident": incident})
}

// HandleUpdate applies a partial incident mutation.
func (h *IncidentHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid incident id")
		return
	}

	var body struct {
		Status   *string        `json:"status"`
		Severity *string        `json:"severity"`
		Summary  *string        `json:"summary"`
		Metadata map[string]any `json:"metadata"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	update := ports.IncidentUpdate{
		Summary:  body.Summary,
		Metadata: body.Metadata,
	}
	if body.Status != nil {
		status := domain.IncidentStatus(*body.Status)
		update.Status = &status
	}
	if body.Severity != nil {
		severity := domain.Severity(*body.Severity)
		update.Severity = &severity
	}

	incident, err := h.Service.UpdateIncident(r.Context(), id, update)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"incident": incident})
}

// HandleAddArtifact appends an evidence reference to an incident.
func (h *IncidentHandler) HandleAddArtifact(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid incident id")
		return
	}

	var body struct {
		ArtifactType string         `json:"artifact_type"`
		ArtifactRef  string         `json:"artifact_ref"`
		Metadata     map[string]any `json:"metadata"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	artifact, err := h.Service.AddIncidentArtifact(r.Context(), id, body.ArtifactType, body.ArtifactRef, actorName(r), body.Metadata)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]any{"artifact": artifact})
}
