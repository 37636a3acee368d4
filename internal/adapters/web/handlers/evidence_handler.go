package handlers

import (
	"fmt"
	"net/http"

	"github.com/skyward-ops/droneops/internal/adapters/reporting"
	"github.com/skyward-ops/droneops/internal/core/domain"
	"github.com/skyward-ops/droneops/internal/core/services/ops"
)

// EvidenceHandler handles evidence manifest creation and retrieval.
type EvidenceHandler struct {
	Service     *ops.Service
	PDFExporter *reporting.PDFExporter
}

// NewEvidenceHandler creates a new EvidenceHandler.
func NewEvidenceHandler(service *ops.Service, exporter *reporting.PDFExporter) *EvidenceHandler {
	return &EvidenceHandler{Service: service, PDFExporter: exporter}
}

// HandleCreate builds and seals a manifest for an incident.
func (h *EvidenceHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	incidentID, err := pathID(r, "incident_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid incident id")
		return
	}

	var body struct {
		Signature *string `json:"signature"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	manifest, err := h.Service.BuildManifest(r.Context(), incidentID, actorName(r), body.Signature)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]any{"manifest": manifest})
}

// HandleGet returns one manifest.
func (h *EvidenceHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid manifest id")
		return
	}

	manifest, err := h.Service.GetManifest(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if manifest == nil {
		writeError(w, http.StatusNotFound, "Manifest not found")
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"manifest": manifest})
}

// HandleList returns an incident's manifests.
func (h *EvidenceHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	incidentID, err := pathID(r, "incident_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid incident id")
		return
	}

	limit := queryInt(r, "limit", 50, 500)
	manifests, err := h.Service.ListManifests(r.Context(), incidentID, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if manifests == nil {
		manifests = []domain.EvidenceManifest{}
	}
	writeSuccess(w, http.StatusOK, map[string]any{"manifests": manifests})
}

// HandleExportPDF renders one manifest as a downloadable PDF.
func (h *EvidenceHandler) HandleExportPDF(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid manifest id")
		return
	}

	manifest, err := h.Service.GetManifest(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if manifest == nil {
		writeError(w, http.StatusNotFound, "Manifest not found")
		return
	}

	pdf, err := h.PDFExporter.ExportManifest(manifest)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=manifest-%d.pdf", manifest.ID))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}
