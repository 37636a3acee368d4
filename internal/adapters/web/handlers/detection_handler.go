package handlers

import (
	"net/http"

	"github.com/skyward-ops/droneops/internal/core/domain"
	"github.com/skyward-ops/droneops/internal/core/ports"
	"github.com/skyward-ops/droneops/internal/core/services/ops"
)

// DetectionHandler handles detection, track, decoding and geolocation
// queries.
type DetectionHandler struct {
	Service *ops.Service
}

// NewDetectionHandler creates a new DetectionHandler.
func NewDetectionHandler(service *ops.Service) *DetectionHandler {
	return &DetectionHandler{Service: service}
}

// HandleList returns stored detections.
func (h *DetectionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter := ports.DetectionFilter{
		SessionID:     queryOptionalID(r, "session_id"),
		Source:        r.URL.Query().Get("source"),
		MinConfidence: queryFloat(r, "min_confidence", 0),
		Limit:         queryInt(r, "limit", 100, 5000),
	}

	detections, err := h.Service.ListDetections(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if detections == nil {
		detections = []domain.Detection{}
	}
	writeSuccess(w, http.StatusOK, map[string]any{"detections": detections})
}

// HandleTracks returns stored track points.
func (h *DetectionHandler) HandleTracks(w http.ResponseWriter, r *http.Request) {
	filter := ports.TrackFilter{
		DetectionID: queryOptionalID(r, "detection_id"),
		Identifier:  r.URL.Query().Get("identifier"),
		Limit:       queryInt(r, "limit", 200, 5000),
	}

	tracks, err := h.Service.ListTracks(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if tracks == nil {
		tracks = []domain.Track{}
	}
	writeSuccess(w, http.StatusOK, map[string]any{"tracks": tracks})
}

// HandleDecode decodes a Remote-ID payload without persisting anything.
func (h *DetectionHandler) HandleDecode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Payload any `json:"payload"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	decoded := h.Service.DecodeRemoteID(body.Payload)
	writeSuccess(w, http.StatusOK, map[string]any{"decoded": decoded})
}

// HandleGeolocate estimates a transmitter position from RSSI observations.
func (h *DetectionHandler) HandleGeolocate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Observations []ports.Observation `json:"observations"`
		Environment  string              `json:"environment"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	estimate, err := h.Service.Geolocate(body.Observations, body.Environment)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"location": estimate})
}
