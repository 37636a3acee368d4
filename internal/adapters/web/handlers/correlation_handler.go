package handlers

import (
	"net/http"

	"github.com/skyward-ops/droneops/internal/core/domain"
	"github.com/skyward-ops/droneops/internal/core/services/ops"
)

// CorrelationHandler handles drone/operator correlation queries.
type CorrelationHandler struct {
	Service *ops.Service
}

// NewCorrelationHandler creates a new CorrelationHandler.
func NewCorrelationHandler(service *ops.Service) *CorrelationHandler {
	return &CorrelationHandler{Service: service}
}

// HandleList returns correlations, refreshing WiFi<->BT pairs first unless
// refresh=false.
func (h *CorrelationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	minConfidence := queryFloat(r, "min_confidence", 0.6)
	refresh := r.URL.Query().Get("refresh") != "false"

	var correlations []domain.Correlation
	var err error
	if refresh {
		correlations, err = h.Service.RefreshCorrelations(r.Context(), minConfidence)
	} else {
		correlations, err = h.Service.ListCorrelations(r.Context(), minConfidence, 200)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if correlations == nil {
		correlations = []domain.Correlation{}
	}
	writeSuccess(w, http.StatusOK, map[string]any{"correlations": correlations})
}
