package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/skyward-ops/droneops/internal/core/domain"
	"github.com/skyward-ops/droneops/internal/core/ports"
	"github.com/skyward-ops/droneops/internal/core/services/ops"
)

// ActionHandler handles arming and the action approval workflow.
type ActionHandler struct {
	Service *ops.Service
}

// NewActionHandler creates a new ActionHandler.
func NewActionHandler(service *ops.Service) *ActionHandler {
	return &ActionHandler{Service: service}
}

// HandleArm opens the action window. duration_seconds is accepted in any
// JSON shape; non-numeric values fall through to the policy default.
func (h *ActionHandler) HandleArm(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IncidentID      int64  `json:"incident_id"`
		Reason          string `json:"reason"`
		DurationSeconds any    `json:"duration_seconds"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.Reason == "" {
		writeError(w, http.StatusBadRequest, "reason is required")
		return
	}

	state := h.Service.Arm(actorName(r), body.Reason, body.IncidentID, coerceSeconds(body.DurationSeconds))
	writeSuccess(w, http.StatusOK, map[string]any{"policy": state})
}

// coerceSeconds extracts an integer second count from a loosely typed JSON
// field. Anything non-numeric yields zero, which the policy engine replaces
// with its default window.
func coerceSeconds(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case string:
		if parsed, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return parsed
		}
	}
	return 0
}

// HandleDisarm closes the action window.
func (h *ActionHandler) HandleDisarm(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reason string `json:"reason"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	state := h.Service.Disarm(actorName(r), body.Reason)
	writeSuccess(w, http.StatusOK, map[string]any{"policy": state})
}

// HandleRequest opens a pending action request.
func (h *ActionHandler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IncidentID int64          `json:"incident_id"`
		ActionType string         `json:"action_type"`
		Payload    map[string]any `json:"payload"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	request, err := h.Service.RequestAction(r.Context(), body.IncidentID, body.ActionType, actorName(r), body.Payload)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]any{"request": request})
}

// HandleApprove records a reviewer verdict on a request.
func (h *ActionHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request id")
		return
	}

	var body struct {
		Decision string  `json:"decision"`
		Notes    *string `json:"notes"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	decision := domain.ApprovalDecision(body.Decision)
	if !decision.IsValid() {
		writeError(w, http.StatusBadRequest, "decision must be approved or rejected")
		return
	}

	request, err := h.Service.ApproveAction(r.Context(), id, actorName(r), decision, body.Notes)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"request": request})
}

// HandleExecute carries out an approved request. Reached only through the
// armed-gated middleware; the service re-checks the policy window anyway.
func (h *ActionHandler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request id")
		return
	}

	request, err := h.Service.ExecuteAction(r.Context(), id, actorName(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"request": request})
}

// HandleListRequests returns action requests.
func (h *ActionHandler) HandleListRequests(w http.ResponseWriter, r *http.Request) {
	filter := ports.ActionRequestFilter{
		IncidentID: queryOptionalID(r, "incident_id"),
		Status:     domain.ActionStatus(r.URL.Query().Get("status")),
		Limit:      queryInt(r, "limit", 100, 1000),
	}

	requests, err := h.Service.ListActionRequests(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if requests == nil {
		requests = []domain.ActionRequest{}
	}
	writeSuccess(w, http.StatusOK, map[string]any{"requests": requests})
}

// HandleGetRequest returns one action request.
func (h *ActionHandler) HandleGetRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request id")
		return
	}

	request, err := h.Service.GetActionRequest(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if request == nil {
		writeError(w, http.StatusNotFound, domain.ErrRequestNotFound.Error())
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"request": request})
}

// HandleAudit returns the workflow audit trail.
func (h *ActionHandler) HandleAudit(w http.ResponseWriter, r *http.Request) {
	requestID := queryOptionalID(r, "request_id")
	limit := queryInt(r, "limit", 500, 2000)

	entries, err := h.Service.ListActionAudit(r.Context(), requestID, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.ActionAuditEntry{}
	}
	writeSuccess(w, http.StatusOK, map[string]any{"events": entries})
}
