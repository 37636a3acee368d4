package ops

import (
	"context"
	"fmt"
	"strings"

	"github.com/skyward-ops/droneops/internal/core/domain"
	"github.com/skyward-ops/droneops/internal/core/ports"
	"github.com/skyward-ops/droneops/internal/core/services/policy"
	"github.com/skyward-ops/droneops/internal/telemetry"
)

// decorate fills the computed quorum fields from the stored approvals.
func decorate(r *domain.ActionRequest) *domain.ActionRequest {
	if r == nil {
		return nil
	}
	r.RequiredApprovals = policy.RequiredApprovals(r.ActionType)
	r.ApprovedCount = r.CountApproved()
	return r
}

// RequestAction opens a pending action request against an incident and
// records the first audit entry.
func (s *Service) RequestAction(ctx context.Context, incidentID int64, actionType, requestedBy string, payload map[string]any) (*domain.ActionRequest, error) {
	actionType = strings.TrimSpace(actionType)
	if actionType == "" {
		return nil, domain.ErrEmptyActionType
	}

	incident, err := s.store.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	if incident == nil {
		return nil, domain.ErrIncidentNotFound
	}

	now := s.now().UTC()
	id, err := s.store.CreateActionRequest(ctx, incidentID, actionType, requestedBy, payload, now)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.AddActionAuditLog(ctx, domain.ActionAuditEntry{
		RequestID: id,
		EventType: domain.AuditRequested,
		Actor:     requestedBy,
		Details:   map[string]any{"action_type": actionType, "incident_id": incidentID},
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}

	request, err := s.store.GetActionRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	decorate(request)

	s.bus.Emit(domain.EventActionRequested, toMap(request))
	return request, nil
}

// ApproveAction records one reviewer verdict. A repeat verdict from the
// same approver is a no-op returning the current request. A rejection is
// terminal; once the approval quorum is met the request moves to approved
// unless already executed or rejected.
func (s *Service) ApproveAction(ctx context.Context, requestID int64, approver string, decision domain.ApprovalDecision, notes *string) (*domain.ActionRequest, error) {
	if !decision.IsValid() {
		return nil, fmt.Errorf("invalid decision %q", decision)
	}

	request, err := s.store.GetActionRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, domain.ErrRequestNotFound
	}
	if request.HasDecisionFrom(approver) {
		return decorate(request), nil
	}

	now := s.now().UTC()
	if err := s.store.AddActionApproval(ctx, requestID, domain.ActionApproval{
		ApprovedBy: approver,
		Decision:   decision,
		Notes:      notes,
		DecidedAt:  now,
	}); err != nil {
		return nil, err
	}

	if _, err := s.store.AddActionAuditLog(ctx, domain.ActionAuditEntry{
		RequestID: requestID,
		EventType: domain.AuditApproval,
		Actor:     approver,
		Details:   map[string]any{"decision": string(decision)},
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}

	// Re-read so the quorum is computed from the stored approvals.
	request, err = s.store.GetActionRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, domain.ErrRequestNotFound
	}

	switch {
	case decision == domain.DecisionRejected &&
		request.Status != domain.ActionExecuted && request.Status != domain.ActionRejected:
		if err := s.store.UpdateActionRequestStatus(ctx, requestID, domain.ActionRejected, nil, now); err != nil {
			return nil, err
		}
	case request.CountApproved() >= policy.RequiredApprovals(request.ActionType) &&
		request.Status != domain.ActionExecuted && request.Status != domain.ActionRejected:
		if err := s.store.UpdateActionRequestStatus(ctx, requestID, domain.ActionApproved, nil, now); err != nil {
			return nil, err
		}
	}

	request, err = s.store.GetActionRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	decorate(request)

	s.bus.Emit(domain.EventActionApproved, toMap(request))
	return request, nil
}

// ExecuteAction carries out an approved request. The action plane must be
// armed and the approval quorum met; executed and rejected requests never
// execute again.
func (s *Service) ExecuteAction(ctx context.Context, requestID int64, actor string) (*domain.ActionRequest, error) {
	request, err := s.store.GetActionRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, domain.ErrRequestNotFound
	}

	if request.Status == domain.ActionExecuted {
		return nil, domain.ErrAlreadyExecuted
	}
	if request.Status == domain.ActionRejected {
		return nil, domain.ErrRequestRejected
	}
	if !s.policy.Armed() {
		return nil, domain.ErrNotArmed
	}

	required := policy.RequiredApprovals(request.ActionType)
	approved := request.CountApproved()
	if approved < required {
		return nil, fmt.Errorf("%w (%d/%d)", domain.ErrInsufficientApprovals, approved, required)
	}

	now := s.now().UTC()
	if err := s.store.UpdateActionRequestStatus(ctx, requestID, domain.ActionExecuted, &actor, now); err != nil {
		return nil, err
	}

	if _, err := s.store.AddActionAuditLog(ctx, domain.ActionAuditEntry{
		RequestID: requestID,
		EventType: domain.AuditExecuted,
		Actor:     actor,
		Details: map[string]any{
			"dispatch": "framework",
			"note":     "execution hook dispatched to response framework",
		},
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}

	telemetry.ActionsExecuted.WithLabelValues(request.ActionType).Inc()

	request, err = s.store.GetActionRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	decorate(request)

	s.bus.Emit(domain.EventActionExecuted, toMap(request))
	return request, nil
}

// GetActionRequest fetches a single request with computed quorum fields.
func (s *Service) GetActionRequest(ctx context.Context, id int64) (*domain.ActionRequest, error) {
	request, err := s.store.GetActionRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	return decorate(request), nil
}

// ListActionRequests returns requests with computed quorum fields.
func (s *Service) ListActionRequests(ctx context.Context, f ports.ActionRequestFilter) ([]domain.ActionRequest, error) {
	requests, err := s.store.ListActionRequests(ctx, f)
	if err != nil {
		return nil, err
	}
	for i := range requests {
		decorate(&requests[i])
	}
	return requests, nil
}

// ListActionAudit returns the workflow audit trail.
func (s *Service) ListActionAudit(ctx context.Context, requestID *int64, limit int) ([]domain.ActionAuditEntry, error) {
	return s.store.ListActionAuditLogs(ctx, requestID, limit)
}
