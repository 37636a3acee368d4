package domain

import (
	"errors"
	"strings"
	"time"
)

// ActionStatus tracks the workflow state machine:
// pending -> approved -> executed, with rejected terminal from pending.
type ActionStatus string

const (
	ActionPending  ActionStatus = "pending"
	ActionApproved ActionStatus = "approved"
	ActionRejected ActionStatus = "rejected"
	ActionExecuted ActionStatus = "executed"
)

// ApprovalDecision is a single reviewer verdict.
type ApprovalDecision string

const (
	DecisionApproved ApprovalDecision = "approved"
	DecisionRejected ApprovalDecision = "rejected"
)

// IsValid checks if the decision is a recognized verdict.
func (d ApprovalDecision) IsValid() bool {
	return d == DecisionApproved || d == DecisionRejected
}

// Audit event types recorded on every action workflow transition.
const (
	AuditRequested = "requested"
	AuditApproval  = "approval"
	AuditExecuted  = "executed"
)

var (
	ErrEmptyActionType       = errors.New("action_type is required")
	ErrRequestNotFound       = errors.New("Action request not found")
	ErrNotArmed              = errors.New("Action plane is not armed")
	ErrAlreadyExecuted       = errors.New("Action request already executed")
	ErrRequestRejected       = errors.New("Action request was rejected")
	ErrInsufficientApprovals = errors.New("insufficient approvals")
)

// ActionRequest is a proposed counter-drone action awaiting quorum.
// RequiredApprovals and ApprovedCount are computed fresh from the stored
// approvals on every read, never persisted.
type ActionRequest struct {
	ID                int64            `json:"id"`
	IncidentID        int64            `json:"incident_id"`
	ActionType        string           `json:"action_type"`
	RequestedBy       string           `json:"requested_by"`
	Payload           map[string]any   `json:"payload"`
	Status            ActionStatus     `json:"status"`
	Approvals         []ActionApproval `json:"approvals"`
	ExecutedBy        *string          `json:"executed_by"`
	RequestedAt       time.Time        `json:"requested_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
	RequiredApprovals int              `json:"required_approvals"`
	ApprovedCount     int              `json:"approved_count"`
}

// CountApproved tallies approvals with an approved decision.
func (r *ActionRequest) CountApproved() int {
	n := 0
	for _, a := range r.Approvals {
		if a.Decision == DecisionApproved {
			n++
		}
	}
	return n
}

// HasDecisionFrom reports whether the approver already decided on this
// request. Approver identity is case-insensitive.
func (r *ActionRequest) HasDecisionFrom(approver string) bool {
	for _, a := range r.Approvals {
		if strings.EqualFold(a.ApprovedBy, approver) {
			return true
		}
	}
	return false
}

// ActionApproval is one reviewer's verdict on a request. At most one per
// approver per request.
type ActionApproval struct {
	ApprovedBy string           `json:"approved_by"`
	Decision   ApprovalDecision `json:"decision"`
	Notes      *string          `json:"notes"`
	DecidedAt  time.Time        `json:"decided_at"`
}

// ActionAuditEntry is an append-only record of a workflow transition.
type ActionAuditEntry struct {
	ID        int64          `json:"id"`
	RequestID int64          `json:"request_id"`
	EventType string         `json:"event_type"`
	Actor     string         `json:"actor"`
	Details   map[string]any `json:"details"`
	CreatedAt time.Time      `json:"created_at"`
}
