package storage

import (
	"context"
	"errors"
	"time"

	"github.com/skyward-ops/droneops/internal/core/domain"
	"github.com/skyward-ops/droneops/internal/core/ports"
	"gorm.io/gorm"
)

// CreateActionRequest opens a new pending action request.
func (a *SQLiteAdapter) CreateActionRequest(ctx context.Context, incidentID int64, actionType, requestedBy string, payload map[string]any, at time.Time) (int64, error) {
	model := ActionRequestModel{
		IncidentID:  incidentID,
		ActionType:  actionType,
		RequestedBy: requestedBy,
		Payload:     encodeMap(payload),
		Status:      string(domain.ActionPending),
		RequestedAt: at,
		UpdatedAt:   at,
	}
	if err := a.db.WithContext(ctx).Create(&model).Error; err != nil {
		return 0, err
	}
	return model.ID, nil
}

// GetActionRequest fetches a request with its approvals.
func (a *SQLiteAdapter) GetActionRequest(ctx context.Context, id int64) (*domain.ActionRequest, error) {
	var model ActionRequestModel
	err := a.db.WithContext(ctx).
		Preload("Approvals", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return actionRequestToDomain(&model), nil
}

// ListActionRequests returns requests newest first.
func (a *SQLiteAdapter) ListActionRequests(ctx context.Context, f ports.ActionRequestFilter) ([]domain.ActionRequest, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}

	q := a.db.WithContext(ctx).
		Preload("Approvals", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Order("id DESC").Limit(limit)
	if f.IncidentID != nil {
		q = q.Where("incident_id = ?", *f.IncidentID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}

	var models []ActionRequestModel
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}

	requests := make([]domain.ActionRequest, 0, len(models))
	for i := range models {
		requests = append(requests, *actionRequestToDomain(&models[i]))
	}
	return requests, nil
}

// UpdateActionRequestStatus moves a request through the workflow state
// machine. ExecutedBy is stamped only when provided.
func (a *SQLiteAdapter) UpdateActionRequestStatus(ctx context.Context, id int64, status domain.ActionStatus, executedBy *string, at time.Time) error {
	changes := map[string]any{
		"status":     string(status),
		"updated_at": at,
	}
	if executedBy != nil {
		changes["executed_by"] = *executedBy
	}

	res := a.db.WithContext(ctx).Model(&ActionRequestModel{}).Where("id = ?", id).Updates(changes)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrRequestNotFound
	}
	return nil
}

// AddActionApproval records one reviewer verdict for a request.
func (a *SQLiteAdapter) AddActionApproval(ctx context.Context, requestID int64, approval domain.ActionApproval) error {
	model := ActionApprovalModel{
		RequestID:  requestID,
		ApprovedBy: approval.ApprovedBy,
		Decision:   string(approval.Decision),
		Notes:      approval.Notes,
		DecidedAt:  approval.DecidedAt,
	}
	return a.db.WithContext(ctx).Create(&model).Error
}

// AddActionAuditLog appends a workflow transition record.
func (a *SQLiteAdapter) AddActionAuditLog(ctx context.Context, entry domain.ActionAuditEntry) (int64, error) {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	model := ActionAuditModel{
		RequestID: entry.RequestID,
		EventType: entry.EventType,
		Actor:     entry.Actor,
		Details:   encodeMap(entry.Details),
		CreatedAt: createdAt,
	}
	if err := a.db.WithContext(ctx).Create(&model).Error; err != nil {
		return 0, err
	}
	return model.ID, nil
}

// ListActionAuditLogs returns audit entries in insertion order, optionally
// scoped to one request.
func (a *SQLiteAdapter) ListActionAuditLogs(ctx context.Context, requestID *int64, limit int) ([]domain.ActionAuditEntry, error) {
	if limit <= 0 {
		limit = 500
	}

	q := a.db.WithContext(ctx).Order("id ASC").Limit(limit)
	if requestID != nil {
		q = q.Where("request_id = ?", *requestID)
	}

	var models []ActionAuditModel
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}

	entries := make([]domain.ActionAuditEntry, 0, len(models))
	for i := range models {
		entries = append(entries, auditToDomain(&models[i]))
	}
	return entries, nil
}
