package storage

import (
	"context"
	"errors"
	"time"

	"github.com/skyward-ops/droneops/internal/core/domain"
	"github.com/skyward-ops/droneops/internal/core/ports"
	"gorm.io/gorm"
)

// CreateIncident opens a new incident.
func (a *SQLiteAdapter) CreateIncident(ctx context.Context, title string, severity domain.Severity, openedBy string, summary *string, metadata map[string]any, openedAt time.Time) (int64, error) {
	model := IncidentModel{
		Title:    title,
		Severity: string(severity),
		Status:   string(domain.IncidentOpen),
		OpenedBy: openedBy,
		OpenedAt: openedAt,
		Summary:  summary,
		Metadata: encodeMap(metadata),
	}
	if err := a.db.WithContext(ctx).Create(&model).Error; err != nil {
		return 0, err
	}
	return model.ID, nil
}

// GetIncident fetches an incident with its artifacts.
func (a *SQLiteAdapter) GetIncident(ctx context.Context, id int64) (*domain.Incident, error) {
	var model IncidentModel
	err := a.db.WithContext(ctx).
		Preload("Artifacts", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return incidentToDomain(&model), nil
}

// ListIncidents returns incidents newest first, optionally filtered by status.
func (a *SQLiteAdapter) ListIncidents(ctx context.Context, status domain.IncidentStatus, limit int) ([]domain.Incident, error) {
	if limit <= 0 {
		limit = 50
	}

	q := a.db.WithContext(ctx).
		Preload("Artifacts", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Order("id DESC").Limit(limit)
	if status != "" {
		q = q.Where("status = ?", string(status))
	}

	var models []IncidentModel
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}

	incidents := make([]domain.Incident, 0, len(models))
	for i := range models {
		incidents = append(incidents, *incidentToDomain(&models[i]))
	}
	return incidents, nil
}

// UpdateIncident applies a partial mutation. Closed incidents accept only
// metadata changes; transitioning to closed stamps the close time.
func (a *SQLiteAdapter) UpdateIncident(ctx context.Context, id int64, update ports.IncidentUpdate, now time.Time) error {
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model IncidentModel
		if err := tx.First(&model, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrIncidentNotFound
			}
			return err
		}

		closed := model.Status == string(domain.IncidentClosed)
		if closed && (update.Status != nil || update.Severity != nil || update.Summary != nil) {
			return domain.ErrIncidentClosed
		}

		changes := map[string]any{}
		if update.Status != nil {
			changes["status"] = string(*update.Status)
			if *update.Status == domain.IncidentClosed && model.ClosedAt == nil {
				changes["closed_at"] = now
			}
		}
		if update.Severity != nil {
			changes["severity"] = string(*update.Severity)
		}
		if update.Summary != nil {
			changes["summary"] = *update.Summary
		}
		if update.Metadata != nil {
			merged := decodeMap(model.Metadata)
			for k, v := range update.Metadata {
				merged[k] = v
			}
			changes["metadata"] = encodeMap(merged)
		}
		if len(changes) == 0 {
			return nil
		}
		return tx.Model(&model).Updates(changes).Error
	})
}

// AddIncidentArtifact appends an evidence reference to an incident.
func (a *SQLiteAdapter) AddIncidentArtifact(ctx context.Context, art domain.IncidentArtifact) (int64, error) {
	addedAt := art.AddedAt
	if addedAt.IsZero() {
		addedAt = time.Now().UTC()
	}
	model := IncidentArtifactModel{
		IncidentID:   art.IncidentID,
		ArtifactType: art.ArtifactType,
		ArtifactRef:  art.ArtifactRef,
		AddedBy:      art.AddedBy,
		AddedAt:      addedAt,
		Metadata:     encodeMap(art.Metadata),
	}
	if err := a.db.WithContext(ctx).Create(&model).Error; err != nil {
		return 0, err
	}
	return model.ID, nil
}
