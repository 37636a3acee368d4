package storage

import (
	"context"
	"errors"
	"time"

	"github.com/skyward-ops/droneops/internal/core/domain"
	"gorm.io/gorm"
)

// CreateManifest persists a sealed evidence manifest.
func (a *SQLiteAdapter) CreateManifest(ctx context.Context, m domain.EvidenceManifest) (int64, error) {
	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	model := ManifestModel{
		IncidentID: m.IncidentID,
		Manifest:   encodeMap(m.Manifest),
		HashAlgo:   m.HashAlgo,
		Digest:     m.Digest,
		Signature:  m.Signature,
		CreatedBy:  m.CreatedBy,
		CreatedAt:  createdAt,
	}
	if err := a.db.WithContext(ctx).Create(&model).Error; err != nil {
		return 0, err
	}
	return model.ID, nil
}

// GetManifest fetches a manifest by ID.
func (a *SQLiteAdapter) GetManifest(ctx context.Context, id int64) (*domain.EvidenceManifest, error) {
	var model ManifestModel
	if err := a.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return manifestToDomain(&model), nil
}

// ListManifests returns an incident's manifests newest first.
func (a *SQLiteAdapter) ListManifests(ctx context.Context, incidentID int64, limit int) ([]domain.EvidenceManifest, error) {
	if limit <= 0 {
		limit = 50
	}

	var models []ManifestModel
	err := a.db.WithContext(ctx).
		Where("incident_id = ?", incidentID).
		Order("id DESC").Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	manifests := make([]domain.EvidenceManifest, 0, len(models))
	for i := range models {
		manifests = append(manifests, *manifestToDomain(&models[i]))
	}
	return manifests, nil
}
