package storage

import (
	"context"
	"errors"
	"time"

	"github.com/skyward-ops/droneops/internal/core/domain"
	"github.com/skyward-ops/droneops/internal/core/ports"
	"gorm.io/gorm"
)

// UpsertDetection creates or refreshes a detection keyed by
// (session_id, source, identifier). Every hit refreshes last_seen and the
// payload; confidence only ever widens, never shrinks. A Remote-ID record on
// the upsert replaces the stored one.
func (a *SQLiteAdapter) UpsertDetection(ctx context.Context, up ports.DetectionUpsert, seenAt time.Time) (int64, error) {
	var id int64
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("source = ? AND identifier = ?", up.Source, up.Identifier)
		if up.SessionID != nil {
			q = q.Where("session_id = ?", *up.SessionID)
		} else {
			q = q.Where("session_id IS NULL")
		}

		var existing DetectionModel
		err := q.First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			model := DetectionModel{
				SessionID:      up.SessionID,
				Source:         up.Source,
				Identifier:     up.Identifier,
				Classification: up.Classification,
				Confidence:     up.Confidence,
				Payload:        encodeMap(up.Payload),
				RemoteID:       encodeRemoteID(up.RemoteID),
				FirstSeen:      seenAt,
				LastSeen:       seenAt,
			}
			if err := tx.Create(&model).Error; err != nil {
				return err
			}
			id = model.ID
			return nil
		}
		if err != nil {
			return err
		}

		updates := map[string]any{
			"classification": up.Classification,
			"payload":        encodeMap(up.Payload),
			"last_seen":      seenAt,
		}
		if up.Confidence > existing.Confidence {
			updates["confidence"] = up.Confidence
		}
		if up.RemoteID != nil {
			updates["remote_id"] = encodeRemoteID(up.RemoteID)
		}
		if err := tx.Model(&existing).Updates(updates).Error; err != nil {
			return err
		}
		id = existing.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetDetection fetches a detection by ID.
func (a *SQLiteAdapter) GetDetection(ctx context.Context, id int64) (*domain.Detection, error) {
	var model DetectionModel
	if err := a.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return detectionToDomain(&model), nil
}

// ListDetections returns detections most recently seen first.
func (a *SQLiteAdapter) ListDetections(ctx context.Context, f ports.DetectionFilter) ([]domain.Detection, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}

	q := a.db.WithContext(ctx).Order("last_seen DESC").Limit(limit)
	if f.SessionID != nil {
		q = q.Where("session_id = ?", *f.SessionID)
	}
	if f.Source != "" {
		q = q.Where("source = ?", f.Source)
	}
	if f.MinConfidence > 0 {
		q = q.Where("confidence >= ?", f.MinConfidence)
	}

	var models []DetectionModel
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}

	detections := make([]domain.Detection, 0, len(models))
	for i := range models {
		detections = append(detections, *detectionToDomain(&models[i]))
	}
	return detections, nil
}

// AddTrack appends a geospatial fix for a detection.
func (a *SQLiteAdapter) AddTrack(ctx context.Context, detectionID int64, point domain.TrackPoint, at time.Time) (int64, error) {
	quality := point.Quality
	model := TrackModel{
		DetectionID: detectionID,
		Lat:         point.Lat,
		Lon:         point.Lon,
		AltitudeM:   point.AltitudeM,
		SpeedMPS:    point.SpeedMPS,
		HeadingDeg:  point.HeadingDeg,
		Quality:     &quality,
		Source:      point.Source,
		Timestamp:   at,
	}
	if err := a.db.WithContext(ctx).Create(&model).Error; err != nil {
		return 0, err
	}
	return model.ID, nil
}

// ListTracks returns track points newest first. Identifier filters resolve
// through the owning detection's identifier.
func (a *SQLiteAdapter) ListTracks(ctx context.Context, f ports.TrackFilter) ([]domain.Track, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 200
	}

	q := a.db.WithContext(ctx).Order("drone_tracks.id DESC").Limit(limit)
	if f.DetectionID != nil {
		q = q.Where("drone_tracks.detection_id = ?", *f.DetectionID)
	}
	if f.Identifier != "" {
		q = q.Joins("JOIN drone_detections ON drone_detections.id = drone_tracks.detection_id").
			Where("drone_detections.identifier = ?", f.Identifier)
	}

	var models []TrackModel
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}

	tracks := make([]domain.Track, 0, len(models))
	for i := range models {
		tracks = append(tracks, trackToDomain(&models[i]))
	}
	return tracks, nil
}

// AddCorrelation appends a drone/operator link.
func (a *SQLiteAdapter) AddCorrelation(ctx context.Context, c domain.Correlation) (int64, error) {
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	model := CorrelationModel{
		DroneIdentifier:    c.DroneIdentifier,
		OperatorIdentifier: c.OperatorIdentifier,
		Method:             c.Method,
		Confidence:         c.Confidence,
		Evidence:           encodeMap(c.Evidence),
		CreatedAt:          createdAt,
	}
	if err := a.db.WithContext(ctx).Create(&model).Error; err != nil {
		return 0, err
	}
	return model.ID, nil
}

// ListCorrelations returns correlations deduplicated by
// (drone, operator, method), keeping the highest confidence per key, ordered
// by confidence descending.
func (a *SQLiteAdapter) ListCorrelations(ctx context.Context, minConfidence float64, limit int) ([]domain.Correlation, error) {
	if limit <= 0 {
		limit = 100
	}

	var models []CorrelationModel
	err := a.db.WithContext(ctx).
		Where("confidence >= ?", minConfidence).
		Order("confidence DESC, id DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	type key struct{ drone, operator, method string }
	seen := make(map[key]struct{}, len(models))
	correlations := make([]domain.Correlation, 0, limit)
	for i := range models {
		k := key{models[i].DroneIdentifier, models[i].OperatorIdentifier, models[i].Method}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		correlations = append(correlations, correlationToDomain(&models[i]))
		if len(correlations) >= limit {
			break
		}
	}
	return correlations, nil
}
