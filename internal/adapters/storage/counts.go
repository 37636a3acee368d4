package storage

import (
	"context"

	"github.com/skyward-ops/droneops/internal/core/ports"
)

// CountDetections counts detections, optionally scoped to one session.
func (a *SQLiteAdapter) CountDetections(ctx context.Context, sessionID *int64) (int64, error) {
	q := a.db.WithContext(ctx).Model(&DetectionModel{})
	if sessionID != nil {
		q = q.Where("session_id = ?", *sessionID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// Counts returns row counts across the control plane tables.
func (a *SQLiteAdapter) Counts(ctx context.Context) (ports.StoreCounts, error) {
	var counts ports.StoreCounts
	db := a.db.WithContext(ctx)

	for _, c := range []struct {
		model any
		dst   *int64
	}{
		{&SessionModel{}, &counts.Sessions},
		{&DetectionModel{}, &counts.Detections},
		{&TrackModel{}, &counts.Tracks},
		{&CorrelationModel{}, &counts.Correlations},
		{&IncidentModel{}, &counts.Incidents},
		{&ActionRequestModel{}, &counts.ActionRequests},
		{&ManifestModel{}, &counts.Manifests},
	} {
		if err := db.Model(c.model).Count(c.dst).Error; err != nil {
			return ports.StoreCounts{}, err
		}
	}
	return counts, nil
}
