package storage

import (
	"context"
	"errors"
	"time"

	"github.com/skyward-ops/droneops/internal/core/domain"
	"gorm.io/gorm"
)

// CreateSession starts a collection session. If a session is already active
// its ID is returned unchanged; the single-active invariant is serialized by
// the adapter mutex.
func (a *SQLiteAdapter) CreateSession(ctx context.Context, mode domain.SessionMode, label *string, operator string, metadata map[string]any) (int64, error) {
	a.sessionMu.Lock()
	defer a.sessionMu.Unlock()

	var active SessionModel
	err := a.db.WithContext(ctx).Where("stopped_at IS NULL").Order("id DESC").First(&active).Error
	if err == nil {
		return active.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	model := SessionModel{
		Mode:      string(mode),
		Label:     label,
		Operator:  operator,
		Metadata:  encodeMap(metadata),
		StartedAt: time.Now().UTC(),
		Summary:   "{}",
	}
	if err := a.db.WithContext(ctx).Create(&model).Error; err != nil {
		return 0, err
	}
	return model.ID, nil
}

// GetSession fetches a session by ID.
func (a *SQLiteAdapter) GetSession(ctx context.Context, id int64) (*domain.Session, error) {
	var model SessionModel
	if err := a.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return sessionToDomain(&model), nil
}

// GetActiveSession returns the current active session, or nil when none.
func (a *SQLiteAdapter) GetActiveSession(ctx context.Context) (*domain.Session, error) {
	var model SessionModel
	err := a.db.WithContext(ctx).Where("stopped_at IS NULL").Order("id DESC").First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return sessionToDomain(&model), nil
}

// ListSessions returns sessions newest first.
func (a *SQLiteAdapter) ListSessions(ctx context.Context, limit int, activeOnly bool) ([]domain.Session, error) {
	if limit <= 0 {
		limit = 50
	}

	q := a.db.WithContext(ctx).Order("id DESC").Limit(limit)
	if activeOnly {
		q = q.Where("stopped_at IS NULL")
	}

	var models []SessionModel
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}

	sessions := make([]domain.Session, 0, len(models))
	for i := range models {
		sessions = append(sessions, *sessionToDomain(&models[i]))
	}
	return sessions, nil
}

// StopSession stamps the stop time and stores the synthesized summary.
// Stopping an already-stopped session leaves its original stop time intact.
func (a *SQLiteAdapter) StopSession(ctx context.Context, id int64, stoppedAt time.Time, summary map[string]any) error {
	a.sessionMu.Lock()
	defer a.sessionMu.Unlock()

	res := a.db.WithContext(ctx).Model(&SessionModel{}).
		Where("id = ? AND stopped_at IS NULL", id).
		Updates(map[string]any{
			"stopped_at": stoppedAt,
			"summary":    encodeMap(summary),
		})
	return res.Error
}
