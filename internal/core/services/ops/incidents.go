package ops

import (
	"context"
	"strings"

	"github.com/skyward-ops/droneops/internal/core/domain"
	"github.com/skyward-ops/droneops/internal/core/ports"
)

// CreateIncident opens a new incident. Severity defaults to medium and the
// status always starts open.
func (s *Service) CreateIncident(ctx context.Context, title string, severity domain.Severity, openedBy string, summary *string, metadata map[string]any) (*domain.Incident, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, domain.ErrEmptyTitle
	}
	if severity == "" {
		severity = domain.SeverityMedium
	}
	if !severity.IsValid() {
		return nil, domain.ErrInvalidSeverity
	}

	id, err := s.store.CreateIncident(ctx, title, severity, openedBy, summary, metadata, s.now().UTC())
	if err != nil {
		return nil, err
	}
	incident, err := s.store.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}

	s.bus.Emit(domain.EventIncidentCreated, toMap(incident))
	return incident, nil
}

// GetIncident fetches an incident with its artifacts.
func (s *Service) GetIncident(ctx context.Context, id int64) (*domain.Incident, error) {
	return s.store.GetIncident(ctx, id)
}

// ListIncidents returns incidents, optionally filtered by status.
func (s *Service) ListIncidents(ctx context.Context, status domain.IncidentStatus, limit int) ([]domain.Incident, error) {
	if status != "" && !status.IsValid() {
		return nil, domain.ErrInvalidStatus
	}
	return s.store.ListIncidents(ctx, status, limit)
}

// UpdateIncident applies a partial mutation and announces the updated
// incident. Closing stamps closed_at; closed incidents accept only metadata.
func (s *Service) UpdateIncident(ctx context.Context, id int64, update ports.IncidentUpdate) (*domain.Incident, error) {
	if update.Status != nil && !update.Status.IsValid() {
		return nil, domain.ErrInvalidStatus
	}
	if update.Severity != nil && !update.Severity.IsValid() {
		return nil, domain.ErrInvalidSeverity
	}

	if err := s.store.UpdateIncident(ctx, id, update, s.now().UTC()); err != nil {
		return nil, err
	}
	incident, err := s.store.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}

	s.bus.Emit(domain.EventIncidentUpdated, toMap(incident))
	return incident, nil
}

// AddIncidentArtifact appends an evidence reference to an incident. Both
// artifact type and ref are mandatory.
func (s *Service) AddIncidentArtifact(ctx context.Context, incidentID int64, artifactType, artifactRef, addedBy string, metadata map[string]any) (*domain.IncidentArtifact, error) {
	if strings.TrimSpace(artifactType) == "" || strings.TrimSpace(artifactRef) == "" {
		return nil, domain.ErrEmptyArtifact
	}

	incident, err := s.store.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	if incident == nil {
		return nil, domain.ErrIncidentNotFound
	}

	artifact := domain.IncidentArtifact{
		IncidentID:   incidentID,
		ArtifactType: strings.TrimSpace(artifactType),
		ArtifactRef:  strings.TrimSpace(artifactRef),
		AddedBy:      addedBy,
		AddedAt:      s.now().UTC(),
		Metadata:     metadata,
	}
	id, err := s.store.AddIncidentArtifact(ctx, artifact)
	if err != nil {
		return nil, err
	}
	artifact.ID = id
	if artifact.Metadata == nil {
		artifact.Metadata = map[string]any{}
	}

	s.bus.Emit(domain.EventIncidentArtifactAdded, toMap(artifact))
	return &artifact, nil
}
