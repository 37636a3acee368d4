package domain

import (
	"errors"
	"time"
)

// Severity grades an incident.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// IsValid checks if the severity is a recognized grade.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// IncidentStatus tracks the lifecycle of an incident.
type IncidentStatus string

const (
	IncidentOpen       IncidentStatus = "open"
	IncidentMonitoring IncidentStatus = "monitoring"
	IncidentContained  IncidentStatus = "contained"
	IncidentClosed     IncidentStatus = "closed"
)

// IsValid checks if the status is a recognized lifecycle state.
func (s IncidentStatus) IsValid() bool {
	switch s {
	case IncidentOpen, IncidentMonitoring, IncidentContained, IncidentClosed:
		return true
	}
	return false
}

var (
	ErrEmptyTitle       = errors.New("incident title cannot be empty")
	ErrInvalidSeverity  = errors.New("invalid incident severity")
	ErrInvalidStatus    = errors.New("invalid incident status")
	ErrEmptyArtifact    = errors.New("artifact_type and artifact_ref are required")
	ErrIncidentClosed   = errors.New("closed incidents only accept metadata updates")
	ErrIncidentNotFound = errors.New("incident not found")
)

// Incident is the anchor entity for the response workflow. Setting status to
// closed stamps ClosedAt; afterwards only metadata may change.
type Incident struct {
	ID        int64              `json:"id"`
	Title     string             `json:"title"`
	Severity  Severity           `json:"severity"`
	Status    IncidentStatus     `json:"status"`
	OpenedBy  string             `json:"opened_by"`
	OpenedAt  time.Time          `json:"opened_at"`
	ClosedAt  *time.Time         `json:"closed_at"`
	Summary   *string            `json:"summary"`
	Metadata  map[string]any     `json:"metadata"`
	Artifacts []IncidentArtifact `json:"artifacts"`
}

// IncidentArtifact is an append-only evidence reference attached to an
// incident. Both type and ref are mandatory.
type IncidentArtifact struct {
	ID           int64          `json:"id"`
	IncidentID   int64          `json:"incident_id"`
	ArtifactType string         `json:"artifact_type"`
	ArtifactRef  string         `json:"artifact_ref"`
	AddedBy      string         `json:"added_by"`
	AddedAt      time.Time      `json:"added_at"`
	Metadata     map[string]any `json:"metadata"`
}
