package ports

import (
	"context"
	"time"

	"github.com/skyward-ops/droneops/internal/core/domain"
)

// DetectionUpsert carries the fields of a detection upsert. The store keys on
// (SessionID, Source, Identifier), refreshes last_seen and keeps the widest
// confidence observed.
type DetectionUpsert struct {
	SessionID      *int64
	Source         string
	Identifier     string
	Classification string
	Confidence     float64
	Payload        map[string]any
	RemoteID       *domain.RemoteID
}

// DetectionFilter narrows detection listings.
type DetectionFilter struct {
	SessionID     *int64
	Source        string
	MinConfidence float64
	Limit         int
}

// TrackFilter narrows track listings.
type TrackFilter struct {
	DetectionID *int64
	Identifier  string
	Limit       int
}

// ActionRequestFilter narrows action request listings.
type ActionRequestFilter struct {
	IncidentID *int64
	Status     domain.ActionStatus
	Limit      int
}

// IncidentUpdate carries a partial incident mutation; nil fields are left
// unchanged.
type IncidentUpdate struct {
	Status   *domain.IncidentStatus
	Severity *domain.Severity
	Summary  *string
	Metadata map[string]any
}

// StoreCounts summarizes row counts for the status surface.
type StoreCounts struct {
	Sessions       int64 `json:"sessions"`
	Detections     int64 `json:"detections"`
	Tracks         int64 `json:"tracks"`
	Correlations   int64 `json:"correlations"`
	Incidents      int64 `json:"incidents"`
	ActionRequests int64 `json:"action_requests"`
	Manifests      int64 `json:"evidence_manifests"`
}

// OpsStore is the persistence contract for the drone ops control plane.
// Implementations provide their own transactional semantics; the service
// never holds its locks across a store call.
type OpsStore interface {
	// Sessions. CreateSession and GetActiveSession are serialized by the
	// store so that at most one session is active at any time.
	CreateSession(ctx context.Context, mode domain.SessionMode, label *string, operator string, metadata map[string]any) (int64, error)
	GetSession(ctx context.Context, id int64) (*domain.Session, error)
	GetActiveSession(ctx context.Context) (*domain.Session, error)
	ListSessions(ctx context.Context, limit int, activeOnly bool) ([]domain.Session, error)
	StopSession(ctx context.Context, id int64, stoppedAt time.Time, summary map[string]any) error

	// Detections and tracks.
	UpsertDetection(ctx context.Context, up DetectionUpsert, seenAt time.Time) (int64, error)
	GetDetection(ctx context.Context, id int64) (*domain.Detection, error)
	ListDetections(ctx context.Context, f DetectionFilter) ([]domain.Detection, error)
	CountDetections(ctx context.Context, sessionID *int64) (int64, error)
	AddTrack(ctx context.Context, detectionID int64, point domain.TrackPoint, at time.Time) (int64, error)
	ListTracks(ctx context.Context, f TrackFilter) ([]domain.Track, error)

	// Correlations. Append-only; listings deduplicate by
	// (drone, operator, method) keeping the max confidence.
	AddCorrelation(ctx context.Context, c domain.Correlation) (int64, error)
	ListCorrelations(ctx context.Context, minConfidence float64, limit int) ([]domain.Correlation, error)

	// Incidents and artifacts.
	CreateIncident(ctx context.Context, title string, severity domain.Severity, openedBy string, summary *string, metadata map[string]any, openedAt time.Time) (int64, error)
	GetIncident(ctx context.Context, id int64) (*domain.Incident, error)
	ListIncidents(ctx context.Context, status domain.IncidentStatus, limit int) ([]domain.Incident, error)
	UpdateIncident(ctx context.Context, id int64, update IncidentUpdate, now time.Time) error
	AddIncidentArtifact(ctx context.Context, a domain.IncidentArtifact) (int64, error)

	// Action workflow.
	CreateActionRequest(ctx context.Context, incidentID int64, actionType, requestedBy string, payload map[string]any, at time.Time) (int64, error)
	GetActionRequest(ctx context.Context, id int64) (*domain.ActionRequest, error)
	ListActionRequests(ctx context.Context, f ActionRequestFilter) ([]domain.ActionRequest, error)
	UpdateActionRequestStatus(ctx context.Context, id int64, status domain.ActionStatus, executedBy *string, at time.Time) error
	AddActionApproval(ctx context.Context, requestID int64, approval domain.ActionApproval) error
	AddActionAuditLog(ctx context.Context, entry domain.ActionAuditEntry) (int64, error)
	ListActionAuditLogs(ctx context.Context, requestID *int64, limit int) ([]domain.ActionAuditEntry, error)

	// Evidence manifests.
	CreateManifest(ctx context.Context, m domain.EvidenceManifest) (int64, error)
	GetManifest(ctx context.Context, id int64) (*domain.EvidenceManifest, error)
	ListManifests(ctx context.Context, incidentID int64, limit int) ([]domain.EvidenceManifest, error)

	// Counts feeds the status surface.
	Counts(ctx context.Context) (StoreCounts, error)
}
