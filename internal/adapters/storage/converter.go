package storage

import (
	"encoding/json"
	"log"

	"github.com/skyward-ops/droneops/internal/core/domain"
)

// encodeMap serializes a free-form map for a TEXT column. Nil maps are stored
// as empty objects so reads never produce nil.
func encodeMap(m map[string]any) string {
	if m == nil {
		m = map[string]any{}
	}
	data, err := json.Marshal(m)
	if err != nil {
		log.Printf("storage: failed to encode map column: %v", err)
		return "{}"
	}
	return string(data)
}

// decodeMap deserializes a TEXT column back to a map. Corrupt or empty
// columns decode to an empty map rather than failing the read.
func decodeMap(s string) map[string]any {
	if s == "" {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		log.Printf("storage: failed to decode map column: %v", err)
		return map[string]any{}
	}
	if m == nil {
		m = map[string]any{}
	}
	return m
}

// encodeRemoteID serializes an optional Remote-ID record; absent records
// store as the empty string.
func encodeRemoteID(rid *domain.RemoteID) string {
	if rid == nil {
		return ""
	}
	data, err := json.Marshal(rid)
	if err != nil {
		log.Printf("storage: failed to encode remote id column: %v", err)
		return ""
	}
	return string(data)
}

func decodeRemoteID(s string) *domain.RemoteID {
	if s == "" {
		return nil
	}
	var rid domain.RemoteID
	if err := json.Unmarshal([]byte(s), &rid); err != nil {
		log.Printf("storage: failed to decode remote id column: %v", err)
		return nil
	}
	return &rid
}

func sessionToDomain(m *SessionModel) *domain.Session {
	return &domain.Session{
		ID:        m.ID,
		Mode:      domain.SessionMode(m.Mode),
		Label:     m.Label,
		Operator:  m.Operator,
		Metadata:  decodeMap(m.Metadata),
		StartedAt: m.StartedAt,
		StoppedAt: m.StoppedAt,
		Summary:   decodeMap(m.Summary),
	}
}

func detectionToDomain(m *DetectionModel) *domain.Detection {
	return &domain.Detection{
		ID:             m.ID,
		SessionID:      m.SessionID,
		Source:         m.Source,
		Identifier:     m.Identifier,
		Classification: m.Classification,
		Confidence:     m.Confidence,
		Payload:        decodeMap(m.Payload),
		RemoteID:       decodeRemoteID(m.RemoteID),
		FirstSeen:      m.FirstSeen,
		LastSeen:       m.LastSeen,
	}
}

func trackToDomain(m *TrackModel) domain.Track {
	return domain.Track{
		ID:          m.ID,
		DetectionID: m.DetectionID,
		Lat:         m.Lat,
		Lon:         m.Lon,
		AltitudeM:   m.AltitudeM,
		SpeedMPS:    m.SpeedMPS,
		HeadingDeg:  m.HeadingDeg,
		Quality:     m.Quality,
		Source:      m.Source,
		Timestamp:   m.Timestamp,
	}
}

func correlationToDomain(m *CorrelationModel) domain.Correlation {
	return domain.Correlation{
		ID:                 m.ID,
		DroneIdentifier:    m.DroneIdentifier,
		OperatorIdentifier: m.OperatorIdentifier,
		Method:             m.Method,
		Confidence:         m.Confidence,
		Evidence:           decodeMap(m.Evidence),
		CreatedAt:          m.CreatedAt,
	}
}

func incidentToDomain(m *IncidentModel) *domain.Incident {
	artifacts := make([]domain.IncidentArtifact, 0, len(m.Artifacts))
	for i := range m.Artifacts {
		artifacts = append(artifacts, artifactToDomain(&m.Artifacts[i]))
	}
	return &domain.Incident{
		ID:        m.ID,
		Title:     m.Title,
		Severity:  domain.Severity(m.Severity),
		Status:    domain.IncidentStatus(m.Status),
		OpenedBy:  m.OpenedBy,
		OpenedAt:  m.OpenedAt,
		ClosedAt:  m.ClosedAt,
		Summary:   m.Summary,
		Metadata:  decodeMap(m.Metadata),
		Artifacts: artifacts,
	}
}

func artifactToDomain(m *IncidentArtifactModel) domain.IncidentArtifact {
	return domain.IncidentArtifact{
		ID:           m.ID,
		IncidentID:   m.IncidentID,
		ArtifactType: m.ArtifactType,
		ArtifactRef:  m.ArtifactRef,
		AddedBy:      m.AddedBy,
		AddedAt:      m.AddedAt,
		Metadata:     decodeMap(m.Metadata),
	}
}

func actionRequestToDomain(m *ActionRequestModel) *domain.ActionRequest {
	approvals := make([]domain.ActionApproval, 0, len(m.Approvals))
	for i := range m.Approvals {
		a := &m.Approvals[i]
		approvals = append(approvals, domain.ActionApproval{
			ApprovedBy: a.ApprovedBy,
			Decision:   domain.ApprovalDecision(a.Decision),
			Notes:      a.Notes,
			DecidedAt:  a.DecidedAt,
		})
	}
	return &domain.ActionRequest{
		ID:          m.ID,
		IncidentID:  m.IncidentID,
		ActionType:  m.ActionType,
		RequestedBy: m.RequestedBy,
		Payload:     decodeMap(m.Payload),
		Status:      domain.ActionStatus(m.Status),
		Approvals:   approvals,
		ExecutedBy:  m.ExecutedBy,
		RequestedAt: m.RequestedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func auditToDomain(m *ActionAuditModel) domain.ActionAuditEntry {
	return domain.ActionAuditEntry{
		ID:        m.ID,
		RequestID: m.RequestID,
		EventType: m.EventType,
		Actor:     m.Actor,
		Details:   decodeMap(m.Details),
		CreatedAt: m.CreatedAt,
	}
}

func manifestToDomain(m *ManifestModel) *domain.EvidenceManifest {
	return &domain.EvidenceManifest{
		ID:         m.ID,
		IncidentID: m.IncidentID,
		Manifest:   decodeMap(m.Manifest),
		HashAlgo:   m.HashAlgo,
		Digest:     m.Digest,
		Signature:  m.Signature,
		CreatedBy:  m.CreatedBy,
		CreatedAt:  m.CreatedAt,
	}
}

func userToDomain(m *UserModel) *domain.User {
	return &domain.User{
		ID:           m.ID,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		Role:         domain.Role(m.Role),
		CreatedAt:    m.CreatedAt,
		LastLogin:    m.LastLogin,
	}
}
