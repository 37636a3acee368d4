package ops

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/skyward-ops/droneops/internal/core/domain"
	"github.com/skyward-ops/droneops/internal/core/ports"
)

// auditEntriesPerRequest bounds the audit slice folded into a manifest.
const auditEntriesPerRequest = 500

// BuildManifest assembles, seals and persists an evidence manifest for an
// incident. The digest is the SHA-256 of the canonical JSON serialization
// of the body: keys sorted at every level, no whitespace between tokens.
// Identical incident state always yields an identical digest.
func (s *Service) BuildManifest(ctx context.Context, incidentID int64, createdBy string, signature *string) (*domain.EvidenceManifest, error) {
	incident, err := s.store.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	if incident == nil {
		return nil, domain.ErrIncidentNotFound
	}

	requests, err := s.store.ListActionRequests(ctx, ports.ActionRequestFilter{IncidentID: &incidentID, Limit: 1000})
	if err != nil {
		return nil, err
	}

	audit := make([]map[string]any, 0)
	for i := range requests {
		decorate(&requests[i])
		entries, err := s.store.ListActionAuditLogs(ctx, &requests[i].ID, auditEntriesPerRequest)
		if err != nil {
			return nil, err
		}
		for j := range entries {
			audit = append(audit, toMap(entries[j]))
		}
	}

	artifacts := make([]map[string]any, 0, len(incident.Artifacts))
	for i := range incident.Artifacts {
		artifacts = append(artifacts, toMap(incident.Artifacts[i]))
	}
	requestMaps := make([]map[string]any, 0, len(requests))
	for i := range requests {
		requestMaps = append(requestMaps, toMap(requests[i]))
	}

	now := s.now().UTC()
	body := map[string]any{
		"generated_at": now.Format(time.RFC3339),
		"incident": map[string]any{
			"id":        incident.ID,
			"title":     incident.Title,
			"status":    string(incident.Status),
			"severity":  string(incident.Severity),
			"opened_at": incident.OpenedAt.UTC().Format(time.RFC3339),
			"closed_at": rfc3339OrNil(incident.ClosedAt),
		},
		"artifact_count":       len(incident.Artifacts),
		"action_request_count": len(requests),
		"audit_event_count":    len(audit),
		"artifacts":            artifacts,
		"action_requests":      requestMaps,
		"action_audit":         audit,
	}

	canonical, err := canonicalJSON(body)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize manifest: %w", err)
	}
	sum := sha256.Sum256(canonical)
	digest := hex.EncodeToString(sum[:])

	manifest := map[string]any{}
	for k, v := range body {
		manifest[k] = v
	}
	manifest["integrity"] = map[string]any{
		"algorithm": domain.HashAlgoSHA256,
		"digest":    digest,
	}

	record := domain.EvidenceManifest{
		IncidentID: incidentID,
		Manifest:   manifest,
		HashAlgo:   domain.HashAlgoSHA256,
		Digest:     digest,
		Signature:  signature,
		CreatedBy:  createdBy,
		CreatedAt:  now,
	}
	id, err := s.store.CreateManifest(ctx, record)
	if err != nil {
		return nil, err
	}
	record.ID = id

	s.bus.Emit(domain.EventManifestCreated, map[string]any{
		"id":          id,
		"incident_id": incidentID,
		"digest":      digest,
		"created_by":  createdBy,
	})
	return &record, nil
}

// GetManifest fetches a manifest by ID.
func (s *Service) GetManifest(ctx context.Context, id int64) (*domain.EvidenceManifest, error) {
	return s.store.GetManifest(ctx, id)
}

// ListManifests returns an incident's manifests.
func (s *Service) ListManifests(ctx context.Context, incidentID int64, limit int) ([]domain.EvidenceManifest, error) {
	return s.store.ListManifests(ctx, incidentID, limit)
}

// canonicalJSON serializes a generic value deterministically: map keys are
// emitted in sorted order with no whitespace between tokens. The input must
// already be a JSON-generic tree (maps, slices, scalars), which Marshal
// guarantees when the tree was produced by toMap.
func canonicalJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}

func rfc3339OrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
