package storage

import (
	"context"
	"testing"
	"time"

	"github.com/skyward-ops/droneops/internal/core/domain"
	"github.com/skyward-ops/droneops/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionRequestWorkflowPersistence(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	incidentID, err := store.CreateIncident(ctx, "Intercept candidate", domain.SeverityHigh, "analyst", nil, nil, time.Now().UTC())
	require.NoError(t, err)

	at := time.Date(2026, 2, 11, 14, 0, 0, 0, time.UTC)
	requestID, err := store.CreateActionRequest(ctx, incidentID, "jam_uplink", "operator-1", map[string]any{"band_mhz": 2400}, at)
	require.NoError(t, err)

	request, err := store.GetActionRequest(ctx, requestID)
	require.NoError(t, err)
	require.NotNil(t, request)
	assert.Equal(t, domain.ActionPending, request.Status)
	assert.Empty(t, request.Approvals)

	err = store.AddActionApproval(ctx, requestID, domain.ActionApproval{
		ApprovedBy: "supervisor-1",
		Decision:   domain.DecisionApproved,
		DecidedAt:  at.Add(time.Minute),
	})
	require.NoError(t, err)

	request, err = store.GetActionRequest(ctx, requestID)
	require.NoError(t, err)
	require.Len(t, request.Approvals, 1)
	assert.Equal(t, "supervisor-1", request.Approvals[0].ApprovedBy)
	assert.Equal(t, 1, request.CountApproved())
	assert.True(t, request.HasDecisionFrom("SUPERVISOR-1"))

	executor := "supervisor-2"
	err = store.UpdateActionRequestStatus(ctx, requestID, domain.ActionExecuted, &executor, at.Add(2*time.Minute))
	require.NoError(t, err)

	request, err = store.GetActionRequest(ctx, requestID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionExecuted, request.Status)
	require.NotNil(t, request.ExecutedBy)
	assert.Equal(t, "supervisor-2", *request.ExecutedBy)
}

func TestUpdateActionRequestStatusNotFound(t *testing.T) {
	store := newTestStore(t)

	err := store.UpdateActionRequestStatus(context.Background(), 12345, domain.ActionApproved, nil, time.Now().UTC())
	assert.ErrorIs(t, err, domain.ErrRequestNotFound)
}

func TestListActionRequestsFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	incidentA, err := store.CreateIncident(ctx, "A", domain.SeverityLow, "a", nil, nil, time.Now().UTC())
	require.NoError(t, err)
	incidentB, err := store.CreateIncident(ctx, "B", domain.SeverityLow, "a", nil, nil, time.Now().UTC())
	require.NoError(t, err)

	r1, err := store.CreateActionRequest(ctx, incidentA, "passive_track", "op", nil, time.Now().UTC())
	require.NoError(t, err)
	_, err = store.CreateActionRequest(ctx, incidentB, "jam_uplink", "op", nil, time.Now().UTC())
	require.NoError(t, err)

	require.NoError(t, store.UpdateActionRequestStatus(ctx, r1, domain.ActionApproved, nil, time.Now().UTC()))

	byIncident, err := store.ListActionRequests(ctx, ports.ActionRequestFilter{IncidentID: &incidentA})
	require.NoError(t, err)
	require.Len(t, byIncident, 1)
	assert.Equal(t, r1, byIncident[0].ID)

	byStatus, err := store.ListActionRequests(ctx, ports.ActionRequestFilter{Status: domain.ActionPending})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "jam_uplink", byStatus[0].ActionType)
}

func TestActionAuditLogOrderedAppend(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	incidentID, err := store.CreateIncident(ctx, "Audit", domain.SeverityLow, "a", nil, nil, time.Now().UTC())
	require.NoError(t, err)
	requestID, err := store.CreateActionRequest(ctx, incidentID, "passive_track", "op", nil, time.Now().UTC())
	require.NoError(t, err)

	for _, event := range []string{domain.AuditRequested, domain.AuditApproval, domain.AuditExecuted} {
		_, err := store.AddActionAuditLog(ctx, domain.ActionAuditEntry{
			RequestID: requestID,
			EventType: event,
			Actor:     "op",
			Details:   map[string]any{"event": event},
			CreatedAt: time.Now().UTC(),
		})
		require.NoError(t, err)
	}

	entries, err := store.ListActionAuditLogs(ctx, &requestID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, domain.AuditRequested, entries[0].EventType)
	assert.Equal(t, domain.AuditExecuted, entries[2].EventType)
}

func TestManifestRoundtrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	incidentID, err := store.CreateIncident(ctx, "Evidence", domain.SeverityMedium, "a", nil, nil, time.Now().UTC())
	require.NoError(t, err)

	id, err := store.CreateManifest(ctx, domain.EvidenceManifest{
		IncidentID: incidentID,
		Manifest:   map[string]any{"artifact_count": float64(2)},
		HashAlgo:   domain.HashAlgoSHA256,
		Digest:     "abc123",
		CreatedBy:  "supervisor",
		CreatedAt:  time.Now().UTC(),
	})
	require.NoError(t, err)

	manifest, err := store.GetManifest(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, manifest)
	assert.Equal(t, domain.HashAlgoSHA256, manifest.HashAlgo)
	assert.Equal(t, "abc123", manifest.Digest)
	assert.Equal(t, float64(2), manifest.Manifest["artifact_count"])
	assert.Nil(t, manifest.Signature)

	listed, err := store.ListManifests(ctx, incidentID, 0)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestUserRepository(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := domain.User{
		ID:           "u-1",
		Username:     "admin",
		PasswordHash: "$2a$10$fake",
		Role:         domain.RoleAdmin,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, store.Save(ctx, user))

	got, err := store.GetByUsername(ctx, "admin")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.RoleAdmin, got.Role)

	byID, err := store.GetByID(ctx, "u-1")
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "admin", byID.Username)

	missing, err := store.GetByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	// Save is an upsert keyed on ID.
	user.Role = domain.RoleSupervisor
	require.NoError(t, store.Save(ctx, user))
	got, err = store.GetByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSupervisor, got.Role)
}

func TestCounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateSession(ctx, domain.SessionPassive, nil, "op", nil)
	require.NoError(t, err)
	incidentID, err := store.CreateIncident(ctx, "C", domain.SeverityLow, "a", nil, nil, time.Now().UTC())
	require.NoError(t, err)
	_, err = store.CreateActionRequest(ctx, incidentID, "passive_track", "op", nil, time.Now().UTC())
	require.NoError(t, err)

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.Sessions)
	assert.Equal(t, int64(1), counts.Incidents)
	assert.Equal(t, int64(1), counts.ActionRequests)
	assert.Equal(t, int64(0), counts.Detections)
}
