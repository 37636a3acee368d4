package ops

import (
	"context"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/skyward-ops/droneops/internal/adapters/correlation"
	"github.com/skyward-ops/droneops/internal/adapters/storage"
	"github.com/skyward-ops/droneops/internal/core/domain"
	"github.com/skyward-ops/droneops/internal/core/ports"
	"github.com/skyward-ops/droneops/internal/core/services/events"
	"github.com/skyward-ops/droneops/internal/core/services/policy"
	"github.com/skyward-ops/droneops/internal/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, now func() time.Time) *Service {
	t.Helper()

	store, err := storage.NewSQLiteAdapter(filepath.Join(t.TempDir(), "ops.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return NewServiceWithClock(
		store,
		events.NewBusWithClock(now),
		policy.NewEngineWithClock(now),
		correlation.NewDeviceCache(),
		correlation.NewTemporalCorrelator(),
		geo.NewEstimator(),
		now,
	)
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestSessionLifecycle(t *testing.T) {
	service := newTestService(t, fixedClock(time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)))
	ctx := context.Background()

	session, err := service.StartSession(ctx, "", nil, "op-1", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionPassive, session.Mode)
	assert.True(t, session.Active())

	// A second start returns the running session untouched.
	again, err := service.StartSession(ctx, domain.SessionActive, nil, "op-2", nil)
	require.NoError(t, err)
	assert.Equal(t, session.ID, again.ID)
	assert.Equal(t, domain.SessionPassive, again.Mode)

	_, err = service.StartSession(ctx, "turbo", nil, "op-1", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidSessionMode)

	stopped, err := service.StopSession(ctx, "op-1", nil, nil)
	require.NoError(t, err)
	require.NotNil(t, stopped)
	assert.False(t, stopped.Active())
	assert.Equal(t, "op-1", stopped.Summary["operator"])
	assert.Contains(t, stopped.Summary, "detections")

	// Nothing active: stop is a no-op, not an error.
	stopped, err = service.StopSession(ctx, "op-1", nil, nil)
	require.NoError(t, err)
	assert.Nil(t, stopped)
}

func TestActionWorkflowTwoApprovals(t *testing.T) {
	service := newTestService(t, fixedClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)))
	ctx := context.Background()

	incident, err := service.CreateIncident(ctx, "Drone over runway", domain.SeverityCritical, "analyst", nil, nil)
	require.NoError(t, err)

	request, err := service.RequestAction(ctx, incident.ID, "jam_uplink", "operator-1", map[string]any{"band_mhz": 2400})
	require.NoError(t, err)
	assert.Equal(t, domain.ActionPending, request.Status)
	assert.Equal(t, 2, request.RequiredApprovals)
	assert.Equal(t, 0, request.ApprovedCount)

	// One approval is not quorum.
	request, err = service.ApproveAction(ctx, request.ID, "supervisor-1", domain.DecisionApproved, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionPending, request.Status)
	assert.Equal(t, 1, request.ApprovedCount)

	// Disarmed plane refuses execution before quorum is even considered.
	_, err = service.ExecuteAction(ctx, request.ID, "supervisor-1")
	assert.ErrorIs(t, err, domain.ErrNotArmed)

	service.Arm("supervisor-1", "confirmed threat", incident.ID, 300)

	_, err = service.ExecuteAction(ctx, request.ID, "supervisor-1")
	require.ErrorIs(t, err, domain.ErrInsufficientApprovals)
	assert.Contains(t, err.Error(), "(1/2)")

	request, err = service.ApproveAction(ctx, request.ID, "supervisor-2", domain.DecisionApproved, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionApproved, request.Status)
	assert.Equal(t, 2, request.ApprovedCount)

	request, err = service.ExecuteAction(ctx, request.ID, "supervisor-2")
	require.NoError(t, err)
	assert.Equal(t, domain.ActionExecuted, request.Status)
	require.NotNil(t, request.ExecutedBy)
	assert.Equal(t, "supervisor-2", *request.ExecutedBy)

	_, err = service.ExecuteAction(ctx, request.ID, "supervisor-2")
	assert.ErrorIs(t, err, domain.ErrAlreadyExecuted)

	audit, err := service.ListActionAudit(ctx, &request.ID, 0)
	require.NoError(t, err)
	require.Len(t, audit, 4)
	assert.Equal(t, domain.AuditRequested, audit[0].EventType)
	assert.Equal(t, domain.AuditApproval, audit[1].EventType)
	assert.Equal(t, domain.AuditApproval, audit[2].EventType)
	assert.Equal(t, domain.AuditExecuted, audit[3].EventType)
}

func TestPassiveActionSingleApproval(t *testing.T) {
	service := newTestService(t, fixedClock(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)))
	ctx := context.Background()

	incident, err := service.CreateIncident(ctx, "Loiterer", domain.SeverityLow, "analyst", nil, nil)
	require.NoError(t, err)

	request, err := service.RequestAction(ctx, incident.ID, "passive_track", "operator-1", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, request.RequiredApprovals)

	request, err = service.ApproveAction(ctx, request.ID, "supervisor-1", domain.DecisionApproved, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionApproved, request.Status)

	service.Arm("supervisor-1", "tracking", incident.ID, 300)

	request, err = service.ExecuteAction(ctx, request.ID, "operator-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ActionExecuted, request.Status)
}

func TestRejectionIsTerminal(t *testing.T) {
	service := newTestService(t, fixedClock(time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)))
	ctx := context.Background()

	incident, err := service.CreateIncident(ctx, "False alarm", domain.SeverityLow, "analyst", nil, nil)
	require.NoError(t, err)

	request, err := service.RequestAction(ctx, incident.ID, "jam_uplink", "operator-1", nil)
	require.NoError(t, err)

	request, err = service.ApproveAction(ctx, request.ID, "supervisor-1", domain.DecisionRejected, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionRejected, request.Status)

	// Later approvals never resurrect a rejected request.
	request, err = service.ApproveAction(ctx, request.ID, "supervisor-2", domain.DecisionApproved, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionRejected, request.Status)

	service.Arm("supervisor-1", "test", incident.ID, 300)
	_, err = service.ExecuteAction(ctx, request.ID, "supervisor-1")
	assert.ErrorIs(t, err, domain.ErrRequestRejected)
}

func TestSameApproverIsIdempotent(t *testing.T) {
	service := newTestService(t, fixedClock(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)))
	ctx := context.Background()

	incident, err := service.CreateIncident(ctx, "Dup votes", domain.SeverityLow, "analyst", nil, nil)
	require.NoError(t, err)

	request, err := service.RequestAction(ctx, incident.ID, "jam_uplink", "operator-1", nil)
	require.NoError(t, err)

	_, err = service.ApproveAction(ctx, request.ID, "supervisor-1", domain.DecisionApproved, nil)
	require.NoError(t, err)
	request, err = service.ApproveAction(ctx, request.ID, "Supervisor-1", domain.DecisionApproved, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, request.ApprovedCount)
	assert.Len(t, request.Approvals, 1)

	audit, err := service.ListActionAudit(ctx, &request.ID, 0)
	require.NoError(t, err)
	assert.Len(t, audit, 2) // requested + one approval
}

func TestRequestActionValidation(t *testing.T) {
	service := newTestService(t, fixedClock(time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC)))
	ctx := context.Background()

	_, err := service.RequestAction(ctx, 1, "  ", "op", nil)
	assert.ErrorIs(t, err, domain.ErrEmptyActionType)

	_, err = service.RequestAction(ctx, 999, "jam_uplink", "op", nil)
	assert.ErrorIs(t, err, domain.ErrIncidentNotFound)
}

func TestBuildManifestDeterministicDigest(t *testing.T) {
	service := newTestService(t, fixedClock(time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)))
	ctx := context.Background()

	incident, err := service.CreateIncident(ctx, "Evidence trail", domain.SeverityHigh, "analyst", nil, map[string]any{"zone": "east"})
	require.NoError(t, err)

	_, err = service.AddIncidentArtifact(ctx, incident.ID, "pcap", "capture-1.pcap", "analyst", nil)
	require.NoError(t, err)

	request, err := service.RequestAction(ctx, incident.ID, "passive_track", "operator-1", nil)
	require.NoError(t, err)
	_, err = service.ApproveAction(ctx, request.ID, "supervisor-1", domain.DecisionApproved, nil)
	require.NoError(t, err)

	first, err := service.BuildManifest(ctx, incident.ID, "supervisor-1", nil)
	require.NoError(t, err)
	second, err := service.BuildManifest(ctx, incident.ID, "supervisor-1", nil)
	require.NoError(t, err)

	// Same incident state under a frozen clock seals to the same digest.
	assert.Equal(t, first.Digest, second.Digest)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), first.Digest)
	assert.Equal(t, domain.HashAlgoSHA256, first.HashAlgo)

	integrity, ok := first.Manifest["integrity"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, first.Digest, integrity["digest"])
	assert.Equal(t, domain.HashAlgoSHA256, integrity["algorithm"])

	assert.Equal(t, 1, first.Manifest["artifact_count"])
	assert.Equal(t, 1, first.Manifest["action_request_count"])
	assert.Equal(t, 2, first.Manifest["audit_event_count"])

	manifests, err := service.ListManifests(ctx, incident.ID, 0)
	require.NoError(t, err)
	assert.Len(t, manifests, 2)

	_, err = service.BuildManifest(ctx, 999, "supervisor-1", nil)
	assert.ErrorIs(t, err, domain.ErrIncidentNotFound)
}

func TestIngestEventPersistsDetectionTrackAndBinding(t *testing.T) {
	service := newTestService(t, fixedClock(time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)))
	ctx := context.Background()

	session, err := service.StartSession(ctx, domain.SessionPassive, nil, "op-1", nil)
	require.NoError(t, err)

	detections, err := service.IngestEvent(ctx, "wifi", map[string]any{
		"network": map[string]any{
			"bssid":       "60:60:1F:00:11:22",
			"essid":       "DJI-Mavic3",
			"uas_id":      "UAS-FR-77",
			"operator_id": "OP-FR-5",
			"lat":         48.85,
			"lon":         2.35,
		},
	}, "network_update")
	require.NoError(t, err)
	require.Len(t, detections, 1)

	det := detections[0]
	assert.Equal(t, domain.ClassWiFiRemoteID, det.Classification)
	require.NotNil(t, det.SessionID)
	assert.Equal(t, session.ID, *det.SessionID)
	require.NotNil(t, det.RemoteID)

	tracks, err := service.ListTracks(ctx, ports.TrackFilter{DetectionID: &det.ID})
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, 48.85, tracks[0].Lat)

	correlations, err := service.ListCorrelations(ctx, 0.1, 0)
	require.NoError(t, err)
	require.Len(t, correlations, 1)
	assert.Equal(t, domain.MethodRemoteIDBinding, correlations[0].Method)
	assert.Equal(t, "UAS-FR-77", correlations[0].DroneIdentifier)
	assert.Equal(t, "OP-FR-5", correlations[0].OperatorIdentifier)
}

func TestIngestEventNoFindings(t *testing.T) {
	service := newTestService(t, fixedClock(time.Date(2026, 3, 2, 16, 0, 0, 0, time.UTC)))

	detections, err := service.IngestEvent(context.Background(), "wifi", map[string]any{
		"network": map[string]any{"bssid": "AA:BB:CC:DD:EE:FF", "essid": "HomeNetwork"},
	}, "")
	require.NoError(t, err)
	assert.Empty(t, detections)
}

func TestGetStatus(t *testing.T) {
	service := newTestService(t, fixedClock(time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC)))
	ctx := context.Background()

	status, err := service.GetStatus(ctx)
	require.NoError(t, err)
	assert.Nil(t, status.ActiveSession)
	assert.False(t, status.Policy.Armed)
	assert.Equal(t, int64(0), status.Counts.Sessions)

	_, err = service.StartSession(ctx, domain.SessionActive, nil, "op", nil)
	require.NoError(t, err)
	service.Arm("supervisor", "drill", 0, 120)

	status, err = service.GetStatus(ctx)
	require.NoError(t, err)
	require.NotNil(t, status.ActiveSession)
	assert.True(t, status.Policy.Armed)
	assert.Equal(t, int64(1), status.Counts.Sessions)
}
