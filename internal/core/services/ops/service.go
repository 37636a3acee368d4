// Package ops is the drone operations control plane: sessions, ingestion,
// Remote-ID decoding, incidents, the approval-gated action workflow,
// evidence manifests and correlation refresh.
package ops

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/skyward-ops/droneops/internal/adapters/detect"
	"github.com/skyward-ops/droneops/internal/adapters/detect/remoteid"
	"github.com/skyward-ops/droneops/internal/core/domain"
	"github.com/skyward-ops/droneops/internal/core/ports"
	"github.com/skyward-ops/droneops/internal/core/services/events"
	"github.com/skyward-ops/droneops/internal/core/services/policy"
	"github.com/skyward-ops/droneops/internal/telemetry"
)

// Service wires the store, event bus, policy engine and collaborating
// caches into one concurrent-safe control plane. The service holds no lock
// of its own across store calls; the bus and policy engine carry the only
// two locks in the core.
type Service struct {
	store      ports.OpsStore
	bus        *events.Bus
	policy     *policy.Engine
	devices    ports.DeviceCache
	correlator ports.PairCorrelator
	geo        ports.GeoEstimator

	now func() time.Time
}

// NewService builds a control plane service using the wall clock.
func NewService(store ports.OpsStore, bus *events.Bus, engine *policy.Engine, devices ports.DeviceCache, correlator ports.PairCorrelator, geo ports.GeoEstimator) *Service {
	return &Service{
		store:      store,
		bus:        bus,
		policy:     engine,
		devices:    devices,
		correlator: correlator,
		geo:        geo,
		now:        time.Now,
	}
}

// NewServiceWithClock builds a service with an injected clock. Used by tests
// and by deterministic manifest generation.
func NewServiceWithClock(store ports.OpsStore, bus *events.Bus, engine *policy.Engine, devices ports.DeviceCache, correlator ports.PairCorrelator, geo ports.GeoEstimator, now func() time.Time) *Service {
	s := NewService(store, bus, engine, devices, correlator, geo)
	s.now = now
	return s
}

// Bus exposes the event bus for streaming adapters.
func (s *Service) Bus() *events.Bus {
	return s.bus
}

// Policy exposes the arming engine for middleware checks.
func (s *Service) Policy() *policy.Engine {
	return s.policy
}

// Status summarizes the control plane for the status surface.
type Status struct {
	ActiveSession *domain.Session   `json:"active_session"`
	Policy        policy.State      `json:"policy"`
	Counts        ports.StoreCounts `json:"counts"`
}

// GetStatus returns the active session, policy snapshot and row counts.
func (s *Service) GetStatus(ctx context.Context) (*Status, error) {
	active, err := s.store.GetActiveSession(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.store.Counts(ctx)
	if err != nil {
		return nil, err
	}
	return &Status{
		ActiveSession: active,
		Policy:        s.policy.State(),
		Counts:        counts,
	}, nil
}

// StartSession starts a collection session, or returns the already active
// one unchanged. Mode defaults to passive.
func (s *Service) StartSession(ctx context.Context, mode domain.SessionMode, label *string, operator string, metadata map[string]any) (*domain.Session, error) {
	if mode == "" {
		mode = domain.SessionPassive
	}
	if !mode.IsValid() {
		return nil, domain.ErrInvalidSessionMode
	}

	active, err := s.store.GetActiveSession(ctx)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return active, nil
	}

	id, err := s.store.CreateSession(ctx, mode, label, operator, metadata)
	if err != nil {
		return nil, err
	}
	session, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}

	s.bus.Emit(domain.EventSessionStarted, toMap(session))
	return session, nil
}

// StopSession stops the addressed session, or the active one when no ID is
// given. Returns nil when there is nothing to stop. A nil summary is
// synthesized from the session's detection count.
func (s *Service) StopSession(ctx context.Context, operator string, sessionID *int64, summary map[string]any) (*domain.Session, error) {
	var target *domain.Session
	var err error
	if sessionID != nil {
		target, err = s.store.GetSession(ctx, *sessionID)
	} else {
		target, err = s.store.GetActiveSession(ctx)
	}
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, nil
	}

	stoppedAt := s.now().UTC()
	if summary == nil {
		detections, err := s.store.CountDetections(ctx, &target.ID)
		if err != nil {
			return nil, err
		}
		summary = map[string]any{
			"operator":   operator,
			"stopped_at": stoppedAt.Format(time.RFC3339),
			"detections": detections,
		}
	}

	if err := s.store.StopSession(ctx, target.ID, stoppedAt, summary); err != nil {
		return nil, err
	}
	session, err := s.store.GetSession(ctx, target.ID)
	if err != nil {
		return nil, err
	}

	s.bus.Emit(domain.EventSessionStopped, toMap(session))
	return session, nil
}

// ListSessions returns recent sessions.
func (s *Service) ListSessions(ctx context.Context, limit int, activeOnly bool) ([]domain.Session, error) {
	return s.store.ListSessions(ctx, limit, activeOnly)
}

// IngestEvent routes a raw sensor event through the detectors and persists
// whatever they surface. Each detection is isolated: one row's persistence
// failure is logged and skipped without poisoning the rest of the event.
func (s *Service) IngestEvent(ctx context.Context, mode string, event map[string]any, eventType string) ([]domain.Detection, error) {
	findings := detect.FromEvent(mode, event, eventType)
	if len(findings) == 0 {
		return nil, nil
	}

	var sessionID *int64
	active, err := s.store.GetActiveSession(ctx)
	if err != nil {
		return nil, err
	}
	if active != nil {
		sessionID = &active.ID
	}

	seenAt := s.now().UTC()
	persisted := make([]domain.Detection, 0, len(findings))

	for _, f := range findings {
		id, err := s.store.UpsertDetection(ctx, ports.DetectionUpsert{
			SessionID:      sessionID,
			Source:         f.Source,
			Identifier:     f.Identifier,
			Classification: f.Classification,
			Confidence:     f.Confidence,
			Payload:        f.Payload,
			RemoteID:       f.RemoteID,
		}, seenAt)
		if err != nil {
			telemetry.IngestFailures.WithLabelValues(f.Source).Inc()
			slog.Warn("skipping detection after persistence failure",
				"source", f.Source, "identifier", f.Identifier, "error", err)
			continue
		}
		telemetry.DetectionsPersisted.WithLabelValues(f.Source).Inc()

		if f.Track != nil {
			if _, err := s.store.AddTrack(ctx, id, *f.Track, seenAt); err != nil {
				slog.Warn("failed to append track point", "detection_id", id, "error", err)
			}
		}

		if f.RemoteID != nil && f.RemoteID.UASID != nil && f.RemoteID.OperatorID != nil {
			confidence := f.RemoteID.Confidence
			if confidence == 0 {
				confidence = 0.8
			}
			_, err := s.store.AddCorrelation(ctx, domain.Correlation{
				DroneIdentifier:    *f.RemoteID.UASID,
				OperatorIdentifier: *f.RemoteID.OperatorID,
				Method:             domain.MethodRemoteIDBinding,
				Confidence:         confidence,
				Evidence:           map[string]any{"source": f.Source, "identifier": f.Identifier},
				CreatedAt:          seenAt,
			})
			if err != nil {
				slog.Warn("failed to append remote id correlation", "detection_id", id, "error", err)
			}
		}

		detection, err := s.store.GetDetection(ctx, id)
		if err != nil || detection == nil {
			slog.Warn("failed to reload persisted detection", "detection_id", id, "error", err)
			continue
		}
		persisted = append(persisted, *detection)
		s.bus.Emit(domain.EventDetection, toMap(detection))
	}

	return persisted, nil
}

// ListDetections returns stored detections matching the filter.
func (s *Service) ListDetections(ctx context.Context, f ports.DetectionFilter) ([]domain.Detection, error) {
	return s.store.ListDetections(ctx, f)
}

// ListTracks returns stored track points matching the filter.
func (s *Service) ListTracks(ctx context.Context, f ports.TrackFilter) ([]domain.Track, error) {
	return s.store.ListTracks(ctx, f)
}

// DecodeRemoteID decodes a broadcast Remote-ID payload without persisting
// anything, and announces the decode on the stream.
func (s *Service) DecodeRemoteID(payload any) domain.RemoteID {
	rid := remoteid.Decode(payload)
	s.bus.Emit(domain.EventRemoteIDDecoded, toMap(&rid))
	return rid
}

// Geolocate estimates a transmitter position from RSSI observations.
func (s *Service) Geolocate(observations []ports.Observation, environment string) (*ports.GeoEstimate, error) {
	return s.geo.Estimate(observations, environment)
}

// Arm opens the action window and announces the new policy snapshot.
func (s *Service) Arm(actor, reason string, incidentID int64, durationSeconds int) policy.State {
	state := s.policy.Arm(actor, reason, incidentID, durationSeconds)
	s.bus.Emit(domain.EventPolicyArmed, toMap(state))
	return state
}

// Disarm closes the action window and announces the cleared snapshot.
func (s *Service) Disarm(actor, reason string) policy.State {
	state := s.policy.Disarm()
	payload := toMap(state)
	payload["disarmed_by"] = actor
	if reason != "" {
		payload["reason"] = reason
	}
	s.bus.Emit(domain.EventPolicyDisarmed, payload)
	return state
}

// PolicyState returns the current arming snapshot.
func (s *Service) PolicyState() policy.State {
	return s.policy.State()
}

// toMap converts any JSON-serializable value to a generic map through a
// JSON round trip. Times become RFC 3339 strings, struct keys become their
// JSON tags.
func toMap(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to serialize event payload", "error", err)
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]any{}
	}
	return m
}
