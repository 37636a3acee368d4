package domain

import "time"

// Event types delivered to streaming subscribers. Every state change in the
// service emits exactly one typed envelope.
const (
	EventSessionStarted        = "session_started"
	EventSessionStopped        = "session_stopped"
	EventDetection             = "detection"
	EventRemoteIDDecoded       = "remote_id_decoded"
	EventPolicyArmed           = "policy_armed"
	EventPolicyDisarmed        = "policy_disarmed"
	EventIncidentCreated       = "incident_created"
	EventIncidentUpdated       = "incident_updated"
	EventIncidentArtifactAdded = "incident_artifact_added"
	EventActionRequested       = "action_requested"
	EventActionApproved        = "action_approved"
	EventActionExecuted        = "action_executed"
	EventManifestCreated       = "evidence_manifest_created"
	EventKeepalive             = "keepalive"
)

// Envelope wraps an event payload for fan-out. Timestamp is UTC ISO-8601.
type Envelope struct {
	Type      string         `json:"type"`
	Timestamp string         `json:"timestamp"`
	Payload   map[string]any `json:"payload"`
}

// NewEnvelope stamps a payload with its type and the given instant.
func NewEnvelope(eventType string, at time.Time, payload map[string]any) Envelope {
	if payload == nil {
		payload = map[string]any{}
	}
	return Envelope{
		Type:      eventType,
		Timestamp: at.UTC().Format(time.RFC3339Nano),
		Payload:   payload,
	}
}
