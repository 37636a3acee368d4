// Package detect scores heuristic drone evidence across WiFi, Bluetooth and
// sub-GHz RF feeds. Detectors are lossy by design: a malformed event yields
// zero findings, never an error.
package detect

import (
	"fmt"
	"strings"

	"github.com/skyward-ops/droneops/internal/adapters/detect/remoteid"
	"github.com/skyward-ops/droneops/internal/core/domain"
)

// rfModes are the event modes routed to the RF detector.
var rfModes = map[string]bool{
	"subghz":            true,
	"listening_scanner": true,
	"waterfall":         true,
	"listening":         true,
}

// FromEvent dispatches a sensor event to the carrier-specific detector by
// mode prefix. Modes with no dedicated detector get an opportunistic
// Remote-ID probe so feeds that relay explicit payloads still surface.
func FromEvent(mode string, event map[string]any, eventType string) []domain.Finding {
	modeLower := strings.ToLower(strings.TrimSpace(mode))

	switch {
	case strings.HasPrefix(modeLower, "wifi"):
		return detectWiFi(event)
	case strings.HasPrefix(modeLower, "bluetooth") || strings.HasPrefix(modeLower, "bt"):
		return detectBluetooth(event)
	case rfModes[modeLower]:
		return detectRF(event)
	}

	rid := remoteid.Decode(event)
	if !rid.Detected {
		return nil
	}

	identifier := "remote_id"
	if rid.UASID != nil {
		identifier = *rid.UASID
	} else if rid.OperatorID != nil {
		identifier = *rid.OperatorID
	}

	source := modeLower
	if source == "" {
		source = "unknown"
	}

	confidence := rid.Confidence
	if confidence == 0 {
		confidence = 0.6
	}

	return []domain.Finding{{
		Source:         source,
		Identifier:     identifier,
		Classification: domain.ClassRemoteID,
		Confidence:     confidence,
		Payload:        map[string]any{"event": event, "event_type": eventType},
		RemoteID:       &rid,
		Track:          trackFromRemoteID(&rid, source),
	}}
}

// trackFromRemoteID synthesizes a track point from a decoded payload that
// carries a full position fix.
func trackFromRemoteID(rid *domain.RemoteID, source string) *domain.TrackPoint {
	if rid == nil || !rid.Detected || rid.Lat == nil || rid.Lon == nil {
		return nil
	}
	return &domain.TrackPoint{
		Lat:        *rid.Lat,
		Lon:        *rid.Lon,
		AltitudeM:  rid.AltitudeM,
		SpeedMPS:   rid.SpeedMPS,
		HeadingDeg: rid.HeadingDeg,
		Quality:    rid.Confidence,
		Source:     source,
	}
}

// normalizeMAC upper-cases and colon-normalizes a MAC-like identifier.
// Values too short to be an OUI-bearing address are discarded.
func normalizeMAC(value any) string {
	text := strings.ToUpper(strings.TrimSpace(stringOf(value)))
	text = strings.ReplaceAll(text, "-", ":")
	if len(text) >= 8 {
		return text
	}
	return ""
}

func stringOf(value any) string {
	if value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}
