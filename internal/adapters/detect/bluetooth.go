package detect

import (
	"math"
	"regexp"
	"strings"

	"github.com/skyward-ops/droneops/internal/adapters/detect/remoteid"
	"github.com/skyward-ops/droneops/internal/core/domain"
)

// btNamePatterns are looser than the WiFi set: BLE advertisement names are
// short and rarely separator-bounded.
var btNamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(dji|mavic|phantom|inspire|matrice|mini)`),
	regexp.MustCompile(`(?i)(parrot|anafi|bebop)`),
	regexp.MustCompile(`(?i)(autel|evo)`),
	regexp.MustCompile(`(?i)(skydio|yuneec)`),
	regexp.MustCompile(`(?i)(remote\s?id|opendroneid|uas|uav|drone)`),
}

// remoteIDUUIDHints are the short-UUID suffixes used by ASTM Remote-ID
// broadcast services.
var remoteIDUUIDHints = map[string]bool{
	"fffa": true,
	"faff": true,
	"fffb": true,
}

const btThreshold = 0.55

func extractBTDevice(event map[string]any) map[string]any {
	if event == nil {
		return nil
	}
	if device, ok := event["device"].(map[string]any); ok {
		return device
	}
	for _, key := range []string{"device_id", "address", "name", "manufacturer_name", "service_uuids"} {
		if _, ok := event[key]; ok {
			return event
		}
	}
	return nil
}

func detectBluetooth(event map[string]any) []domain.Finding {
	device := extractBTDevice(event)
	if device == nil {
		return nil
	}

	address := normalizeMAC(firstOf(device, "address", "mac"))
	deviceID := strings.TrimSpace(stringOf(device["device_id"]))
	name := strings.TrimSpace(stringOf(device["name"]))
	manufacturer := strings.TrimSpace(stringOf(device["manufacturer_name"]))

	identifier := address
	if identifier == "" {
		identifier = deviceID
	}
	if identifier == "" {
		identifier = name
	}
	if identifier == "" {
		return nil
	}

	score := 0.0
	var reasons []string

	haystack := strings.TrimSpace(name + " " + manufacturer)
	if haystack != "" {
		for _, pattern := range btNamePatterns {
			if pattern.MatchString(haystack) {
				score += 0.55
				reasons = append(reasons, "name_or_vendor_pattern")
				break
			}
		}
	}

	if uuids, ok := device["service_uuids"].([]any); ok {
		for _, raw := range uuids {
			uuid := strings.ToLower(strings.ReplaceAll(stringOf(raw), "-", ""))
			if len(uuid) >= 4 && remoteIDUUIDHints[uuid[len(uuid)-4:]] {
				score = math.Max(score, 0.7)
				reasons = append(reasons, "remote_id_service_uuid")
				break
			}
		}
	}

	if tracker, ok := device["tracker"].(map[string]any); ok {
		isTracker, _ := tracker["is_tracker"].(bool)
		trackerType := strings.ToLower(stringOf(tracker["type"]))
		if isTracker && strings.Contains(trackerType, "drone") {
			score = math.Max(score, 0.7)
			reasons = append(reasons, "tracker_engine_drone_label")
		}
	}

	rid := remoteid.Decode(device)
	if rid.Detected {
		score = math.Max(score, 0.75)
		reasons = append(reasons, "remote_id_payload")
	}

	if score < btThreshold {
		return nil
	}

	confidence := math.Min(1.0, round3(score))
	classification := domain.ClassBTSignature
	var ridPtr *domain.RemoteID
	if rid.Detected {
		classification = domain.ClassBTRemoteID
		ridPtr = &rid
	}

	return []domain.Finding{{
		Source:         domain.SourceBluetooth,
		Identifier:     identifier,
		Classification: classification,
		Confidence:     confidence,
		Payload: map[string]any{
			"device":  device,
			"reasons": reasons,
		},
		RemoteID: ridPtr,
		Track:    trackFromRemoteID(&rid, domain.SourceBluetooth),
	}}
}
