package detect

import (
	"math"
	"regexp"
	"strings"

	"github.com/skyward-ops/droneops/internal/adapters/detect/remoteid"
	"github.com/skyward-ops/droneops/internal/core/domain"
)

// ssidPatterns match drone vendor and Remote-ID tokens bounded by word
// separators, so "DJI-OPS" hits but "adjacent" does not.
var ssidPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(^|[-_\s])(dji|mavic|phantom|inspire|matrice|mini)([-_\s]|$)`),
	regexp.MustCompile(`(?i)(^|[-_\s])(parrot|anafi|bebop)([-_\s]|$)`),
	regexp.MustCompile(`(?i)(^|[-_\s])(autel|evo)([-_\s]|$)`),
	regexp.MustCompile(`(?i)(^|[-_\s])(skydio|yuneec)([-_\s]|$)`),
	regexp.MustCompile(`(?i)(^|[-_\s])(uas|uav|drone|rid|opendroneid)([-_\s]|$)`),
}

// droneOUIPrefixes maps known drone vendor OUIs (first 8 chars of a
// colon-normalized MAC) to a brand hint.
var droneOUIPrefixes = map[string]string{
	"60:60:1F": "DJI",
	"90:3A:E6": "DJI",
	"34:D2:62": "DJI",
	"90:3A:AF": "DJI",
	"00:12:1C": "Parrot",
	"90:03:B7": "Parrot",
	"48:1C:B9": "Autel",
	"AC:89:95": "Skydio",
}

const wifiThreshold = 0.5

// extractWiFiNetwork pulls the network mapping out of the event: the nested
// network of an update envelope, or the event itself when it looks like one.
func extractWiFiNetwork(event map[string]any) map[string]any {
	if event == nil {
		return nil
	}
	if network, ok := event["network"].(map[string]any); ok {
		return network
	}
	for _, key := range []string{"bssid", "essid", "ssid"} {
		if _, ok := event[key]; ok {
			return event
		}
	}
	return nil
}

func detectWiFi(event map[string]any) []domain.Finding {
	network := extractWiFiNetwork(event)
	if network == nil {
		return nil
	}

	bssid := normalizeMAC(firstOf(network, "bssid", "mac", "id"))
	ssid := strings.TrimSpace(stringOf(firstOf(network, "essid", "ssid", "display_name")))
	identifier := bssid
	if identifier == "" {
		identifier = ssid
	}
	if identifier == "" {
		return nil
	}

	score := 0.0
	var reasons []string

	if ssid != "" {
		for _, pattern := range ssidPatterns {
			if pattern.MatchString(ssid) {
				score += 0.45
				reasons = append(reasons, "ssid_pattern")
				break
			}
		}
	}

	var brandHint string
	if len(bssid) >= 8 {
		if brand, ok := droneOUIPrefixes[bssid[:8]]; ok {
			score += 0.45
			brandHint = brand
			reasons = append(reasons, "known_oui:"+brand)
		}
	}

	rid := remoteid.Decode(network)
	if rid.Detected {
		score = math.Max(score, 0.75)
		reasons = append(reasons, "remote_id_payload")
	}

	if score < wifiThreshold {
		return nil
	}

	confidence := math.Min(1.0, round3(score))
	classification := domain.ClassWiFiSignature
	var ridPtr *domain.RemoteID
	if rid.Detected {
		classification = domain.ClassWiFiRemoteID
		ridPtr = &rid
	}

	payload := map[string]any{
		"network": network,
		"reasons": reasons,
	}
	if brandHint != "" {
		payload["brand_hint"] = brandHint
	}

	return []domain.Finding{{
		Source:         domain.SourceWiFi,
		Identifier:     identifier,
		Classification: classification,
		Confidence:     confidence,
		Payload:        payload,
		RemoteID:       ridPtr,
		Track:          trackFromRemoteID(&rid, domain.SourceWiFi),
	}}
}

// firstOf returns the first non-empty value among the listed keys.
func firstOf(data map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := data[key]; ok && v != nil {
			if s, isStr := v.(string); isStr && s == "" {
				continue
			}
			return v
		}
	}
	return nil
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
