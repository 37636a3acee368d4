package correlation

import (
	"math"
	"time"

	"github.com/skyward-ops/droneops/internal/core/ports"
)

// Pairing weights. A pair needs temporal proximity to score at all; shared
// OUI and comparable signal strength raise the confidence.
const (
	temporalWindow = 30 * time.Second

	temporalWeight = 0.5
	ouiWeight      = 0.3
	rssiWeight     = 0.2

	rssiComparableDelta = 15.0
)

// TemporalCorrelator proposes WiFi<->BT pairings from sighting proximity:
// devices seen within a short window of each other, sharing an OUI, or with
// comparable RSSI are likely the same physical platform (drone airframes
// commonly carry both radios).
type TemporalCorrelator struct{}

// NewTemporalCorrelator creates the default pairing heuristic.
func NewTemporalCorrelator() *TemporalCorrelator {
	return &TemporalCorrelator{}
}

// Pairs scores every wifi/bt device combination and returns those at or
// above minConfidence.
func (c *TemporalCorrelator) Pairs(wifi, bt map[string]map[string]any, minConfidence float64) []ports.DevicePair {
	var pairs []ports.DevicePair

	for wifiMAC, wifiAttrs := range wifi {
		for btMAC, btAttrs := range bt {
			confidence, evidence := scorePair(wifiMAC, wifiAttrs, btMAC, btAttrs)
			if confidence < minConfidence {
				continue
			}
			pairs = append(pairs, ports.DevicePair{
				WiFiMAC:    wifiMAC,
				BTMAC:      btMAC,
				Confidence: confidence,
				Evidence:   evidence,
			})
		}
	}
	return pairs
}

func scorePair(wifiMAC string, wifiAttrs map[string]any, btMAC string, btAttrs map[string]any) (float64, map[string]any) {
	wifiSeen, wifiOK := lastSeen(wifiAttrs)
	btSeen, btOK := lastSeen(btAttrs)
	if !wifiOK || !btOK {
		return 0, nil
	}

	gap := wifiSeen.Sub(btSeen)
	if gap < 0 {
		gap = -gap
	}
	if gap > temporalWindow {
		return 0, nil
	}

	confidence := temporalWeight * (1 - float64(gap)/float64(temporalWindow))
	evidence := map[string]any{
		"seen_gap_seconds": gap.Seconds(),
	}

	if len(wifiMAC) >= 8 && len(btMAC) >= 8 && wifiMAC[:8] == btMAC[:8] {
		confidence += ouiWeight
		evidence["shared_oui"] = wifiMAC[:8]
	}

	wifiRSSI, wok := rssiOf(wifiAttrs)
	btRSSI, bok := rssiOf(btAttrs)
	if wok && bok && math.Abs(wifiRSSI-btRSSI) <= rssiComparableDelta {
		confidence += rssiWeight
		evidence["rssi_delta_db"] = math.Abs(wifiRSSI - btRSSI)
	}

	if confidence > 1 {
		confidence = 1
	}
	return math.Round(confidence*1000) / 1000, evidence
}

func lastSeen(attrs map[string]any) (time.Time, bool) {
	switch v := attrs["last_seen"].(type) {
	case time.Time:
		return v, true
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}

func rssiOf(attrs map[string]any) (float64, bool) {
	for _, key := range []string{"rssi", "signal", "signal_dbm"} {
		switch v := attrs[key].(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		}
	}
	return 0, false
}

var _ ports.PairCorrelator = (*TemporalCorrelator)(nil)
