package detect

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/skyward-ops/droneops/internal/core/domain"
)

// rfFreqHintsMHz are center frequencies of bands commonly carrying drone
// control or video links.
var rfFreqHintsMHz = []float64{315.0, 433.92, 868.0, 915.0, 1200.0, 2400.0, 5800.0}

// rfMaxBandDeltaMHz is the widest distance from a known band that still
// counts as drone link activity.
const rfMaxBandDeltaMHz = 35.0

var freqTextPattern = regexp.MustCompile(`(?i)([0-9]{2,4}(?:\.[0-9]+)?)\s*MHz`)

// extractFrequencyMHz pulls a frequency from structured fields first, then
// from free text. Values above 100000 are interpreted as Hz and scaled.
func extractFrequencyMHz(event map[string]any) (float64, bool) {
	if event == nil {
		return 0, false
	}

	candidates := []any{event["frequency_mhz"], event["frequency"]}
	if hz, ok := event["frequency_hz"]; ok {
		if f, valid := toFloat(hz); valid {
			candidates = append(candidates, f/1e6)
		}
	}

	for _, candidate := range candidates {
		f, ok := toFloat(candidate)
		if !ok {
			continue
		}
		if f > 100000 { // likely in Hz
			f /= 1e6
		}
		if f >= 1.0 && f <= 7000.0 {
			return math.Round(f*1e6) / 1e6, true
		}
	}

	text := stringOf(event["text"])
	if text == "" {
		text = stringOf(event["message"])
	}
	if match := freqTextPattern.FindStringSubmatch(text); match != nil {
		if f, err := strconv.ParseFloat(match[1], 64); err == nil {
			return f, true
		}
	}

	return 0, false
}

func closestBandDelta(freqMHz float64) float64 {
	delta := math.Inf(1)
	for _, hint := range rfFreqHintsMHz {
		delta = math.Min(delta, math.Abs(freqMHz-hint))
	}
	return delta
}

func detectRF(event map[string]any) []domain.Finding {
	freqMHz, ok := extractFrequencyMHz(event)
	if !ok {
		return nil
	}

	delta := closestBandDelta(freqMHz)
	if delta > rfMaxBandDeltaMHz {
		return nil
	}

	confidence := math.Min(1.0, round3(math.Max(0.5, 0.85-delta/100.0)))

	eventID := strings.TrimSpace(stringOf(firstOf(event, "capture_id", "id")))
	if eventID == "" {
		eventID = fmt.Sprintf("%.3fMHz", freqMHz)
	}

	return []domain.Finding{{
		Source:         domain.SourceRF,
		Identifier:     "rf:" + eventID,
		Classification: domain.ClassRFLinkActivity,
		Confidence:     confidence,
		Payload: map[string]any{
			"event":                     event,
			"frequency_mhz":             freqMHz,
			"delta_from_known_band_mhz": round3(delta),
			"known_bands_mhz":           rfFreqHintsMHz,
		},
	}}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
