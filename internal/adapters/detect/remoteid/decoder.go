// Package remoteid normalizes and decodes broadcast Remote-ID payloads.
//
// Input is open-unioned: a decoded JSON mapping, raw bytes, JSON text, or an
// opaque string. Normalization happens once at the boundary; extraction then
// probes a fixed key vocabulary at the top level and under the common nested
// prefixes used by Remote-ID relays.
package remoteid

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/skyward-ops/droneops/internal/core/domain"
)

var (
	droneIDKeys    = []string{"uas_id", "drone_id", "serial_number", "serial", "id", "uasId"}
	operatorIDKeys = []string{"operator_id", "pilot_id", "operator", "operatorId"}
	latKeys        = []string{"lat", "latitude"}
	lonKeys        = []string{"lon", "lng", "longitude"}
	altKeys        = []string{"alt", "altitude", "altitude_m", "height"}
	speedKeys      = []string{"speed", "speed_mps", "ground_speed"}
	headingKeys    = []string{"heading", "heading_deg", "course"}

	idPrefixes       = []string{"remote_id", "message", "uas"}
	operatorPrefixes = []string{"remote_id", "message", "operator"}
	positionPrefixes = []string{"remote_id", "message", "position"}
)

// Decode normalizes an arbitrary payload into a Remote-ID record with a
// confidence score. It never fails: undecodable inputs yield a non-detected
// record with source_format raw or empty.
func Decode(payload any) domain.RemoteID {
	data, format := normalizeInput(payload)

	droneID := pick(data, droneIDKeys, idPrefixes)
	operatorID := pick(data, operatorIDKeys, operatorPrefixes)

	lat := coerceFloat(pick(data, latKeys, positionPrefixes))
	lon := coerceFloat(pick(data, lonKeys, positionPrefixes))
	altitude := coerceFloat(pick(data, altKeys, positionPrefixes))
	speed := coerceFloat(pick(data, speedKeys, positionPrefixes))
	heading := coerceFloat(pick(data, headingKeys, positionPrefixes))

	confidence := 0.0
	if truthy(droneID) {
		confidence += 0.35
	}
	if lat != nil && lon != nil {
		confidence += 0.35
	}
	if altitude != nil {
		confidence += 0.15
	}
	if truthy(operatorID) {
		confidence += 0.15
	}
	confidence = math.Min(1.0, round3(confidence))

	detected := truthy(droneID) || (lat != nil && lon != nil && confidence >= 0.35)

	rec := domain.RemoteID{
		Detected:     detected,
		SourceFormat: format,
		Lat:          lat,
		Lon:          lon,
		AltitudeM:    altitude,
		SpeedMPS:     speed,
		HeadingDeg:   heading,
		Confidence:   confidence,
		Raw:          data,
	}
	if truthy(droneID) {
		id := strings.TrimSpace(stringify(droneID))
		rec.UASID = &id
	}
	if truthy(operatorID) {
		id := strings.TrimSpace(stringify(operatorID))
		rec.OperatorID = &id
	}
	return rec
}

// normalizeInput reduces the open-unioned payload to a mapping plus its
// source format tag.
func normalizeInput(payload any) (map[string]any, string) {
	if m, ok := payload.(map[string]any); ok {
		return m, domain.RemoteIDFormatDict
	}

	var text string
	switch v := payload.(type) {
	case nil:
		text = ""
	case []byte:
		text = strings.ToValidUTF8(string(v), "�")
	case string:
		text = v
	case json.RawMessage:
		text = strings.ToValidUTF8(string(v), "�")
	default:
		text = stringify(v)
	}
	text = strings.TrimSpace(text)

	if text == "" {
		return map[string]any{}, domain.RemoteIDFormatEmpty
	}

	var parsed any
	if err := json.Unmarshal([]byte(text), &parsed); err == nil {
		if m, ok := parsed.(map[string]any); ok {
			return m, domain.RemoteIDFormatJSON
		}
	}

	// Keep opaque string payload available to the caller.
	return map[string]any{"raw": text}, domain.RemoteIDFormatRaw
}

// pick probes keys at the top level first, then under nested prefixes.
// Top-level hits win even when nil; nested hits must be non-nil.
func pick(data map[string]any, keys, prefixes []string) any {
	for _, key := range keys {
		if v, ok := data[key]; ok {
			return v
		}
	}
	for _, prefix := range prefixes {
		for _, key := range keys {
			if v := getNested(data, prefix, key); v != nil {
				return v
			}
		}
	}
	return nil
}

func getNested(data map[string]any, parts ...string) any {
	var current any = data
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = m[part]
		if !ok {
			return nil
		}
	}
	return current
}

func coerceFloat(value any) *float64 {
	switch v := value.(type) {
	case nil:
		return nil
	case float64:
		return &v
	case float32:
		f := float64(v)
		return &f
	case int:
		f := float64(v)
		return &f
	case int64:
		f := float64(v)
		return &f
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return &f
		}
		return nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return &f
		}
		return nil
	default:
		return nil
	}
}

// truthy mirrors presence semantics: empty strings, zeros, nil and empty
// containers do not count as an identifier.
func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0
	case int:
		return v != 0
	case map[string]any:
		return len(v) > 0
	case []any:
		return len(v) > 0
	default:
		return true
	}
}

func stringify(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
