package detect

import (
	"testing"

	"github.com/skyward-ops/droneops/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectWiFiSignatureWithOUI(t *testing.T) {
	findings := FromEvent("wifi", map[string]any{
		"network": map[string]any{
			"bssid": "60:60:1f:aa:bb:cc",
			"essid": "DJI-Mavic3",
		},
	}, "network_update")

	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, domain.SourceWiFi, f.Source)
	assert.Equal(t, "60:60:1F:AA:BB:CC", f.Identifier)
	assert.Equal(t, domain.ClassWiFiSignature, f.Classification)
	// ssid pattern + known OUI
	assert.InDelta(t, 0.9, f.Confidence, 1e-9)
	assert.Equal(t, "DJI", f.Payload["brand_hint"])
}

func TestDetectWiFiBelowThreshold(t *testing.T) {
	findings := FromEvent("wifi_scan", map[string]any{
		"network": map[string]any{
			"bssid": "AA:BB:CC:DD:EE:FF",
			"essid": "HomeNetwork",
		},
	}, "")

	assert.Empty(t, findings)
}

func TestDetectWiFiRemoteIDPayload(t *testing.T) {
	findings := FromEvent("wifi", map[string]any{
		"network": map[string]any{
			"bssid":  "AA:BB:CC:DD:EE:FF",
			"essid":  "Nondescript",
			"uas_id": "UAS-99",
			"lat":    51.5,
			"lon":    -0.12,
		},
	}, "")

	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, domain.ClassWiFiRemoteID, f.Classification)
	assert.GreaterOrEqual(t, f.Confidence, 0.75)
	require.NotNil(t, f.RemoteID)
	require.NotNil(t, f.Track)
	assert.Equal(t, 51.5, f.Track.Lat)
}

func TestDetectBluetoothServiceUUID(t *testing.T) {
	findings := FromEvent("bluetooth", map[string]any{
		"device": map[string]any{
			"address":       "11:22:33:44:55:66",
			"name":          "BLE Broadcast",
			"service_uuids": []any{"0000fffa-0000-1000-8000-00805f9b34fb"},
		},
	}, "")

	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, domain.SourceBluetooth, f.Source)
	assert.Equal(t, domain.ClassBTSignature, f.Classification)
	assert.InDelta(t, 0.7, f.Confidence, 1e-9)
}

func TestDetectBluetoothName(t *testing.T) {
	findings := FromEvent("bt_scan", map[string]any{
		"device": map[string]any{
			"address": "11:22:33:44:55:66",
			"name":    "Mavic Air RC",
		},
	}, "")

	require.Len(t, findings, 1)
	assert.InDelta(t, 0.55, findings[0].Confidence, 1e-9)
}

func TestDetectRFNearKnownBand(t *testing.T) {
	findings := FromEvent("subghz", map[string]any{
		"frequency_mhz": 868.5,
		"capture_id":    "cap-1",
	}, "")

	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, domain.SourceRF, f.Source)
	assert.Equal(t, "rf:cap-1", f.Identifier)
	assert.Equal(t, domain.ClassRFLinkActivity, f.Classification)
	// delta 0.5 MHz from the 868 band
	assert.InDelta(t, 0.845, f.Confidence, 1e-9)
}

func TestDetectRFOutOfBand(t *testing.T) {
	findings := FromEvent("waterfall", map[string]any{"frequency_mhz": 700.0}, "")
	assert.Empty(t, findings)
}

func TestDetectRFHzScalingAndTextFallback(t *testing.T) {
	findings := FromEvent("listening", map[string]any{"frequency_hz": 433920000.0}, "")
	require.Len(t, findings, 1)
	assert.Equal(t, "rf:433.920MHz", findings[0].Identifier)

	findings = FromEvent("listening_scanner", map[string]any{"text": "burst at 915 MHz"}, "")
	require.Len(t, findings, 1)
	assert.InDelta(t, 0.85, findings[0].Confidence, 1e-9)
}

func TestFromEventOpportunisticRemoteID(t *testing.T) {
	findings := FromEvent("sdr_relay", map[string]any{
		"uas_id": "UAS-RELAY-1",
		"lat":    10.0,
		"lon":    20.0,
	}, "relay")

	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, "sdr_relay", f.Source)
	assert.Equal(t, "UAS-RELAY-1", f.Identifier)
	assert.Equal(t, domain.ClassRemoteID, f.Classification)
	require.NotNil(t, f.Track)
}

func TestFromEventUnknownModeNoRemoteID(t *testing.T) {
	findings := FromEvent("weird_mode", map[string]any{"foo": "bar"}, "")
	assert.Empty(t, findings)
}
