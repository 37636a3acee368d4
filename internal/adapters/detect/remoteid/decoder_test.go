package remoteid

import (
	"testing"

	"github.com/skyward-ops/droneops/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSONPayload(t *testing.T) {
	payload := `{"uas_id":"UAS-FR-001","operator_id":"OP-42","lat":48.8566,"lon":2.3522,"alt":80.0}`

	rec := Decode(payload)

	assert.True(t, rec.Detected)
	assert.Equal(t, domain.RemoteIDFormatJSON, rec.SourceFormat)
	require.NotNil(t, rec.UASID)
	assert.Equal(t, "UAS-FR-001", *rec.UASID)
	require.NotNil(t, rec.OperatorID)
	assert.Equal(t, "OP-42", *rec.OperatorID)
	require.NotNil(t, rec.AltitudeM)
	assert.Equal(t, 80.0, *rec.AltitudeM)
	// uas_id + position + altitude + operator
	assert.Equal(t, 1.0, rec.Confidence)
}

func TestDecodeDictPayload(t *testing.T) {
	rec := Decode(map[string]any{"drone_id": "DR-7", "lat": 1.0, "lon": 2.0})

	assert.True(t, rec.Detected)
	assert.Equal(t, domain.RemoteIDFormatDict, rec.SourceFormat)
	require.NotNil(t, rec.UASID)
	assert.Equal(t, "DR-7", *rec.UASID)
	assert.InDelta(t, 0.7, rec.Confidence, 1e-9)
}

func TestDecodeNestedPrefixes(t *testing.T) {
	rec := Decode(map[string]any{
		"remote_id": map[string]any{"uas_id": "NESTED-1"},
		"position":  map[string]any{"lat": 40.0, "lon": -3.7},
	})

	assert.True(t, rec.Detected)
	require.NotNil(t, rec.UASID)
	assert.Equal(t, "NESTED-1", *rec.UASID)
	require.NotNil(t, rec.Lat)
	assert.Equal(t, 40.0, *rec.Lat)
}

func TestDecodeTopLevelNilWins(t *testing.T) {
	// A present-but-nil top level key shadows the nested identifier.
	rec := Decode(map[string]any{
		"id":        nil,
		"remote_id": map[string]any{"uas_id": "SHADOWED"},
	})

	assert.False(t, rec.Detected)
	assert.Nil(t, rec.UASID)
}

func TestDecodePositionOnly(t *testing.T) {
	rec := Decode(map[string]any{"lat": 10.0, "lon": 20.0})

	assert.True(t, rec.Detected)
	assert.Nil(t, rec.UASID)
	assert.InDelta(t, 0.35, rec.Confidence, 1e-9)
}

func TestDecodeEmptyAndRaw(t *testing.T) {
	empty := Decode("")
	assert.False(t, empty.Detected)
	assert.Equal(t, domain.RemoteIDFormatEmpty, empty.SourceFormat)

	raw := Decode("not json at all")
	assert.False(t, raw.Detected)
	assert.Equal(t, domain.RemoteIDFormatRaw, raw.SourceFormat)
	assert.Equal(t, "not json at all", raw.Raw["raw"])

	asBytes := Decode([]byte(`{"serial_number":"SN-1"}`))
	assert.True(t, asBytes.Detected)
	assert.Equal(t, domain.RemoteIDFormatJSON, asBytes.SourceFormat)
}

func TestDecodeCoercesStringNumbers(t *testing.T) {
	rec := Decode(map[string]any{"uas_id": "X", "lat": "41.5", "lon": "2.1", "speed": "12.5"})

	require.NotNil(t, rec.Lat)
	assert.Equal(t, 41.5, *rec.Lat)
	require.NotNil(t, rec.SpeedMPS)
	assert.Equal(t, 12.5, *rec.SpeedMPS)
}
