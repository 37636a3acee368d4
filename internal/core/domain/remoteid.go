package domain

// RemoteID source formats reported by the decoder.
const (
	RemoteIDFormatDict  = "dict"
	RemoteIDFormatJSON  = "json"
	RemoteIDFormatRaw   = "raw"
	RemoteIDFormatEmpty = "empty"
)

// RemoteID is the normalized result of decoding a broadcast Remote-ID
// payload. Detected is true when a UAS identifier is present, or when a
// position fix alone clears the minimum confidence.
type RemoteID struct {
	Detected     bool           `json:"detected"`
	SourceFormat string         `json:"source_format"`
	UASID        *string        `json:"uas_id"`
	OperatorID   *string        `json:"operator_id"`
	Lat          *float64       `json:"lat"`
	Lon          *float64       `json:"lon"`
	AltitudeM    *float64       `json:"altitude_m"`
	SpeedMPS     *float64       `json:"speed_mps"`
	HeadingDeg   *float64       `json:"heading_deg"`
	Confidence   float64        `json:"confidence"`
	Raw          map[string]any `json:"raw"`
}

// HasPosition reports whether the payload carried a full lat/lon fix.
func (r *RemoteID) HasPosition() bool {
	return r.Lat != nil && r.Lon != nil
}
