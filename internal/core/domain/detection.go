package domain

import "time"

// Detection sources. The pipeline is open-ended: unknown modes that carry a
// decodable Remote-ID payload are persisted under their own mode string.
const (
	SourceWiFi      = "wifi"
	SourceBluetooth = "bluetooth"
	SourceRF        = "rf"
)

// Detection classifications emitted by the signature detectors.
const (
	ClassWiFiSignature  = "wifi_drone_signature"
	ClassWiFiRemoteID   = "wifi_drone_remote_id"
	ClassBTSignature    = "bluetooth_drone_signature"
	ClassBTRemoteID     = "bluetooth_drone_remote_id"
	ClassRFLinkActivity = "rf_drone_link_activity"
	ClassRemoteID       = "remote_id_detected"
)

// Detection is a persisted classification of a sensor emission. Upsert key is
// (session_id, source, identifier); each upsert refreshes LastSeen and may
// widen Confidence.
type Detection struct {
	ID             int64          `json:"id"`
	SessionID      *int64         `json:"session_id"`
	Source         string         `json:"source"`
	Identifier     string         `json:"identifier"`
	Classification string         `json:"classification"`
	Confidence     float64        `json:"confidence"`
	Payload        map[string]any `json:"payload"`
	RemoteID       *RemoteID      `json:"remote_id"`
	FirstSeen      time.Time      `json:"first_seen"`
	LastSeen       time.Time      `json:"last_seen"`
}

// Track is an append-only geospatial fix attached to a detection. Created
// only when both lat and lon are present.
type Track struct {
	ID          int64     `json:"id"`
	DetectionID int64     `json:"detection_id"`
	Lat         float64   `json:"lat"`
	Lon         float64   `json:"lon"`
	AltitudeM   *float64  `json:"altitude_m"`
	SpeedMPS    *float64  `json:"speed_mps"`
	HeadingDeg  *float64  `json:"heading_deg"`
	Quality     *float64  `json:"quality"`
	Source      string    `json:"source"`
	Timestamp   time.Time `json:"timestamp"`
}

// Correlation methods.
const (
	MethodRemoteIDBinding   = "remote_id_binding"
	MethodWiFiBTCorrelation = "wifi_bt_correlation"
)

// Correlation links a drone-side identifier with an operator-side identifier.
// Append-only; queries deduplicate by (drone, operator, method) keeping the
// max confidence.
type Correlation struct {
	ID                 int64          `json:"id"`
	DroneIdentifier    string         `json:"drone_identifier"`
	OperatorIdentifier string         `json:"operator_identifier"`
	Method             string         `json:"method"`
	Confidence         float64        `json:"confidence"`
	Evidence           map[string]any `json:"evidence"`
	CreatedAt          time.Time      `json:"created_at"`
}

// TrackPoint is an unpersisted fix synthesized by a detector from a decoded
// Remote-ID payload.
type TrackPoint struct {
	Lat        float64  `json:"lat"`
	Lon        float64  `json:"lon"`
	AltitudeM  *float64 `json:"altitude_m"`
	SpeedMPS   *float64 `json:"speed_mps"`
	HeadingDeg *float64 `json:"heading_deg"`
	Quality    float64  `json:"quality"`
	Source     string   `json:"source"`
}

// Finding is a detector result prior to persistence. Zero or more findings
// may be produced from a single sensor event.
type Finding struct {
	Source         string
	Identifier     string
	Classification string
	Confidence     float64
	Payload        map[string]any
	RemoteID       *RemoteID
	Track          *TrackPoint
}
