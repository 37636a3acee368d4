package ports

// DeviceCache exposes point-in-time snapshots of the wifi and bluetooth
// devices the wider application has observed. Snapshots are copies; callers
// must not assume stability across calls.
type DeviceCache interface {
	WiFiNetworks() map[string]map[string]any
	WiFiClients() map[string]map[string]any
	BTDevices() map[string]map[string]any
}

// DevicePair is a candidate WiFi<->BT association produced by the
// correlation collaborator.
type DevicePair struct {
	WiFiMAC    string         `json:"wifi_mac"`
	BTMAC      string         `json:"bt_mac"`
	Confidence float64        `json:"confidence"`
	Evidence   map[string]any `json:"evidence"`
}

// PairCorrelator proposes WiFi<->BT device pairings above a confidence
// threshold from device snapshots.
type PairCorrelator interface {
	Pairs(wifi, bt map[string]map[string]any, minConfidence float64) []DevicePair
}

// Observation is a single RSSI measurement used for geolocation.
type Observation struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	RSSI    float64 `json:"rssi"`
	TxPower float64 `json:"tx_power"`
}

// GeoEstimate is the output of a geolocation estimate.
type GeoEstimate struct {
	Lat            float64 `json:"lat"`
	Lon            float64 `json:"lon"`
	AccuracyM      float64 `json:"accuracy_m"`
	Method         string  `json:"method"`
	Observations   int     `json:"observations"`
	Environment    string  `json:"environment"`
	MeanDistanceM  float64 `json:"mean_distance_m"`
	MaxSpreadM     float64 `json:"max_spread_m"`
	ConfidenceHint string  `json:"confidence_hint"`
}

// GeoEstimator estimates a transmitter location from at least three
// observations. Environment selects the path-loss preset.
type GeoEstimator interface {
	Estimate(observations []Observation, environment string) (*GeoEstimate, error)
}
