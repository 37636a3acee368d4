// Package geo estimates a transmitter position from RSSI observations using
// log-distance path loss and an inverse-distance weighted centroid.
package geo

import (
	"errors"
	"math"

	"github.com/skyward-ops/droneops/internal/core/ports"
)

// Path-loss exponents per environment preset.
const (
	exponentOutdoor = 2.2
	exponentIndoor  = 3.0

	// earthRadiusM is the mean Earth radius used for spread estimates.
	earthRadiusM = 6371000.0
)

var ErrInsufficientObservations = errors.New("at least 3 observations are required")

// Estimator implements ports.GeoEstimator with RSSI multilateration.
type Estimator struct{}

// NewEstimator creates the default estimator.
func NewEstimator() *Estimator {
	return &Estimator{}
}

// Estimate computes a weighted-centroid position from at least three RSSI
// observations. Environment selects the path-loss exponent: "indoor" or
// anything else (treated as outdoor).
func (e *Estimator) Estimate(observations []ports.Observation, environment string) (*ports.GeoEstimate, error) {
	if len(observations) < 3 {
		return nil, ErrInsufficientObservations
	}

	exponent := exponentOutdoor
	if environment == "indoor" {
		exponent = exponentIndoor
	}

	// Each observation's estimated distance weights its position: closer
	// observers (stronger signal) pull the centroid harder.
	var sumLat, sumLon, sumWeight, sumDist float64
	distances := make([]float64, len(observations))
	for i, obs := range observations {
		dist := pathLossDistance(obs.RSSI, obs.TxPower, exponent)
		distances[i] = dist
		weight := 1 / math.Max(dist, 1)
		sumLat += obs.Lat * weight
		sumLon += obs.Lon * weight
		sumWeight += weight
		sumDist += dist
	}

	lat := sumLat / sumWeight
	lon := sumLon / sumWeight
	meanDist := sumDist / float64(len(observations))

	// Spread of the observers bounds how much the centroid can be trusted.
	var maxSpread float64
	for _, obs := range observations {
		d := haversineM(lat, lon, obs.Lat, obs.Lon)
		if d > maxSpread {
			maxSpread = d
		}
	}

	accuracy := math.Max(meanDist*0.5, 10)
	hint := "low"
	switch {
	case len(observations) >= 5 && maxSpread > 20:
		hint = "high"
	case len(observations) >= 4:
		hint = "medium"
	}

	return &ports.GeoEstimate{
		Lat:            round6(lat),
		Lon:            round6(lon),
		AccuracyM:      math.Round(accuracy*10) / 10,
		Method:         "rssi_weighted_centroid",
		Observations:   len(observations),
		Environment:    environmentLabel(environment),
		MeanDistanceM:  math.Round(meanDist*10) / 10,
		MaxSpreadM:     math.Round(maxSpread*10) / 10,
		ConfidenceHint: hint,
	}, nil
}

// pathLossDistance inverts the log-distance path loss model:
// rssi = txPower - 10 * n * log10(d).
func pathLossDistance(rssi, txPower, exponent float64) float64 {
	if txPower == 0 {
		txPower = -40 // typical 1m reference for small UAS radios
	}
	return math.Pow(10, (txPower-rssi)/(10*exponent))
}

func haversineM(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusM * math.Asin(math.Sqrt(a))
}

func environmentLabel(environment string) string {
	if environment == "indoor" {
		return "indoor"
	}
	return "outdoor"
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

var _ ports.GeoEstimator = (*Estimator)(nil)
