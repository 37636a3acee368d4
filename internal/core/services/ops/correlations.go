package ops

import (
	"context"
	"strings"

	"github.com/skyward-ops/droneops/internal/core/domain"
	"github.com/skyward-ops/droneops/internal/core/ports"
)

// knownDroneThreshold is the minimum detection confidence for an identifier
// to count as a known drone during correlation refresh.
const knownDroneThreshold = 0.5

// RefreshCorrelations promotes WiFi<->BT device pairs to drone/operator
// correlations. A pair qualifies when either side's MAC matches a known
// drone detection identifier; the matching side becomes the drone and the
// other side the operator. Returns the deduplicated correlation list above
// the threshold.
func (s *Service) RefreshCorrelations(ctx context.Context, minConfidence float64) ([]domain.Correlation, error) {
	if s.devices != nil && s.correlator != nil {
		if err := s.refreshPairs(ctx, minConfidence); err != nil {
			return nil, err
		}
	}
	return s.store.ListCorrelations(ctx, minConfidence, 200)
}

func (s *Service) refreshPairs(ctx context.Context, minConfidence float64) error {
	wifi := s.devices.WiFiNetworks()
	for mac, attrs := range s.devices.WiFiClients() {
		if _, ok := wifi[mac]; !ok {
			wifi[mac] = attrs
		}
	}
	bt := s.devices.BTDevices()

	pairs := s.correlator.Pairs(wifi, bt, minConfidence)
	if len(pairs) == 0 {
		return nil
	}

	detections, err := s.store.ListDetections(ctx, ports.DetectionFilter{
		MinConfidence: knownDroneThreshold,
		Limit:         5000,
	})
	if err != nil {
		return err
	}
	known := make(map[string]struct{}, len(detections))
	for _, d := range detections {
		known[strings.ToUpper(d.Identifier)] = struct{}{}
	}

	now := s.now().UTC()
	for _, pair := range pairs {
		wifiMAC := strings.ToUpper(pair.WiFiMAC)
		btMAC := strings.ToUpper(pair.BTMAC)

		var droneID, operatorID string
		if _, ok := known[wifiMAC]; ok {
			droneID, operatorID = wifiMAC, btMAC
		} else if _, ok := known[btMAC]; ok {
			droneID, operatorID = btMAC, wifiMAC
		} else {
			continue
		}

		if _, err := s.store.AddCorrelation(ctx, domain.Correlation{
			DroneIdentifier:    droneID,
			OperatorIdentifier: operatorID,
			Method:             domain.MethodWiFiBTCorrelation,
			Confidence:         pair.Confidence,
			Evidence:           pair.Evidence,
			CreatedAt:          now,
		}); err != nil {
			return err
		}
	}
	return nil
}

// ListCorrelations returns the deduplicated correlation list without
// refreshing pairs first.
func (s *Service) ListCorrelations(ctx context.Context, minConfidence float64, limit int) ([]domain.Correlation, error) {
	return s.store.ListCorrelations(ctx, minConfidence, limit)
}
