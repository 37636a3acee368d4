// Package correlation provides the in-memory device cache and the
// WiFi<->BT pairing heuristic consumed by correlation refresh.
package correlation

import (
	"strings"
	"sync"
	"time"

	"github.com/skyward-ops/droneops/internal/core/ports"
)

// DeviceCache is a concurrent-safe in-memory store of recently observed
// wifi and bluetooth devices. Reads return deep copies so callers can hold
// snapshots without racing writers.
type DeviceCache struct {
	mu       sync.RWMutex
	networks map[string]map[string]any
	clients  map[string]map[string]any
	bt       map[string]map[string]any

	now func() time.Time
}

// NewDeviceCache creates an empty cache using the wall clock.
func NewDeviceCache() *DeviceCache {
	return &DeviceCache{
		networks: make(map[string]map[string]any),
		clients:  make(map[string]map[string]any),
		bt:       make(map[string]map[string]any),
		now:      time.Now,
	}
}

// NewDeviceCacheWithClock creates an empty cache with an injected clock.
func NewDeviceCacheWithClock(now func() time.Time) *DeviceCache {
	c := NewDeviceCache()
	c.now = now
	return c
}

// ObserveWiFiNetwork records or refreshes a wifi network sighting.
func (c *DeviceCache) ObserveWiFiNetwork(mac string, attrs map[string]any) {
	c.observe(c.networks, mac, attrs)
}

// ObserveWiFiClient records or refreshes a wifi client sighting.
func (c *DeviceCache) ObserveWiFiClient(mac string, attrs map[string]any) {
	c.observe(c.clients, mac, attrs)
}

// ObserveBTDevice records or refreshes a bluetooth device sighting.
func (c *DeviceCache) ObserveBTDevice(mac string, attrs map[string]any) {
	c.observe(c.bt, mac, attrs)
}

func (c *DeviceCache) observe(table map[string]map[string]any, mac string, attrs map[string]any) {
	mac = strings.ToUpper(strings.TrimSpace(mac))
	if mac == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry := table[mac]
	if entry == nil {
		entry = map[string]any{"first_seen": c.now().UTC()}
		table[mac] = entry
	}
	for k, v := range attrs {
		entry[k] = v
	}
	entry["last_seen"] = c.now().UTC()
}

// WiFiNetworks returns a snapshot of observed wifi networks.
func (c *DeviceCache) WiFiNetworks() map[string]map[string]any {
	return c.snapshot(c.networks)
}

// WiFiClients returns a snapshot of observed wifi clients.
func (c *DeviceCache) WiFiClients() map[string]map[string]any {
	return c.snapshot(c.clients)
}

// BTDevices returns a snapshot of observed bluetooth devices.
func (c *DeviceCache) BTDevices() map[string]map[string]any {
	return c.snapshot(c.bt)
}

func (c *DeviceCache) snapshot(table map[string]map[string]any) map[string]map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]map[string]any, len(table))
	for mac, attrs := range table {
		copied := make(map[string]any, len(attrs))
		for k, v := range attrs {
			copied[k] = v
		}
		out[mac] = copied
	}
	return out
}

var _ ports.DeviceCache = (*DeviceCache)(nil)
